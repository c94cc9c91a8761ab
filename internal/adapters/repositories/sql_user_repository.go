package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/obs"

	"github.com/jmoiron/sqlx"
)

// SQL-backed implementation of the UserRepository port.
type SQLUserRepository struct{ DB *sqlx.DB }

func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{DB: db}
}

const userColumns = `id, email, display_name, phone, password_hash, role, zone, branch_id, active, created_at`

func (s *SQLUserRepository) Create(ctx context.Context, u *domain.User) (_ int64, err error) {
	defer obs.Time(ctx, "users.Create")(&err)

	if s.DB == nil {
		return 0, errors.New("user repository: DB is nil")
	}

	query := s.DB.Rebind(`
	INSERT INTO users (
		email,
		display_name,
		phone,
		password_hash,
		role,
		zone,
		branch_id,
		active,
		created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id;
	`)

	var id int64
	err = s.DB.QueryRowxContext(ctx, query,
		u.Email, u.DisplayName, u.Phone, u.PasswordHash, u.Role, u.Zone, u.BranchID, u.Active, u.CreatedAt,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("create user %q: %w", u.Email, domain.ErrDuplicateEmail)
	}
	if err != nil {
		return 0, fmt.Errorf("create user: insert: %w", err)
	}
	return id, nil
}

func (s *SQLUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getOne(ctx, "users.GetByID", `id = ?`, id)
}

func (s *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "users.GetByEmail", `email = ?`, domain.NormalizeEmail(email))
}

func (s *SQLUserRepository) getOne(ctx context.Context, op, where string, arg any) (_ *domain.User, err error) {
	defer obs.Time(ctx, op)(&err)

	var u domain.User
	query := s.DB.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	err = s.DB.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: user %v: %w", op, arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (s *SQLUserRepository) ListByRoles(ctx context.Context, roles []domain.Role) (_ []domain.CollectorOption, err error) {
	defer obs.Time(ctx, "users.ListByRoles")(&err)

	out := []domain.CollectorOption{}
	if len(roles) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
	SELECT id, display_name
	FROM users
	WHERE role IN (?) AND active = TRUE
	ORDER BY display_name ASC, id ASC;
	`, roles)
	if err != nil {
		return nil, fmt.Errorf("list users by role: build query: %w", err)
	}

	if err := s.DB.SelectContext(ctx, &out, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return out, nil
}

func (s *SQLUserRepository) FirstByRole(ctx context.Context, role domain.Role) (_ int64, _ bool, err error) {
	defer obs.Time(ctx, "users.FirstByRole")(&err)

	query := s.DB.Rebind(`SELECT id FROM users WHERE UPPER(role) = UPPER(?) ORDER BY id LIMIT 1`)
	return firstID(ctx, s.DB, query, string(role))
}

func (s *SQLUserRepository) FirstCollectorInZone(ctx context.Context, zone string) (_ int64, _ bool, err error) {
	defer obs.Time(ctx, "users.FirstCollectorInZone")(&err)

	return firstCollectorInZone(ctx, s.DB, zone)
}

func firstCollectorInZone(ctx context.Context, q sqlx.ExtContext, zone string) (int64, bool, error) {
	query, args, err := sqlx.In(`
	SELECT id
	FROM users
	WHERE role IN (?) AND zone = ? AND active = TRUE
	ORDER BY id
	LIMIT 1;
	`, domain.FieldRoles, zone)
	if err != nil {
		return 0, false, fmt.Errorf("first collector in zone: build query: %w", err)
	}
	return firstID(ctx, q, q.Rebind(query), args...)
}

func firstID(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *SQLUserRepository) SetActive(ctx context.Context, id int64, active bool) (err error) {
	defer obs.Time(ctx, "users.SetActive")(&err)

	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(`UPDATE users SET active = ? WHERE id = ?`), active, id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set active: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set active: user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
