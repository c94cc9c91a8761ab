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

type SQLBranchRepository struct{ DB *sqlx.DB }

func NewSQLBranchRepository(db *sqlx.DB) *SQLBranchRepository {
	return &SQLBranchRepository{DB: db}
}

func (s *SQLBranchRepository) Create(ctx context.Context, b *domain.Branch) (_ int64, err error) {
	defer obs.Time(ctx, "branches.Create")(&err)

	var id int64
	err = s.DB.QueryRowxContext(ctx, s.DB.Rebind(`
	INSERT INTO branches (name, zone, address, created_at)
	VALUES (?, ?, ?, ?)
	RETURNING id;
	`), b.Name, b.Zone, b.Address, b.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create branch: %w", err)
	}
	return id, nil
}

func (s *SQLBranchRepository) GetByID(ctx context.Context, id int64) (_ *domain.Branch, err error) {
	defer obs.Time(ctx, "branches.GetByID")(&err)

	var b domain.Branch
	err = s.DB.GetContext(ctx, &b, s.DB.Rebind(`
	SELECT id, name, zone, address, created_at FROM branches WHERE id = ?;
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get branch %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get branch %d: %w", id, err)
	}
	return &b, nil
}

func (s *SQLBranchRepository) List(ctx context.Context) (_ []*domain.Branch, err error) {
	defer obs.Time(ctx, "branches.List")(&err)

	out := make([]*domain.Branch, 0, 8)
	err = s.DB.SelectContext(ctx, &out, `
	SELECT id, name, zone, address, created_at FROM branches ORDER BY name, id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return out, nil
}
