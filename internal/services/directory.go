package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/obs"
	"pickup-request-service/internal/ports"

	"golang.org/x/crypto/bcrypt"
)

// Directory manages accounts: registration, credentials and role lookups.
type Directory struct {
	users    ports.UserRepository
	branches ports.BranchRepository
	throttle ports.LoginThrottle

	now  func() time.Time
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewDirectory(users ports.UserRepository, branches ports.BranchRepository, throttle ports.LoginThrottle) *Directory {
	return &Directory{
		users:    users,
		branches: branches,
		throttle: throttle,
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	Role        string
	Zone        string
	BranchID    *int64
}

func validatePassword(pw string) error {
	if len(pw) < 6 {
		return domain.Invalid("password", "must be at least 6 characters")
	}
	for _, r := range pw {
		if unicode.IsLetter(r) {
			return nil
		}
	}
	return domain.Invalid("password", "must contain at least 1 letter")
}

// HashPassword returns the bcrypt hash stored for pw.
func (d *Directory) HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), d.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// dummy is compared against when the email is unknown, so a miss costs the
// same bcrypt work as a wrong password.
func (d *Directory) dummy() []byte {
	d.dummyOnce.Do(func() {
		d.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pickup-request-service"), d.cost)
	})
	return d.dummyHash
}

func (d *Directory) Register(ctx context.Context, in RegisterInput) (_ int64, err error) {
	defer obs.Time(ctx, "directory.Register")(&err)

	email := domain.NormalizeEmail(in.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return 0, err
	}
	if err := validatePassword(in.Password); err != nil {
		return 0, err
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return 0, domain.Invalid("display_name", "is required")
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return 0, err
	}
	zone := strings.TrimSpace(in.Zone)
	if err := domain.ValidateRoleZone(role, zone); err != nil {
		return 0, err
	}

	u := &domain.User{
		Email:       email,
		DisplayName: name,
		Role:        role,
		Active:      true,
		CreatedAt:   d.now().UTC(),
	}
	if zone != "" {
		u.Zone = &zone
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		u.Phone = &phone
	}

	if in.BranchID != nil {
		if role != domain.RoleBranchStaff {
			return 0, domain.Invalid("branch_id", "only branch staff belong to a branch")
		}
		if _, err := d.branches.GetByID(ctx, *in.BranchID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return 0, domain.Invalid("branch_id", "unknown branch")
			}
			return 0, fmt.Errorf("register: %w", err)
		}
		u.BranchID = in.BranchID
	}

	u.PasswordHash, err = d.HashPassword(in.Password)
	if err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}

	id, err := d.users.Create(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}
	return id, nil
}

// Login verifies credentials. Unknown email, wrong password and inactive
// accounts are all domain.ErrUnauthorized.
func (d *Directory) Login(ctx context.Context, email, password string) (_ domain.Caller, err error) {
	defer obs.Time(ctx, "directory.Login")(&err)

	email = domain.NormalizeEmail(email)
	if err := d.throttle.Check(ctx, email); err != nil {
		return domain.Caller{}, err
	}

	u, err := d.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Caller{}, fmt.Errorf("login: %w", err)
	}
	hash := d.dummy()
	if u != nil {
		hash = []byte(u.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil || u == nil {
		if ferr := d.throttle.Fail(ctx, email); ferr != nil {
			return domain.Caller{}, fmt.Errorf("login: %w", ferr)
		}
		return domain.Caller{}, fmt.Errorf("login %s: bad credentials: %w", email, domain.ErrUnauthorized)
	}
	if !u.Active {
		return domain.Caller{}, fmt.Errorf("login %s: account disabled: %w", email, domain.ErrUnauthorized)
	}

	if err := d.throttle.Reset(ctx, email); err != nil {
		return domain.Caller{}, fmt.Errorf("login: %w", err)
	}
	return domain.CallerFor(u), nil
}

// FindCollectorsByRole lists active users of the given roles by display
// name. Role labels are normalized; an unknown label is a validation error.
func (d *Directory) FindCollectorsByRole(ctx context.Context, roles []string) ([]domain.CollectorOption, error) {
	parsed := make([]domain.Role, 0, len(roles))
	for _, r := range roles {
		role, err := domain.ParseRole(r)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, role)
	}
	return d.users.ListByRoles(ctx, parsed)
}

func (d *Directory) FirstUserIDByRole(ctx context.Context, role string) (int64, bool, error) {
	r, err := domain.ParseRole(role)
	if err != nil {
		return 0, false, err
	}
	return d.users.FirstByRole(ctx, r)
}

func (d *Directory) FirstCollectorInZone(ctx context.Context, zone string) (int64, bool, error) {
	return d.users.FirstCollectorInZone(ctx, strings.TrimSpace(zone))
}

// RoleOf returns false when the user does not exist.
func (d *Directory) RoleOf(ctx context.Context, userID int64) (domain.Role, bool, error) {
	u, err := d.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return u.Role, true, nil
}

func (d *Directory) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return d.users.GetByID(ctx, userID)
}

// SetActive enables or disables an account. Only managers may do this, and
// not on themselves.
func (d *Directory) SetActive(ctx context.Context, caller domain.Caller, userID int64, active bool) error {
	if caller.Role != domain.RoleManager {
		return fmt.Errorf("set active: role %s: %w", caller.Role, domain.ErrUnauthorized)
	}
	if caller.UserID == userID && !active {
		return domain.Invalid("user_id", "cannot deactivate yourself")
	}
	return d.users.SetActive(ctx, userID, active)
}
