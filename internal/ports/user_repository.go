package ports

import (
	"context"
	"pickup-request-service/internal/domain"
)

// Port: storage of accounts. Create returns domain.ErrDuplicateEmail when
// the normalized email is taken.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListByRoles returns active users of the given roles ordered by display name.
	ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.CollectorOption, error)
	FirstByRole(ctx context.Context, role domain.Role) (int64, bool, error)
	FirstCollectorInZone(ctx context.Context, zone string) (int64, bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type BranchRepository interface {
	Create(ctx context.Context, b *domain.Branch) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Branch, error)
	List(ctx context.Context) ([]*domain.Branch, error)
}
