package ports

import (
	"context"
	"pickup-request-service/internal/domain"
	"time"
)

// CreateOptions carries the values the engine decides on, so the store never
// generates identifiers or reads the clock itself.
type CreateOptions struct {
	TrackingCode string
	Now          time.Time
	// AutoRoute claims the request for the first active collector of its
	// zone inside the creating transaction.
	AutoRoute bool
}

// Port: persistence of pickup requests and their owned addresses and waybills.
//
// Transition methods are single conditional updates. They report false when
// the guard matched no row and leave classification to the caller.
type RequestRepository interface {
	Create(ctx context.Context, in domain.NewRequest, opts CreateOptions) (*domain.Request, error)
	GetByID(ctx context.Context, id int64) (*domain.Request, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.Request, error)

	Assign(ctx context.Context, id, collectorID int64, now time.Time) (bool, error)
	Cancel(ctx context.Context, id, userID int64, now time.Time) (bool, error)
	StartTransit(ctx context.Context, id, collectorID int64, code string, now time.Time) (bool, error)
	Deliver(ctx context.Context, id, collectorID int64, now time.Time) (bool, error)
	Confirm(ctx context.Context, id int64, code string, now time.Time) (bool, error)

	// AttachWaybill inserts w and links it to the request in one transaction.
	// It returns nil when the request is cancelled or already has a waybill.
	AttachWaybill(ctx context.Context, id int64, w domain.Waybill) (*domain.Waybill, error)
	GetWaybill(ctx context.Context, id int64) (*domain.Waybill, error)
	SetWaybillStatus(ctx context.Context, waybillID int64, status domain.Status) error

	ListByUser(ctx context.Context, userID int64) ([]*domain.Request, error)
	// ListByZone returns every status when statuses is empty.
	ListByZone(ctx context.Context, zone string, statuses []domain.Status) ([]*domain.Request, error)
	ListByCollector(ctx context.Context, collectorID int64) ([]*domain.Request, error)
	CountByStatus(ctx context.Context, zone string) ([]domain.StatusCount, error)
}
