package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/ports"
)

// Queries serves read views over committed state. Nothing is cached.
type Queries struct {
	requests ports.RequestRepository
	branches ports.BranchRepository
	tracker  ports.TrackingProvider
}

// NewQueries builds the read side. tracker may be nil.
func NewQueries(requests ports.RequestRepository, branches ports.BranchRepository, tracker ports.TrackingProvider) *Queries {
	return &Queries{requests: requests, branches: branches, tracker: tracker}
}

// GetByID returns the request when caller may see it. Requests the caller
// may not see are reported as not found.
func (q *Queries) GetByID(ctx context.Context, caller domain.Caller, requestID int64) (*domain.Request, error) {
	r, err := q.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !caller.CanView(r) {
		return nil, fmt.Errorf("get request %d: %w", requestID, domain.ErrNotFound)
	}
	return r, nil
}

func (q *Queries) ListByUser(ctx context.Context, userID int64) ([]*domain.Request, error) {
	return q.requests.ListByUser(ctx, userID)
}

// ListByZone defaults to the pending pool when no status is given.
func (q *Queries) ListByZone(ctx context.Context, zone string, statuses []string) ([]*domain.Request, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, domain.Invalid("zone", "is required")
	}

	filter, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		filter = []domain.Status{domain.StatusPending}
	}
	return q.requests.ListByZone(ctx, zone, filter)
}

func (q *Queries) ListByCollector(ctx context.Context, collectorID int64) ([]*domain.Request, error) {
	return q.requests.ListByCollector(ctx, collectorID)
}

// AuthorizeDispatch reports whether caller may assign or attach a waybill
// to the request. Branch staff are held to their branch's zone.
func (q *Queries) AuthorizeDispatch(ctx context.Context, caller domain.Caller, requestID int64) error {
	if !caller.Role.CanAssign() {
		return fmt.Errorf("dispatch request %d: role %s: %w", requestID, caller.Role, domain.ErrUnauthorized)
	}

	r, err := q.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if caller.Role != domain.RoleBranchStaff {
		return nil
	}

	b, err := q.branches.GetByID(ctx, caller.BranchID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("dispatch request %d: caller has no branch: %w", requestID, domain.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("dispatch request %d: %w", requestID, err)
	}
	if b.Zone != r.Zone {
		return fmt.Errorf("dispatch request %d: zone %s is outside branch %d: %w", requestID, r.Zone, b.ID, domain.ErrUnauthorized)
	}
	return nil
}

// ListByBranch lists the requests of the branch's zone, all statuses unless
// filtered.
func (q *Queries) ListByBranch(ctx context.Context, branchID int64, statuses []string) ([]*domain.Request, error) {
	b, err := q.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}

	filter, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	return q.requests.ListByZone(ctx, b.Zone, filter)
}

// Track resolves a public tracking code, falling back to the external
// backend when the code is not local.
func (q *Queries) Track(ctx context.Context, code string) (*domain.TrackingView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.Invalid("code", "is required")
	}

	r, err := q.requests.GetByTrackingCode(ctx, code)
	if err == nil {
		return domain.TrackingFor(r), nil
	}
	if !errors.Is(err, domain.ErrNotFound) || q.tracker == nil {
		return nil, err
	}
	return q.tracker.Lookup(ctx, code)
}

// ZoneSummary counts the requests of zone in every status, zeros included,
// in workflow order.
func (q *Queries) ZoneSummary(ctx context.Context, zone string) ([]domain.StatusCount, error) {
	counts, err := q.requests.CountByStatus(ctx, strings.TrimSpace(zone))
	if err != nil {
		return nil, err
	}

	byStatus := make(map[domain.Status]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] += c.Count
	}

	out := make([]domain.StatusCount, 0, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		out = append(out, domain.StatusCount{Status: s, Count: byStatus[s]})
	}
	return out, nil
}

func parseStatuses(raw []string) ([]domain.Status, error) {
	out := make([]domain.Status, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		st, err := domain.ParseStatus(s)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
