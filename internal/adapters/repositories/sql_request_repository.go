package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/obs"
	"pickup-request-service/internal/ports"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQL-backed implementation of the RequestRepository port.
type SQLRequestRepository struct{ DB *sqlx.DB }

func NewSQLRequestRepository(db *sqlx.DB) *SQLRequestRepository {
	return &SQLRequestRepository{DB: db}
}

const selectRequests = `
	SELECT
		r.id,
		r.tracking_code,
		r.user_id,
		r.collector_id,
		r.address_id,
		r.waybill_id,
		r.requested_date,
		r.time_window,
		r.notes,
		r.zone,
		r.status,
		r.confirmation_code,
		r.created_at,
		r.updated_at,
		r.assigned_at,
		r.in_transit_at,
		r.delivered_at,
		r.confirmed_at,
		r.cancelled_at,
		a.full_address,
		a.city
	FROM requests r
	JOIN addresses a ON a.id = r.address_id
`

const newestFirst = ` ORDER BY r.created_at DESC, r.id DESC`

// Create stores the address and the request in one transaction. With
// AutoRoute the request is claimed for the zone's first active collector
// before commit, through the same guarded update Assign uses.
func (s *SQLRequestRepository) Create(ctx context.Context, in domain.NewRequest, opts ports.CreateOptions) (_ *domain.Request, err error) {
	defer obs.Time(ctx, "requests.Create")(&err)

	if s.DB == nil {
		return nil, errors.New("request repository: DB is nil")
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var addressID int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
	INSERT INTO addresses (
		user_id,
		full_address,
		city,
		lat,
		lon,
		created_at
	)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING id;
	`), in.UserID, in.Address.FullAddress, in.Address.City, in.Address.Lat, in.Address.Lon, opts.Now).Scan(&addressID)
	if err != nil {
		return nil, fmt.Errorf("create request: insert address: %w", err)
	}

	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
	INSERT INTO requests (
		tracking_code,
		user_id,
		address_id,
		requested_date,
		time_window,
		notes,
		zone,
		status,
		created_at,
		updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id;
	`), opts.TrackingCode, in.UserID, addressID, in.RequestedDate, in.TimeWindow, in.Notes, in.Zone,
		domain.StatusPending, opts.Now, opts.Now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create request: insert request: %w", err)
	}

	if opts.AutoRoute {
		collectorID, ok, err := firstCollectorInZone(ctx, tx, in.Zone)
		if err != nil {
			return nil, fmt.Errorf("create request: auto-route: %w", err)
		}
		if ok {
			if _, err := assign(ctx, tx, id, collectorID, opts.Now); err != nil {
				return nil, fmt.Errorf("create request: auto-route: %w", err)
			}
		}
	}

	r, err := getRequest(ctx, tx, `r.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("create request: reload: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create request: commit tx: %w", err)
	}
	return r, nil
}

func (s *SQLRequestRepository) GetByID(ctx context.Context, id int64) (_ *domain.Request, err error) {
	defer obs.Time(ctx, "requests.GetByID")(&err)
	return getRequest(ctx, s.DB, `r.id = ?`, id)
}

func (s *SQLRequestRepository) GetByTrackingCode(ctx context.Context, code string) (_ *domain.Request, err error) {
	defer obs.Time(ctx, "requests.GetByTrackingCode")(&err)
	return getRequest(ctx, s.DB, `r.tracking_code = ?`, code)
}

func getRequest(ctx context.Context, q sqlx.ExtContext, where string, arg any) (*domain.Request, error) {
	query := q.Rebind(selectRequests + ` WHERE ` + where)

	var r domain.Request
	err := sqlx.GetContext(ctx, q, &r, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get request %v: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get request %v: %w", arg, err)
	}
	return &r, nil
}

// guarded runs one transition update and reports whether it hit the row.
// Slice arguments expand into IN lists.
func guarded(ctx context.Context, ex sqlx.ExtContext, t domain.Transition, query string, args ...any) (bool, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: build query: %w", t, err)
	}

	res, err := ex.ExecContext(ctx, ex.Rebind(q), a...)
	if err != nil {
		return false, fmt.Errorf("%s: exec: %w", t, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", t, err)
	}
	return n == 1, nil
}

func assign(ctx context.Context, ex sqlx.ExtContext, id, collectorID int64, now time.Time) (bool, error) {
	return guarded(ctx, ex, domain.TransitionAssign, `
	UPDATE requests
	SET status = ?, collector_id = ?, assigned_at = ?, updated_at = ?
	WHERE id = ? AND status IN (?);
	`, domain.StatusAssigned, collectorID, now, now, id, domain.TransitionAssign.From())
}

func (s *SQLRequestRepository) Assign(ctx context.Context, id, collectorID int64, now time.Time) (_ bool, err error) {
	defer obs.Time(ctx, "requests.Assign")(&err)
	return assign(ctx, s.DB, id, collectorID, now)
}

func (s *SQLRequestRepository) Cancel(ctx context.Context, id, userID int64, now time.Time) (_ bool, err error) {
	defer obs.Time(ctx, "requests.Cancel")(&err)

	return guarded(ctx, s.DB, domain.TransitionCancel, `
	UPDATE requests
	SET status = ?, cancelled_at = ?, updated_at = ?
	WHERE id = ? AND status IN (?) AND user_id = ?;
	`, domain.StatusCancelled, now, now, id, domain.TransitionCancel.From(), userID)
}

// StartTransit claims the request for collectorID when it is still
// unassigned. The confirmation code is only written while none exists.
func (s *SQLRequestRepository) StartTransit(ctx context.Context, id, collectorID int64, code string, now time.Time) (_ bool, err error) {
	defer obs.Time(ctx, "requests.StartTransit")(&err)

	return guarded(ctx, s.DB, domain.TransitionStartTransit, `
	UPDATE requests
	SET status = ?, collector_id = COALESCE(collector_id, ?), confirmation_code = ?, in_transit_at = ?, updated_at = ?
	WHERE id = ? AND status IN (?)
		AND (collector_id IS NULL OR collector_id = ?)
		AND confirmation_code IS NULL;
	`, domain.StatusInTransit, collectorID, code, now, now, id, domain.TransitionStartTransit.From(), collectorID)
}

func (s *SQLRequestRepository) Deliver(ctx context.Context, id, collectorID int64, now time.Time) (_ bool, err error) {
	defer obs.Time(ctx, "requests.Deliver")(&err)

	return guarded(ctx, s.DB, domain.TransitionDeliver, `
	UPDATE requests
	SET status = ?, delivered_at = ?, updated_at = ?
	WHERE id = ? AND status IN (?) AND collector_id = ?;
	`, domain.StatusDelivered, now, now, id, domain.TransitionDeliver.From(), collectorID)
}

func (s *SQLRequestRepository) Confirm(ctx context.Context, id int64, code string, now time.Time) (_ bool, err error) {
	defer obs.Time(ctx, "requests.Confirm")(&err)

	return guarded(ctx, s.DB, domain.TransitionConfirm, `
	UPDATE requests
	SET status = ?, confirmed_at = ?, updated_at = ?
	WHERE id = ? AND status IN (?) AND confirmation_code = ?;
	`, domain.StatusConfirmed, now, now, id, domain.TransitionConfirm.From(), code)
}

func (s *SQLRequestRepository) AttachWaybill(ctx context.Context, id int64, w domain.Waybill) (_ *domain.Waybill, err error) {
	defer obs.Time(ctx, "requests.AttachWaybill")(&err)

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("attach waybill: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowxContext(ctx, tx.Rebind(`
	INSERT INTO waybills (
		tracking_number,
		carrier,
		description,
		declared_value,
		weight_kg,
		status,
		created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	RETURNING id;
	`), w.TrackingNumber, w.Carrier, w.Description, w.DeclaredValue, w.WeightKg, w.Status, w.CreatedAt).Scan(&w.ID)
	if err != nil {
		return nil, fmt.Errorf("attach waybill: insert waybill: %w", err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`
	UPDATE requests
	SET waybill_id = ?, updated_at = ?
	WHERE id = ? AND waybill_id IS NULL AND status <> ?;
	`), w.ID, w.CreatedAt, id, domain.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("attach waybill: link request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("attach waybill: rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("attach waybill: commit tx: %w", err)
	}
	return &w, nil
}

func (s *SQLRequestRepository) GetWaybill(ctx context.Context, id int64) (_ *domain.Waybill, err error) {
	defer obs.Time(ctx, "requests.GetWaybill")(&err)

	var w domain.Waybill
	err = s.DB.GetContext(ctx, &w, s.DB.Rebind(`
	SELECT id, tracking_number, carrier, description, declared_value, weight_kg, status, created_at
	FROM waybills
	WHERE id = ?;
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get waybill %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get waybill %d: %w", id, err)
	}
	return &w, nil
}

func (s *SQLRequestRepository) SetWaybillStatus(ctx context.Context, waybillID int64, status domain.Status) (err error) {
	defer obs.Time(ctx, "requests.SetWaybillStatus")(&err)

	if _, err := s.DB.ExecContext(ctx, s.DB.Rebind(`UPDATE waybills SET status = ? WHERE id = ?`), status, waybillID); err != nil {
		return fmt.Errorf("set waybill status: %w", err)
	}
	return nil
}

func (s *SQLRequestRepository) ListByUser(ctx context.Context, userID int64) (_ []*domain.Request, err error) {
	defer obs.Time(ctx, "requests.ListByUser")(&err)
	return s.list(ctx, selectRequests+` WHERE r.user_id = ?`+newestFirst, userID)
}

func (s *SQLRequestRepository) ListByZone(ctx context.Context, zone string, statuses []domain.Status) (_ []*domain.Request, err error) {
	defer obs.Time(ctx, "requests.ListByZone")(&err)

	if len(statuses) == 0 {
		return s.list(ctx, selectRequests+` WHERE r.zone = ?`+newestFirst, zone)
	}
	return s.list(ctx, selectRequests+` WHERE r.zone = ? AND r.status IN (?)`+newestFirst, zone, statuses)
}

func (s *SQLRequestRepository) ListByCollector(ctx context.Context, collectorID int64) (_ []*domain.Request, err error) {
	defer obs.Time(ctx, "requests.ListByCollector")(&err)
	return s.list(ctx, selectRequests+` WHERE r.collector_id = ?`+newestFirst, collectorID)
}

func (s *SQLRequestRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Request, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: build query: %w", err)
	}

	out := make([]*domain.Request, 0, 16)
	if err := s.DB.SelectContext(ctx, &out, s.DB.Rebind(q), a...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

func (s *SQLRequestRepository) CountByStatus(ctx context.Context, zone string) (_ []domain.StatusCount, err error) {
	defer obs.Time(ctx, "requests.CountByStatus")(&err)

	out := []domain.StatusCount{}
	err = s.DB.SelectContext(ctx, &out, s.DB.Rebind(`
	SELECT status, COUNT(*) AS n
	FROM requests
	WHERE zone = ?
	GROUP BY status
	ORDER BY status;
	`), zone)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	return out, nil
}
