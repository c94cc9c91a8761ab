package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/obs"
	"pickup-request-service/internal/ports"

	"go.uber.org/zap"
)

// Engine drives requests through their lifecycle. Every transition is a
// single guarded update; when it misses, the row is re-read only to explain
// the failure.
type Engine struct {
	requests ports.RequestRepository
	users    ports.UserRepository

	notifier  ports.Notifier
	announcer ports.Announcer
	geocoder  ports.Geocoder
	metrics   *obs.Metrics
	log       *zap.Logger

	autoRoute bool
	now       func() time.Time
	newCode   func() (string, error)
}

type Option func(*Engine)

func WithNotifier(n ports.Notifier) Option   { return func(e *Engine) { e.notifier = n } }
func WithAnnouncer(a ports.Announcer) Option { return func(e *Engine) { e.announcer = a } }
func WithMetrics(m *obs.Metrics) Option      { return func(e *Engine) { e.metrics = m } }
func WithLogger(l *zap.Logger) Option        { return func(e *Engine) { e.log = l } }

// WithGeocoder fills in coordinates for addresses submitted without them.
func WithGeocoder(g ports.Geocoder) Option { return func(e *Engine) { e.geocoder = g } }

// WithAutoRoute claims each new request for the first active collector of
// its zone, when there is one.
func WithAutoRoute(on bool) Option { return func(e *Engine) { e.autoRoute = on } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.newCode = gen }
}

func NewEngine(requests ports.RequestRepository, users ports.UserRepository, opts ...Option) *Engine {
	e := &Engine{
		requests: requests,
		users:    users,
		log:      zap.L(),
		now:      time.Now,
		newCode:  NewConfirmationCode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time { return e.now().UTC() }

// Create stores a new request and its address atomically.
func (e *Engine) Create(ctx context.Context, in domain.NewRequest) (_ *domain.Request, err error) {
	defer obs.Time(ctx, "engine.Create")(&err)

	if err := in.Normalize(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if _, err := e.users.GetByID(ctx, in.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("user_id", "unknown user")
		}
		return nil, fmt.Errorf("create: %w", err)
	}

	e.locate(ctx, &in.Address)

	r, err := e.requests.Create(ctx, in, ports.CreateOptions{
		TrackingCode: NewTrackingCode(),
		Now:          e.clock(),
		AutoRoute:    e.autoRoute,
	})
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	routed := r.Status == domain.StatusAssigned
	e.metrics.RecordCreated(routed)

	if !routed && e.announcer != nil {
		msg := fmt.Sprintf("New pending request #%d in zone %s for %s (%s)", r.ID, r.Zone, r.RequestedDate, r.TimeWindow)
		if aerr := e.announcer.Announce(ctx, msg); aerr != nil {
			e.log.Warn("announce new request failed",
				zap.String("req_id", obs.RequestID(ctx)),
				zap.Int64("request_id", r.ID),
				zap.Error(aerr),
			)
		}
	}
	return r, nil
}

// Assign hands a pending request to a collector. The collector must be an
// active field user of the request's zone.
func (e *Engine) Assign(ctx context.Context, requestID, collectorID int64) (err error) {
	defer obs.Time(ctx, "engine.Assign")(&err)
	defer e.record(domain.TransitionAssign, &err)

	if err := e.checkCollector(ctx, requestID, collectorID); err != nil {
		return err
	}

	ok, err := e.requests.Assign(ctx, requestID, collectorID, e.clock())
	if err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	if !ok {
		return e.classify(ctx, domain.TransitionAssign, requestID, collectorID)
	}

	e.echoWaybill(ctx, requestID, domain.StatusAssigned)
	return nil
}

// Cancel is only allowed to the owner, and only while pending.
func (e *Engine) Cancel(ctx context.Context, requestID, callerUserID int64) (err error) {
	defer obs.Time(ctx, "engine.Cancel")(&err)
	defer e.record(domain.TransitionCancel, &err)

	ok, err := e.requests.Cancel(ctx, requestID, callerUserID, e.clock())
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if !ok {
		return e.classify(ctx, domain.TransitionCancel, requestID, callerUserID)
	}

	e.echoWaybill(ctx, requestID, domain.StatusCancelled)
	return nil
}

// StartTransit moves the request on the road and returns the confirmation
// code the recipient must give back. A pending request is claimed by
// collectorID in the same update.
func (e *Engine) StartTransit(ctx context.Context, requestID, collectorID int64) (_ string, err error) {
	defer obs.Time(ctx, "engine.StartTransit")(&err)
	defer e.record(domain.TransitionStartTransit, &err)

	if err := e.checkCollector(ctx, requestID, collectorID); err != nil {
		return "", err
	}

	code, err := e.newCode()
	if err != nil {
		return "", fmt.Errorf("start transit: %w", err)
	}

	ok, err := e.requests.StartTransit(ctx, requestID, collectorID, code, e.clock())
	if err != nil {
		return "", fmt.Errorf("start transit: %w", err)
	}
	if !ok {
		return "", e.classify(ctx, domain.TransitionStartTransit, requestID, collectorID)
	}

	r := e.echoWaybill(ctx, requestID, domain.StatusInTransit)
	e.notifyOwner(ctx, r, code)
	return code, nil
}

// Deliver is only allowed to the collector holding the request.
func (e *Engine) Deliver(ctx context.Context, requestID, collectorID int64) (err error) {
	defer obs.Time(ctx, "engine.Deliver")(&err)
	defer e.record(domain.TransitionDeliver, &err)

	if err := e.checkCollector(ctx, requestID, collectorID); err != nil {
		return err
	}

	ok, err := e.requests.Deliver(ctx, requestID, collectorID, e.clock())
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	if !ok {
		return e.classify(ctx, domain.TransitionDeliver, requestID, collectorID)
	}

	e.echoWaybill(ctx, requestID, domain.StatusDelivered)
	return nil
}

// Confirm closes a delivered request when code matches the one generated
// on entering transit.
func (e *Engine) Confirm(ctx context.Context, requestID int64, code string) (err error) {
	defer obs.Time(ctx, "engine.Confirm")(&err)
	defer e.record(domain.TransitionConfirm, &err)

	if code == "" {
		return domain.Invalid("code", "is required")
	}

	ok, err := e.requests.Confirm(ctx, requestID, code, e.clock())
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return e.classify(ctx, domain.TransitionConfirm, requestID, 0)
	}

	e.echoWaybill(ctx, requestID, domain.StatusConfirmed)
	return nil
}

// AttachWaybill creates a waybill for the request. A request has at most
// one, and a cancelled request gets none.
func (e *Engine) AttachWaybill(ctx context.Context, requestID int64, in domain.NewWaybill) (_ *domain.Waybill, err error) {
	defer obs.Time(ctx, "engine.AttachWaybill")(&err)

	if err := in.Validate(); err != nil {
		return nil, err
	}

	r, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("attach waybill: %w", err)
	}

	w, err := e.requests.AttachWaybill(ctx, requestID, domain.Waybill{
		TrackingNumber: NewWaybillNumber(),
		Carrier:        in.Carrier,
		Description:    in.Description,
		DeclaredValue:  in.DeclaredValue,
		WeightKg:       in.WeightKg,
		Status:         r.Status,
		CreatedAt:      e.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("attach waybill: %w", err)
	}
	if w == nil {
		cur, err := e.requests.GetByID(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("attach waybill: %w", err)
		}
		if cur.Status == domain.StatusCancelled {
			return nil, fmt.Errorf("attach waybill: request %d is cancelled: %w", requestID, domain.ErrConflict)
		}
		return nil, fmt.Errorf("attach waybill: request %d already has a waybill: %w", requestID, domain.ErrConflict)
	}
	return w, nil
}

// checkCollector admits active field users working the request's zone.
func (e *Engine) checkCollector(ctx context.Context, requestID, collectorID int64) error {
	u, err := e.users.GetByID(ctx, collectorID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid("collector_id", "unknown user")
	}
	if err != nil {
		return fmt.Errorf("check collector: %w", err)
	}
	if !u.Role.IsField() {
		return domain.Invalid("collector_id", fmt.Sprintf("role %s cannot take requests", u.Role))
	}
	if !u.Active {
		return domain.Invalid("collector_id", "account disabled")
	}

	r, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("check collector: %w", err)
	}
	if u.Zone == nil || *u.Zone != r.Zone {
		return fmt.Errorf("request %d is in zone %s, outside collector %d's zone: %w",
			requestID, r.Zone, collectorID, domain.ErrUnauthorized)
	}
	return nil
}

// classify explains a guarded update that matched no row. actor is the
// user the transition ran for; it is ignored by confirm.
func (e *Engine) classify(ctx context.Context, t domain.Transition, requestID, actor int64) error {
	r, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("%s: %w", t, err)
	}

	switch t {
	case domain.TransitionCancel:
		if r.UserID != actor {
			return fmt.Errorf("cancel request %d: not the owner: %w", requestID, domain.ErrUnauthorized)
		}
	case domain.TransitionDeliver:
		if t.AllowedFrom(r.Status) && !r.HasCollector(actor) {
			return fmt.Errorf("deliver request %d: held by another collector: %w", requestID, domain.ErrUnauthorized)
		}
	case domain.TransitionConfirm:
		if t.AllowedFrom(r.Status) {
			return fmt.Errorf("confirm request %d: %w", requestID, domain.ErrCodeMismatch)
		}
	}

	return &domain.ConflictError{RequestID: requestID, Transition: t, Current: r.Status}
}

func (e *Engine) record(t domain.Transition, errp *error) {
	e.metrics.RecordTransition(string(t), outcome(*errp))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrCodeMismatch):
		return "code_mismatch"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

// echoWaybill copies the new status onto the linked waybill. It runs after
// the transition committed, so failures are only logged. The re-read
// request is returned for follow-up side effects and may be nil.
func (e *Engine) echoWaybill(ctx context.Context, requestID int64, status domain.Status) *domain.Request {
	r, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		e.log.Warn("reload after transition failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.Int64("request_id", requestID),
			zap.Error(err),
		)
		return nil
	}
	if r.WaybillID == nil {
		return r
	}

	if err := e.requests.SetWaybillStatus(ctx, *r.WaybillID, status); err != nil {
		e.log.Warn("waybill status echo failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.Int64("request_id", requestID),
			zap.Int64("waybill_id", *r.WaybillID),
			zap.Error(err),
		)
	}
	return r
}

// locate geocodes addr in place. A request is never refused for lack of
// coordinates.
func (e *Engine) locate(ctx context.Context, addr *domain.Address) {
	if e.geocoder == nil {
		return
	}
	if _, ok := addr.Coordinates(); ok {
		return
	}

	query := addr.FullAddress
	if addr.City != "" {
		query += ", " + addr.City
	}
	c, err := e.geocoder.Geocode(ctx, query)
	if err != nil {
		e.log.Warn("geocode address failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.String("address", query),
			zap.Error(err),
		)
		return
	}
	addr.Lat, addr.Lon = &c.Lat, &c.Lon
}

func (e *Engine) notifyOwner(ctx context.Context, r *domain.Request, code string) {
	if e.notifier == nil || r == nil {
		return
	}

	owner, err := e.users.GetByID(ctx, r.UserID)
	if err != nil {
		e.log.Warn("load owner for notification failed", zap.Int64("request_id", r.ID), zap.Error(err))
		return
	}
	if owner.Phone == nil || *owner.Phone == "" {
		return
	}

	msg := fmt.Sprintf("Your pickup %s is on its way. Confirmation code: %s", r.TrackingCode, code)
	if err := e.notifier.Send(ctx, *owner.Phone, msg); err != nil {
		e.log.Warn("transit notification failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.Int64("request_id", r.ID),
			zap.Error(err),
		)
	}
}
