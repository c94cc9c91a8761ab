package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/ports"
)

func TestCreateRequestRoundTrip(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")

	in := newRequestInput(owner, "Centro")
	lat, lon := 4.6, -74.08
	in.Address.Lat, in.Address.Lon = &lat, &lon

	created, err := repo.Create(ctx, in, ports.CreateOptions{TrackingCode: "trk-1", Now: testNow})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPending || got.CollectorID != nil || got.ConfirmationCode != nil {
		t.Fatalf("unexpected initial state %+v", got)
	}
	if got.UserID != owner || got.Zone != "Centro" || got.RequestedDate != "2026-10-05" ||
		got.TimeWindow != domain.WindowMorning || got.Notes != "gate code 12" {
		t.Fatalf("fields did not round trip: %+v", got)
	}
	if got.FullAddress != "Calle 10 #5-20" || got.City != "Bogotá" {
		t.Fatalf("address did not round trip: %+v", got)
	}

	byCode, err := repo.GetByTrackingCode(ctx, "trk-1")
	if err != nil || byCode.ID != created.ID {
		t.Fatalf("tracking lookup: %+v %v", byCode, err)
	}

	if _, err := repo.GetByID(ctx, created.ID+1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateFailsForUnknownUserAndLeavesNoAddress(t *testing.T) {
	conn := newTestDB(t)
	repo := NewSQLRequestRepository(conn)

	_, err := repo.Create(context.Background(), newRequestInput(12345, "Centro"), ports.CreateOptions{TrackingCode: "x", Now: testNow})
	if err == nil {
		t.Fatalf("expected foreign key failure")
	}

	var n int
	if err := conn.Get(&n, `SELECT COUNT(*) FROM addresses`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected address rollback, found %d rows", n)
	}
}

func TestGuardedTransitions(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")
	c1 := createUser(t, users, "c1@example.com", domain.RoleCollector, "Centro")
	c2 := createUser(t, users, "c2@example.com", domain.RoleCollector, "Centro")

	r, err := repo.Create(ctx, newRequestInput(owner, "Centro"), ports.CreateOptions{TrackingCode: "t1", Now: testNow})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	later := testNow.Add(time.Hour)

	mustOK := func(name string, ok bool, err error, want bool) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if ok != want {
			t.Fatalf("%s: got %v, want %v", name, ok, want)
		}
	}

	ok, err := repo.Deliver(ctx, r.ID, c1, later)
	mustOK("deliver from pending", ok, err, false)

	ok, err = repo.Assign(ctx, r.ID, c1, later)
	mustOK("assign", ok, err, true)

	ok, err = repo.Assign(ctx, r.ID, c2, later)
	mustOK("second assign", ok, err, false)

	ok, err = repo.Cancel(ctx, r.ID, owner, later)
	mustOK("cancel after assign", ok, err, false)

	ok, err = repo.StartTransit(ctx, r.ID, c2, "1111", later)
	mustOK("transit by other collector", ok, err, false)

	ok, err = repo.StartTransit(ctx, r.ID, c1, "0042", later)
	mustOK("transit", ok, err, true)

	ok, err = repo.Confirm(ctx, r.ID, "0042", later)
	mustOK("confirm before deliver", ok, err, false)

	ok, err = repo.Deliver(ctx, r.ID, c2, later)
	mustOK("deliver by other collector", ok, err, false)

	ok, err = repo.Deliver(ctx, r.ID, c1, later)
	mustOK("deliver", ok, err, true)

	ok, err = repo.Confirm(ctx, r.ID, "9999", later)
	mustOK("confirm wrong code", ok, err, false)

	ok, err = repo.Confirm(ctx, r.ID, "0042", later)
	mustOK("confirm", ok, err, true)

	got, err := repo.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusConfirmed || !got.HasCollector(c1) {
		t.Fatalf("unexpected final state %+v", got)
	}
	if got.ConfirmationCode == nil || *got.ConfirmationCode != "0042" {
		t.Fatalf("code not kept: %v", got.ConfirmationCode)
	}
	for name, ts := range map[string]*time.Time{
		"assigned":   got.AssignedAt,
		"in transit": got.InTransitAt,
		"delivered":  got.DeliveredAt,
		"confirmed":  got.ConfirmedAt,
	} {
		if ts == nil {
			t.Fatalf("%s timestamp not set", name)
		}
	}
	if got.CancelledAt != nil {
		t.Fatalf("cancelled_at should stay empty")
	}
}

func TestStartTransitClaimsPendingRequest(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")
	c1 := createUser(t, users, "c1@example.com", domain.RoleDriver, "Centro")

	r, _ := repo.Create(ctx, newRequestInput(owner, "Centro"), ports.CreateOptions{TrackingCode: "t1", Now: testNow})

	ok, err := repo.StartTransit(ctx, r.ID, c1, "0007", testNow)
	if err != nil || !ok {
		t.Fatalf("start transit: ok=%v err=%v", ok, err)
	}

	got, _ := repo.GetByID(ctx, r.ID)
	if !got.HasCollector(c1) || got.Status != domain.StatusInTransit {
		t.Fatalf("expected claim by collector, got %+v", got)
	}
}

func TestCancelRequiresOwner(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")
	other := createUser(t, users, "other@example.com", domain.RoleClient, "")

	r, _ := repo.Create(ctx, newRequestInput(owner, "Centro"), ports.CreateOptions{TrackingCode: "t1", Now: testNow})

	if ok, _ := repo.Cancel(ctx, r.ID, other, testNow); ok {
		t.Fatalf("non-owner cancelled request")
	}
	if ok, err := repo.Cancel(ctx, r.ID, owner, testNow); err != nil || !ok {
		t.Fatalf("owner cancel: ok=%v err=%v", ok, err)
	}

	got, _ := repo.GetByID(ctx, r.ID)
	if got.Status != domain.StatusCancelled || got.CancelledAt == nil || got.CollectorID != nil {
		t.Fatalf("unexpected cancelled state %+v", got)
	}
}

func TestCreateWithAutoRoute(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")
	c1 := createUser(t, users, "c1@example.com", domain.RoleCollector, "Centro")

	r, err := repo.Create(ctx, newRequestInput(owner, "Centro"), ports.CreateOptions{TrackingCode: "t1", Now: testNow, AutoRoute: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != domain.StatusAssigned || !r.HasCollector(c1) || r.AssignedAt == nil {
		t.Fatalf("expected auto-assign to %d, got %+v", c1, r)
	}

	r, err = repo.Create(ctx, newRequestInput(owner, "Norte"), ports.CreateOptions{TrackingCode: "t2", Now: testNow, AutoRoute: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != domain.StatusPending || r.CollectorID != nil {
		t.Fatalf("expected pending without collectors in zone, got %+v", r)
	}
}

func TestListsAndCounts(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")
	c1 := createUser(t, users, "c1@example.com", domain.RoleCollector, "Centro")

	var ids []int64
	for i, code := range []string{"a", "b", "c"} {
		r, err := repo.Create(ctx, newRequestInput(owner, "Centro"), ports.CreateOptions{
			TrackingCode: code,
			Now:          testNow.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, r.ID)
	}
	if _, err := repo.Create(ctx, newRequestInput(owner, "Norte"), ports.CreateOptions{TrackingCode: "d", Now: testNow}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if ok, _ := repo.Assign(ctx, ids[0], c1, testNow); !ok {
		t.Fatalf("assign failed")
	}

	pending, err := repo.ListByZone(ctx, "Centro", []domain.Status{domain.StatusPending})
	if err != nil {
		t.Fatalf("list by zone: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != ids[2] || pending[1].ID != ids[1] {
		t.Fatalf("expected newest-first pending [%d %d], got %+v", ids[2], ids[1], pending)
	}

	all, _ := repo.ListByZone(ctx, "Centro", nil)
	if len(all) != 3 {
		t.Fatalf("expected 3 requests in zone, got %d", len(all))
	}

	mine, _ := repo.ListByUser(ctx, owner)
	if len(mine) != 4 {
		t.Fatalf("expected 4 requests for owner, got %d", len(mine))
	}

	held, _ := repo.ListByCollector(ctx, c1)
	if len(held) != 1 || held[0].ID != ids[0] {
		t.Fatalf("unexpected collector list %+v", held)
	}

	counts, err := repo.CountByStatus(ctx, "Centro")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	want := map[domain.Status]int{domain.StatusAssigned: 1, domain.StatusPending: 2}
	if len(counts) != len(want) {
		t.Fatalf("unexpected counts %+v", counts)
	}
	for _, c := range counts {
		if want[c.Status] != c.Count {
			t.Fatalf("status %s: got %d, want %d", c.Status, c.Count, want[c.Status])
		}
	}
}

func TestAttachWaybill(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")
	r, _ := repo.Create(ctx, newRequestInput(owner, "Centro"), ports.CreateOptions{TrackingCode: "t1", Now: testNow})

	wb := domain.Waybill{
		TrackingNumber: "WB-1",
		Carrier:        "Servientrega",
		DeclaredValue:  120000,
		WeightKg:       2.5,
		Status:         domain.StatusPending,
		CreatedAt:      testNow,
	}

	got, err := repo.AttachWaybill(ctx, r.ID, wb)
	if err != nil || got == nil || got.ID == 0 {
		t.Fatalf("attach: %+v %v", got, err)
	}

	again, err := repo.AttachWaybill(ctx, r.ID, domain.Waybill{TrackingNumber: "WB-2", Carrier: "x", Status: domain.StatusPending, CreatedAt: testNow})
	if err != nil || again != nil {
		t.Fatalf("second attach should be refused, got %+v %v", again, err)
	}

	var n int
	if err := conn.Get(&n, `SELECT COUNT(*) FROM waybills`); err != nil || n != 1 {
		t.Fatalf("expected refused waybill rolled back, count=%d err=%v", n, err)
	}

	if err := repo.SetWaybillStatus(ctx, got.ID, domain.StatusAssigned); err != nil {
		t.Fatalf("set status: %v", err)
	}
	stored, err := repo.GetWaybill(ctx, got.ID)
	if err != nil || stored.Status != domain.StatusAssigned || stored.Carrier != "Servientrega" {
		t.Fatalf("unexpected waybill %+v %v", stored, err)
	}

	req, _ := repo.GetByID(ctx, r.ID)
	if req.WaybillID == nil || *req.WaybillID != got.ID {
		t.Fatalf("request not linked: %+v", req)
	}
}

func TestAttachWaybillRefusedForCancelled(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	repo := NewSQLRequestRepository(conn)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com", domain.RoleClient, "")
	r, _ := repo.Create(ctx, newRequestInput(owner, "Centro"), ports.CreateOptions{TrackingCode: "t1", Now: testNow})
	if ok, _ := repo.Cancel(ctx, r.ID, owner, testNow); !ok {
		t.Fatalf("cancel failed")
	}

	got, err := repo.AttachWaybill(ctx, r.ID, domain.Waybill{TrackingNumber: "WB", Carrier: "x", Status: domain.StatusCancelled, CreatedAt: testNow})
	if err != nil || got != nil {
		t.Fatalf("expected refusal, got %+v %v", got, err)
	}
}
