package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/db"

	"github.com/jmoiron/sqlx"
)

var testNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func createUser(t *testing.T, repo *SQLUserRepository, email string, role domain.Role, zone string) int64 {
	t.Helper()

	u := &domain.User{
		Email:        email,
		DisplayName:  email,
		PasswordHash: "x",
		Role:         role,
		Active:       true,
		CreatedAt:    testNow,
	}
	if zone != "" {
		u.Zone = &zone
	}

	id, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return id
}

func newRequestInput(userID int64, zone string) domain.NewRequest {
	return domain.NewRequest{
		UserID:        userID,
		Address:       domain.Address{FullAddress: "Calle 10 #5-20", City: "Bogotá"},
		RequestedDate: "2026-10-05",
		TimeWindow:    domain.WindowMorning,
		Notes:         "gate code 12",
		Zone:          zone,
	}
}
