package repositories

import (
	"context"
	"testing"

	"pickup-request-service/internal/domain"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn := newTestDB(t)

	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, dirty, err := SchemaVersion(conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 2 || dirty {
		t.Fatalf("unexpected version %d dirty=%v", v, dirty)
	}
}

func TestResetDropsData(t *testing.T) {
	conn := newTestDB(t)
	users := NewSQLUserRepository(conn)
	createUser(t, users, "gone@example.com", domain.RoleClient, "")

	if err := Reset(conn); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := users.GetByEmail(context.Background(), "gone@example.com"); err == nil {
		t.Fatalf("expected user to be gone after reset")
	}
}

func TestMigratorReleasesConnections(t *testing.T) {
	conn := newTestDB(t)

	for i := 0; i < 3; i++ {
		if err := Migrate(conn); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if _, _, err := SchemaVersion(conn); err != nil {
			t.Fatalf("version: %v", err)
		}
	}

	if inUse := conn.Stats().InUse; inUse != 0 {
		t.Fatalf("expected no pinned connections, got %d", inUse)
	}
	if err := conn.Ping(); err != nil {
		t.Fatalf("db closed by migrator: %v", err)
	}
}

func TestPgxConfigRejectsOtherDrivers(t *testing.T) {
	conn := newTestDB(t)

	if _, err := pgxConfig(context.Background(), conn.DB); err == nil {
		t.Fatalf("expected an error for a sqlite connection")
	}
	if inUse := conn.Stats().InUse; inUse != 0 {
		t.Fatalf("connection not returned to the pool, in use %d", inUse)
	}
}
