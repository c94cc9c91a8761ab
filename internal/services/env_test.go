package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pickup-request-service/internal/adapters/repositories"
	"pickup-request-service/internal/adapters/throttle"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/db"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	db       *sqlx.DB
	users    *repositories.SQLUserRepository
	requests *repositories.SQLRequestRepository
	branches *repositories.SQLBranchRepository
	dir      *Directory
	queries  *Queries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := repositories.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:       conn,
		users:    repositories.NewSQLUserRepository(conn),
		requests: repositories.NewSQLRequestRepository(conn),
		branches: repositories.NewSQLBranchRepository(conn),
	}
	env.dir = NewDirectory(env.users, env.branches, throttle.NewMemoryThrottle(3, time.Minute))
	env.dir.cost = bcrypt.MinCost
	env.queries = NewQueries(env.requests, env.branches, nil)
	return env
}

func (env *testEnv) engine(opts ...Option) *Engine {
	return NewEngine(env.requests, env.users, opts...)
}

func (env *testEnv) register(t *testing.T, email string, role domain.Role, zone string) int64 {
	t.Helper()

	id, err := env.dir.Register(context.Background(), RegisterInput{
		Email:       email,
		Password:    "secret1",
		DisplayName: email,
		Phone:       "+573000000000",
		Role:        string(role),
		Zone:        zone,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return id
}

func pickup(userID int64, zone string) domain.NewRequest {
	return domain.NewRequest{
		UserID:        userID,
		Address:       domain.Address{FullAddress: "Calle 80 #20-10", City: "Bogotá"},
		RequestedDate: "2026-10-20",
		TimeWindow:    domain.WindowAfternoon,
		Notes:         "ring twice",
		Zone:          zone,
	}
}

func fixedCode(code string) Option {
	return WithCodeGenerator(func() (string, error) { return code, nil })
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, phone+": "+message)
	return n.err
}

func (n *recordingNotifier) Announce(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, message)
	return n.err
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}
