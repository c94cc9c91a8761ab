package repositories

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pickup-request-service/internal/domain"
)

const seedYAML = `
branches:
  - name: Centro
    zone: Centro
users:
  - email: Staff@Example.com
    display_name: Staff
    password: pw
    role: funcionario
    branch: Centro
  - email: c@example.com
    display_name: Collector
    password: pw
    role: COLLECTOR
    zone: Centro
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func fakeHash(pw string) (string, error) { return "hashed:" + pw, nil }

func TestApplySeedIsRepeatable(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()

	s, err := LoadSeed(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := ApplySeed(ctx, conn, s, fakeHash, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Branches != 1 || res.Users != 2 {
		t.Fatalf("unexpected first result %+v", res)
	}

	res, err = ApplySeed(ctx, conn, s, fakeHash, testNow)
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if res.Branches != 0 || res.Users != 0 {
		t.Fatalf("expected no writes on reapply, got %+v", res)
	}

	u, err := NewSQLUserRepository(conn).GetByEmail(ctx, "staff@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Role != domain.RoleBranchStaff || u.BranchID == nil || u.PasswordHash != "hashed:pw" {
		t.Fatalf("unexpected seeded user %+v", u)
	}
}

func TestLoadSeedRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"collector without zone": "users:\n  - {email: a@b.co, password: x, role: COLLECTOR}\n",
		"unknown role":           "users:\n  - {email: a@b.co, password: x, role: ADMIN}\n",
		"unknown branch":         "users:\n  - {email: a@b.co, password: x, role: CLIENT, branch: Nowhere}\n",
		"missing password":       "users:\n  - {email: a@b.co, role: CLIENT}\n",
	}
	for name, body := range cases {
		if _, err := LoadSeed(writeSeed(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := LoadSeed(writeSeed(t, "branches: [")); err == nil || !strings.Contains(err.Error(), "parse yaml") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}
