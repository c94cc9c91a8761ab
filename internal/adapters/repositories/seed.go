package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"pickup-request-service/internal/domain"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

// Seed is the operator-maintained directory of branches and staff accounts.
type Seed struct {
	Branches []BranchSeed `yaml:"branches"`
	Users    []UserSeed   `yaml:"users"`
}

type BranchSeed struct {
	Name    string `yaml:"name"`
	Zone    string `yaml:"zone"`
	Address string `yaml:"address"`
}

type UserSeed struct {
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
	Phone       string `yaml:"phone"`
	Password    string `yaml:"password"`
	Role        string `yaml:"role"`
	Zone        string `yaml:"zone"`
	// Branch refers to a branch by name.
	Branch string `yaml:"branch"`
}

// LoadSeed reads and validates a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load seed: read %q: %w", path, err)
	}

	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("load seed: parse yaml: %w", err)
	}

	branches := map[string]bool{}
	for i, br := range s.Branches {
		if strings.TrimSpace(br.Name) == "" || strings.TrimSpace(br.Zone) == "" {
			return nil, fmt.Errorf("load seed: branch at index %d: name and zone are required", i+1)
		}
		branches[br.Name] = true
	}

	for i := range s.Users {
		u := &s.Users[i]
		u.Email = domain.NormalizeEmail(u.Email)
		if err := domain.ValidateEmail(u.Email); err != nil {
			return nil, fmt.Errorf("load seed: user at index %d: %w", i+1, err)
		}
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("load seed: user %q: %w", u.Email, err)
		}
		u.Role = string(role)
		if err := domain.ValidateRoleZone(role, u.Zone); err != nil {
			return nil, fmt.Errorf("load seed: user %q: %w", u.Email, err)
		}
		if u.Password == "" {
			return nil, fmt.Errorf("load seed: user %q: password is required", u.Email)
		}
		if u.Branch != "" && !branches[u.Branch] {
			return nil, fmt.Errorf("load seed: user %q: unknown branch %q", u.Email, u.Branch)
		}
	}

	return &s, nil
}

// SeedResult counts rows actually written; existing rows are skipped.
type SeedResult struct {
	Branches int
	Users    int
}

// ApplySeed inserts the seed in one transaction. Branches are matched by
// name and users by email, so the seed can be applied repeatedly.
func ApplySeed(ctx context.Context, db *sqlx.DB, s *Seed, hash func(string) (string, error), now time.Time) (SeedResult, error) {
	var res SeedResult
	if db == nil {
		return res, errors.New("seed: DB is nil")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	branchIDs := make(map[string]int64, len(s.Branches))
	for _, br := range s.Branches {
		var id int64
		err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM branches WHERE name = ? ORDER BY id LIMIT 1`), br.Name)
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.QueryRowxContext(ctx, tx.Rebind(`
			INSERT INTO branches (name, zone, address, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id;
			`), br.Name, br.Zone, br.Address, now).Scan(&id)
			if err != nil {
				return res, fmt.Errorf("seed: insert branch %q: %w", br.Name, err)
			}
			res.Branches++
		} else if err != nil {
			return res, fmt.Errorf("seed: lookup branch %q: %w", br.Name, err)
		}
		branchIDs[br.Name] = id
	}

	insertUser := tx.Rebind(`
	INSERT INTO users (
		email,
		display_name,
		phone,
		password_hash,
		role,
		zone,
		branch_id,
		active,
		created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, TRUE, ?)
	ON CONFLICT (email) DO NOTHING;
	`)

	for _, u := range s.Users {
		pw, err := hash(u.Password)
		if err != nil {
			return res, fmt.Errorf("seed: hash password for %q: %w", u.Email, err)
		}

		var branchID *int64
		if id, ok := branchIDs[u.Branch]; ok {
			branchID = &id
		}

		r, err := tx.ExecContext(ctx, insertUser,
			u.Email, u.DisplayName, nullIfEmpty(u.Phone), pw, u.Role, nullIfEmpty(u.Zone), branchID, now)
		if err != nil {
			return res, fmt.Errorf("seed: insert user %q: %w", u.Email, err)
		}
		if n, _ := r.RowsAffected(); n > 0 {
			res.Users++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("seed: commit tx: %w", err)
	}
	return res, nil
}

func nullIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
