package repositories

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// newMigrator returns a migrator and the func that releases it. The sqlite
// driver works on db directly and closing it would close db, so its release
// is a no-op. The pgx driver pins a connection until closed, so it gets a
// private *sql.DB built from db's connection config and release closes both.
func newMigrator(db *sqlx.DB) (*migrate.Migrate, func(), error) {
	if db == nil {
		return nil, nil, errors.New("migrator: DB is nil")
	}

	var (
		dir    string
		driver database.Driver
		owned  *sql.DB
		err    error
	)
	switch db.DriverName() {
	case "sqlite":
		dir = "migrations/sqlite"
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	case "pgx":
		dir = "migrations/postgres"
		cfg, cerr := pgxConfig(context.Background(), db.DB)
		if cerr != nil {
			return nil, nil, fmt.Errorf("migrator: %w", cerr)
		}
		owned = stdlib.OpenDB(*cfg)
		driver, err = migratepgx.WithInstance(owned, &migratepgx.Config{})
	default:
		return nil, nil, fmt.Errorf("migrator: unsupported driver %q", db.DriverName())
	}
	if err != nil {
		if owned != nil {
			_ = owned.Close()
		}
		return nil, nil, fmt.Errorf("migrator: database driver: %w", err)
	}

	discard := func() {
		if owned != nil {
			_ = driver.Close()
		}
	}

	src, err := iofs.New(migrationFS, dir)
	if err != nil {
		discard()
		return nil, nil, fmt.Errorf("migrator: source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		discard()
		return nil, nil, fmt.Errorf("migrator: init: %w", err)
	}

	release := func() {}
	if owned != nil {
		release = func() { _, _ = m.Close() }
	}
	return m, release, nil
}

// pgxConfig reads the connection config behind a pgx-backed *sql.DB.
func pgxConfig(ctx context.Context, db *sql.DB) (*pgx.ConnConfig, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgx config: conn: %w", err)
	}
	defer conn.Close()

	var cfg *pgx.ConnConfig
	err = conn.Raw(func(dc any) error {
		c, ok := dc.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("pgx config: unexpected driver conn %T", dc)
		}
		cfg = c.Conn().Config()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Migrate applies every pending migration.
func Migrate(db *sqlx.DB) error {
	m, release, err := newMigrator(db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}

// Reset rolls every migration back and reapplies them. All data is lost.
func Reset(db *sqlx.DB) error {
	m, release, err := newMigrator(db)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer release()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("reset: down: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("reset: up: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version.
func SchemaVersion(db *sqlx.DB) (uint, bool, error) {
	m, release, err := newMigrator(db)
	if err != nil {
		return 0, false, fmt.Errorf("schema version: %w", err)
	}
	defer release()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("schema version: %w", err)
	}
	return v, dirty, nil
}
