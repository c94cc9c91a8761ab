package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"pickup-request-service/internal/adapters/repositories"
	"pickup-request-service/internal/config"
	"pickup-request-service/internal/platform/db"
	"pickup-request-service/internal/platform/obs"
	"pickup-request-service/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: dbtool <command>

commands:
  migrate   apply pending migrations
  reset     roll every migration back, then apply them again
  seed      migrate, then load SEED_PATH (idempotent)
  version   print the current schema version`

func main() {
	envErr := godotenv.Load()

	log, err := obs.NewLogger(config.Get("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Info("no .env file found (using environment variables)")
	}

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	driver := config.Get("DB_DRIVER", "sqlite")
	dsn := config.Get("DB_PATH", "data/app.db")
	if driver == "pgx" {
		dsn = os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL is required for DB_DRIVER=pgx")
		}
	}

	conn, err := db.Open(driver, dsn)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := run(os.Args[1], conn, log); err != nil {
		log.Fatal(os.Args[1]+" failed", zap.Error(err))
	}
}

func run(cmd string, conn *sqlx.DB, log *zap.Logger) error {
	switch cmd {
	case "migrate":
		log.Info("applying migrations...")
		if err := repositories.Migrate(conn); err != nil {
			return err
		}
	case "reset":
		log.Warn("resetting schema, all data will be lost")
		if err := repositories.Reset(conn); err != nil {
			return err
		}
	case "seed":
		if err := repositories.Migrate(conn); err != nil {
			return err
		}
		path := config.Get("SEED_PATH", "data/seeds/directory.yaml")
		s, err := repositories.LoadSeed(path)
		if err != nil {
			return err
		}

		dir := services.NewDirectory(
			repositories.NewSQLUserRepository(conn),
			repositories.NewSQLBranchRepository(conn),
			nil,
		)
		res, err := repositories.ApplySeed(context.Background(), conn, s, dir.HashPassword, time.Now().UTC())
		if err != nil {
			return err
		}
		log.Info("seeding complete", zap.String("path", path), zap.Int("branches", res.Branches), zap.Int("users", res.Users))
		return nil
	case "version":
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}

	v, dirty, err := repositories.SchemaVersion(conn)
	if err != nil {
		return err
	}
	log.Info("schema ready", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}
