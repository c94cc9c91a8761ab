package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickup-request-service/internal/adapters/geocode"
	"pickup-request-service/internal/adapters/notify"
	"pickup-request-service/internal/adapters/repositories"
	"pickup-request-service/internal/adapters/session"
	"pickup-request-service/internal/adapters/throttle"
	"pickup-request-service/internal/adapters/tracking"
	"pickup-request-service/internal/api"
	"pickup-request-service/internal/config"
	"pickup-request-service/internal/platform/db"
	"pickup-request-service/internal/platform/obs"
	"pickup-request-service/internal/ports"
	"pickup-request-service/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, SMS, Telegram, Redis, ORS) behind ports and starts the HTTP server.
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

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := repositories.Migrate(conn); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	users := repositories.NewSQLUserRepository(conn)
	branches := repositories.NewSQLBranchRepository(conn)
	requests := repositories.NewSQLRequestRepository(conn)

	loginThrottle, err := newThrottle(cfg)
	if err != nil {
		log.Fatal("login throttle", zap.Error(err))
	}
	dir := services.NewDirectory(users, branches, loginThrottle)

	// Seed the staff directory on startup for local runs.
	if err := seedIfPresent(conn, dir, cfg.SeedPath, log); err != nil {
		log.Fatal("seed", zap.Error(err))
	}

	metrics := obs.NewMetrics()
	engineOpts := []services.Option{
		services.WithLogger(log),
		services.WithMetrics(metrics),
		services.WithAutoRoute(cfg.Routing == config.RoutingFirstCollector),
	}

	var notifier ports.Notifier = notify.LogNotifier{Logger: log}
	if cfg.SMS.GatewayURL != "" {
		gw, err := notify.NewSMSGateway(cfg.SMS.GatewayURL, cfg.SMS.Token)
		if err != nil {
			log.Fatal("sms gateway", zap.Error(err))
		}
		notifier = gw
	}
	engineOpts = append(engineOpts, services.WithNotifier(notifier))

	var announcer ports.Announcer = notify.LogNotifier{Logger: log}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramAnnouncer(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			// The staff channel is optional; keep serving without it.
			log.Warn("telegram announcer unavailable", zap.Error(err))
		} else {
			announcer = tg
		}
	}
	engineOpts = append(engineOpts, services.WithAnnouncer(announcer))

	if cfg.Geocode.APIKey != "" {
		ors, err := geocode.NewORSGeocoder(cfg.Geocode.APIKey, cfg.Geocode.Country)
		if err != nil {
			log.Fatal("geocoder", zap.Error(err))
		}
		// Persistent cache avoids repeated lookups for the same address.
		engineOpts = append(engineOpts, services.WithGeocoder(geocode.NewCached(geocode.NewSQLCache(conn), ors)))
	}

	var tracker ports.TrackingProvider
	if cfg.Tracking.BaseURL != "" {
		p, err := tracking.NewHTTPProvider(cfg.Tracking.BaseURL, cfg.Tracking.APIKey)
		if err != nil {
			log.Fatal("tracking provider", zap.Error(err))
		}
		tracker = p
	}

	router := api.NewRouter(api.Deps{
		DB:        conn,
		Engine:    services.NewEngine(requests, users, engineOpts...),
		Queries:   services.NewQueries(requests, branches, tracker),
		Directory: dir,
		Sessions:  session.NewJWTCodec(cfg.Session.Secret, cfg.Session.TTL),
		Metrics:   metrics,
		Logger:    log,
		RPS:       cfg.Limits.RPS,
		Burst:     cfg.Limits.Burst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("routing", cfg.Routing),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// newThrottle uses Redis when REDIS_ADDR is set so several instances share
// counters; otherwise counters live in process memory.
func newThrottle(cfg *config.Config) (ports.LoginThrottle, error) {
	if cfg.Redis.Addr == "" {
		return throttle.NewMemoryThrottle(cfg.Limits.LoginMaxAttempts, cfg.Limits.LoginWindow), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("new throttle: ping redis %q: %w", cfg.Redis.Addr, err)
	}
	return throttle.NewRedisThrottle(rdb, cfg.Limits.LoginMaxAttempts, cfg.Limits.LoginWindow), nil
}

func seedIfPresent(conn *sqlx.DB, dir *services.Directory, path string, log *zap.Logger) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info("no seed file", zap.String("path", path))
		return nil
	}

	s, err := repositories.LoadSeed(path)
	if err != nil {
		return err
	}
	res, err := repositories.ApplySeed(context.Background(), conn, s, dir.HashPassword, time.Now().UTC())
	if err != nil {
		return err
	}
	log.Info("seed applied", zap.Int("branches", res.Branches), zap.Int("users", res.Users))
	return nil
}
