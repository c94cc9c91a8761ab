// Package config reads service settings from the environment. A .env file,
// when present, is loaded first by the command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	RoutingManual         = "manual"
	RoutingFirstCollector = "first-collector"
)

type Config struct {
	Port     string
	LogLevel string
	SeedPath string

	Database Database
	Session  Session
	Routing  string
	SMS      SMS
	Telegram Telegram
	Tracking Tracking
	Geocode  Geocode
	Redis    Redis
	Limits   Limits
}

// Database selects the store. Driver is "sqlite" (DB_PATH) or "pgx"
// (DATABASE_URL).
type Database struct {
	Driver string
	Path   string
	URL    string
}

// DSN returns the connection string for the configured driver.
func (d Database) DSN() string {
	if d.Driver == "pgx" {
		return d.URL
	}
	return d.Path
}

type Session struct {
	Secret string
	TTL    time.Duration
}

type SMS struct {
	GatewayURL string
	Token      string
}

type Telegram struct {
	Token  string
	ChatID int64
}

type Tracking struct {
	BaseURL string
	APIKey  string
}

// Geocode enables OpenRouteService address lookup when APIKey is set.
type Geocode struct {
	APIKey  string
	Country string
}

type Redis struct {
	Addr string
}

type Limits struct {
	LoginMaxAttempts int
	LoginWindow      time.Duration
	RPS              float64
	Burst            int
}

func Load() (*Config, error) {
	var p parser
	cfg := &Config{
		Port:     Get("PORT", "8080"),
		LogLevel: Get("LOG_LEVEL", "info"),
		SeedPath: Get("SEED_PATH", "data/seeds/directory.yaml"),
		Database: Database{
			Driver: Get("DB_DRIVER", "sqlite"),
			Path:   Get("DB_PATH", "data/app.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Session: Session{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    p.getDuration("JWT_TTL", 12*time.Hour),
		},
		Routing: strings.ToLower(Get("ROUTING_POLICY", RoutingManual)),
		SMS: SMS{
			GatewayURL: os.Getenv("SMS_GATEWAY_URL"),
			Token:      os.Getenv("SMS_GATEWAY_TOKEN"),
		},
		Telegram: Telegram{
			Token:  os.Getenv("TELEGRAM_TOKEN"),
			ChatID: int64(p.getInt("TELEGRAM_CHAT_ID", 0)),
		},
		Tracking: Tracking{
			BaseURL: strings.TrimRight(os.Getenv("TRACKING_API_URL"), "/"),
			APIKey:  os.Getenv("TRACKING_API_KEY"),
		},
		Geocode: Geocode{
			APIKey:  os.Getenv("ORS_API_KEY"),
			Country: Get("GEOCODE_COUNTRY", "CO"),
		},
		Redis: Redis{Addr: os.Getenv("REDIS_ADDR")},
		Limits: Limits{
			LoginMaxAttempts: p.getInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:      p.getDuration("LOGIN_WINDOW", 15*time.Minute),
			RPS:              p.getFloat("RATE_LIMIT_RPS", 20),
			Burst:            p.getInt("RATE_LIMIT_BURST", 40),
		},
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch cfg.Database.Driver {
	case "sqlite":
	case "pgx":
		if strings.TrimSpace(cfg.Database.URL) == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required for DB_DRIVER=pgx")
		}
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	if strings.TrimSpace(cfg.Session.Secret) == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	if cfg.Routing != RoutingManual && cfg.Routing != RoutingFirstCollector {
		return nil, fmt.Errorf("config: unsupported ROUTING_POLICY %q", cfg.Routing)
	}

	return cfg, nil
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser reads typed values and collects the ones that do not parse.
type parser struct {
	errs []error
}

func (p *parser) fail(key, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (p *parser) getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}
