package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/obs"
	"pickup-request-service/internal/ports"

	"github.com/jmoiron/sqlx"
)

// SQLCache keeps address -> coordinates mappings in the geocode_cache table.
type SQLCache struct {
	DB *sqlx.DB
}

func NewSQLCache(db *sqlx.DB) *SQLCache {
	return &SQLCache{DB: db}
}

// Get reports false on a miss.
func (s *SQLCache) Get(ctx context.Context, address string) (_ domain.Coordinates, _ bool, err error) {
	defer obs.Time(ctx, "geocode.cache.Get")(&err)

	if s.DB == nil {
		return domain.Coordinates{}, false, errors.New("geocode cache: db is nil")
	}

	var row struct {
		Lon float64 `db:"lon"`
		Lat float64 `db:"lat"`
	}
	err = s.DB.GetContext(ctx, &row, s.DB.Rebind(`
	SELECT lon, lat
	FROM geocode_cache
	WHERE address = ?;
	`), address)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache: %w", err)
	}
	return domain.Coordinates{Lon: row.Lon, Lat: row.Lat}, true, nil
}

func (s *SQLCache) Put(ctx context.Context, address string, c domain.Coordinates, now time.Time) (err error) {
	defer obs.Time(ctx, "geocode.cache.Put")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if address == "" {
		return errors.New("insert geocode cache: empty address key")
	}

	_, err = s.DB.ExecContext(ctx, s.DB.Rebind(`
	INSERT INTO geocode_cache (address, lon, lat, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (address) DO UPDATE
	SET lon = EXCLUDED.lon,
		lat = EXCLUDED.lat;
	`), address, c.Lon, c.Lat, now)
	if err != nil {
		return fmt.Errorf("insert geocode cache %q: %w", address, err)
	}
	return nil
}

// Cached serves lookups from the cache and stores what Source resolves.
type Cached struct {
	Cache  *SQLCache
	Source ports.Geocoder
	now    func() time.Time
}

func NewCached(cache *SQLCache, source ports.Geocoder) *Cached {
	return &Cached{Cache: cache, Source: source, now: time.Now}
}

func (c *Cached) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	key := Normalize(address)

	if hit, ok, err := c.Cache.Get(ctx, key); err == nil && ok {
		return hit, nil
	}

	coords, err := c.Source.Geocode(ctx, key)
	if err != nil {
		return domain.Coordinates{}, err
	}

	// A failed write only costs a repeat lookup; obs.Time has logged it.
	_ = c.Cache.Put(ctx, key, coords, c.now().UTC())
	return coords, nil
}
