package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"pickup-request-service/internal/adapters/repositories"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bogotaFeature = `{"features":[{"geometry":{"type":"Point","coordinates":[-74.0721,4.711]}}]}`

func TestORSGeocoderQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "Calle 80 #20-10, Bogotá", r.URL.Query().Get("text"))
		assert.Equal(t, "CO", r.URL.Query().Get("boundary.country"))
		_, _ = w.Write([]byte(bogotaFeature))
	}))
	defer srv.Close()

	g, err := newORSGeocoder("test-key", "CO", srv.URL)
	require.NoError(t, err)

	c, err := g.Geocode(context.Background(), "  Calle 80   #20-10,  Bogotá ")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lon: -74.0721, Lat: 4.711}, c)
}

func TestParseFeature(t *testing.T) {
	_, err := parseFeature("x", []byte(`{"features":[]}`))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = parseFeature("x", []byte(`{"features":[{"geometry":{"coordinates":[1]}}]}`))
	assert.Error(t, err)

	_, err = parseFeature("x", []byte(`{"features":[{"geometry":{"coordinates":[200, 4]}}]}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = parseFeature("x", []byte(`<html>`))
	assert.Error(t, err)
}

func TestNewORSGeocoderRequiresKey(t *testing.T) {
	_, err := NewORSGeocoder(" ", "CO")
	assert.Error(t, err)
}

type countingGeocoder struct {
	calls atomic.Int32
	err   error
}

func (g *countingGeocoder) Geocode(context.Context, string) (domain.Coordinates, error) {
	g.calls.Add(1)
	if g.err != nil {
		return domain.Coordinates{}, g.err
	}
	return domain.Coordinates{Lon: -75.56, Lat: 6.25}, nil
}

func TestCachedGeocoderStoresHits(t *testing.T) {
	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "geo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.Migrate(conn))

	src := &countingGeocoder{}
	g := NewCached(NewSQLCache(conn), src)
	ctx := context.Background()

	first, err := g.Geocode(ctx, "Cra 43A #1-50,  Medellín")
	require.NoError(t, err)
	second, err := g.Geocode(ctx, "Cra 43A #1-50, Medellín")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, src.calls.Load())

	src.err = domain.ErrNotFound
	_, err = g.Geocode(ctx, "nowhere")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
