package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/httpx"
	"pickup-request-service/internal/platform/obs"

	"github.com/tidwall/gjson"
)

const orsBaseURL = "https://api.openrouteservice.org"

// ORSGeocoder resolves pickup addresses with OpenRouteService
// (/geocode/search), restricted to one country.
type ORSGeocoder struct {
	client  *httpx.Client
	baseURL string
	country string
}

func NewORSGeocoder(apiKey, country string) (*ORSGeocoder, error) {
	return newORSGeocoder(apiKey, country, orsBaseURL)
}

func newORSGeocoder(apiKey, country, baseURL string) (*ORSGeocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}
	return &ORSGeocoder{
		client:  httpx.New(apiKey, 10*time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
		country: country,
	}, nil
}

// Normalize collapses whitespace so equivalent addresses share a cache key.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Geocode returns domain.ErrNotFound when the service has no match.
func (o *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	text := Normalize(address)
	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		if o.country != "" {
			q.Set("boundary.country", o.country)
		}
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", text, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: read body: %w", text, err)
	}
	return parseFeature(text, body)
}

func parseFeature(text string, body []byte) (domain.Coordinates, error) {
	if !gjson.ValidBytes(body) {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: invalid json", text)
	}

	coords := gjson.GetBytes(body, "features.0.geometry.coordinates").Array()
	if len(coords) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: no results: %w", text, domain.ErrNotFound)
	}
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: invalid coordinate format", text)
	}

	c := domain.Coordinates{Lon: coords[0].Float(), Lat: coords[1].Float()}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", text, err)
	}
	return c, nil
}
