package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/httpx"
	"pickup-request-service/internal/platform/obs"

	"github.com/tidwall/gjson"
)

// HTTPProvider reads shipment status from an external tracking API at
// GET {base}/shipments/{code}. It never writes.
type HTTPProvider struct {
	baseURL string
	client  *httpx.Client
}

func NewHTTPProvider(baseURL, apiKey string) (*HTTPProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tracking provider: base url is required")
	}

	auth := ""
	if apiKey != "" {
		auth = "Bearer " + apiKey
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  httpx.New(auth, 10*time.Second),
	}, nil
}

func (p *HTTPProvider) Lookup(ctx context.Context, code string) (_ *domain.TrackingView, err error) {
	defer obs.Time(ctx, "tracking.Lookup")(&err)

	endpoint := p.baseURL + "/shipments/" + url.PathEscape(code)
	resp, err := p.client.DoWithRetry(ctx, func() (*http.Request, error) {
		return p.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
	})

	var se *httpx.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, fmt.Errorf("tracking lookup %q: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tracking lookup %q: %w", code, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("tracking lookup %q: read body: %w", code, err)
	}

	return parseShipment(code, body)
}

// parseShipment accepts either a bare shipment object or one wrapped in
// "data", which is how the gateway versions differ.
func parseShipment(code string, body []byte) (*domain.TrackingView, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("tracking lookup %q: invalid json", code)
	}

	root := gjson.ParseBytes(body)
	if d := root.Get("data"); d.IsObject() {
		root = d
	}

	rawStatus := root.Get("status").String()
	if rawStatus == "" {
		return nil, fmt.Errorf("tracking lookup %q: %w", code, domain.ErrNotFound)
	}
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("tracking lookup %q: %w", code, err)
	}

	view := &domain.TrackingView{
		TrackingCode:  code,
		Status:        status,
		Zone:          root.Get("zone").String(),
		RequestedDate: root.Get("requested_date").String(),
		City:          root.Get("destination.city").String(),
		Source:        "external",
	}
	if c := root.Get("tracking_code").String(); c != "" {
		view.TrackingCode = c
	}
	if w := root.Get("time_window").String(); w != "" {
		if tw, err := domain.ParseTimeWindow(w); err == nil {
			view.TimeWindow = tw
		}
	}
	if ts := root.Get("updated_at").String(); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			view.UpdatedAt = t.UTC()
		}
	}
	return view, nil
}
