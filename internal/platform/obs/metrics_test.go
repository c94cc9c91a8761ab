package obs

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTransition(t *testing.T) {
	m := NewMetrics()
	m.RecordTransition("assign", "ok")
	m.RecordTransition("assign", "ok")
	m.RecordTransition("assign", "conflict")

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("assign", "ok")); got != 2 {
		t.Fatalf("expected 2 ok assigns, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("assign", "conflict")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTP("GET", "/health", "200", 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `pickup_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Fatalf("metric not exposed:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTransition("cancel", "ok")
	m.RecordCreated(true)
	m.RecordHTTP("GET", "/", "200", time.Second)
}
