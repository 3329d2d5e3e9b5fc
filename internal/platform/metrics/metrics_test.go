package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveRequest(http.MethodGet, "/x", 200, time.Millisecond)
	m.NotificationOutcome("approved", OutcomeSent)
	m.URLPathsSaved(3)
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestNotificationOutcomeCounts(t *testing.T) {
	t.Parallel()

	m := New()
	m.NotificationOutcome("approved", OutcomeSent)
	m.NotificationOutcome("approved", OutcomeSent)
	m.NotificationOutcome("approved", OutcomeNoRecipients)

	if got := testutil.ToFloat64(m.notifications.WithLabelValues("approved", OutcomeSent)); got != 2 {
		t.Fatalf("sent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("approved", OutcomeNoRecipients)); got != 1 {
		t.Fatalf("no recipients = %v, want 1", got)
	}
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveRequest(http.MethodGet, "/api/admin/v1/pages", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	m.URLPathsSaved(4)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		`folio_http_requests_total{method="GET",route="/api/admin/v1/pages",status="200"} 1`,
		`folio_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`folio_tree_url_paths_saved_total 4`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
