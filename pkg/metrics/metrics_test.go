package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.LinkCreated()
	m.Redirect(ResultOK)
	m.Notification("expired")
	m.Sweep(1, 0, 0.1)
	m.Response(http.MethodGet, http.StatusFound)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.LinkCreated()
	m.Redirect(ResultLimitReached)
	m.Response(http.MethodGet, http.StatusNotFound)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		"limitlink_links_created_total 1",
		`limitlink_redirects_total{result="limit_exceeded"} 1`,
		`limitlink_http_responses_total{class="4xx",method="GET"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
