package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	newServerMetrics(reg)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

// counterValue digs the value of a labelled counter out of a gathered
// metric family set. Returns -1 when the series is absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

// Test_Metrics_ChatCounterIncremented drives a real chat request through the
// full handler chain and asserts both the chat and HTTP counters moved.
func Test_Metrics_ChatCounterIncremented(t *testing.T) {
	t.Parallel()

	factory := newSessionFactory()
	s := newTestServer(t, factory)
	reg := s.cfg.Registry

	postJSON(t, s, "/api/chat", `{"sessionId":"m1","message":"hi"}`)

	if got := counterValue(t, reg, "shopai_chat_requests_total", "outcome", outcomeOK); got != 1 {
		t.Errorf("shopai_chat_requests_total{outcome=%q}: want 1, got %v", outcomeOK, got)
	}
	if got := counterValue(t, reg, "shopai_http_requests_total", "handler", "chat"); got != 1 {
		t.Errorf("shopai_http_requests_total{handler=\"chat\"}: want 1, got %v", got)
	}
}

// Test_Metrics_InvalidRequestCounted verifies that rejected requests land in
// the "invalid" outcome bucket rather than "ok".
func Test_Metrics_InvalidRequestCounted(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSessionFactory())
	reg := s.cfg.Registry

	postJSON(t, s, "/api/chat", `{"sessionId":"m2"}`)

	if got := counterValue(t, reg, "shopai_chat_requests_total", "outcome", outcomeInvalid); got != 1 {
		t.Errorf("shopai_chat_requests_total{outcome=%q}: want 1, got %v", outcomeInvalid, got)
	}
	if got := counterValue(t, reg, "shopai_chat_requests_total", "outcome", outcomeOK); got != -1 {
		t.Errorf("no ok outcome should be recorded, got %v", got)
	}
}

func Test_Metrics_ActiveSessionsGauge(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSessionFactory())
	reg := s.cfg.Registry

	postJSON(t, s, "/api/chat", `{"sessionId":"a","message":"hi"}`)
	postJSON(t, s, "/api/chat", `{"sessionId":"b","message":"hi"}`)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "shopai_chat_active_sessions" {
			v := mf.GetMetric()[0].GetGauge().GetValue()
			if v != 2 {
				t.Errorf("want active_sessions=2, got %v", v)
			}
			return
		}
	}
	t.Error("shopai_chat_active_sessions not found in gathered metrics")
}
