package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMetrics_Exposition(t *testing.T) {
	m := New()
	m.ObserveCheck("result", 40*time.Millisecond)
	m.CountOutcome("superseded")
	m.CountOutcome("rate_limited")
	m.AddCost(0.002)
	m.AddFrames(5)
	m.TrackSizes(func() int { return 3 }, func() int { return 7 })

	body := scrape(t, m)

	for _, want := range []string{
		`sentinel_checks_total{outcome="result"} 1`,
		`sentinel_checks_total{outcome="superseded"} 1`,
		`sentinel_checks_total{outcome="rate_limited"} 1`,
		`sentinel_provider_cost_usd_total 0.002`,
		`sentinel_video_frames_sampled_total 5`,
		`sentinel_ratelimit_tenants 3`,
		`sentinel_tenant_cache_entries 7`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.ObserveCheck("result", time.Second)
	m.CountOutcome("error")
	m.AddCost(1)
	m.AddFrames(1)
	m.TrackSizes(nil, nil)
	if m.Handler() == nil {
		t.Error("nil metrics should still return a handler")
	}
}
