package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveCalculation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveCalculation("succeeded", 12*time.Second)
	c.ObserveCalculation("failed", time.Second)
	c.ObserveCalculation("succeeded", 13*time.Second)

	if got := testutil.ToFloat64(c.Calculations.WithLabelValues("succeeded")); got != 2 {
		t.Fatalf("solar_calculations_total{succeeded} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Calculations.WithLabelValues("failed")); got != 1 {
		t.Fatalf("solar_calculations_total{failed} = %v, want 1", got)
	}
	if n := histogramSampleCount(t, reg, "solar_calculation_duration_seconds", map[string]string{"outcome": "succeeded"}); n != 2 {
		t.Fatalf("duration sample_count = %d, want 2", n)
	}
}

func TestObserveHTTPUnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveHTTP(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	c.ObserveHTTP(http.MethodPost, "/solar/calculate", http.StatusOK, time.Millisecond)

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/solar/calculate", "200")); got != 1 {
		t.Fatalf("calculate requests = %v, want 1", got)
	}
}

func TestValidationAndContactCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.ObserveValidationFailure("state")
	c.ObserveValidationFailure("state")
	c.ObserveContact(true)
	c.ObserveContact(false)

	if got := testutil.ToFloat64(c.ValidationFailures.WithLabelValues("state")); got != 2 {
		t.Fatalf("validation failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ContactMessages.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed contact messages = %v, want 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveCalculation("succeeded", time.Second)
	c.ObserveValidationFailure("state")
	c.ObserveHTTP("GET", "/", 200, time.Millisecond)
	c.ObserveContact(true)
}

func TestNewCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("first NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	if first.Calculations != second.Calculations {
		t.Fatal("second collector did not reuse the registered counter")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	if err := RegisterGaugeFunc(reg, "solar_sessions", "Live calculator sessions.", func() float64 { return 7 }); err != nil {
		t.Fatalf("RegisterGaugeFunc: %v", err)
	}
	c.ObserveCalculation("succeeded", time.Second)
	c.ObserveHTTP("GET", "/", 200, time.Millisecond)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"solar_calculations_total",
		"solar_calculation_duration_seconds",
		"solar_sessions 7",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
