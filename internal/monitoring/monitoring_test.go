package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/proxymesh/harvester/internal/scheduler"
	"github.com/proxymesh/harvester/internal/store"
)

func TestNewRegistersWithoutPanicAndRecordsObservations(t *testing.T) {
	m := New(Config{Namespace: "harvester_test"})

	m.RecordValidation("quick", "success", 0.42, 88.5)
	m.RecordValidation("quick", "failure", 0.10, 0)
	m.RecordCrawlRun("freeproxylist", true, 10, 8, 8)
	m.RecordCrawlRun("freeproxylist", false, 0, 0, 0)

	m.RefreshPoolGauges(&store.Stats{
		Total:        100,
		Active:       80,
		ByProtocol:   map[string]int{"http": 60, "socks5": 40},
		ByCountry:    map[string]int{"US": 50, "DE": 50},
		AverageScore: 72.3,
	})

	m.RefreshSchedulerGauges(scheduler.SystemStatus{
		QueueSize: 3,
		Running:   2,
		Completed: 120,
		Failed:    4,
	})
}

func TestMetricsHandlerServesPrometheusFormat(t *testing.T) {
	m := New(Config{Namespace: "harvester_test_handler"})
	m.RecordCrawlRun("test-source", true, 1, 1, 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty metrics body")
	}
}

func TestHealthCheckerAggregatesWorstStatus(t *testing.T) {
	h := NewHealthChecker()
	h.Register("store", func(ctx context.Context) (Status, string) { return StatusHealthy, "ok" })
	h.Register("scheduler", func(ctx context.Context) (Status, string) { return StatusDegraded, "queue backed up" })

	report := h.Check(context.Background())
	if report.Status != StatusDegraded {
		t.Fatalf("expected degraded overall, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 check entries, got %d", len(report.Checks))
	}
}

func TestHealthHandlerReturns503WhenUnhealthy(t *testing.T) {
	h := NewHealthChecker()
	h.Register("store", func(ctx context.Context) (Status, string) { return StatusUnhealthy, "connection refused" })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy in body, got %s", report.Status)
	}
}

func TestLiveHandlerAlwaysOK(t *testing.T) {
	h := NewHealthChecker()
	h.Register("store", func(ctx context.Context) (Status, string) { return StatusUnhealthy, "down" })

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	h.LiveHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("liveness must ignore dependency health, got %d", rec.Code)
	}
}

func TestReadyHandlerFailsOnlyWhenUnhealthy(t *testing.T) {
	h := NewHealthChecker()
	h.Register("store", func(ctx context.Context) (Status, string) { return StatusDegraded, "slow" })

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	h.ReadyHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded should still be ready, got %d", rec.Code)
	}
}
