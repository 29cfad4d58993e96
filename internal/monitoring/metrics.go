// Package monitoring exposes the harvester's Prometheus metrics and
// liveness/readiness surface (spec.md §6.3 MONITORING_ENABLED /
// PROMETHEUS_ENABLED), generalized from the teacher's scraper-oriented
// MetricsManager (internal/monitoring/metrics.go) to the proxy pool,
// validation, scheduler, and coordinator domains.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/proxymesh/harvester/internal/scheduler"
	"github.com/proxymesh/harvester/internal/store"
)

// Metrics owns every Prometheus collector the harvester registers. The
// field groups mirror the teacher's MetricsManager grouping (request /
// scraping / output / system / job), repointed at this domain's pool,
// validation, scheduler, and coordinator concerns.
type Metrics struct {
	// Pool metrics, refreshed from store.Stats by RefreshPoolGauges.
	poolSize        *prometheus.GaugeVec
	poolAverageScore prometheus.Gauge

	// Validation metrics, recorded per validated proxy.
	validationsTotal    *prometheus.CounterVec
	validationDuration  *prometheus.HistogramVec
	qualityScore        prometheus.Histogram

	// Scheduler metrics, refreshed from scheduler.SystemStatus.
	jobQueueDepth   prometheus.Gauge
	jobsRunning     prometheus.Gauge
	jobsCompleted   prometheus.Gauge
	jobsFailed      prometheus.Gauge

	// Coordinator metrics, recorded per crawl run.
	crawlRunsTotal    *prometheus.CounterVec
	crawlRecordsFound *prometheus.CounterVec
}

// Config mirrors config.MonitoringConfig's namespace/path fields plus
// the listen address the composition root binds the metrics server to.
type Config struct {
	Namespace     string
	MetricsPath   string
	ListenAddress string
}

// New registers every metric against the default Prometheus registry.
// Namespace defaults to "harvester" so a blank MonitoringConfig still
// produces sane metric names.
func New(cfg Config) *Metrics {
	ns := cfg.Namespace
	if ns == "" {
		ns = "harvester"
	}

	m := &Metrics{}

	m.poolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "pool",
		Name:      "proxies",
		Help:      "Number of proxies currently in the pool by status, protocol and country.",
	}, []string{"status", "protocol", "country"})

	m.poolAverageScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "pool",
		Name:      "average_quality_score",
		Help:      "Average quality score across active proxies.",
	})

	m.validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "validation",
		Name:      "runs_total",
		Help:      "Total number of proxy validation runs by level and outcome.",
	}, []string{"level", "outcome"})

	m.validationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: "validation",
		Name:      "duration_seconds",
		Help:      "Validation round-trip duration by level.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"level"})

	m.qualityScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: "validation",
		Name:      "quality_score",
		Help:      "Distribution of computed quality scores (0-100).",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	m.jobQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "Number of validation jobs waiting in the priority queue.",
	})

	m.jobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "scheduler",
		Name:      "jobs_running",
		Help:      "Number of validation jobs currently executing.",
	})

	m.jobsCompleted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "scheduler",
		Name:      "jobs_completed",
		Help:      "Cumulative number of completed validation jobs.",
	})

	m.jobsFailed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "scheduler",
		Name:      "jobs_failed",
		Help:      "Cumulative number of failed validation jobs.",
	})

	m.crawlRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "coordinator",
		Name:      "crawl_runs_total",
		Help:      "Total number of source crawl runs by source and outcome.",
	}, []string{"source", "outcome"})

	m.crawlRecordsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "coordinator",
		Name:      "crawl_records_total",
		Help:      "Total number of proxy records produced per crawl stage.",
	}, []string{"source", "stage"})

	return m
}

// RecordValidation records the outcome of one scheduler.validateOne call.
func (m *Metrics) RecordValidation(level, outcome string, durationSeconds float64, score float64) {
	m.validationsTotal.WithLabelValues(level, outcome).Inc()
	m.validationDuration.WithLabelValues(level).Observe(durationSeconds)
	if outcome == "success" {
		m.qualityScore.Observe(score)
	}
}

// RecordCrawlRun records one coordinator.Run outcome.
func (m *Metrics) RecordCrawlRun(source string, success bool, extracted, transformed, upserted int) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.crawlRunsTotal.WithLabelValues(source, outcome).Inc()
	m.crawlRecordsFound.WithLabelValues(source, "extracted").Add(float64(extracted))
	m.crawlRecordsFound.WithLabelValues(source, "transformed").Add(float64(transformed))
	m.crawlRecordsFound.WithLabelValues(source, "upserted").Add(float64(upserted))
}

// RefreshPoolGauges sets the pool gauges from a freshly queried
// store.Stats snapshot. Its only caller is the GET /api/v1/proxies/stats
// handler, so the gauges reflect the last stats request; store.Stats is a
// point-in-time DB aggregate, not an incrementally maintained counter.
func (m *Metrics) RefreshPoolGauges(stats *store.Stats) {
	m.poolSize.Reset()
	for protocol, count := range stats.ByProtocol {
		m.poolSize.WithLabelValues("by_protocol", protocol, "").Set(float64(count))
	}
	for country, count := range stats.ByCountry {
		m.poolSize.WithLabelValues("by_country", "", country).Set(float64(count))
	}
	m.poolSize.WithLabelValues("total", "", "").Set(float64(stats.Total))
	m.poolSize.WithLabelValues("active", "", "").Set(float64(stats.Active))
	m.poolAverageScore.Set(stats.AverageScore)
}

// RefreshSchedulerGauges sets the scheduler gauges from a
// scheduler.SystemStatus snapshot.
func (m *Metrics) RefreshSchedulerGauges(status scheduler.SystemStatus) {
	m.jobQueueDepth.Set(float64(status.QueueSize))
	m.jobsRunning.Set(float64(status.Running))
	m.jobsCompleted.Set(float64(status.Completed))
	m.jobsFailed.Set(float64(status.Failed))
}

// Handler returns the /metrics HTTP handler (§6.3 PROMETHEUS_ENABLED).
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
