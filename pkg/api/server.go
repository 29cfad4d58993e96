// Package api implements the §6.1 HTTP surface: proxy CRUD/query,
// crawl control, validation job submission, and the monitoring routes,
// grounded on the teacher's abandoned cmd/server/server_test.go route
// table (gorilla/mux, /api/v1 subrouter, auth/rate-limit middleware
// shape) with the mock handlers replaced by real component calls.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/coordinator"
	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/monitoring"
	"github.com/proxymesh/harvester/internal/output"
	"github.com/proxymesh/harvester/internal/scheduler"
	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/utils"
)

// Server wires every component the HTTP surface fronts. It holds no
// business logic of its own — every handler translates an HTTP request
// into a call on one of these and translates the result back.
type Server struct {
	cfg        config.APIConfig
	store      store.Store
	sched      *scheduler.Scheduler
	coord      *coordinator.Coordinator
	registry   *extractor.Registry
	metrics    *monitoring.Metrics
	health     *monitoring.HealthChecker
	exporter   *output.Exporter
	logger     utils.Logger
	startedAt  time.Time
	configSnap *config.HarvesterConfig

	tasksMu sync.Mutex
	tasks   map[string]*crawlTask
}

type Deps struct {
	Config      config.APIConfig
	FullConfig  *config.HarvesterConfig
	Store       store.Store
	Scheduler   *scheduler.Scheduler
	Coordinator *coordinator.Coordinator
	Registry    *extractor.Registry
	Metrics     *monitoring.Metrics
	Health      *monitoring.HealthChecker
	Logger      utils.Logger
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Server{
		cfg:        d.Config,
		store:      d.Store,
		sched:      d.Scheduler,
		coord:      d.Coordinator,
		registry:   d.Registry,
		metrics:    d.Metrics,
		health:     d.Health,
		exporter:   output.NewExporter(),
		logger:     logger.WithField("component", "api"),
		startedAt:  time.Now(),
		configSnap: d.FullConfig,
		tasks:      make(map[string]*crawlTask),
	}
}

// Router builds the full mux.Router, ready to pass to http.Server.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/status", s.handleStatus).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/proxies", s.handleListProxies).Methods(http.MethodGet)
	v1.HandleFunc("/proxies/export", s.handleExportProxies).Methods(http.MethodGet)
	v1.HandleFunc("/proxies/random", s.handleRandomProxy).Methods(http.MethodGet)
	v1.HandleFunc("/proxies/stats", s.handleProxyStats).Methods(http.MethodGet)
	v1.HandleFunc("/proxies/{id:[0-9]+}", s.handleGetProxy).Methods(http.MethodGet)
	v1.HandleFunc("/proxies/{id:[0-9]+}", s.handleDeleteProxy).Methods(http.MethodDelete)
	v1.HandleFunc("/proxies/{id:[0-9]+}/validate", s.handleValidateProxy).Methods(http.MethodPost)

	v1.HandleFunc("/crawl/start", s.handleCrawlStart).Methods(http.MethodPost)
	v1.HandleFunc("/crawl/status/{id}", s.handleCrawlStatus).Methods(http.MethodGet)
	v1.HandleFunc("/crawl/history", s.handleCrawlHistory).Methods(http.MethodGet)
	v1.HandleFunc("/crawl/sources", s.handleCrawlSources).Methods(http.MethodGet)
	v1.HandleFunc("/crawl/sources/{name}/test", s.handleCrawlSourceTest).Methods(http.MethodPost)
	v1.HandleFunc("/crawl/tasks/{id}", s.handleCrawlTaskDelete).Methods(http.MethodDelete)

	v1.HandleFunc("/validation/jobs", s.handleSubmitValidationJob).Methods(http.MethodPost)
	v1.HandleFunc("/validation/jobs/{id}", s.handleGetValidationJob).Methods(http.MethodGet)

	var handler http.Handler = r
	if s.cfg.RateLimitPerMin > 0 {
		handler = s.rateLimitMiddleware(handler)
	}
	handler = s.loggingMiddleware(handler)
	return handler
}

// rateLimitMiddleware enforces §6.3 RATE_LIMIT_PER_MINUTE, the inbound
// API rate cap — grounded on the teacher's own
// cmd/server/server_test.go rateLimitMiddleware (rate.NewLimiter wired
// directly into an http.Handler wrapper), generalized from a fixed
// per-second/burst pair to the configured per-minute rate.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(float64(s.cfg.RateLimitPerMin)/60.0), s.cfg.RateLimitPerMin)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeCodedError(w, http.StatusTooManyRequests, "RATE_LIMIT_ERROR", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
