// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/coordinator"
	"github.com/proxymesh/harvester/internal/fetcher"
	"github.com/proxymesh/harvester/internal/geoip"
	"github.com/proxymesh/harvester/internal/monitoring"
	"github.com/proxymesh/harvester/internal/scheduler"
	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/transform"
	"github.com/proxymesh/harvester/internal/utils"
	"github.com/proxymesh/harvester/internal/validator"
	"github.com/proxymesh/harvester/pkg/api"
)

func main() {
	configPath := flag.String("config", "", "path to the harvester YAML config file")
	flag.Parse()

	logger := utils.NewLogger()

	if err := run(*configPath, logger); err != nil {
		logger.Errorf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(configPath string, logger utils.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	f := fetcher.New(float64(cfg.Fetch.MaxConcurrentRequests), cfg.Fetch.MinDelay, cfg.Fetch.MaxDelay)

	registry, err := buildRegistry(cfg.Sources, f)
	if err != nil {
		return fmt.Errorf("build source registry: %w", err)
	}

	tr := transform.New(transform.Allowlist{})
	geoCache := geoip.NewCache(cfg.Validator.GeoCacheTTL, geoip.NewIPAPIProvider(cfg.Validator.Timeout), geoip.NewIPAPICoProvider(cfg.Validator.Timeout))
	val := validator.New(cfg.Validator, geoCache)

	weights, minScore := defaultProfileWeights(cfg)
	sched := scheduler.New(cfg.Scheduler, weights, minScore, st, val)

	coord := coordinator.New(cfg.Sources, registry, tr, st, sched, cfg.Fetch.MaxConcurrentRequests, logger)

	var metrics *monitoring.Metrics
	var health *monitoring.HealthChecker
	if cfg.Monitoring.Enabled {
		if cfg.Monitoring.PrometheusEnabled {
			metrics = monitoring.New(monitoring.Config{Namespace: cfg.Monitoring.Namespace})
		}
		health = monitoring.NewHealthChecker()
		health.Register("store", storeHealthCheck(st))
		health.Register("scheduler", schedulerHealthCheck(sched))
	}

	server := api.NewServer(api.Deps{
		Config:      cfg.API,
		FullConfig:  cfg,
		Store:       st,
		Scheduler:   sched,
		Coordinator: coord,
		Registry:    registry,
		Metrics:     metrics,
		Health:      health,
		Logger:      logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}
	defer coord.Stop()

	httpServer := &http.Server{
		Addr:    cfg.API.ListenAddress,
		Handler: server.Router(),
	}

	go func() {
		logger.Infof("listening on %s", cfg.API.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Infof("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownGrace)
	defer shutdownCancel()

	httpServer.Shutdown(shutdownCtx)
	return sched.Shutdown(shutdownCtx)
}

func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Type {
	case "postgres":
		return store.NewPostgresStore(cfg.URL, cfg.MaxOpenConns, cfg.MaxIdleConns)
	default:
		return store.NewSQLiteStore(cfg.URL)
	}
}

// defaultProfileWeights resolves the configured default scoring profile,
// falling back to spec.md §4.4.6's default weight vector when no
// profiles are configured (a minimal config should still be able to
// start and score proxies).
func defaultProfileWeights(cfg *config.HarvesterConfig) (config.ScoringWeights, float64) {
	if profile, ok := cfg.Profiles[cfg.DefaultProfile]; ok {
		return profile.Weights, profile.MinScoreThreshold
	}
	return config.DefaultScoringWeights(), 50
}

func storeHealthCheck(st store.Store) monitoring.CheckFunc {
	return func(ctx context.Context) (monitoring.Status, string) {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if _, err := st.Stats(checkCtx); err != nil {
			return monitoring.StatusUnhealthy, err.Error()
		}
		return monitoring.StatusHealthy, "reachable"
	}
}

func schedulerHealthCheck(sched *scheduler.Scheduler) monitoring.CheckFunc {
	return func(ctx context.Context) (monitoring.Status, string) {
		status := sched.GetSystemStatus()
		return monitoring.StatusHealthy, fmt.Sprintf("%d queued, %d running", status.QueueSize, status.Running)
	}
}
