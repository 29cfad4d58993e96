// internal/config/types.go

// Package config loads and validates the harvester's configuration:
// database selection, fetch/validation tuning, the job scheduler, and the
// named scoring profiles used to grade candidate proxies.
package config

import "time"

// HarvesterConfig is the top-level configuration loaded from YAML/env,
// adapted from the teacher's ScraperConfig/Config split into one shape
// covering this system's ambient and domain concerns.
type HarvesterConfig struct {
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Fetch      FetchConfig      `yaml:"fetch" json:"fetch"`
	Validator  ValidatorConfig  `yaml:"validator" json:"validator"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" json:"scheduler"`
	API        APIConfig        `yaml:"api" json:"api"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
	Sources    []SourceConfig   `yaml:"sources" json:"sources"`
	Profiles   map[string]ScoringProfile `yaml:"profiles" json:"profiles"`
	DefaultProfile string        `yaml:"default_profile" json:"default_profile"`
}

// DatabaseConfig selects and tunes the proxy store backend (§6.3
// DATABASE_URL / DATABASE_TYPE).
type DatabaseConfig struct {
	Type            string        `yaml:"type" json:"type"` // sqlite | postgres
	URL             string        `yaml:"url" json:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`
	QueryTimeout    time.Duration `yaml:"query_timeout,omitempty" json:"query_timeout,omitempty"`
}

// RedisConfig holds the optional Redis settings (§6.3 REDIS_URL). They are
// loaded but no component connects to Redis: the store has no cross-process
// cache, and the scheduler's queue is in-process and persisted only to the
// JSON job log.
type RedisConfig struct {
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// FetchConfig tunes the HTTP fetcher (component A).
type FetchConfig struct {
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`
	RequestTimeout        time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MinDelay              time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay              time.Duration `yaml:"max_delay" json:"max_delay"`
	MaxRetries            int           `yaml:"max_retries" json:"max_retries"`
	SessionRotateAfter    int           `yaml:"session_rotate_after" json:"session_rotate_after"`
}

func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		MaxConcurrentRequests: 20,
		RequestTimeout:        10 * time.Second,
		MinDelay:              1 * time.Second,
		MaxDelay:              3 * time.Second,
		MaxRetries:            3,
		SessionRotateAfter:    3,
	}
}

// ValidatorConfig tunes the validator subsystem (component D, §6.3
// VALIDATOR_TIMEOUT / VALIDATOR_CONCURRENT_WORKERS).
type ValidatorConfig struct {
	Timeout            time.Duration `yaml:"timeout" json:"timeout"`
	ConcurrentWorkers  int           `yaml:"concurrent_workers" json:"concurrent_workers"`
	EchoEndpoints      []string      `yaml:"echo_endpoints" json:"echo_endpoints"`
	SpeedEndpoints     []string      `yaml:"speed_endpoints" json:"speed_endpoints"`
	DownloadTestSize   int64         `yaml:"download_test_size" json:"download_test_size"`
	HistorySize        int           `yaml:"history_size" json:"history_size"`
	HistoryWindow      time.Duration `yaml:"history_window" json:"history_window"`
	GeoCacheTTL        time.Duration `yaml:"geo_cache_ttl" json:"geo_cache_ttl"`
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		Timeout:           30 * time.Second,
		ConcurrentWorkers: 10,
		EchoEndpoints: []string{
			"http://httpbin.org/ip",
			"http://httpbin.org/headers",
			"http://httpbin.org/user-agent",
		},
		SpeedEndpoints:   []string{"http://httpbin.org/bytes/1048576"},
		DownloadTestSize: 1 << 20,
		HistorySize:      100,
		HistoryWindow:    time.Hour,
		GeoCacheTTL:      time.Hour,
	}
}

// SchedulerConfig tunes the job scheduler (component G, §4.6/§6.3).
type SchedulerConfig struct {
	MaxConcurrentJobs    int           `yaml:"max_concurrent_jobs" json:"max_concurrent_jobs"`
	JobQueueSize         int           `yaml:"job_queue_size" json:"job_queue_size"`
	ConcurrentLimit      int           `yaml:"concurrent_limit" json:"concurrent_limit"`
	RetryCount           int           `yaml:"retry_count" json:"retry_count"`
	ValidationInterval   time.Duration `yaml:"validation_interval" json:"validation_interval"`
	RetryFailedInterval  time.Duration `yaml:"retry_failed_interval" json:"retry_failed_interval"`
	AutoCleanupInterval  time.Duration `yaml:"auto_cleanup_interval" json:"auto_cleanup_interval"`
	PersistencePath      string        `yaml:"persistence_path" json:"persistence_path"`
	TerminalRetention    time.Duration `yaml:"terminal_retention" json:"terminal_retention"`
	ValidationTimeout    time.Duration `yaml:"validation_timeout" json:"validation_timeout"`
	ShutdownGrace        time.Duration `yaml:"shutdown_grace" json:"shutdown_grace"`
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs:   3,
		JobQueueSize:        100,
		ConcurrentLimit:     10,
		RetryCount:          2,
		ValidationInterval:  time.Hour,
		RetryFailedInterval: 30 * time.Minute,
		AutoCleanupInterval: 24 * time.Hour,
		PersistencePath:     "./data/jobs.json",
		TerminalRetention:   24 * time.Hour,
		ValidationTimeout:   5 * time.Minute,
		ShutdownGrace:       5 * time.Minute,
	}
}

// APIConfig tunes the HTTP REST surface (§6.1, §6.3 RATE_LIMIT_PER_MINUTE).
type APIConfig struct {
	ListenAddress    string `yaml:"listen_address" json:"listen_address"`
	RateLimitPerMin  int    `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	VerboseErrors    bool   `yaml:"verbose_errors" json:"verbose_errors"`
}

// LoggingConfig (§6.3 LOG_LEVEL / LOG_FORMAT).
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug | info | warn | error
	Format string `yaml:"format" json:"format"` // text | json
}

// MonitoringConfig (§6.3 MONITORING_ENABLED / PROMETHEUS_ENABLED).
type MonitoringConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	PrometheusEnabled  bool   `yaml:"prometheus_enabled" json:"prometheus_enabled"`
	MetricsPath        string `yaml:"metrics_path" json:"metrics_path"`
	Namespace          string `yaml:"namespace" json:"namespace"`
}

// SourceConfig is a named extractor configuration (entity ProxySource,
// §3.1). Extra carries shape-specific string settings kept opaque to the
// coordinator.
type SourceConfig struct {
	Name           string            `yaml:"name" json:"name"`
	Type           string            `yaml:"type" json:"type"` // html_table | api
	URL            string            `yaml:"url" json:"url"`
	Enabled        bool              `yaml:"enabled" json:"enabled"`
	Priority       int               `yaml:"priority" json:"priority"`
	CrawlInterval  time.Duration     `yaml:"crawl_interval" json:"crawl_interval"`
	MaxPages       int               `yaml:"max_pages,omitempty" json:"max_pages,omitempty"`
	RateLimitDelay time.Duration     `yaml:"rate_limit_delay,omitempty" json:"rate_limit_delay,omitempty"`
	Selectors      HTMLSelectors     `yaml:"selectors,omitempty" json:"selectors,omitempty"`
	DefaultLevel   string            `yaml:"default_level,omitempty" json:"default_level,omitempty"`
	Extra          map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// HTMLSelectors is the deterministic table selector set spec.md §4.2 names.
type HTMLSelectors struct {
	ContainerRow     string `yaml:"container_row" json:"container_row"`
	IPCell           string `yaml:"ip_cell" json:"ip_cell"`
	PortCell         string `yaml:"port_cell" json:"port_cell"`
	CountryCell      string `yaml:"country_cell,omitempty" json:"country_cell,omitempty"`
	AnonymityCell    string `yaml:"anonymity_cell,omitempty" json:"anonymity_cell,omitempty"`
	ProtocolCell     string `yaml:"protocol_cell,omitempty" json:"protocol_cell,omitempty"`
	LastCheckedCell  string `yaml:"last_checked_cell,omitempty" json:"last_checked_cell,omitempty"`
	NextPage         string `yaml:"next_page,omitempty" json:"next_page,omitempty"`
}

// ScoringProfile bundles the weights, timeout, and thresholds a validation
// run can select between (§6.3 "Scoring profiles (bundled)"). It carries no
// endpoint list: every profile uses the EchoEndpoints and SpeedEndpoints of
// ValidatorConfig.
type ScoringProfile struct {
	Name               string             `yaml:"name" json:"name"`
	Description        string             `yaml:"description" json:"description"`
	TestLevel          string             `yaml:"test_level" json:"test_level"`
	Weights            ScoringWeights     `yaml:"weights" json:"weights"`
	MinScoreThreshold  float64            `yaml:"min_score_threshold" json:"min_score_threshold"`
	ConcurrentLimit    int                `yaml:"concurrent_limit" json:"concurrent_limit"`
	Timeout            time.Duration      `yaml:"timeout" json:"timeout"`
	RetryCount         int                `yaml:"retry_count" json:"retry_count"`
	AutoRetryFailed    bool               `yaml:"auto_retry_failed" json:"auto_retry_failed"`
}

// ScoringWeights is the six-dimension weight vector spec.md §4.4.6 defines.
// Values must sum to 1 (± rounding), enforced at load time.
type ScoringWeights struct {
	ConnectionSuccess float64 `yaml:"connection_success" json:"connection_success"`
	ResponseTime      float64 `yaml:"response_time" json:"response_time"`
	AnonymityLevel    float64 `yaml:"anonymity_level" json:"anonymity_level"`
	Stability         float64 `yaml:"stability" json:"stability"`
	Geolocation       float64 `yaml:"geolocation" json:"geolocation"`
	Speed             float64 `yaml:"speed" json:"speed"`
}

func (w ScoringWeights) Sum() float64 {
	return w.ConnectionSuccess + w.ResponseTime + w.AnonymityLevel + w.Stability + w.Geolocation + w.Speed
}

// DefaultScoringWeights is the spec.md §4.4.6 default weight vector.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		ConnectionSuccess: 0.25,
		ResponseTime:      0.20,
		AnonymityLevel:    0.20,
		Stability:         0.15,
		Geolocation:       0.10,
		Speed:             0.10,
	}
}
