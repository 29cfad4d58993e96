// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a HarvesterConfig from a YAML file, fills in defaults for
// every unset ambient section, loads the bundled scoring profiles, and
// validates the result. A configuration error is always fatal at load
// time (§7 kind 5) — Load never returns a partially-usable config.
func Load(path string) (*HarvesterConfig, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, harvesterErrors.Wrap(harvesterErrors.KindConfiguration, "config.Load", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, harvesterErrors.Wrap(harvesterErrors.KindConfiguration, "config.Load", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Profiles == nil {
		cfg.Profiles = BundledProfiles()
	} else {
		for name, profile := range BundledProfiles() {
			if _, exists := cfg.Profiles[name]; !exists {
				cfg.Profiles[name] = profile
			}
		}
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = "standard_validation"
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Defaults returns a HarvesterConfig with every ambient section populated
// at its documented default, matching the teacher's pattern of
// constructing a config with production-safe defaults before applying
// overrides.
func Defaults() *HarvesterConfig {
	return &HarvesterConfig{
		Database: DatabaseConfig{
			Type:            "sqlite",
			URL:             "./data/harvester.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		Fetch:     DefaultFetchConfig(),
		Validator: DefaultValidatorConfig(),
		Scheduler: DefaultSchedulerConfig(),
		API: APIConfig{
			ListenAddress:   ":8080",
			RateLimitPerMin: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Monitoring: MonitoringConfig{
			Enabled:           true,
			PrometheusEnabled: true,
			MetricsPath:       "/monitoring/metrics",
			Namespace:         "harvester",
		},
	}
}

// applyEnvOverrides applies the enumerated environment variables from
// §6.3, the same override-after-file-load pattern the teacher's config
// loader uses.
func applyEnvOverrides(cfg *HarvesterConfig) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MAX_CONCURRENT_REQUESTS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.Fetch.MaxConcurrentRequests = n
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Fetch.RequestTimeout = d
		}
	}
	if v := os.Getenv("VALIDATOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Validator.Timeout = d
		}
	}
	if v := os.Getenv("VALIDATOR_CONCURRENT_WORKERS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.Validator.ConcurrentWorkers = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.API.RateLimitPerMin = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MONITORING_ENABLED"); v != "" {
		cfg.Monitoring.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PROMETHEUS_ENABLED"); v != "" {
		cfg.Monitoring.PrometheusEnabled = v == "true" || v == "1"
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive: %s", s)
	}
	return n, nil
}
