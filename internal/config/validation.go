// internal/config/validation.go
package config

import (
	"fmt"
	"math"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
	"github.com/proxymesh/harvester/internal/utils"
)

const weightSumTolerance = 1e-6

// Validate enforces the enumerated configuration invariants (§6.3, §7 kind
// 5). Any violation is a fatal configuration error: the service refuses to
// start rather than limping along with an inconsistent config.
func Validate(cfg *HarvesterConfig) error {
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "postgres" {
		return configErr("database.type must be 'sqlite' or 'postgres', got %q", cfg.Database.Type)
	}
	if cfg.Database.URL == "" {
		return configErr("database.url is required")
	}

	if cfg.Scheduler.MaxConcurrentJobs <= 0 {
		return configErr("scheduler.max_concurrent_jobs must be positive")
	}
	if cfg.Scheduler.JobQueueSize <= 0 {
		return configErr("scheduler.job_queue_size must be positive")
	}
	if cfg.Scheduler.ConcurrentLimit <= 0 {
		return configErr("scheduler.concurrent_limit must be positive")
	}

	if cfg.Validator.Timeout <= 0 {
		return configErr("validator.timeout must be positive")
	}

	for name, profile := range cfg.Profiles {
		if err := ValidateProfile(name, profile); err != nil {
			return err
		}
	}

	if cfg.DefaultProfile != "" {
		if _, ok := cfg.Profiles[cfg.DefaultProfile]; !ok {
			return configErr("default_profile %q is not a known profile", cfg.DefaultProfile)
		}
	}

	for _, src := range cfg.Sources {
		if src.Name == "" {
			return configErr("every source must have a name")
		}
		if src.Type != "html_table" && src.Type != "api" {
			return configErr("source %q: type must be 'html_table' or 'api', got %q", src.Name, src.Type)
		}
		if src.Type == "html_table" {
			if err := validateSelectors(src.Name, src.Selectors); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateSelectors runs every configured CSS selector for an html_table
// source through SelectorValidator in strict mode, so a source config
// pointing goquery at a javascript:-protocol or CSS-expression payload
// is rejected at load time rather than at crawl time.
func validateSelectors(sourceName string, sel HTMLSelectors) error {
	validator := &utils.SelectorValidator{Strict: true}
	fields := map[string]string{
		"container_row":     sel.ContainerRow,
		"ip_cell":           sel.IPCell,
		"port_cell":         sel.PortCell,
		"country_cell":      sel.CountryCell,
		"anonymity_cell":    sel.AnonymityCell,
		"protocol_cell":     sel.ProtocolCell,
		"last_checked_cell": sel.LastCheckedCell,
		"next_page":         sel.NextPage,
	}
	for field, value := range fields {
		if value == "" {
			continue
		}
		if verr := validator.Validate(value); verr != nil {
			return configErr("source %q: selector %q: %s", sourceName, field, verr.Message)
		}
	}
	return nil
}

// ValidateProfile enforces the sum-to-one constraint on a scoring
// profile's weight vector (spec.md §6.3 "all sum-to-one constraints
// enforced on load").
func ValidateProfile(name string, profile ScoringProfile) error {
	sum := profile.Weights.Sum()
	if math.Abs(sum-1.0) > weightSumTolerance {
		return configErr("profile %q: weights sum to %.6f, must sum to 1", name, sum)
	}
	if profile.MinScoreThreshold < 0 || profile.MinScoreThreshold > 100 {
		return configErr("profile %q: min_score_threshold must be in [0,100]", name)
	}
	switch profile.TestLevel {
	case "basic", "standard", "comprehensive":
	default:
		return configErr("profile %q: invalid test_level %q", name, profile.TestLevel)
	}
	return nil
}

func configErr(format string, args ...interface{}) error {
	return harvesterErrors.New(harvesterErrors.KindConfiguration, "config.Validate", fmt.Sprintf(format, args...))
}
