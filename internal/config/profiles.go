// internal/config/profiles.go
package config

import "time"

// BundledProfiles returns the five named scoring profiles enumerated in
// §6.3, recovered from the original Python implementation's
// ValidationConfigManager default set (_examples/original_source/backend/app/
// etl/validators/config_manager.py) and re-expressed in the six-dimension
// weight vector spec.md §4.4.6 standardizes on. Where the original tracked
// a dimension spec.md doesn't (download_speed, reliability), its weight is
// folded into the nearest spec dimension (speed, stability respectively)
// so every profile's weights still sum to 1.
func BundledProfiles() map[string]ScoringProfile {
	profiles := map[string]ScoringProfile{
		"fast_check": {
			Name:        "fast_check",
			Description: "Quick check — connectivity only, no stability history required",
			TestLevel:   "basic",
			Weights: ScoringWeights{
				ConnectionSuccess: 0.7,
				ResponseTime:      0.2,
				Stability:         0.1,
			},
			MinScoreThreshold: 30,
			ConcurrentLimit:   50,
			Timeout:           10 * time.Second,
			RetryCount:        1,
			AutoRetryFailed:   false,
		},
		"standard_validation": {
			Name:        "standard_validation",
			Description: "Default profile — connectivity, speed, geolocation, stability",
			TestLevel:   "standard",
			Weights:     DefaultScoringWeights(),
			MinScoreThreshold: 60,
			ConcurrentLimit:   20,
			Timeout:           15 * time.Second,
			RetryCount:        2,
			AutoRetryFailed:   true,
		},
		"comprehensive_analysis": {
			Name:        "comprehensive_analysis",
			Description: "Deep analysis — every subtest, reliability folded into stability",
			TestLevel:   "comprehensive",
			Weights: ScoringWeights{
				ConnectionSuccess: 0.25,
				ResponseTime:      0.15,
				Speed:             0.15,
				AnonymityLevel:    0.15,
				Geolocation:       0.10,
				Stability:         0.20,
			},
			MinScoreThreshold: 75,
			ConcurrentLimit:   10,
			Timeout:           30 * time.Second,
			RetryCount:        3,
			AutoRetryFailed:   true,
		},
		"security_focused": {
			Name:        "security_focused",
			Description: "Anonymity-weighted profile for privacy-sensitive use",
			TestLevel:   "comprehensive",
			Weights: ScoringWeights{
				AnonymityLevel:    0.5,
				ConnectionSuccess: 0.2,
				ResponseTime:      0.1,
				Stability:         0.1,
				Geolocation:       0.1,
			},
			MinScoreThreshold: 70,
			ConcurrentLimit:   15,
			Timeout:           20 * time.Second,
			RetryCount:        2,
			AutoRetryFailed:   true,
		},
		"performance_optimized": {
			Name:        "performance_optimized",
			Description: "High-throughput profile biased toward raw speed",
			TestLevel:   "standard",
			Weights: ScoringWeights{
				ResponseTime:      0.4,
				ConnectionSuccess: 0.3,
				Speed:             0.2,
				Stability:         0.1,
			},
			MinScoreThreshold: 50,
			ConcurrentLimit:   100,
			Timeout:           5 * time.Second,
			RetryCount:        1,
			AutoRetryFailed:   false,
		},
	}
	return profiles
}
