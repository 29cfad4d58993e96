// Package scoring implements component E: folding a validator.ValidationResult
// into the weighted composite score spec.md §4.4.6 defines, and the
// is_active verdict that follows from it.
package scoring

import (
	"math"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/validator"
)

// commonPorts get a small trust bump per spec.md §4.4.6's port adjustment.
var commonPorts = map[int]bool{80: true, 8080: true, 3128: true, 8081: true, 9090: true}

// responseTimeScore linearly interpolates the response_time dimension
// across the same four breakpoints (1s/3s/5s/10s) the original scoring
// engine used — spec.md §4.4.6 weights response_time as its own
// dimension without separately specifying its curve, so this carries
// over the original's formula (ip_scoring_engine.py _score_response_time).
func responseTimeScore(ms int64) float64 {
	s := float64(ms) / 1000.0
	switch {
	case s <= 1:
		return 100
	case s <= 3:
		return 100 - (s-1)*10
	case s <= 5:
		return 80 - (s-3)*10
	case s <= 10:
		return 60 - (s-5)*8
	default:
		return math.Max(0, 20-(s-10)*2)
	}
}

// Score is the composite result of Compute.
type Score struct {
	Dimensions map[string]float64 `json:"dimensions"`
	Composite  float64            `json:"composite_score"`
	IsActive   bool               `json:"is_active"`
}

// Compute applies spec.md §4.4.6's weighted composite scoring: each
// dimension is resolved from whatever subtests actually ran (a subtest
// that was gated off or failed falls back to its neutral prior rather
// than zeroing out the composite), weighted and summed, adjusted for
// protocol/port, then clamped to [0,100].
func Compute(result *validator.ValidationResult, proxy *store.Proxy, weights config.ScoringWeights, minScoreThreshold float64) Score {
	dims := map[string]float64{
		"connection_success": 0,
		"response_time":      0,
		"anonymity_level":    50, // unknown-anonymity prior
		"stability":          70, // neutral prior, matches §4.4.5's empty-history prior
		"geolocation":        50, // couldn't-determine prior
		"speed":              0,
	}

	if result.Connectivity.OK {
		dims["connection_success"] = result.Connectivity.Subscore
		if ms, ok := result.Connectivity.Details["response_time_ms"].(int64); ok {
			dims["response_time"] = responseTimeScore(ms)
		}
	}
	if result.Anonymity.OK {
		dims["anonymity_level"] = result.Anonymity.Subscore
	}
	if result.Stability.OK {
		dims["stability"] = result.Stability.Subscore
	}
	if result.Geolocation.OK {
		dims["geolocation"] = result.Geolocation.Subscore
	}
	if result.Speed.OK {
		dims["speed"] = result.Speed.Subscore
	}

	composite := weights.ConnectionSuccess*dims["connection_success"] +
		weights.ResponseTime*dims["response_time"] +
		weights.AnonymityLevel*dims["anonymity_level"] +
		weights.Stability*dims["stability"] +
		weights.Geolocation*dims["geolocation"] +
		weights.Speed*dims["speed"]

	composite = applyAdjustments(composite, proxy)
	composite = clamp(composite, 0, 100)

	return Score{
		Dimensions: dims,
		Composite:  composite,
		IsActive:   composite >= minScoreThreshold,
	}
}

// applyAdjustments applies the flat bumps spec.md §4.4.6 names: +5
// elite anonymity, +3 SOCKS5, +2 HTTPS, +2 for a common port.
func applyAdjustments(score float64, proxy *store.Proxy) float64 {
	if proxy == nil {
		return score
	}
	if proxy.Anonymity == store.AnonymityElite {
		score += 5
	}
	switch proxy.Protocol {
	case store.ProtocolSOCKS5:
		score += 3
	case store.ProtocolHTTPS:
		score += 2
	}
	if commonPorts[proxy.Port] {
		score += 2
	}
	return score
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
