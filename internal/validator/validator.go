package validator

import (
	"context"
	"time"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/geoip"
	"github.com/proxymesh/harvester/internal/store"
)

// Validator runs the gated subtest battery against one proxy at a time.
// It owns no mutable per-proxy state; the geo-IP cache is the only
// shared resource, and it is already safe for concurrent use.
type Validator struct {
	cfg      config.ValidatorConfig
	geoCache *geoip.Cache
}

func New(cfg config.ValidatorConfig, geoCache *geoip.Cache) *Validator {
	return &Validator{cfg: cfg, geoCache: geoCache}
}

func (v *Validator) ipEchoURL() string {
	if len(v.cfg.EchoEndpoints) > 0 {
		return v.cfg.EchoEndpoints[0]
	}
	return "http://httpbin.org/ip"
}

func (v *Validator) headerEchoURL() string {
	if len(v.cfg.EchoEndpoints) > 1 {
		return v.cfg.EchoEndpoints[1]
	}
	return "http://httpbin.org/headers"
}

func (v *Validator) speedURL() string {
	if len(v.cfg.SpeedEndpoints) > 0 {
		return v.cfg.SpeedEndpoints[0]
	}
	return ""
}

// Validate runs the subtests that the requested level calls for
// (spec.md §4.4's gating table), in order: connectivity, speed,
// geolocation, anonymity, stability. history and historicalScores feed
// the stability subtest; the caller (coordinator/scheduler) is
// responsible for pulling them from the store before calling Validate.
func (v *Validator) Validate(ctx context.Context, proxy *store.Proxy, level Level, history []store.CheckResult, historicalScores []float64) *ValidationResult {
	timeout := v.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	result := &ValidationResult{Level: level}

	result.Connectivity = connectivityTest(ctx, proxy, v.ipEchoURL(), timeout)
	result.Successful = result.Connectivity.OK

	if level.runsSpeed() {
		result.Speed = speedTest(ctx, proxy, v.cfg.EchoEndpoints, v.speedURL(), v.cfg.DownloadTestSize, timeout)
	}

	if level.runsGeolocation() && v.geoCache != nil {
		result.Geolocation = geolocationTest(ctx, proxy, v.ipEchoURL(), v.geoCache, timeout)
	}

	if level.runsAnonymity() {
		result.Anonymity = anonymityTest(ctx, proxy, v.ipEchoURL(), v.headerEchoURL(), timeout)
	}

	if level.runsStability() {
		result.Stability = stabilityTest(history, historicalScores)
	}

	result.Recommendation = result.recommend()
	return result
}
