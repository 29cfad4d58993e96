package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/proxymesh/harvester/internal/geoip"
	"github.com/proxymesh/harvester/internal/store"
)

// riskSubscore maps geoip.RiskLevel onto the [0,100] subscore scale.
func riskSubscore(risk geoip.RiskLevel) float64 {
	switch risk {
	case geoip.RiskLow:
		return 100
	case geoip.RiskMedium:
		return 60
	default:
		return 20
	}
}

// geolocationTest compares the real (no-proxy) egress location against
// the proxy's egress location, per spec.md §4.4.3.
func geolocationTest(ctx context.Context, proxy *store.Proxy, echoURL string, cache *geoip.Cache, timeout time.Duration) SubtestOutcome {
	direct, err := buildClient(nil, timeout)
	if err != nil {
		return SubtestOutcome{Error: err.Error()}
	}
	throughProxy, err := buildClient(proxy, timeout)
	if err != nil {
		return SubtestOutcome{Error: err.Error()}
	}

	realIP, _, err := fetchEgressIP(ctx, direct, echoURL)
	if err != nil {
		return SubtestOutcome{Error: fmt.Errorf("real egress lookup: %w", err).Error()}
	}
	proxyIP, _, err := fetchEgressIP(ctx, throughProxy, echoURL)
	if err != nil {
		return SubtestOutcome{Error: fmt.Errorf("proxy egress lookup: %w", err).Error()}
	}

	realLoc, err := cache.Lookup(ctx, realIP)
	if err != nil {
		return SubtestOutcome{Error: fmt.Errorf("real geo lookup: %w", err).Error()}
	}
	proxyLoc, err := cache.Lookup(ctx, proxyIP)
	if err != nil {
		return SubtestOutcome{Error: fmt.Errorf("proxy geo lookup: %w", err).Error()}
	}

	cmp := geoip.Compare(realLoc, proxyLoc)

	return SubtestOutcome{
		OK:       true,
		Subscore: riskSubscore(cmp.Risk),
		Details: map[string]interface{}{
			"real_ip":      realIP,
			"proxy_ip":     proxyIP,
			"same_country": cmp.SameCountry,
			"same_region":  cmp.SameRegion,
			"same_city":    cmp.SameCity,
			"distance_km":  cmp.DistanceKm,
			"risk_level":   string(cmp.Risk),
			"country":      proxyLoc.Country,
		},
	}
}
