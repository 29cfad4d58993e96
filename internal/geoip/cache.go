// internal/geoip/cache.go
package geoip

import (
	"context"
	"sync"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL matches spec.md §4.4.3's default per-IP cache lifetime.
const DefaultTTL = time.Hour

type cacheEntry struct {
	loc       Location
	expiresAt time.Time
}

// Cache resolves an IP through an ordered Provider list, remembering
// results for TTL and collapsing concurrent lookups of the same IP into
// one provider call via singleflight — the process-global, read-mostly
// cache spec.md §8 describes.
type Cache struct {
	providers []Provider
	ttl       time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	group singleflight.Group
}

// NewCache builds a Cache trying providers in order until one succeeds.
func NewCache(ttl time.Duration, providers ...Provider) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		providers: providers,
		ttl:       ttl,
		entries:   make(map[string]cacheEntry),
	}
}

// Lookup resolves ip, serving from cache when fresh and deduping
// concurrent callers for the same ip.
func (c *Cache) Lookup(ctx context.Context, ip string) (Location, error) {
	if loc, ok := c.get(ip); ok {
		return loc, nil
	}

	v, err, _ := c.group.Do(ip, func() (interface{}, error) {
		if loc, ok := c.get(ip); ok {
			return loc, nil
		}
		loc, err := c.lookupProviders(ctx, ip)
		if err != nil {
			return Location{}, err
		}
		c.put(ip, loc)
		return loc, nil
	})
	if err != nil {
		return Location{}, err
	}
	return v.(Location), nil
}

func (c *Cache) lookupProviders(ctx context.Context, ip string) (Location, error) {
	var lastErr error
	for _, p := range c.providers {
		loc, err := p.Lookup(ctx, ip)
		if err != nil {
			lastErr = err
			continue
		}
		return *loc, nil
	}
	if lastErr == nil {
		lastErr = harvesterErrors.New(harvesterErrors.KindTransientNetwork, "geoip.Lookup", "no provider configured")
	}
	return Location{}, harvesterErrors.Wrap(harvesterErrors.KindTransientNetwork, "geoip.Lookup", lastErr)
}

func (c *Cache) get(ip string) (Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ip]
	if !ok || time.Now().After(e.expiresAt) {
		return Location{}, false
	}
	return e.loc, true
}

func (c *Cache) put(ip string, loc Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ip] = cacheEntry{loc: loc, expiresAt: time.Now().Add(c.ttl)}
}

// Purge drops every expired entry; callers may run this periodically to
// bound memory for long-lived processes.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for ip, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, ip)
			removed++
		}
	}
	return removed
}
