// internal/store/store.go
package store

import (
	"context"
	"time"
)

// Store is the proxy store contract (spec.md §4.5). Two backends
// implement it — SQLite and PostgreSQL, selected by config.DatabaseConfig.Type
// — mirroring how the teacher dispatches output writers by configured
// format (internal/output/sqlite.go, postgresql.go in the teacher repo).
type Store interface {
	// Upsert inserts or merges a proxy keyed on (ip, port). Merge never
	// downgrades last_success, never resets created_at, and unions
	// metadata keys (spec.md §4.5 upsert rule).
	Upsert(ctx context.Context, p *Proxy) error

	GetByID(ctx context.Context, id int64) (*Proxy, error)
	GetByAddr(ctx context.Context, ip string, port int) (*Proxy, error)

	Query(ctx context.Context, filter Filter) (*Page, error)

	// Random returns a random active proxy matching filter, or
	// ErrPoolEmpty if none qualify (§6.1 GET /proxies/random).
	Random(ctx context.Context, filter Filter) (*Proxy, error)

	// UpdateStatus applies a validation outcome to a proxy's latest
	// fields and appends a CheckResult row, all within one atomic write.
	UpdateStatus(ctx context.Context, proxyID int64, result CheckResult, qualityScore float64, isActive bool) error

	Delete(ctx context.Context, id int64) error

	// Cleanup deletes proxies that have been inactive for longer than
	// inactiveSince (spec.md §8 invariant on Cleanup).
	Cleanup(ctx context.Context, inactiveSince time.Time) (int, error)

	Stats(ctx context.Context) (*Stats, error)

	// History returns up to limit CheckResults for proxyID within the
	// window, most recent first — the window query stability is
	// computed from (Design Note §9, option b).
	History(ctx context.Context, proxyID int64, window time.Duration, limit int) ([]CheckResult, error)

	AppendCrawlLog(ctx context.Context, log CrawlLog) error
	CrawlHistory(ctx context.Context, source string, onlySuccess *bool, limit, offset int) ([]CrawlLog, error)

	Close() error
}
