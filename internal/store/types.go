// internal/store/types.go

// Package store owns the canonical Proxy table (component F). All
// mutations to a Proxy row go through this package's Store interface —
// the scheduler and validator submit ValidationResults here rather than
// writing rows themselves, per the ownership rule in spec.md §3.3.
package store

import (
	"strconv"
	"time"
)

// Protocol enumerates the four proxy protocols spec.md §3.1 names.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolHTTPS  Protocol = "https"
	ProtocolSOCKS4 Protocol = "socks4"
	ProtocolSOCKS5 Protocol = "socks5"
)

// Anonymity enumerates the canonical four-valued anonymity tier.
type Anonymity string

const (
	AnonymityElite       Anonymity = "elite"
	AnonymityAnonymous   Anonymity = "anonymous"
	AnonymityTransparent Anonymity = "transparent"
	AnonymityUnknown     Anonymity = "unknown"
)

// Proxy is the canonical proxy record (spec.md §3.1).
type Proxy struct {
	ID              int64             `json:"id"`
	IP              string            `json:"ip"`
	Port            int               `json:"port"`
	Protocol        Protocol          `json:"protocol"`
	Anonymity       Anonymity         `json:"anonymity"`
	Country         string            `json:"country,omitempty"`
	Region          string            `json:"region,omitempty"`
	City            string            `json:"city,omitempty"`
	Source          string            `json:"source,omitempty"`
	ResponseTimeMs  int64             `json:"response_time_ms"`
	SuccessRate     float64           `json:"success_rate"`
	QualityScore    float64           `json:"quality_score"`
	IsActive        bool              `json:"is_active"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	LastCheckedAt   time.Time         `json:"last_checked_at"`
	LastSuccessAt   time.Time         `json:"last_success_at,omitempty"`
}

// Key returns the (ip, port) identity tuple.
func (p Proxy) Key() string {
	return p.IP + ":" + strconv.Itoa(p.Port)
}

// URL builds the proxy's connection URL as protocol://ip:port, without
// credentials.
func (p Proxy) URL() string {
	return string(p.Protocol) + "://" + p.IP + ":" + strconv.Itoa(p.Port)
}

// Filter selects a page of proxies for Query (§6.1 GET /proxies query
// params).
type Filter struct {
	Protocol        Protocol
	Country         string
	Anonymity       Anonymity
	IsActive        *bool
	Source          string
	MinResponseTime int64
	MaxResponseTime int64
	Page            int
	PageSize        int
}

// Page is the paginated result of Query.
type Page struct {
	Proxies    []Proxy `json:"proxies"`
	Total      int     `json:"total"`
	PageNum    int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// Stats is the aggregated count surface for GET /proxies/stats.
type Stats struct {
	Total          int                `json:"total"`
	Active         int                `json:"active"`
	ByProtocol     map[string]int     `json:"by_protocol"`
	ByCountry      map[string]int     `json:"by_country"`
	ByAnonymity    map[string]int     `json:"by_anonymity"`
	AverageScore   float64            `json:"average_score"`
}

// CheckResult is one row of proxy_check_results — a persisted snapshot
// from a single validation subtest run, independent of the validator's
// in-process ValidationResult so stability is computable from storage
// alone (Design Note §9).
type CheckResult struct {
	ID               int64     `json:"id"`
	ProxyID          int64     `json:"proxy_id"`
	IsSuccessful     bool      `json:"is_successful"`
	ResponseTimeMs   int64     `json:"response_time_ms"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CheckType        string    `json:"check_type"`
	TargetURL        string    `json:"target_url"`
	StatusCode       int       `json:"status_code"`
	CompositeScore   float64   `json:"composite_score"`
	CheckedAt        time.Time `json:"checked_at"`
}

// CrawlLog is one row per (source, run) — entity CrawlLog (§3.1).
type CrawlLog struct {
	ID           int64     `json:"id"`
	Source       string    `json:"source"`
	TotalFound   int       `json:"total_found"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CrawledAt    time.Time `json:"crawled_at"`
}
