// Package extractor implements component B: pulling candidate proxy
// records out of a heterogeneous set of public sources. Every extractor
// implements the same Extractor contract regardless of whether the
// underlying source is an HTML table or a line/JSON API.
package extractor

import (
	"context"
	"time"
)

// Candidate is a raw, unvalidated proxy record as scraped from a
// source, before transform.Transformer.Transform folds it into store.Proxy.
type Candidate struct {
	IP            string
	Port          string
	Country       string
	Anonymity     string
	Protocol      string
	LastCheckedAt time.Time
}

// Result is what Extract returns, per spec.md §4.2.
type Result struct {
	Source   string
	Proxies  []Candidate
	Success  bool
	Error    error
	Metadata map[string]string
}

// Extractor is the shared contract for every source.
type Extractor interface {
	Source() string
	Extract(ctx context.Context) (*Result, error)
}
