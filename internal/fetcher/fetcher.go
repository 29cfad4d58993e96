// Package fetcher performs outbound HTTP for source extractors and for
// the validator's live proxy probes, rotating headers, classifying
// anti-bot responses, and adapting its pacing per source (component A).
package fetcher

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"

	"golang.org/x/time/rate"
)

// Options carries per-call knobs for Fetch.
type Options struct {
	Source     string // rolling-ratio/backoff bucket key
	ProxyURL   string // optional; empty means a direct connection
	Timeout    time.Duration
	Referer    string
	MaxRetries int // 0 uses DefaultMaxRetries
}

// Result is what Fetch returns on success.
type Result struct {
	Body         []byte
	StatusCode   int
	ResponseTime time.Duration
	Signal       Signal
}

const (
	DefaultMinDelay        = 1 * time.Second
	DefaultMaxDelay        = 3 * time.Second
	DefaultMaxRetries      = 3
	DefaultTimeout         = 30 * time.Second
	sessionRotateEveryKErr = 2
	maxBodyBytes           = 4 << 20 // 4 MiB, generous for both table pages and JSON payloads
)

// Fetcher is stateless apart from the per-source rolling-ratio counters,
// which use atomic/mutex-guarded updates (spec.md §4.1 concurrency note).
type Fetcher struct {
	headers  *headerPool
	backoffs *registry
	limiter  *rate.Limiter

	minDelay time.Duration
	maxDelay time.Duration
}

// New builds a Fetcher. requestsPerSecond bounds the aggregate outbound
// rate across all sources via golang.org/x/time/rate; minDelay/maxDelay
// feed the adaptive per-source backoff.
func New(requestsPerSecond float64, minDelay, maxDelay time.Duration) *Fetcher {
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	if maxDelay <= 0 || maxDelay < minDelay {
		maxDelay = DefaultMaxDelay
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &Fetcher{
		headers:  newHeaderPool(nil),
		backoffs: newRegistry(),
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1),
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Fetch issues a GET to targetURL, retrying with exponential backoff and
// session rotation on failure, and paces itself per the source's
// adaptive backoff policy before each attempt.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, opts Options) (*Result, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	source := opts.Source
	if source == "" {
		source = targetURL
	}
	backoff := f.backoffs.get(source)

	client, err := f.buildClient(opts.ProxyURL, opts.Timeout)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindConfiguration, "fetcher.Fetch", err)
	}

	var lastErr error
	consecutiveFailures := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if consecutiveFailures > 0 && consecutiveFailures%sessionRotateEveryKErr == 0 {
				client, err = f.buildClient(opts.ProxyURL, opts.Timeout)
				if err != nil {
					return nil, harvesterErrors.Wrap(harvesterErrors.KindConfiguration, "fetcher.Fetch", err)
				}
			}
		}

		delay := backoff.nextDelay(f.minDelay, f.maxDelay)
		if attempt > 0 {
			delay += harvesterErrors.RetryPolicy{BaseDelay: f.minDelay}.Delay(attempt - 1)
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, harvesterErrors.Wrap(harvesterErrors.KindTransientNetwork, "fetcher.Fetch", err)
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, harvesterErrors.Wrap(harvesterErrors.KindTransientNetwork, "fetcher.Fetch", err)
		}

		result, classification, err := f.attempt(ctx, client, targetURL, opts)
		if err == nil {
			backoff.recordOutcome(true, result.Signal)
			return result, nil
		}

		backoff.recordOutcome(false, classification)
		lastErr = err
		consecutiveFailures++

		if !harvesterErrors.KindOf(err).Retryable() {
			break
		}
	}

	return nil, harvesterErrors.Wrap(harvesterErrors.KindOf(lastErr), "fetcher.Fetch", lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, client *http.Client, targetURL string, opts Options) (*Result, Signal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, SignalNone, err
	}
	f.headers.apply(req, opts.Referer)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, SignalNone, harvesterErrors.Wrap(harvesterErrors.KindTransientNetwork, "fetcher.attempt", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, SignalNone, err
	}
	elapsed := time.Since(start)

	sig := detectSignal(resp.StatusCode, string(body))
	result := &Result{Body: body, StatusCode: resp.StatusCode, ResponseTime: elapsed, Signal: sig}

	if sig == SignalRateLimit || sig == SignalBlocked {
		return result, sig, harvesterErrors.New(harvesterErrors.KindAntiBot, "fetcher.attempt", sig.String())
	}
	if resp.StatusCode >= 500 {
		return result, sig, harvesterErrors.New(harvesterErrors.KindTransientNetwork, "fetcher.attempt", "server error")
	}
	return result, sig, nil
}

func (f *Fetcher) buildClient(proxyURLStr string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConnsPerHost: 4,
	}

	if proxyURLStr != "" {
		proxyURL, err := url.Parse(proxyURLStr)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   timeout,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
