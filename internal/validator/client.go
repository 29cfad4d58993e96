package validator

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"github.com/proxymesh/harvester/internal/store"
)

// buildClient returns an http.Client routed through proxy (or a direct
// client when proxy is nil), mirroring the teacher's
// internal/proxy/health.go pattern of building one fresh client per
// check. TLS verification is disabled per spec.md §4.4.1 — the target
// being probed is an arbitrary untrusted proxy or echo endpoint, not a
// service this process trusts.
func buildClient(proxy *store.Proxy, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	if proxy != nil {
		proxyURL, err := url.Parse(proxy.URL())
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
