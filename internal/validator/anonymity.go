package validator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/proxymesh/harvester/internal/store"
)

// proxyIndicativeHeaders is the header set spec.md §4.4.4 names as
// evidence the client is going through a proxy.
var proxyIndicativeHeaders = []string{
	"X-Forwarded-For", "X-Real-IP", "X-Client-IP", "Forwarded", "Via",
	"X-Originating-IP", "X-Remote-IP", "X-Remote-Addr", "CF-Connecting-IP",
	"True-Client-IP",
}

type headersEchoResponse struct {
	Headers map[string]string `json:"headers"`
}

func fetchHeadersSeen(ctx context.Context, client *http.Client, headerEchoURL string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, headerEchoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, err
	}
	var parsed headersEchoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	return parsed.Headers, nil
}

func anonymitySubscore(level store.Anonymity) float64 {
	switch level {
	case store.AnonymityElite:
		return 100
	case store.AnonymityAnonymous:
		return 80
	case store.AnonymityTransparent:
		return 40
	default:
		return 50
	}
}

// anonymityTest classifies the proxy's anonymity tier by comparing real
// vs proxy egress IP and scanning for proxy-indicative headers, per
// spec.md §4.4.4.
func anonymityTest(ctx context.Context, proxy *store.Proxy, ipEchoURL, headerEchoURL string, timeout time.Duration) SubtestOutcome {
	direct, err := buildClient(nil, timeout)
	if err != nil {
		return SubtestOutcome{Error: err.Error()}
	}
	throughProxy, err := buildClient(proxy, timeout)
	if err != nil {
		return SubtestOutcome{Error: err.Error()}
	}

	realIP, _, realErr := fetchEgressIP(ctx, direct, ipEchoURL)
	proxyIP, _, proxyErr := fetchEgressIP(ctx, throughProxy, ipEchoURL)
	if realErr != nil || proxyErr != nil {
		return SubtestOutcome{
			OK:       true,
			Subscore: anonymitySubscore(store.AnonymityUnknown),
			Details:  map[string]interface{}{"level": string(store.AnonymityUnknown)},
		}
	}

	headers, _ := fetchHeadersSeen(ctx, throughProxy, headerEchoURL)

	egressHidden := proxyIP != realIP
	leaksRealIP := !egressHidden || headerValueContains(headers, realIP)
	hasIndicativeHeader := anyProxyHeaderPresent(headers)

	var level store.Anonymity
	switch {
	case leaksRealIP:
		level = store.AnonymityTransparent
	case hasIndicativeHeader:
		level = store.AnonymityAnonymous
	default:
		level = store.AnonymityElite
	}

	return SubtestOutcome{
		OK:       true,
		Subscore: anonymitySubscore(level),
		Details: map[string]interface{}{
			"level":             string(level),
			"real_ip":           realIP,
			"proxy_ip":          proxyIP,
			"indicative_header": hasIndicativeHeader,
		},
	}
}

func headerValueContains(headers map[string]string, ip string) bool {
	for _, name := range proxyIndicativeHeaders {
		if v, ok := lookupHeader(headers, name); ok && strings.Contains(v, ip) {
			return true
		}
	}
	return false
}

func anyProxyHeaderPresent(headers map[string]string) bool {
	for _, name := range proxyIndicativeHeaders {
		if _, ok := lookupHeader(headers, name); ok {
			return true
		}
	}
	return false
}

// lookupHeader does a case-insensitive header-name lookup since echo
// endpoints canonicalize header names inconsistently.
func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
