package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/proxymesh/harvester/internal/store"
)

// echoResponse covers both httpbin-style {"origin": "..."} and the
// simpler {"ip": "..."} shape other echo endpoints use.
type echoResponse struct {
	Origin string `json:"origin"`
	IP     string `json:"ip"`
}

func (r echoResponse) egressIP() string {
	if r.Origin != "" {
		// origin can be a comma-separated hop chain; the first entry is
		// the requester's own egress address.
		return strings.TrimSpace(strings.Split(r.Origin, ",")[0])
	}
	return r.IP
}

func fetchEgressIP(ctx context.Context, client *http.Client, echoURL string) (ip string, elapsed time.Duration, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if reqErr != nil {
		return "", 0, reqErr
	}

	start := time.Now()
	resp, doErr := client.Do(req)
	elapsed = time.Since(start)
	if doErr != nil {
		return "", elapsed, doErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", elapsed, fmt.Errorf("echo endpoint returned status %d", resp.StatusCode)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if readErr != nil {
		return "", elapsed, readErr
	}

	var parsed echoResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil {
		return "", elapsed, fmt.Errorf("echo response is not valid json: %w", jsonErr)
	}

	addr := parsed.egressIP()
	if addr == "" || net.ParseIP(addr) == nil {
		return "", elapsed, errors.New("echo response carried no ip/origin field")
	}
	return addr, elapsed, nil
}

// classifyConnectError distinguishes timeout, connection-refused, and
// bad-status failures per spec.md §4.4.1's "classify ... distinctly".
func classifyConnectError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	case strings.Contains(msg, "status "):
		return "bad_status"
	default:
		return "error"
	}
}

// connectivityTest issues a GET through the proxy to echoURL, succeeding
// only on HTTP 200 with a JSON body carrying ip/origin (spec.md §4.4.1).
func connectivityTest(ctx context.Context, proxy *store.Proxy, echoURL string, timeout time.Duration) SubtestOutcome {
	client, err := buildClient(proxy, timeout)
	if err != nil {
		return SubtestOutcome{Error: err.Error()}
	}

	ip, elapsed, err := fetchEgressIP(ctx, client, echoURL)
	if err != nil {
		return SubtestOutcome{
			Error: err.Error(),
			Details: map[string]interface{}{
				"classification": classifyConnectError(err),
			},
		}
	}

	return SubtestOutcome{
		OK:       true,
		Subscore: 100,
		Details: map[string]interface{}{
			"response_time_ms": elapsed.Milliseconds(),
			"egress_ip":        ip,
		},
	}
}
