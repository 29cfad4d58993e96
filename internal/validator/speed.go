package validator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/proxymesh/harvester/internal/store"
)

// gradeSubscore maps the four-tier excellent/good/fair/poor grading
// spec.md §4.4.2 uses for both RTT and bandwidth into a numeric [0,100]
// subscore.
func gradeSubscore(grade string) float64 {
	switch grade {
	case "excellent":
		return 100
	case "good":
		return 75
	case "fair":
		return 50
	default:
		return 25
	}
}

func gradeRTT(meanMs float64) string {
	switch {
	case meanMs < 1000:
		return "excellent"
	case meanMs < 2000:
		return "good"
	case meanMs < 5000:
		return "fair"
	default:
		return "poor"
	}
}

func gradeBandwidth(bytesPerSec float64) string {
	const kib = 1024.0
	const mib = 1024 * kib
	switch {
	case bytesPerSec > mib:
		return "excellent"
	case bytesPerSec > 512*kib:
		return "good"
	case bytesPerSec > 256*kib:
		return "fair"
	default:
		return "poor"
	}
}

// speedTest measures response time across rttURLs and bandwidth against
// bandwidthURL, per spec.md §4.4.2.
func speedTest(ctx context.Context, proxy *store.Proxy, rttURLs []string, bandwidthURL string, downloadTestSize int64, timeout time.Duration) SubtestOutcome {
	client, err := buildClient(proxy, timeout)
	if err != nil {
		return SubtestOutcome{Error: err.Error()}
	}

	var samples []float64
	for _, u := range rttURLs {
		elapsed, err := timeGet(ctx, client, u)
		if err != nil {
			continue
		}
		samples = append(samples, float64(elapsed.Milliseconds()))
	}
	if len(samples) == 0 {
		return SubtestOutcome{Error: "all response-time probes failed"}
	}

	data := stats.Float64Data(samples)
	min, _ := data.Min()
	mean, _ := data.Mean()
	max, _ := data.Max()
	rttGrade := gradeRTT(mean)

	details := map[string]interface{}{
		"min_ms":    min,
		"mean_ms":   mean,
		"max_ms":    max,
		"rtt_grade": rttGrade,
	}

	subscore := gradeSubscore(rttGrade)

	if bandwidthURL != "" {
		bps, bwErr := measureBandwidth(ctx, client, bandwidthURL, downloadTestSize)
		if bwErr == nil {
			bwGrade := gradeBandwidth(bps)
			details["bandwidth_bps"] = bps
			details["bandwidth_grade"] = bwGrade
			subscore = (subscore + gradeSubscore(bwGrade)) / 2
		}
	}

	return SubtestOutcome{OK: true, Subscore: subscore, Details: details}
}

func timeGet(ctx context.Context, client *http.Client, url string) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	elapsed := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		return elapsed, errors.New("non-200 response")
	}
	return elapsed, nil
}

func measureBandwidth(ctx context.Context, client *http.Client, url string, capBytes int64) (float64, error) {
	if capBytes <= 0 {
		capBytes = 1 << 20
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, capBytes))
	elapsed := time.Since(start)
	if err != nil {
		return 0, err
	}
	if elapsed <= 0 || n == 0 {
		return 0, errors.New("bandwidth probe produced no data")
	}
	return float64(n) / elapsed.Seconds(), nil
}
