// internal/fetcher/headers.go
package fetcher

import (
	"math/rand"
	"net/http"
	"strconv"
)

// headerBundle is one realistic browser header set. Rotation across a
// small pool mimics the teacher's HeaderRotator/UserAgentRotator
// (internal/antidetect/antidetect.go) without the canvas/WebGL/audio
// fingerprint spoofing that pool targets — that machinery serves headless
// browser rendering, which this fetcher never does.
type headerBundle struct {
	userAgent      string
	accept         string
	acceptLanguage string
	secFetchSite   string
	secFetchMode   string
}

var defaultHeaderPool = []headerBundle{
	{
		userAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		acceptLanguage: "en-US,en;q=0.9",
		secFetchSite:   "none",
		secFetchMode:   "navigate",
	},
	{
		userAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		acceptLanguage: "en-US,en;q=0.8",
		secFetchSite:   "same-origin",
		secFetchMode:   "navigate",
	},
	{
		userAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		acceptLanguage: "en-GB,en;q=0.9",
		secFetchSite:   "none",
		secFetchMode:   "navigate",
	},
	{
		userAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		acceptLanguage: "en-US,en;q=0.5",
		secFetchSite:   "none",
		secFetchMode:   "navigate",
	},
}

// headerPool selects random header bundles and occasionally injects a
// Referer or synthetic X-Forwarded-For, per spec.md §4.1.
type headerPool struct {
	bundles []headerBundle
}

func newHeaderPool(bundles []headerBundle) *headerPool {
	if len(bundles) == 0 {
		bundles = defaultHeaderPool
	}
	return &headerPool{bundles: bundles}
}

// apply sets a randomly chosen header bundle on req, with probabilistic
// Referer and X-Forwarded-For injection.
func (p *headerPool) apply(req *http.Request, refererCandidate string) {
	b := p.bundles[rand.Intn(len(p.bundles))]

	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", b.accept)
	req.Header.Set("Accept-Language", b.acceptLanguage)
	req.Header.Set("Sec-Fetch-Site", b.secFetchSite)
	req.Header.Set("Sec-Fetch-Mode", b.secFetchMode)
	req.Header.Set("Connection", "keep-alive")

	if refererCandidate != "" && rand.Float64() < 0.4 {
		req.Header.Set("Referer", refererCandidate)
	}
	if rand.Float64() < 0.15 {
		req.Header.Set("X-Forwarded-For", syntheticIP())
	}
}

func syntheticIP() string {
	octet := strconv.Itoa
	return octet(10+rand.Intn(220)) + "." + octet(rand.Intn(256)) + "." + octet(rand.Intn(256)) + "." + octet(1+rand.Intn(254))
}
