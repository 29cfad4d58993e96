// internal/fetcher/antibot.go
package fetcher

import "strings"

// Signal tags a suspected anti-bot response, per spec.md §4.1.
type Signal int

const (
	SignalNone Signal = iota
	SignalRateLimit
	SignalCaptcha
	SignalCloudflareChallenge
	SignalBlocked
	SignalSoftRedirect
)

func (s Signal) String() string {
	switch s {
	case SignalRateLimit:
		return "rate_limit"
	case SignalCaptcha:
		return "captcha"
	case SignalCloudflareChallenge:
		return "cloudflare_challenge"
	case SignalBlocked:
		return "blocked"
	case SignalSoftRedirect:
		return "soft_redirect"
	default:
		return "none"
	}
}

var rateLimitMarkers = []string{"rate limit", "429", "too many requests"}
var captchaMarkers = []string{"captcha", "recaptcha", "hcaptcha", "verify you are human"}
var cloudflareMarkers = []string{"checking your browser", "cf-browser-verification", "cloudflare", "just a moment"}
var blockedMarkers = []string{"access denied", "forbidden", "ip has been blocked", "your ip has been banned"}
var softRedirectMarkers = []string{"you are being redirected", "please wait while we redirect"}

// detectSignal inspects a response body (already lowercased by the
// caller isn't required — this does it) for substrings indicating one
// of the anti-bot classes spec.md §4.1 names. First match wins, checked
// in severity order.
func detectSignal(statusCode int, body string) Signal {
	lower := strings.ToLower(body)

	if statusCode == 429 || containsAny(lower, rateLimitMarkers) {
		return SignalRateLimit
	}
	if containsAny(lower, captchaMarkers) {
		return SignalCaptcha
	}
	if containsAny(lower, cloudflareMarkers) {
		return SignalCloudflareChallenge
	}
	if statusCode == 403 || containsAny(lower, blockedMarkers) {
		return SignalBlocked
	}
	if containsAny(lower, softRedirectMarkers) {
		return SignalSoftRedirect
	}
	return SignalNone
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
