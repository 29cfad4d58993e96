// internal/extractor/normalize.go
package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// normalizeAnonymity folds source-specific spellings ("Elite proxy",
// "Anonymous", "high anonymity", and the CJK tiers ip3366 and other
// Chinese-language sources report natively — 高匿/匿名/透明) down to
// the four canonical tiers the store recognizes. Case-insensitive via
// strings.ToLower for the ASCII cases; the CJK substrings have no case
// to fold.
func normalizeAnonymity(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "elite") || strings.Contains(lower, "high anonymity") || strings.Contains(raw, "高匿"):
		return "elite"
	case strings.Contains(lower, "anonymous") || strings.Contains(raw, "匿名"):
		return "anonymous"
	case strings.Contains(lower, "transparent") || strings.Contains(lower, "no anonymity") || strings.Contains(raw, "透明"):
		return "transparent"
	default:
		return "unknown"
	}
}

// normalizeProtocol folds source-specific protocol spellings down to
// the canonical four values, defaulting to "http" when the source
// doesn't specify one (spec.md §4.3 transform rule).
func normalizeProtocol(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "socks5"):
		return "socks5"
	case strings.Contains(lower, "socks4"):
		return "socks4"
	case strings.Contains(lower, "https"):
		return "https"
	case strings.Contains(lower, "http"):
		return "http"
	default:
		return "http"
	}
}

// normalizeCountryName title-cases a free-text country string so
// "UNITED STATES" and "united states" collapse to the same key used
// for grouping in store.Stats.
func normalizeCountryName(raw string) string {
	return titleCaser.String(strings.TrimSpace(raw))
}

var relativeTimeRe = regexp.MustCompile(`(?i)(\d+)\s*(second|minute|hour|day|week|month)s?\s*ago`)

// cjkRelativeTimeRe matches ip3366-style Chinese relative times, where
// the count precedes the unit with no separator: "5分钟前", "2小時前",
// "3天前". Both traditional and simplified unit spellings are accepted.
var cjkRelativeTimeRe = regexp.MustCompile(`(\d+)\s*(分鐘前|分钟前|小時前|小时前|天前)`)

// parseRelativeTime interprets source timestamps like "5 minutes ago",
// "2 hours ago", or their Chinese equivalents ("5分钟前", "刚刚") into an
// absolute time. Absolute timestamps (RFC3339) are tried first since
// some sources use them directly.
func parseRelativeTime(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}

	if strings.Contains(raw, "剛剛") || strings.Contains(raw, "刚刚") {
		return now, true
	}

	if m := cjkRelativeTimeRe.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}

		var unit time.Duration
		switch m[2] {
		case "分鐘前", "分钟前":
			unit = time.Minute
		case "小時前", "小时前":
			unit = time.Hour
		case "天前":
			unit = 24 * time.Hour
		}
		return now.Add(-time.Duration(n) * unit), true
	}

	m := relativeTimeRe.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}

	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "second":
		unit = time.Second
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	case "month":
		unit = 30 * 24 * time.Hour
	default:
		return time.Time{}, false
	}

	return now.Add(-time.Duration(n) * unit), true
}
