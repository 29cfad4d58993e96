// Package transform implements component C: folding raw extractor
// candidates into canonical store.Proxy records. Operations run in a
// fixed order — sanity check, protocol default, anonymity/country
// normalization, timestamp normalization, batch dedup, allowlist filter
// — per spec.md §4.3.
package transform

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/store"
)

// Allowlist optionally restricts which canonical proxies survive
// transform. A nil/empty slice in any field means "no restriction" for
// that dimension.
type Allowlist struct {
	Protocols  []store.Protocol
	Countries  []string
	Anonymity  []store.Anonymity
}

// Transformer applies the fixed operation order to one batch of
// extractor.Candidate values.
type Transformer struct {
	allowlist Allowlist
}

func New(allowlist Allowlist) *Transformer {
	return &Transformer{allowlist: allowlist}
}

// Transform converts one extractor.Result into deduplicated, filtered
// canonical proxies ready for store.Upsert.
func (t *Transformer) Transform(result *extractor.Result) []store.Proxy {
	var sane []store.Proxy
	for _, c := range result.Proxies {
		p, ok := t.sanitize(c, result.Source)
		if !ok {
			continue
		}
		sane = append(sane, p)
	}

	deduped := dedupeByAddr(sane)

	var out []store.Proxy
	for _, p := range deduped {
		if t.allowed(p) {
			out = append(out, p)
		}
	}
	return out
}

var countryCodeRe = regexp.MustCompile(`\(?\b([A-Z]{2})\b\)?`)

func (t *Transformer) sanitize(c extractor.Candidate, source string) (store.Proxy, bool) {
	ip := strings.TrimSpace(c.IP)
	if net.ParseIP(ip) == nil {
		return store.Proxy{}, false
	}

	port, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || port <= 0 || port > 65535 {
		return store.Proxy{}, false
	}

	protocol := store.Protocol(c.Protocol)
	if protocol == "" {
		protocol = store.ProtocolHTTP
	}

	anonymity := store.Anonymity(c.Anonymity)
	if anonymity == "" {
		anonymity = store.AnonymityUnknown
	}

	country := extractCountryCode(c.Country)

	lastChecked := c.LastCheckedAt
	if !lastChecked.IsZero() {
		lastChecked = lastChecked.UTC()
	}

	return store.Proxy{
		IP:            ip,
		Port:          port,
		Protocol:      protocol,
		Anonymity:     anonymity,
		Country:       country,
		Source:        source,
		LastCheckedAt: lastChecked,
		Metadata:      map[string]string{"raw_country": strings.TrimSpace(c.Country)},
	}, true
}

// extractCountryCode prefers a two-letter uppercase substring (plain or
// parenthesized) over the free-text country name, per spec.md §4.3.
func extractCountryCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := countryCodeRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// dedupeByAddr collapses duplicate (ip, port) candidates within the
// batch, keeping the entry with the most populated metadata — spec.md
// §4.3's "most specific metadata" tiebreak.
func dedupeByAddr(proxies []store.Proxy) []store.Proxy {
	best := make(map[string]store.Proxy, len(proxies))
	order := make([]string, 0, len(proxies))

	for _, p := range proxies {
		key := p.Key()
		existing, ok := best[key]
		if !ok {
			best[key] = p
			order = append(order, key)
			continue
		}
		if specificity(p) > specificity(existing) {
			merged := p
			merged.Metadata = unionMetadata(existing.Metadata, p.Metadata)
			best[key] = merged
		} else {
			best[key] = mergeMetadataOnly(existing, p)
		}
	}

	out := make([]store.Proxy, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func specificity(p store.Proxy) int {
	n := len(p.Metadata)
	if p.Country != "" {
		n++
	}
	if p.Anonymity != store.AnonymityUnknown {
		n++
	}
	return n
}

func unionMetadata(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeMetadataOnly(keep, other store.Proxy) store.Proxy {
	keep.Metadata = unionMetadata(keep.Metadata, other.Metadata)
	return keep
}

func (t *Transformer) allowed(p store.Proxy) bool {
	if len(t.allowlist.Protocols) > 0 && !containsProtocol(t.allowlist.Protocols, p.Protocol) {
		return false
	}
	if len(t.allowlist.Countries) > 0 && !containsString(t.allowlist.Countries, p.Country) {
		return false
	}
	if len(t.allowlist.Anonymity) > 0 && !containsAnonymity(t.allowlist.Anonymity, p.Anonymity) {
		return false
	}
	return true
}

func containsProtocol(list []store.Protocol, v store.Protocol) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsAnonymity(list []store.Anonymity, v store.Anonymity) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
