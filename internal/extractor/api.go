// internal/extractor/api.go
package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
	"github.com/proxymesh/harvester/internal/fetcher"
)

// APIFormat distinguishes the two structured-response shapes spec.md
// §4.2 names for API extractors.
type APIFormat int

const (
	FormatJSON APIFormat = iota
	FormatLineOriented
)

// JSONFieldMap tells the JSON-format parser which top-level keys carry
// which proxy attributes, since every JSON API names these differently.
type JSONFieldMap struct {
	ListPath  string // dotted path to the array of proxy objects, e.g. "data.proxies"; empty means the response body itself is the array
	IP        string
	Port      string
	Country   string
	Anonymity string
	Protocol  string
}

// APISource configures one API/line-oriented source. Like HTMLExtractor,
// one parameterized type serves every such source instead of one
// bespoke extractor per API.
type APISource struct {
	SourceName string
	URL        string
	Format     APIFormat
	JSONFields JSONFieldMap
	MaxPages   int
	PageURL    func(page int) string // overrides URL when paginated
}

var lineProxyRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3}){3}):(\d{1,5})$`)

type APIExtractor struct {
	cfg APISource
	f   *fetcher.Fetcher
}

func NewAPIExtractor(cfg APISource, f *fetcher.Fetcher) *APIExtractor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &APIExtractor{cfg: cfg, f: f}
}

func (e *APIExtractor) Source() string { return e.cfg.SourceName }

func (e *APIExtractor) Extract(ctx context.Context) (*Result, error) {
	result := &Result{Source: e.cfg.SourceName, Metadata: map[string]string{}}

	atLeastOnePageParsed := false
	for page := 1; page <= e.cfg.MaxPages; page++ {
		url := e.cfg.URL
		if e.cfg.PageURL != nil {
			url = e.cfg.PageURL(page)
		}

		fetchResult, err := e.f.Fetch(ctx, url, fetcher.Options{Source: e.cfg.SourceName})
		if err != nil {
			if !atLeastOnePageParsed {
				result.Error = err
			}
			break
		}

		var candidates []Candidate
		var parseErr error
		switch e.cfg.Format {
		case FormatLineOriented:
			candidates = parseLineOriented(fetchResult.Body)
		default:
			candidates, parseErr = e.parseJSON(fetchResult.Body)
		}
		if parseErr != nil {
			if !atLeastOnePageParsed {
				result.Error = harvesterErrors.Wrap(harvesterErrors.KindParse, "extractor.APIExtractor.Extract", parseErr)
			}
			break
		}

		result.Proxies = append(result.Proxies, candidates...)
		atLeastOnePageParsed = true
	}

	result.Success = atLeastOnePageParsed
	return result, nil
}

func parseLineOriented(body []byte) []Candidate {
	var candidates []Candidate
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m := lineProxyRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		candidates = append(candidates, Candidate{IP: m[1], Port: m[2], Protocol: "http"})
	}
	return candidates
}

func (e *APIExtractor) parseJSON(body []byte) ([]Candidate, error) {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, err
	}

	list := root
	if e.cfg.JSONFields.ListPath != "" {
		for _, key := range strings.Split(e.cfg.JSONFields.ListPath, ".") {
			m, ok := list.(map[string]interface{})
			if !ok {
				return nil, harvesterErrors.New(harvesterErrors.KindParse, "extractor.parseJSON", "list path not an object")
			}
			list, ok = m[key]
			if !ok {
				return nil, harvesterErrors.New(harvesterErrors.KindParse, "extractor.parseJSON", "list path key not found: "+key)
			}
		}
	}

	items, ok := list.([]interface{})
	if !ok {
		return nil, harvesterErrors.New(harvesterErrors.KindParse, "extractor.parseJSON", "list path did not resolve to an array")
	}

	fields := e.cfg.JSONFields
	var candidates []Candidate
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ip := stringField(obj, fields.IP)
		port := stringField(obj, fields.Port)
		if ip == "" || port == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			IP:        ip,
			Port:      port,
			Country:   normalizeCountryName(stringField(obj, fields.Country)),
			Anonymity: normalizeAnonymity(stringField(obj, fields.Anonymity)),
			Protocol:  normalizeProtocol(stringField(obj, fields.Protocol)),
			LastCheckedAt: time.Time{},
		})
	}
	return candidates, nil
}

func stringField(obj map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	v, ok := obj[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Port numbers sometimes arrive as JSON numbers rather than
		// strings; truncating to int is safe since ports never carry a fraction.
		return strconv.Itoa(int(t))
	default:
		return ""
	}
}
