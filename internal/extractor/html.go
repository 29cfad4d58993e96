// internal/extractor/html.go
package extractor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
	"github.com/proxymesh/harvester/internal/fetcher"
	"github.com/proxymesh/harvester/internal/utils"
)

// TableSelectors names the deterministic column selectors spec.md §4.2
// requires every HTML table extractor to walk. Selectors are relative
// to ContainerRow; empty fields are skipped rather than failing the row.
type TableSelectors struct {
	ContainerRow    string
	IPCell          string
	PortCell        string
	CountryCell     string
	AnonymityCell   string
	ProtocolCell    string
	LastCheckedCell string
	NextPage        string // selector for the pagination "next" link/button, relative to the document
}

// HTMLTableSource configures one HTML-table-shaped source. A single
// HTMLExtractor type serves every such source (ip3366, free-proxy-list,
// proxydb, proxy-list-download, ...) parameterized by Selectors and
// PageURL, rather than one bespoke extractor type per site.
type HTMLTableSource struct {
	SourceName string
	PageURL    func(page int) string
	Selectors  TableSelectors
	MaxPages   int
	PageDelay  time.Duration
}

// HTMLExtractor walks a paginated HTML table using goquery, the pattern
// the teacher's ExtractionEngine (internal/scraper/extractor.go) applies
// to generic field configs, specialized here to a fixed proxy-row shape.
type HTMLExtractor struct {
	cfg HTMLTableSource
	f   *fetcher.Fetcher
}

func NewHTMLExtractor(cfg HTMLTableSource, f *fetcher.Fetcher) *HTMLExtractor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &HTMLExtractor{cfg: cfg, f: f}
}

func (e *HTMLExtractor) Source() string { return e.cfg.SourceName }

func (e *HTMLExtractor) Extract(ctx context.Context) (*Result, error) {
	result := &Result{Source: e.cfg.SourceName, Metadata: map[string]string{}}
	now := time.Now().UTC()

	atLeastOnePageParsed := false

	for page := 1; page <= e.cfg.MaxPages; page++ {
		if page > 1 && e.cfg.PageDelay > 0 {
			if err := sleepCtx(ctx, e.cfg.PageDelay); err != nil {
				break
			}
		}

		url := e.cfg.PageURL(page)
		fetchResult, err := e.f.Fetch(ctx, url, fetcher.Options{Source: e.cfg.SourceName})
		if err != nil {
			if !atLeastOnePageParsed {
				result.Error = err
			}
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(fetchResult.Body)))
		if err != nil {
			if !atLeastOnePageParsed {
				result.Error = harvesterErrors.Wrap(harvesterErrors.KindParse, "extractor.HTMLExtractor.Extract", err)
			}
			break
		}

		rows := e.parseRows(doc, now)
		result.Proxies = append(result.Proxies, rows...)
		atLeastOnePageParsed = true

		if e.cfg.Selectors.NextPage != "" && doc.Find(e.cfg.Selectors.NextPage).Length() == 0 {
			break
		}
	}

	result.Success = atLeastOnePageParsed
	result.Metadata["proxies_found"] = strconv.Itoa(len(result.Proxies))
	return result, nil
}

func (e *HTMLExtractor) parseRows(doc *goquery.Document, now time.Time) []Candidate {
	sel := e.cfg.Selectors
	var candidates []Candidate

	doc.Find(sel.ContainerRow).Each(func(_ int, row *goquery.Selection) {
		ip := cellText(row, sel.IPCell)
		port := cellText(row, sel.PortCell)
		if ip == "" || port == "" {
			return
		}

		c := Candidate{
			IP:        ip,
			Port:      port,
			Country:   normalizeCountryName(cellText(row, sel.CountryCell)),
			Anonymity: normalizeAnonymity(cellText(row, sel.AnonymityCell)),
			Protocol:  normalizeProtocol(cellText(row, sel.ProtocolCell)),
		}

		if raw := cellText(row, sel.LastCheckedCell); raw != "" {
			if t, ok := parseRelativeTime(raw, now); ok {
				c.LastCheckedAt = t
			}
		}

		candidates = append(candidates, c)
	})

	return candidates
}

// cellText pulls a table cell's text and runs it through CleanString,
// since free-proxy listing sites routinely pad cells with &nbsp; and
// other HTML entities that a bare TrimSpace leaves behind.
func cellText(row *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return utils.CleanString(row.Find(selector).First().Text())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
