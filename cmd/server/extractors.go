// cmd/server/extractors.go
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/fetcher"
)

// buildRegistry constructs one Extractor per configured, enabled
// SourceConfig and registers it — the composition-root responsibility
// the coordinator deliberately stays out of (it only consumes a
// pre-populated *extractor.Registry).
func buildRegistry(sources []config.SourceConfig, f *fetcher.Fetcher) (*extractor.Registry, error) {
	reg := extractor.NewRegistry()
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		switch src.Type {
		case "html_table":
			reg.Register(extractor.NewHTMLExtractor(htmlSourceFromConfig(src), f))
		case "api":
			reg.Register(extractor.NewAPIExtractor(apiSourceFromConfig(src), f))
		default:
			return nil, fmt.Errorf("source %q: unknown type %q", src.Name, src.Type)
		}
	}
	return reg, nil
}

func htmlSourceFromConfig(src config.SourceConfig) extractor.HTMLTableSource {
	baseURL := src.URL
	return extractor.HTMLTableSource{
		SourceName: src.Name,
		PageURL: func(page int) string {
			if page <= 1 {
				return baseURL
			}
			sep := "?"
			if strings.Contains(baseURL, "?") {
				sep = "&"
			}
			return baseURL + sep + "page=" + strconv.Itoa(page)
		},
		Selectors: extractor.TableSelectors{
			ContainerRow:    src.Selectors.ContainerRow,
			IPCell:          src.Selectors.IPCell,
			PortCell:        src.Selectors.PortCell,
			CountryCell:     src.Selectors.CountryCell,
			AnonymityCell:   src.Selectors.AnonymityCell,
			ProtocolCell:    src.Selectors.ProtocolCell,
			LastCheckedCell: src.Selectors.LastCheckedCell,
			NextPage:        src.Selectors.NextPage,
		},
		MaxPages:  src.MaxPages,
		PageDelay: src.RateLimitDelay,
	}
}

// apiSourceFromConfig reads the JSON field mapping out of SourceConfig's
// opaque Extra bag, since config.SourceConfig carries one generic
// string-keyed blob for shape-specific extractor settings rather than a
// bespoke struct per source type.
func apiSourceFromConfig(src config.SourceConfig) extractor.APISource {
	format := extractor.FormatJSON
	if strings.EqualFold(src.Extra["format"], "line") {
		format = extractor.FormatLineOriented
	}
	return extractor.APISource{
		SourceName: src.Name,
		URL:        src.URL,
		Format:     format,
		JSONFields: extractor.JSONFieldMap{
			ListPath:  src.Extra["list_path"],
			IP:        src.Extra["ip_field"],
			Port:      src.Extra["port_field"],
			Country:   src.Extra["country_field"],
			Anonymity: src.Extra["anonymity_field"],
			Protocol:  src.Extra["protocol_field"],
		},
		MaxPages: src.MaxPages,
	}
}
