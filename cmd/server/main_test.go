package main

import (
	"testing"
	"time"

	"github.com/proxymesh/harvester/internal/config"
	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/fetcher"
)

func TestBuildRegistrySkipsDisabledAndRejectsUnknownType(t *testing.T) {
	f := fetcher.New(5, time.Second, 2*time.Second)

	reg, err := buildRegistry([]config.SourceConfig{
		{Name: "a", Type: "html_table", Enabled: true, URL: "https://example.com/a"},
		{Name: "b", Type: "api", Enabled: false, URL: "https://example.com/b"},
	}, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.Get("a"); !ok {
		t.Fatal("expected enabled html_table source to be registered")
	}
	if _, ok := reg.Get("b"); ok {
		t.Fatal("expected disabled source to be skipped")
	}

	_, err = buildRegistry([]config.SourceConfig{
		{Name: "c", Type: "rss", Enabled: true},
	}, f)
	if err == nil {
		t.Fatal("expected error for unknown source type")
	}
}

func TestHTMLSourceFromConfigBuildsPagedURL(t *testing.T) {
	src := config.SourceConfig{
		Name: "freeproxylist", URL: "https://example.com/list",
		Selectors: config.HTMLSelectors{ContainerRow: "tr", IPCell: "td:nth-child(1)"},
		MaxPages:  3,
	}
	html := htmlSourceFromConfig(src)
	if got := html.PageURL(1); got != "https://example.com/list" {
		t.Fatalf("expected page 1 to be the bare URL, got %q", got)
	}
	if got := html.PageURL(2); got != "https://example.com/list?page=2" {
		t.Fatalf("unexpected page 2 URL: %q", got)
	}
}

func TestAPISourceFromConfigReadsExtraFieldMap(t *testing.T) {
	src := config.SourceConfig{
		Name: "proxyscrape", URL: "https://example.com/api",
		Extra: map[string]string{"format": "line"},
	}
	api := apiSourceFromConfig(src)
	if api.Format != extractor.FormatLineOriented {
		t.Fatalf("expected line-oriented format, got %v", api.Format)
	}
}

func TestDefaultProfileWeightsFallsBackWhenProfileMissing(t *testing.T) {
	cfg := &config.HarvesterConfig{DefaultProfile: "missing"}
	weights, minScore := defaultProfileWeights(cfg)
	if weights.Sum() < 0.99 || weights.Sum() > 1.01 {
		t.Fatalf("expected default weights to sum to ~1, got %v", weights.Sum())
	}
	if minScore != 50 {
		t.Fatalf("expected fallback min score 50, got %v", minScore)
	}
}

func TestDefaultProfileWeightsUsesConfiguredProfile(t *testing.T) {
	cfg := &config.HarvesterConfig{
		DefaultProfile: "fast_check",
		Profiles: map[string]config.ScoringProfile{
			"fast_check": {MinScoreThreshold: 30, Weights: config.ScoringWeights{ConnectionSuccess: 1}},
		},
	}
	weights, minScore := defaultProfileWeights(cfg)
	if weights.ConnectionSuccess != 1 {
		t.Fatalf("expected configured profile weights, got %+v", weights)
	}
	if minScore != 30 {
		t.Fatalf("expected configured min score 30, got %v", minScore)
	}
}
