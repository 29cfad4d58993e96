package transform

import (
	"testing"

	"github.com/proxymesh/harvester/internal/extractor"
	"github.com/proxymesh/harvester/internal/store"
)

func TestTransformDropsInvalidIPAndPort(t *testing.T) {
	tr := New(Allowlist{})
	result := &extractor.Result{
		Source: "src",
		Proxies: []extractor.Candidate{
			{IP: "not-an-ip", Port: "8080"},
			{IP: "1.2.3.4", Port: "not-a-port"},
			{IP: "1.2.3.4", Port: "8080"},
		},
	}

	out := tr.Transform(result)
	if len(out) != 1 {
		t.Fatalf("expected 1 valid proxy, got %d: %+v", len(out), out)
	}
}

func TestTransformDedupesWithinBatchPreferringSpecificMetadata(t *testing.T) {
	tr := New(Allowlist{})
	result := &extractor.Result{
		Source: "src",
		Proxies: []extractor.Candidate{
			{IP: "9.9.9.9", Port: "80", Country: "US", Anonymity: "elite"},
			{IP: "9.9.9.9", Port: "80"},
		},
	}

	out := tr.Transform(result)
	if len(out) != 1 {
		t.Fatalf("expected 1 deduped proxy, got %d", len(out))
	}
	if out[0].Country != "US" || out[0].Anonymity != store.AnonymityElite {
		t.Errorf("expected the more specific record to win, got %+v", out[0])
	}
}

func TestTransformAppliesProtocolDefault(t *testing.T) {
	tr := New(Allowlist{})
	result := &extractor.Result{Proxies: []extractor.Candidate{{IP: "1.1.1.1", Port: "80"}}}

	out := tr.Transform(result)
	if out[0].Protocol != store.ProtocolHTTP {
		t.Errorf("expected default http protocol, got %s", out[0].Protocol)
	}
}

func TestTransformExtractsParenthesizedCountryCode(t *testing.T) {
	tr := New(Allowlist{})
	result := &extractor.Result{Proxies: []extractor.Candidate{{IP: "1.1.1.1", Port: "80", Country: "Germany (DE)"}}}

	out := tr.Transform(result)
	if out[0].Country != "DE" {
		t.Errorf("expected extracted country code DE, got %s", out[0].Country)
	}
}

func TestTransformFiltersByAllowlist(t *testing.T) {
	tr := New(Allowlist{Protocols: []store.Protocol{store.ProtocolHTTPS}})
	result := &extractor.Result{Proxies: []extractor.Candidate{
		{IP: "1.1.1.1", Port: "80", Protocol: "http"},
		{IP: "2.2.2.2", Port: "443", Protocol: "https"},
	}}

	out := tr.Transform(result)
	if len(out) != 1 || out[0].Protocol != store.ProtocolHTTPS {
		t.Fatalf("expected only https proxy to survive allowlist, got %+v", out)
	}
}
