package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/proxymesh/harvester/internal/store"
)

func sampleProxies() []store.Proxy {
	return []store.Proxy{
		{ID: 1, IP: "203.0.113.1", Port: 8080, Protocol: store.ProtocolHTTP, Anonymity: store.AnonymityElite, Country: "US", IsActive: true, SuccessRate: 0.9123, QualityScore: 78.5},
		{ID: 2, IP: "203.0.113.2", Port: 3128, Protocol: store.ProtocolSOCKS5, Anonymity: store.AnonymityAnonymous, Country: "DE", IsActive: false},
	}
}

func TestCSVWriterWritesHeaderOnceThenRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)

	if err := w.Write(sampleProxies()[:1]); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.Write(sampleProxies()[1:]); err != nil {
		t.Fatalf("second write: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if records[0][0] != "id" {
		t.Fatalf("expected header row first, got %v", records[0])
	}
	if records[1][1] != "203.0.113.1" || records[2][1] != "203.0.113.2" {
		t.Fatalf("unexpected ip columns: %v %v", records[1], records[2])
	}
}

func TestJSONWriterProducesValidArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	if err := w.Write(sampleProxies()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var out []store.Proxy
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v\npayload: %s", err, buf.String())
	}
	if len(out) != 2 || out[0].IP != "203.0.113.1" || out[1].IP != "203.0.113.2" {
		t.Fatalf("unexpected decoded proxies: %+v", out)
	}
}

func TestJSONWriterEmptySetProducesEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.String() != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}
}

func TestExporterDispatchesByFormat(t *testing.T) {
	e := NewExporter()

	var csvBuf bytes.Buffer
	if err := e.Export(&csvBuf, FormatCSV, sampleProxies()); err != nil {
		t.Fatalf("csv export: %v", err)
	}
	if !strings.HasPrefix(csvBuf.String(), "id,ip,port") {
		t.Fatalf("expected csv header, got %q", csvBuf.String())
	}

	var jsonBuf bytes.Buffer
	if err := e.Export(&jsonBuf, FormatJSON, sampleProxies()); err != nil {
		t.Fatalf("json export: %v", err)
	}
	if !strings.HasPrefix(jsonBuf.String(), "[") || !strings.HasSuffix(jsonBuf.String(), "]") {
		t.Fatalf("expected json array, got %q", jsonBuf.String())
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"csv": FormatCSV, "json": FormatJSON, "": FormatJSON}
	for raw, want := range cases {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
