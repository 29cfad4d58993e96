// internal/output/csv.go
package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/proxymesh/harvester/internal/store"
)

var csvColumns = []string{
	"id", "ip", "port", "protocol", "anonymity", "country", "region", "city",
	"source", "response_time_ms", "success_rate", "quality_score", "is_active",
	"last_checked_at",
}

// CSVWriter streams proxies as CSV rows over w, writing the header once
// on the first Write call — the teacher's csv.go buffered-header-then-
// rows shape, generalized from map[string]interface{} records to
// store.Proxy and from a file sink to an arbitrary io.Writer so it can
// stream directly into an HTTP response.
type CSVWriter struct {
	w             *csv.Writer
	headerWritten bool
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (cw *CSVWriter) Write(proxies []store.Proxy) error {
	if !cw.headerWritten {
		if err := cw.w.Write(csvColumns); err != nil {
			return err
		}
		cw.headerWritten = true
	}
	for _, p := range proxies {
		row := []string{
			strconv.FormatInt(p.ID, 10),
			p.IP,
			strconv.Itoa(p.Port),
			string(p.Protocol),
			string(p.Anonymity),
			p.Country,
			p.Region,
			p.City,
			p.Source,
			strconv.FormatInt(p.ResponseTimeMs, 10),
			strconv.FormatFloat(p.SuccessRate, 'f', 4, 64),
			strconv.FormatFloat(p.QualityScore, 'f', 2, 64),
			strconv.FormatBool(p.IsActive),
			formatExportTime(p.LastCheckedAt),
		}
		if err := cw.w.Write(row); err != nil {
			return err
		}
	}
	cw.w.Flush()
	return cw.w.Error()
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
