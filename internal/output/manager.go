// internal/output/manager.go
package output

import (
	"io"

	"github.com/proxymesh/harvester/internal/store"
)

// Exporter dispatches a proxy slice to the writer matching the requested
// format — the teacher's OutputManager factory-by-format role, narrowed
// to the two formats GET /proxies/export supports.
type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

func (e *Exporter) Export(w io.Writer, format Format, proxies []store.Proxy) error {
	if format == FormatCSV {
		return NewCSVWriter(w).Write(proxies)
	}
	jw := NewJSONWriter(w)
	if err := jw.Write(proxies); err != nil {
		return err
	}
	return jw.Close()
}
