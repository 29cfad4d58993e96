// internal/output/json.go
package output

import (
	"encoding/json"
	"io"

	"github.com/proxymesh/harvester/internal/store"
)

// JSONWriter streams proxies as a single JSON array over w, one record
// at a time — the teacher's json.go streaming-encoder shape, generalized
// from a file sink with append/sync bookkeeping to an arbitrary
// io.Writer that only needs to open and close the array brackets itself.
type JSONWriter struct {
	w       io.Writer
	started bool
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (jw *JSONWriter) Write(proxies []store.Proxy) error {
	for _, p := range proxies {
		if !jw.started {
			if _, err := io.WriteString(jw.w, "["); err != nil {
				return err
			}
			jw.started = true
		} else {
			if _, err := io.WriteString(jw.w, ","); err != nil {
				return err
			}
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := jw.w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// Close writes the closing bracket, emitting "[]" if Write was never
// called with any records.
func (jw *JSONWriter) Close() error {
	if !jw.started {
		_, err := io.WriteString(jw.w, "[]")
		return err
	}
	_, err := io.WriteString(jw.w, "]")
	return err
}
