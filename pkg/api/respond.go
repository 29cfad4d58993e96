// pkg/api/respond.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError builds the §6.1 error envelope. verbose controls whether an
// internal (non-HarvesterError) error's message is surfaced to the
// client or replaced with a generic message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	envelope := harvesterErrors.ToEnvelope(err, s.cfg.VerboseErrors)
	writeJSON(w, envelope.Error.StatusCode, envelope)
}

// writeCodedError builds an envelope from an explicit code and HTTP status
// rather than from an internal/errors.Kind. The handlers use it for lookup
// misses (PROXY_NOT_FOUND, PROXY_POOL_EMPTY, TASK_NOT_FOUND,
// SOURCE_NOT_FOUND, JOB_NOT_FOUND), malformed requests (VALIDATION_ERROR)
// and rate limiting (RATE_LIMIT_ERROR).
func writeCodedError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, harvesterErrors.Envelope{
		Error: harvesterErrors.EnvelopeBody{
			Code:       code,
			Message:    message,
			StatusCode: status,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	})
}
