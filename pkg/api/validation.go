// pkg/api/validation.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/proxymesh/harvester/internal/store"
	"github.com/proxymesh/harvester/internal/validator"
)

func parseLevelOrDefault(raw string) validator.Level {
	if raw == "" {
		return validator.LevelStandard
	}
	return validator.ParseLevel(raw)
}

type validationJobRequest struct {
	Proxies         []store.Proxy `json:"proxies"`
	Level           string        `json:"level"`
	Priority        int           `json:"priority"`
	ScheduleDelay   string        `json:"schedule_delay,omitempty"`
	AutoRetryFailed *bool         `json:"auto_retry_failed,omitempty"`
}

func (s *Server) handleSubmitValidationJob(w http.ResponseWriter, r *http.Request) {
	var req validationJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}
	if len(req.Proxies) == 0 {
		writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", "proxies must not be empty")
		return
	}

	var delay time.Duration
	if req.ScheduleDelay != "" {
		parsed, err := time.ParseDuration(req.ScheduleDelay)
		if err != nil {
			writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid schedule_delay")
			return
		}
		delay = parsed
	}

	autoRetryFailed := true
	if req.AutoRetryFailed != nil {
		autoRetryFailed = *req.AutoRetryFailed
	}

	jobID, err := s.sched.Submit(req.Proxies, parseLevelOrDefault(req.Level), req.Priority, delay, autoRetryFailed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": jobID})
}

func (s *Server) handleGetValidationJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, ok := s.sched.GetStatus(id)
	if !ok {
		writeCodedError(w, http.StatusNotFound, "JOB_NOT_FOUND", "no validation job with that id")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
