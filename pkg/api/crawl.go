// pkg/api/crawl.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/proxymesh/harvester/internal/coordinator"
)

// crawlTask tracks one POST /crawl/start invocation so GET /crawl/status
// and DELETE /crawl/tasks can refer back to it — the coordinator itself
// only knows about its own cron-driven ticks, not ad-hoc API-triggered
// runs, so the task bookkeeping lives here.
type crawlTask struct {
	mu        sync.Mutex
	id        string
	sources   []string
	status    string // running | completed | cancelled
	startedAt time.Time
	runs      map[string]coordinator.Run
	cancel    context.CancelFunc
}

func (t *crawlTask) snapshot() (status string, progress map[string]interface{}, stats map[string]coordinator.Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	done := len(t.runs)
	return t.status, map[string]interface{}{
		"total":     len(t.sources),
		"completed": done,
	}, copyRuns(t.runs)
}

func copyRuns(in map[string]coordinator.Run) map[string]coordinator.Run {
	out := make(map[string]coordinator.Run, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type crawlStartRequest struct {
	Sources []string `json:"sources,omitempty"`
}

func (s *Server) handleCrawlStart(w http.ResponseWriter, r *http.Request) {
	var req crawlStartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
			return
		}
	}

	sources := req.Sources
	if len(sources) == 0 {
		for _, e := range s.registry.All() {
			sources = append(sources, e.Source())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &crawlTask{
		id:        uuid.NewString(),
		sources:   sources,
		status:    "running",
		startedAt: time.Now(),
		runs:      make(map[string]coordinator.Run),
		cancel:    cancel,
	}

	s.tasksMu.Lock()
	s.tasks[task.id] = task
	s.tasksMu.Unlock()

	go s.runCrawlTask(ctx, task)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id":    task.id,
		"status":     task.status,
		"sources":    sources,
		"started_at": task.startedAt,
	})
}

func (s *Server) runCrawlTask(ctx context.Context, task *crawlTask) {
	for _, name := range task.sources {
		select {
		case <-ctx.Done():
			task.mu.Lock()
			task.status = "cancelled"
			task.mu.Unlock()
			return
		default:
		}
		run := s.coord.RunOnce(ctx, name)
		task.mu.Lock()
		task.runs[name] = run
		task.mu.Unlock()
	}
	task.mu.Lock()
	task.status = "completed"
	task.mu.Unlock()
}

func (s *Server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.tasksMu.Lock()
	task, ok := s.tasks[id]
	s.tasksMu.Unlock()
	if !ok {
		writeCodedError(w, http.StatusNotFound, "TASK_NOT_FOUND", "no crawl task with that id")
		return
	}
	status, progress, stats := task.snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task_id":  task.id,
		"status":   status,
		"progress": progress,
		"stats":    stats,
	})
}

func (s *Server) handleCrawlHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := q.Get("source")

	var onlySuccess *bool
	if raw := q.Get("success"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			onlySuccess = &b
		}
	}

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			offset = v
		}
	}

	logs, err := s.store.CrawlHistory(r.Context(), source, onlySuccess, limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": logs})
}

func (s *Server) handleCrawlSources(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0)
	for _, e := range s.registry.All() {
		names = append(names, e.Source())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": names})
}

func (s *Server) handleCrawlSourceTest(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.registry.Get(name); !ok {
		writeCodedError(w, http.StatusNotFound, "SOURCE_NOT_FOUND", "no configured source with that name")
		return
	}
	// A test run surfaces extractor failure in the body, not as an API
	// error — extraction failures are results here, not API faults.
	run := s.coord.RunOnce(r.Context(), name)
	writeJSON(w, http.StatusOK, runToJSON(run))
}

func runToJSON(run coordinator.Run) map[string]interface{} {
	body := map[string]interface{}{
		"source":      run.Source,
		"extracted":   run.Extracted,
		"transformed": run.Transformed,
		"upserted":    run.Upserted,
		"job_id":      run.JobID,
	}
	if run.Err != nil {
		body["error"] = run.Err.Error()
	}
	return body
}

func (s *Server) handleCrawlTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.tasksMu.Lock()
	task, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.tasksMu.Unlock()
	if !ok {
		writeCodedError(w, http.StatusNotFound, "TASK_NOT_FOUND", "no crawl task with that id")
		return
	}
	task.cancel()
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "cancelled", "id": id})
}
