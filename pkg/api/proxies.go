// pkg/api/proxies.go
package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/proxymesh/harvester/internal/output"
	"github.com/proxymesh/harvester/internal/store"
)

func filterFromQuery(q map[string][]string) store.Filter {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	f := store.Filter{
		Protocol:  store.Protocol(get("protocol")),
		Country:   get("country"),
		Anonymity: store.Anonymity(get("anonymity")),
		Source:    get("source"),
	}
	if raw := get("is_active"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			f.IsActive = &b
		}
	}
	if raw := get("min_response_time"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.MinResponseTime = v
		}
	}
	if raw := get("max_response_time"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.MaxResponseTime = v
		}
	}
	if raw := get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			f.Page = v
		}
	}
	if raw := get("page_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			f.PageSize = v
		}
	}
	return f
}

func (s *Server) handleListProxies(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r.URL.Query())
	page, err := s.store.Query(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleExportProxies(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r.URL.Query())
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 500 // store's query page-size cap; export takes the largest single page rather than paginate itself
	}
	page, err := s.store.Query(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if page.Total > len(page.Proxies) {
		s.logger.Warnf("export truncated to %d of %d matching proxies; request a narrower filter or a later page", len(page.Proxies), page.Total)
	}

	format, err := output.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if err := s.exporter.Export(w, format, page.Proxies); err != nil {
		s.logger.Errorf("export stream failed: %v", err)
	}
}

func (s *Server) handleRandomProxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Protocol:  store.Protocol(q.Get("protocol")),
		Anonymity: store.Anonymity(q.Get("anonymity")),
		Country:   q.Get("country"),
	}
	proxy, err := s.store.Random(r.Context(), filter)
	if err != nil {
		if err == store.ErrPoolEmpty {
			writeCodedError(w, http.StatusNotFound, "PROXY_POOL_EMPTY", "no active proxy matches the given filter")
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proxy)
}

func (s *Server) handleProxyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RefreshPoolGauges(stats)
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetProxy(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid proxy id")
		return
	}
	proxy, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if proxy == nil {
		writeCodedError(w, http.StatusNotFound, "PROXY_NOT_FOUND", "no proxy with that id")
		return
	}
	writeJSON(w, http.StatusOK, proxy)
}

func (s *Server) handleDeleteProxy(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid proxy id")
		return
	}
	proxy, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if proxy == nil {
		writeCodedError(w, http.StatusNotFound, "PROXY_NOT_FOUND", "no proxy with that id")
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "deleted", "id": id})
}

func (s *Server) handleValidateProxy(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeCodedError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid proxy id")
		return
	}
	proxy, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if proxy == nil {
		writeCodedError(w, http.StatusNotFound, "PROXY_NOT_FOUND", "no proxy with that id")
		return
	}

	// On-demand single-proxy recheck: a one-shot check, not a batch the
	// scheduler should keep retrying on failure.
	jobID, err := s.sched.Submit([]store.Proxy{*proxy}, parseLevelOrDefault(r.URL.Query().Get("level")), 5, 0, false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": jobID})
}
