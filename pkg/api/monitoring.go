// pkg/api/monitoring.go
package api

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
		return
	}
	s.health.HealthHandler().ServeHTTP(w, r)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics disabled", http.StatusNotFound)
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"uptime": time.Since(s.startedAt).String(),
	}
	if s.sched != nil {
		body["scheduler"] = s.sched.GetSystemStatus()
	}
	if s.configSnap != nil {
		body["config"] = map[string]interface{}{
			"database":   s.configSnap.Database.Type,
			"scheduler":  s.configSnap.Scheduler,
			"monitoring": s.configSnap.Monitoring,
			"sources":    len(s.configSnap.Sources),
		}
	}
	writeJSON(w, http.StatusOK, body)
}
