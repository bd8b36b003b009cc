package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth handles health check requests. Reports degraded with a 503
// when any database stops responding.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.databases))

	for name, db := range s.databases {
		if err := db.QuickCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Health check failed")
			checks[name] = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "stockpulse",
		"databases": checks,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
