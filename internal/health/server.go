// internal/health/server.go
package health

import (
	"encoding/json"
	"net/http"

	"github.com/user/auditrelay/internal/uptime"
)

// Server is a lightweight HTTP handler reporting process liveness. It shares
// nothing with the audit pipeline beyond the read-only uptime clock.
type Server struct {
	clock *uptime.Clock
	mux   *http.ServeMux
}

// NewServer creates a health Server over the given clock.
func NewServer(clock *uptime.Clock) *Server {
	s := &Server{
		clock: clock,
		mux:   http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleStatus)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.clock == nil {
		// Defensive; the serve command always wires a clock.
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "uptime unavailable",
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"uptime": s.clock.Human(),
	})
}
