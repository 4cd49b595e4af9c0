package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aadityaverma2011/dietplan-suggest/internal/service"
)

// handleStats returns the advice outcome tally as JSON.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.Stats(r.Context())
	if errors.Is(err, service.ErrNoStats) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		s.logger.Error("load stats failed", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"outcomes": counts}); err != nil {
		s.logger.Error("write stats failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"in_flight": s.sessions.Active(),
	}); err != nil {
		s.logger.Error("write health failed", "error", err)
	}
}
