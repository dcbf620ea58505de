package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type statusResponse struct {
	State             string     `json:"state"`
	Connected         bool       `json:"connected"`
	LastActivity      *time.Time `json:"last_activity"`
	ReconnectAttempts int        `json:"reconnect_attempts"`
	StateSince        time.Time  `json:"state_since"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("health check failed")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	resp := statusResponse{
		State:             string(snap.State),
		Connected:         snap.Connected(),
		ReconnectAttempts: snap.ReconnectAttempts,
		StateSince:        snap.Since.UTC(),
	}
	if !snap.LastActivity.IsZero() {
		at := snap.LastActivity.UTC()
		resp.LastActivity = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsUC.Totals(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load stats")
		http.Error(w, "Failed to get totals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
