// Package web serves the read-only status surface.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"group-broadcast-gateway/internal/domain/ports/adapter"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/usecase"
)

type Server struct {
	store   repository.Pinger
	session adapter.SessionStatus
	statsUC usecase.StatsUseCase
	apiKey  string
	log     *zerolog.Logger

	mu     sync.Mutex
	server *http.Server
	closed bool
}

func NewServer(
	store repository.Pinger,
	session adapter.SessionStatus,
	statsUC usecase.StatsUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		store:   store,
		session: session,
		statsUC: statsUC,
		apiKey:  apiKey,
		log:     &l,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(traceID, requestLog(s.log), recoverer(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(s.apiKey, s.log))
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start(port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.server = srv
	s.mu.Unlock()

	s.log.Info().Int("port", port).Msg("status server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func cutBearer(header string) (scheme, token string, ok bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.ToLower(parts[0]), parts[1], true
}
