package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/georgfedermann/hit2assext/internal/logging"
	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/ports"
	"github.com/georgfedermann/hit2assext/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pool is the part of session.Manager the admin API operates on.
type Pool interface {
	List() []*session.RenderContext
	Get(id string) (*session.RenderContext, error)
	Remove(ctx context.Context, id string) error
	Sweep(ctx context.Context) ([]string, error)
}

var _ Pool = (*session.Manager)(nil)

// SessionSummary is one entry of GET /sessions.
type SessionSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	AgeSeconds int64     `json:"age_seconds"`
}

// SweepResponse is the body of POST /sweep.
type SweepResponse struct {
	Reaped []string `json:"reaped"`
	Error  string   `json:"error,omitempty"`
}

// Server serves the admin API of a session pool.
type Server struct {
	Pool     Pool
	Archive  ports.SnapshotStore // Optional, consulted for sessions no longer live
	Gatherer prometheus.Gatherer // Optional, enables /metrics
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithArchive lets GET /sessions/{id} fall back to archived snapshots.
func WithArchive(store ports.SnapshotStore) Option {
	return func(s *Server) {
		s.Archive = store
	}
}

// WithGatherer exposes the gatherer on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger configures request error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the admin HTTP handler for pool.
func NewHandler(pool Pool, opts ...Option) http.Handler {
	s := &Server{Pool: pool, Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/sessions", s.ListSessions)
	r.Get("/sessions/{id}", s.GetSession)
	r.Delete("/sessions/{id}", s.DeleteSession)
	r.Post("/sweep", s.Sweep)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	live := s.Pool.List()
	out := make([]SessionSummary, 0, len(live))
	for _, rc := range live {
		out = append(out, SessionSummary{
			ID:         rc.ID(),
			CreatedAt:  rc.CreatedAt(),
			AgeSeconds: rc.AgeSeconds(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if rc, err := s.Pool.Get(id); err == nil {
		s.writeJSON(w, http.StatusOK, rc.Snapshot())
		return
	}

	if s.Archive != nil {
		snap, err := s.Archive.Load(r.Context(), id)
		if err == nil {
			s.writeJSON(w, http.StatusOK, snap)
			return
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			s.Logger.Error("Archive lookup failed", "session_id", id, "err", err)
			http.Error(w, "archive lookup failed", http.StatusInternalServerError)
			return
		}
	}
	http.Error(w, "session not found", http.StatusNotFound)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.Pool.Remove(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
		return
	case err != nil:
		// The session is gone; only archiving failed.
		s.Logger.Warn("Session removed but not archived", "session_id", id, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sweep handles POST /sweep.
func (s *Server) Sweep(w http.ResponseWriter, r *http.Request) {
	reaped, err := s.Pool.Sweep(r.Context())
	resp := SweepResponse{Reaped: reaped}
	if resp.Reaped == nil {
		resp.Reaped = []string{}
	}
	if err != nil {
		s.Logger.Warn("Sweep completed with errors", "err", err)
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "err", err)
	}
}
