// Package server exposes agent sessions over HTTP and a websocket event
// stream for the browser visualization.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/martinemde/reactagent/agentloop"
	"github.com/martinemde/reactagent/internal/observability"
)

//go:embed static
var staticFS embed.FS

const shutdownTimeout = 5 * time.Second

// SessionFactory builds a fresh session. The factory wires any listeners of
// its own, metrics included; options supplied by the server are applied after
// the factory's.
type SessionFactory func(opts ...agentloop.SessionOption) *agentloop.Session

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	NewSession     SessionFactory
	Metrics        *observability.Metrics // nil disables /metrics
	Logger         *slog.Logger
}

// Server serves the web front end.
type Server struct {
	addr       string
	origins    []string
	newSession SessionFactory
	metrics    *observability.Metrics
	logger     *slog.Logger

	// shared backs the HTTP API; queryMu keeps event collection per request.
	shared  *agentloop.Session
	queryMu sync.Mutex

	handler http.Handler
}

// New creates a Server. NewSession is required.
func New(opts Options) (*Server, error) {
	if opts.NewSession == nil {
		return nil, errors.New("server: session factory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	s := &Server{
		addr:       opts.Addr,
		origins:    opts.AllowedOrigins,
		newSession: opts.NewSession,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
	s.shared = s.newSession(s.sessionOptions()...)
	s.handler = s.routes()
	return s, nil
}

func (s *Server) sessionOptions() []agentloop.SessionOption {
	return []agentloop.SessionOption{agentloop.WithLogger(s.logger)}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	r.Get("/ws", s.handleWebSocket)
	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/history", s.handleHistory)
		r.Get("/tools", s.handleTools)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("server: failed to create sub filesystem: " + err.Error())
	}
	r.Handle("/*", http.FileServer(http.FS(sub)))

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting web server", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	agentloop.RunResult
	SessionID string            `json:"session_id"`
	Events    []agentloop.Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be JSON with a non-empty query"})
		return
	}

	s.queryMu.Lock()
	defer s.queryMu.Unlock()

	var events []agentloop.Event
	unsubscribe := s.shared.Subscribe(func(e agentloop.Event) {
		events = append(events, e)
	})
	start := time.Now()
	result, err := s.shared.RunDetailed(r.Context(), req.Query)
	unsubscribe()
	s.metrics.RecordRun(result, err, time.Since(start))

	if err != nil {
		s.logger.Warn("query failed", "session_id", s.shared.ID(), "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: agentloop.FailureMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{RunResult: result, SessionID: s.shared.ID(), Events: events})
}

// handleTools lists the tools available to the shared session.
func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.shared.Tools().Definitions())
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	history := s.shared.History()
	if history == nil {
		history = []agentloop.Message{}
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
