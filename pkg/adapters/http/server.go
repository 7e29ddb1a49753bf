package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/internal/presentation/graph"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/runner"
	"github.com/aretw0/skein/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes a session.Manager over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	spec    *openapi3.T
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

type startRequest struct {
	SessionID string `json:"session_id"`
}

type choiceRequest struct {
	Index *int `json:"index"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates the HTTP handler. It fails if the embedded OpenAPI
// document does not validate.
func NewHandler(sessions *session.Manager, opts ...Option) (http.Handler, error) {
	spec, err := GetSwagger()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
		spec:     spec,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Get("/stories", s.ListStories)
	r.Post("/stories/{story}/sessions", s.StartSession)
	r.Get("/stories/{story}/graph", s.GetGraph)

	r.Get("/sessions", s.ListSessions)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Post("/choices", s.Choose)
		r.Post("/reset", s.ResetSession)
		r.Get("/events", s.SubscribeEvents)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", ww.Status())
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "skein-http",
		"version":     skein.Version,
		"api_version": apiVersion,
	})
}

// ListStories handles GET /stories.
func (s *Server) ListStories(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.Stories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"stories": ids})
}

// StartSession handles POST /stories/{story}/sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.badRequest(w, "invalid request body", err)
			return
		}
	}
	if body.SessionID != "" {
		clean, err := runner.SanitizeInput(body.SessionID)
		if err != nil || clean != body.SessionID || strings.ContainsAny(clean, "/\\ \n\t") {
			s.badRequest(w, "invalid session id", err)
			return
		}
	}

	view, err := s.Sessions.Start(r.Context(), chi.URLParam(r, "story"), body.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

// GetGraph handles GET /stories/{story}/graph. The format query parameter
// (or an Accept header preferring text/plain) selects Mermaid output, which
// can carry the overlay of a session.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	story, err := s.Sessions.Story(r.Context(), chi.URLParam(r, "story"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" && strings.HasPrefix(r.Header.Get("Accept"), "text/plain") {
		format = "mermaid"
	}

	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, story.Graph)
	case "mermaid":
		var overlay *graph.GraphOverlay
		if id := r.URL.Query().Get("session"); id != "" {
			snap, err := s.Sessions.Snapshot(r.Context(), id)
			if err != nil {
				s.writeError(w, err)
				return
			}
			overlay = graph.OverlayFromSnapshot(snap)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(graph.GenerateMermaid(story.Graph, overlay)))
	default:
		s.badRequest(w, fmt.Sprintf("unknown format %q", format), nil)
	}
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Choose handles POST /sessions/{id}/choices.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	var body choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}
	if body.Index == nil {
		s.badRequest(w, "index is required", nil)
		return
	}

	view, err := s.Sessions.Choose(r.Context(), chi.URLParam(r, "id"), *body.Index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(view)
	writeJSON(w, http.StatusOK, view)
}

// ResetSession handles POST /sessions/{id}/reset.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(view)
	writeJSON(w, http.StatusOK, view)
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). Each event carries
// the diff produced by a choice or reset.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.logger.Info("sse subscribed", "session_id", sessionID)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcast(view *session.Session) {
	if view.Diff == nil {
		return
	}
	data, err := json.Marshal(view.Diff)
	if err != nil {
		s.logger.Error("diff encode failed", "err", err, "session_id", view.ID)
		return
	}
	s.Streams.Broadcast(view.ID, string(data))
}

func (s *Server) badRequest(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn("bad request", "msg", msg, "err", err)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrStoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSnapshotMismatch):
		status = http.StatusConflict
	case errors.Is(err, session.ErrInvalidChoice):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
