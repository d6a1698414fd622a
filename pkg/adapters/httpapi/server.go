// Package httpapi exposes the conversation engine to the embeddable widget
// over a small JSON API plus an SSE stream for bot-turn delivery.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krauseinafrica/leadchat"
	"github.com/krauseinafrica/leadchat/internal/logging"
	"github.com/krauseinafrica/leadchat/internal/metrics"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/session"
)

// Server serves widget sessions backed by a session.Manager.
type Server struct {
	sessions *session.Manager
	streams  *StreamManager
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a structured logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches request-path counters (session starts, input rejects).
// Delivery-path counters are fed through metrics.Hooks instead.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStreams reuses an existing stream manager. The engine's broadcast
// hooks need the stream manager before the engine (and thus the session
// registry) exists, so the composition root creates it first and shares it.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		if streams != nil {
			s.streams = streams
		}
	}
}

// NewServer creates a widget API server over the given session registry.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the routed HTTP handler, CORS-wrapped so the widget can
// call it from any host page origin.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.Health)
	r.Route("/widget/sessions", func(r chi.Router) {
		r.Post("/", s.OpenSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Post("/option", s.SelectOption)
			r.Post("/input", s.SubmitInput)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health handles the GET /health request.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

type openRequest struct {
	Page string `json:"page"`
}

// OpenSession handles POST /widget/sessions: it opens and activates a
// conversation, returning the initial (typing) view.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body openRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("open session: invalid request body", "err", err)
		return
	}

	conv, err := s.sessions.Open(r.Context(), body.Page)
	if err != nil {
		http.Error(w, fmt.Sprintf("open session: %v", err), http.StatusInternalServerError)
		s.logger.Error("open session failed", "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
	}

	s.logger.Info("session opened", "session_id", conv.SessionID(), "page", body.Page)
	writeJSON(w, http.StatusCreated, viewOf(conv))
}

// GetSession handles GET /widget/sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(conv))
}

// CloseSession handles DELETE /widget/sessions/{sessionID}: widget unmount.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.sessions.Close(sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type optionRequest struct {
	NodeID string `json:"node_id"`
	Value  string `json:"value"`
}

// SelectOption handles POST /widget/sessions/{sessionID}/option.
func (s *Server) SelectOption(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body optionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := conv.SelectOption(r.Context(), body.NodeID, body.Value)
	s.writeAction(w, conv, err)
}

type inputRequest struct {
	Text string `json:"text"`
}

// SubmitInput handles POST /widget/sessions/{sessionID}/input.
func (s *Server) SubmitInput(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body inputRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := conv.SubmitInput(r.Context(), body.Text)
	if errors.Is(err, domain.ErrInvalidInput) && s.metrics != nil {
		s.metrics.InputRejects.Inc()
	}
	s.writeAction(w, conv, err)
}

// SubscribeEvents handles GET /widget/sessions/{sessionID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		s.logger.Error("sse: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(conv.SessionID())
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse: client disconnected", "session_id", conv.SessionID())
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*leadchat.Conversation, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := s.sessions.Get(sessionID)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return conv, true
}

// writeAction renders the outcome of an option click or input submission.
// Validation rejects are part of the protocol (the widget re-prompts), so
// they come back as a 422 with the unchanged view rather than a bare error.
func (s *Server) writeAction(w http.ResponseWriter, conv *leadchat.Conversation, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ActionResponse{Accepted: true, View: viewOf(conv)})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, ActionResponse{
			Accepted: false,
			Reason:   err.Error(),
			View:     viewOf(conv),
		})
	default:
		s.writeError(w, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDeliveryPending),
		errors.Is(err, domain.ErrWrongNode),
		errors.Is(err, domain.ErrNotActivated):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrConversationEnded):
		status = http.StatusGone
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
