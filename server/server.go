// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/canopya/canopya/chat"
	"github.com/canopya/canopya/config"
	"github.com/canopya/canopya/llm"
	"github.com/canopya/canopya/observability"
	"github.com/canopya/canopya/tracestore"
	"github.com/canopya/canopya/vector"
)

// Chatter handles one conversational turn (implemented by chat.Dispatcher).
type Chatter interface {
	Chat(ctx context.Context, req chat.Request) (*chat.Response, error)
}

// VectorBackend is the dual-backend vector store surface the server needs.
type VectorBackend interface {
	Status(ctx context.Context) vector.Status
	ReconnectLocal(ctx context.Context) error
}

// LLMBackend is the dual-backend generator surface the server needs.
type LLMBackend interface {
	Status() llm.Status
	ReconnectLocal(ctx context.Context) error
}

// TraceReader reads recorded query traces (implemented by tracestore.Store).
type TraceReader interface {
	Get(ctx context.Context, queryID string) (*tracestore.Record, error)
	ListRecent(ctx context.Context, limit int) ([]tracestore.Summary, error)
}

// Server wires the chat pipeline behind an HTTP API.
type Server struct {
	cfg     config.ServerConfig
	chatter Chatter
	vectors VectorBackend
	llms    LLMBackend
	traces  TraceReader

	httpServer *http.Server
}

// New creates a server. vectors, llms, and traces may be nil; the
// corresponding endpoints then report unavailable.
func New(cfg config.ServerConfig, chatter Chatter, vectors VectorBackend, llms LLMBackend, traces TraceReader) *Server {
	cfg.SetDefaults()
	s := &Server{cfg: cfg, chatter: chatter, vectors: vectors, llms: llms, traces: traces}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router builds the chi router with all endpoints mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/chat", s.handleChat)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/reconnect", s.handleReconnect)
	r.Get("/queries", s.handleListQueries)
	r.Get("/queries/{id}", s.handleGetQuery)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, span := observability.Tracer("canopya.server").Start(r.Context(), "chat")
	span.SetAttributes(attribute.String("chat.user_id", req.UserID))
	defer span.End()

	start := time.Now()
	resp, err := s.chatter.Chat(ctx, req)
	if err != nil {
		slog.Error("Chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	span.SetAttributes(
		attribute.String("chat.intent", string(resp.Intent)),
		attribute.Int64("chat.duration_ms", time.Since(start).Milliseconds()),
	)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse aggregates both failover wrappers.
type statusResponse struct {
	Vector *vector.Status `json:"vector,omitempty"`
	LLM    *llm.Status    `json:"llm,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{}
	if s.vectors != nil {
		vs := s.vectors.Status(r.Context())
		resp.Vector = &vs
	}
	if s.llms != nil {
		ls := s.llms.Status()
		resp.LLM = &ls
	}
	writeJSON(w, http.StatusOK, resp)
}

// reconnectResponse reports the outcome per subsystem.
type reconnectResponse struct {
	Vector string `json:"vector,omitempty"`
	LLM    string `json:"llm,omitempty"`
}

// handleReconnect re-probes the local backends, promoting them back when
// healthy. Partial failure still returns 200 with per-subsystem outcomes.
func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	resp := reconnectResponse{}
	if s.vectors != nil {
		if err := s.vectors.ReconnectLocal(r.Context()); err != nil {
			resp.Vector = err.Error()
		} else {
			resp.Vector = "ok"
		}
	}
	if s.llms != nil {
		if err := s.llms.ReconnectLocal(r.Context()); err != nil {
			resp.LLM = err.Error()
		} else {
			resp.LLM = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	if s.traces == nil {
		writeError(w, http.StatusServiceUnavailable, "query tracing is not enabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	summaries, err := s.traces.ListRecent(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list query traces", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list queries")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	if s.traces == nil {
		writeError(w, http.StatusServiceUnavailable, "query tracing is not enabled")
		return
	}
	record, err := s.traces.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tracestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "query not found")
			return
		}
		slog.Error("Failed to load query trace", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load query")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
