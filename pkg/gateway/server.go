// Package gateway exposes the memory orchestration surface over HTTP for
// host runtimes that run out of process: message events, compaction hooks,
// and the tool surface.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/mnemo/internal/observability"
	"github.com/harun/mnemo/pkg/events"
	"github.com/harun/mnemo/pkg/orchestrator"
	"github.com/harun/mnemo/pkg/toolexec"
)

const secretHeader = "X-Mnemo-Secret"

// Server is the HTTP host adapter.
type Server struct {
	port         int
	sharedSecret string
	server       *http.Server
	hub          *events.Hub
	orch         *orchestrator.Orchestrator
	executor     *toolexec.Executor
	logger       zerolog.Logger

	shutdownMu     sync.RWMutex
	isShuttingDown bool
}

// Config holds server configuration.
type Config struct {
	Port         int
	SharedSecret string // optional; empty disables auth
	Hub          *events.Hub
	Orchestrator *orchestrator.Orchestrator
	Executor     *toolexec.Executor
	Logger       zerolog.Logger
}

// NewServer creates a gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Hub == nil {
		return nil, fmt.Errorf("event hub is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}

	return &Server{
		port:         cfg.Port,
		sharedSecret: cfg.SharedSecret,
		hub:          cfg.Hub,
		orch:         cfg.Orchestrator,
		executor:     cfg.Executor,
		logger:       cfg.Logger.With().Str("component", "gateway").Logger(),
	}, nil
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/events/message", s.withAuth(s.handleMessageEvent))
	mux.HandleFunc("/v1/compaction", s.withAuth(s.handleCompaction))
	mux.HandleFunc("/v1/tools", s.withAuth(s.handleListTools))
	mux.HandleFunc("/v1/tools/execute", s.withAuth(s.handleExecuteTool))
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start starts the server without blocking.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Int("port", s.port).Msg("Starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	if s.server == nil {
		return nil
	}

	s.logger.Info().Msg("Shutting down gateway server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		shuttingDown := s.isShuttingDown
		s.shutdownMu.RUnlock()
		if shuttingDown {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}

		if s.sharedSecret != "" && r.Header.Get(secretHeader) != s.sharedSecret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// handleMessageEvent publishes an inbound message onto the event hub. The
// response acknowledges delivery, not ingestion: the gate runs asynchronously.
func (s *Server) handleMessageEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg orchestrator.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid message payload", http.StatusBadRequest)
		return
	}

	s.hub.Publish(events.Event{
		Type:    events.TypeMessageReceived,
		Payload: msg,
	})

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleCompaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req orchestrator.CompactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid compaction payload", http.StatusBadRequest)
		return
	}

	out := &orchestrator.CompactionOutput{}
	s.orch.HandleCompaction(r.Context(), req, out)

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": s.executor.ListTools()})
}

type executeToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req executeToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid tool request", http.StatusBadRequest)
		return
	}
	if req.Tool == "" {
		http.Error(w, "tool name is required", http.StatusBadRequest)
		return
	}

	result := s.executor.Execute(r.Context(), req.Tool, req.Params)
	s.logger.Debug().Str("tool", req.Tool).Bool("success", result.Success).Msg("Tool executed via gateway")

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
