// Package server exposes the dispatcher over HTTP for non-interactive
// clients: one-shot chat requests plus health and introspection endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/torq-ai/torq/internal/dispatch"
	"github.com/torq-ai/torq/internal/router"
	"github.com/torq-ai/torq/internal/session"
)

const defaultShutdownTimeout = 5 * time.Second

// ChatRequest is the POST /chat request body.
type ChatRequest struct {
	Message string `json:"message"`
	// Tools optionally restricts which tools the request may use.
	Tools []string `json:"tools,omitempty"`
}

// ChatResponse is the POST /chat response body.
type ChatResponse struct {
	Success  bool           `json:"success"`
	Response string         `json:"response,omitempty"`
	Meta     *dispatch.Meta `json:"meta,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Server serves chat requests over HTTP. Each request runs as an
// independent single-shot session.
type Server struct {
	baseOpts       dispatch.Options
	addr           string
	requestTimeout time.Duration
	httpSrv        *http.Server
}

// New creates a Server. baseOpts is the dispatcher configuration shared by
// all requests; the per-request tool filter is applied on top of it.
func New(addr string, requestTimeoutSec int, baseOpts dispatch.Options) *Server {
	timeout := time.Duration(requestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Server{
		baseOpts:       baseOpts,
		addr:           addr,
		requestTimeout: timeout,
	}
}

// Handler builds the HTTP routes. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /tools", s.handleTools)
	return mux
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. Shutdown drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[server] shutdown error: %v", err)
		}
	}()

	log.Printf("[server] listening on %s", s.addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ChatResponse{Success: false, Error: "invalid JSON body"})
		return
	}

	opts := s.baseOpts
	if len(req.Tools) > 0 && opts.Registry != nil {
		opts.Registry = opts.Registry.Filtered(req.Tools)
	}
	d := dispatch.New(opts)

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := d.Handle(ctx, session.New(), req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, router.ErrInvalidInput) {
			status = http.StatusBadRequest
		} else if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, ChatResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Success:  true,
		Response: result.Response,
		Meta:     &result.Meta,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	var names []string
	if s.baseOpts.Registry != nil {
		names = s.baseOpts.Registry.Names()
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": names})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Fprintf(w, `{"success":false,"error":"encode response"}`)
	}
}
