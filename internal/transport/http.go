// Copyright 2025 Joseph Cumines
//
// HTTP listener for the inspector endpoints

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxRPCBody bounds a single JSON-RPC request body.
const maxRPCBody = 1 << 20

// HTTPConfig holds configuration for the HTTP listener.
// Address is the HTTP server address (e.g., ":8080" or "localhost:8080").
// SocketPath is an optional Unix domain socket path (takes precedence over Address).
// CORSOrigin is the allowed CORS origin (default: "*").
// RateLimit is requests per second; zero disables limiting.
type HTTPConfig struct {
	Address      string
	SocketPath   string
	CORSOrigin   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    float64
}

// DefaultHTTPConfig returns default HTTP configuration
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Address:      "localhost:8080",
		CORSOrigin:   "*",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Routes is implemented by anything that contributes endpoints.
type Routes interface {
	RegisterHTTP(r chi.Router)
}

// HTTPServer is a chi router behind CORS, rate limiting, panic recovery
// and per-route metrics, with /health and /metrics built in.
type HTTPServer struct {
	config  *HTTPConfig
	router  *chi.Mux
	server  *http.Server
	limiter *RateLimiter
	metrics *MetricsRegistry
	health  func() map[string]any
	closed  atomic.Bool
}

// NewHTTPServer creates the server. A nil metrics registry uses
// DefaultMetrics.
func NewHTTPServer(config *HTTPConfig, metrics *MetricsRegistry) *HTTPServer {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if metrics == nil {
		metrics = DefaultMetrics()
	}

	t := &HTTPServer{
		config:  config,
		router:  chi.NewRouter(),
		limiter: NewRateLimiter(config.RateLimit),
		metrics: metrics,
	}

	t.router.Use(t.instrument)
	t.router.Use(middleware.Recoverer)
	t.router.Use(t.cors)
	t.router.Use(t.limiter.Middleware)

	t.router.Get("/health", t.handleHealth)
	t.router.Get("/metrics", t.handleMetrics)

	t.server = &http.Server{
		Handler:      t.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return t
}

// Register mounts the endpoints of each Routes.
func (t *HTTPServer) Register(routes ...Routes) {
	for _, r := range routes {
		r.RegisterHTTP(t.router)
	}
}

// Router exposes the underlying router for direct registration.
func (t *HTTPServer) Router() chi.Router { return t.router }

// Handler returns the full middleware stack, for tests.
func (t *HTTPServer) Handler() http.Handler { return t.router }

// Metrics returns the registry the server records into.
func (t *HTTPServer) Metrics() *MetricsRegistry { return t.metrics }

// IsRateLimitEnabled reports whether a limiter is installed.
func (t *HTTPServer) IsRateLimitEnabled() bool { return t.limiter != nil }

// SetHealth installs a function contributing extra /health fields.
func (t *HTTPServer) SetHealth(fn func() map[string]any) { t.health = fn }

// HandleRPC mounts a JSON-RPC 2.0 endpoint at pattern (POST only).
func (t *HTTPServer) HandleRPC(pattern string, handler Handler) {
	t.router.Post(pattern, func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRPCBody)).Decode(&msg); err != nil {
			writeJSON(w, http.StatusOK, NewErrorResponse(json.RawMessage("null"), ErrCodeParseError, fmt.Sprintf("Invalid JSON: %v", err)))
			return
		}
		response := dispatch(handler, &msg)
		if response == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(w, http.StatusOK, response)
	})
}

// instrument records every request under its route pattern, so /props?id=
// calls share one series.
func (t *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		t.metrics.RecordHTTP(route, code, time.Since(start))
	})
}

// cors adds CORS headers to all responses and answers preflights.
func (t *HTTPServer) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", t.config.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":      "ok",
		"server_time": time.Now().UTC().Format(time.RFC3339),
	}
	if t.health != nil {
		for k, v := range t.health() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (t *HTTPServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := t.metrics.WritePrometheus(w); err != nil {
		log.Printf("Error writing metrics: %v", err)
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) { writeJSON(w, status, v) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// Listen opens the configured socket or TCP address.
func (t *HTTPServer) Listen() (net.Listener, error) {
	if t.config.SocketPath != "" {
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove stale socket %s: %v", t.config.SocketPath, err)
		}
		l, err := net.Listen("unix", t.config.SocketPath)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on socket %s: %w", t.config.SocketPath, err)
		}
		log.Printf("HTTP listening on unix:%s", t.config.SocketPath)
		return l, nil
	}
	l, err := net.Listen("tcp", t.config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", t.config.Address, err)
	}
	log.Printf("HTTP listening on %s", l.Addr())
	return l, nil
}

// Serve listens and serves until Close.
func (t *HTTPServer) Serve() error {
	l, err := t.Listen()
	if err != nil {
		return err
	}
	return t.ServeListener(l)
}

// ServeListener serves on an already open listener until Close.
func (t *HTTPServer) ServeListener(l net.Listener) error {
	if err := t.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the server down gracefully. Close is idempotent.
func (t *HTTPServer) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if t.config.SocketPath != "" {
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove socket file %s: %v", t.config.SocketPath, err)
		}
	}
	return nil
}

// IsClosed returns whether the server is closed
func (t *HTTPServer) IsClosed() bool {
	return t.closed.Load()
}
