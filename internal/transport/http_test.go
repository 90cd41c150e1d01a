// Copyright 2025 Joseph Cumines
//
// HTTP listener unit tests

package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type routesFunc func(r chi.Router)

func (f routesFunc) RegisterHTTP(r chi.Router) { f(r) }

func newTestServer(t *testing.T, cfg *HTTPConfig) *HTTPServer {
	t.Helper()
	s := NewHTTPServer(cfg, NewMetricsRegistry())
	s.Register(routesFunc(func(r chi.Router) {
		r.Get("/props", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "Name: "+r.URL.Query().Get("id"))
		})
		r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
			panic("handler bug")
		})
	}))
	return s
}

func serve(s *HTTPServer, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func TestDefaultHTTPConfig(t *testing.T) {
	cfg := DefaultHTTPConfig()
	if cfg.Address != "localhost:8080" {
		t.Errorf("Address = %s, want localhost:8080", cfg.Address)
	}
	if cfg.CORSOrigin != "*" {
		t.Errorf("CORSOrigin = %s, want *", cfg.CORSOrigin)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.ReadTimeout)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %g, want 0", cfg.RateLimit)
	}
}

func TestHTTPServer_Health(t *testing.T) {
	s := newTestServer(t, nil)
	s.SetHealth(func() map[string]any { return map[string]any{"provider": "uia"} })

	rec := serve(s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if body["status"] != "ok" || body["provider"] != "uia" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["server_time"]; !ok {
		t.Error("server_time missing")
	}
}

func TestHTTPServer_RegisteredRoute(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, http.MethodGet, "/props?id=_1_5", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "Name: _1_5" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(s, http.MethodPost, "/props", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /props = %d, want 405", rec.Code)
	}
	if rec := serve(s, http.MethodGet, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
}

func TestHTTPServer_PanicRecovered(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := serve(s, http.MethodGet, "/panic", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec := serve(s, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("status after panic = %d, want 200", rec.Code)
	}
}

func TestHTTPServer_CORS(t *testing.T) {
	s := newTestServer(t, &HTTPConfig{CORSOrigin: "http://localhost:3000"})

	rec := serve(s, http.MethodOptions, "/props", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}

	rec = serve(s, http.MethodGet, "/health", nil)
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestHTTPServer_RateLimit(t *testing.T) {
	s := newTestServer(t, &HTTPConfig{RateLimit: 0.5}) // burst 1
	if !s.IsRateLimitEnabled() {
		t.Fatal("IsRateLimitEnabled() = false")
	}

	if rec := serve(s, http.MethodGet, "/props?id=a", nil); rec.Code != http.StatusOK {
		t.Fatalf("first = %d, want 200", rec.Code)
	}
	if rec := serve(s, http.MethodGet, "/props?id=b", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d, want 429", rec.Code)
	}
	for _, path := range []string{"/health", "/metrics"} {
		if rec := serve(s, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, rec.Code)
		}
	}
	if got := s.Metrics().Counter(MetricRateLimitedTotal, ""); got != 1 {
		t.Errorf("rate limited counter = %d, want 1", got)
	}
}

func TestHTTPServer_Metrics(t *testing.T) {
	s := newTestServer(t, nil)
	serve(s, http.MethodGet, "/props?id=a", nil)
	serve(s, http.MethodGet, "/props?id=b", nil)

	rec := serve(s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	want := `inspector_http_requests_total{route="/props",code="200"} 2`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics missing %q:\n%s", want, rec.Body.String())
	}
}

func TestHTTPServer_HandleRPC(t *testing.T) {
	s := newTestServer(t, nil)
	s.HandleRPC("/mcp", func(msg *Message) (*Message, error) {
		switch msg.Method {
		case "fail":
			return nil, errors.New("boom")
		case "notifications/initialized":
			return nil, nil
		}
		return &Message{JSONRPC: "2.0", ID: msg.ID, Result: json.RawMessage(`"` + msg.Method + `"`)}, nil
	})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  int
		wantRes  string
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, 200, 0, `"tools/list"`},
		{"handler error", `{"jsonrpc":"2.0","id":2,"method":"fail"}`, 200, ErrCodeInternalError, ""},
		{"invalid json", `{`, 200, ErrCodeParseError, ""},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, 202, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodPost, "/mcp", strings.NewReader(tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != 200 {
				return
			}
			var msg Message
			if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if tt.wantErr != 0 {
				if msg.Error == nil || msg.Error.Code != tt.wantErr {
					t.Errorf("error = %+v, want code %d", msg.Error, tt.wantErr)
				}
				return
			}
			if string(msg.Result) != tt.wantRes {
				t.Errorf("result = %s, want %s", msg.Result, tt.wantRes)
			}
		})
	}

	if rec := serve(s, http.MethodGet, "/mcp", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /mcp = %d, want 405", rec.Code)
	}
}

func TestHTTPServer_ServeAndClose(t *testing.T) {
	s := newTestServer(t, &HTTPConfig{Address: "127.0.0.1:0"})
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.ServeListener(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !s.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeListener() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ServeListener did not return after Close")
	}
}
