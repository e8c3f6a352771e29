package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"3tcapital/goglosas/internal/infrastructure/config"
	"3tcapital/goglosas/internal/testutil"
)

type stubGlosas struct {
	calls []string
}

func (s *stubGlosas) record(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.calls = append(s.calls, name)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *stubGlosas) List(w http.ResponseWriter, r *http.Request)   { s.record("list")(w, r) }
func (s *stubGlosas) Create(w http.ResponseWriter, r *http.Request) { s.record("create")(w, r) }
func (s *stubGlosas) Update(w http.ResponseWriter, r *http.Request) { s.record("update")(w, r) }
func (s *stubGlosas) UpdateEstado(w http.ResponseWriter, r *http.Request) {
	s.record("estado")(w, r)
}
func (s *stubGlosas) PromoteInternalFlag(w http.ResponseWriter, r *http.Request) {
	s.record("promote")(w, r)
}
func (s *stubGlosas) Delete(w http.ResponseWriter, r *http.Request) { s.record("delete")(w, r) }
func (s *stubGlosas) Duplicates(w http.ResponseWriter, r *http.Request) {
	s.record("duplicates")(w, r)
}
func (s *stubGlosas) Deduplicate(w http.ResponseWriter, r *http.Request) {
	if _, ok := r.Context().Deadline(); !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	s.record("deduplicate")(w, r)
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

func baseConfig() config.AppConfig {
	return config.AppConfig{
		HTTP: config.HTTPSettings{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Sync: config.SyncSettings{
			MutationTimeout: 5 * time.Second,
		},
	}
}

func TestNew_NilLogger(t *testing.T) {
	_, err := New(Options{
		Config:        baseConfig(),
		HealthHandler: okHandler(""),
	})
	if err == nil {
		t.Fatal("expected error for nil logger")
	}
	if err.Error() != "logger is required" {
		t.Errorf("expected error 'logger is required', got %q", err.Error())
	}
}

func TestNew_NilHealthHandler(t *testing.T) {
	_, err := New(Options{
		Config: baseConfig(),
		Logger: testutil.NewNullLogger(),
	})
	if err == nil {
		t.Fatal("expected error for nil health handler")
	}
	if err.Error() != "health handler is required" {
		t.Errorf("expected error 'health handler is required', got %q", err.Error())
	}
}

func TestNew_ValidOptions(t *testing.T) {
	server, err := New(Options{
		Config:        baseConfig(),
		Logger:        testutil.NewNullLogger(),
		HealthHandler: okHandler("ok"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.httpServer.Addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", server.httpServer.Addr)
	}
	if server.httpServer.ReadTimeout != 10*time.Second {
		t.Errorf("expected read timeout 10s, got %v", server.httpServer.ReadTimeout)
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	server, err := New(Options{
		Config:         baseConfig(),
		Logger:         testutil.NewNullLogger(),
		HealthHandler:  okHandler("healthy"),
		MetricsHandler: okHandler("# metrics"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		path string
		body string
	}{
		{"/health", "healthy"},
		{"/metrics", "# metrics"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestServer_GlosaRoutes(t *testing.T) {
	glosas := &stubGlosas{}
	authCalls := 0
	server, err := New(Options{
		Config:        baseConfig(),
		Logger:        testutil.NewNullLogger(),
		HealthHandler: okHandler(""),
		Glosas:        glosas,
		Auth: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authCalls++
				next.ServeHTTP(w, r)
			})
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/glosas", "list"},
		{http.MethodPost, "/api/glosas", "create"},
		{http.MethodGet, "/api/glosas/duplicados", "duplicates"},
		{http.MethodPost, "/api/glosas/deduplicar", "deduplicate"},
		{http.MethodPatch, "/api/glosas/g-1", "update"},
		{http.MethodDelete, "/api/glosas/g-1", "delete"},
		{http.MethodPatch, "/api/glosas/g-1/estado", "estado"},
		{http.MethodPost, "/api/glosas/g-1/registro-interno", "promote"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			glosas.calls = nil
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			if len(glosas.calls) != 1 || glosas.calls[0] != tt.want {
				t.Errorf("expected call %q, got %v", tt.want, glosas.calls)
			}
		})
	}
	if authCalls != len(tests) {
		t.Errorf("expected auth middleware on every api route, got %d calls", authCalls)
	}
}

func TestServer_UnconfiguredGroupsReturn503(t *testing.T) {
	server, err := New(Options{
		Config:        baseConfig(),
		Logger:        testutil.NewNullLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/glosas"},
		{http.MethodGet, "/api/ingresos"},
		{http.MethodDelete, "/api/ingresos/i-1"},
		{http.MethodGet, "/api/estadisticas"},
		{http.MethodGet, "/api/consolidado"},
		{http.MethodGet, "/api/consolidado.xlsx"},
		{http.MethodPost, "/api/sync"},
		{http.MethodGet, "/api/sync/estado"},
		{http.MethodPost, "/api/recovery/flags"},
		{http.MethodPost, "/api/recovery/flags/sync"},
		{http.MethodPost, "/api/import/glosas"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status 503, got %d", w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics handler, got %d", w.Code)
	}
}

func TestServer_Close(t *testing.T) {
	closed := 0
	server, err := New(Options{
		Config:        baseConfig(),
		Logger:        testutil.NewNullLogger(),
		HealthHandler: okHandler(""),
		OnClose:       func() { closed++ },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	server.Close()
	server.Close()
	if closed != 1 {
		t.Errorf("expected OnClose to run once, ran %d times", closed)
	}
}

func TestServer_Run_ContextCancel(t *testing.T) {
	cfg := baseConfig()
	cfg.HTTP.Port = 0

	server, err := New(Options{
		Config:        cfg,
		Logger:        testutil.NewNullLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := server.Run(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
