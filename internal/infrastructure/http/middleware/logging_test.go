package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	ctxutil "3tcapital/goglosas/internal/infrastructure/context"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantLevel  string
	}{
		{"2xx status logs as info", http.StatusOK, "level=INFO"},
		{"3xx status logs as info", http.StatusMovedPermanently, "level=INFO"},
		{"4xx status logs as warn", http.StatusBadRequest, "level=WARN"},
		{"5xx status logs as error", http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte("test response"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/glosas?seccion=RATIFICADAS", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.statusCode {
				t.Errorf("expected status code %d, got %d", tt.statusCode, w.Code)
			}
			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("expected %q in log output, got %q", tt.wantLevel, out)
			}
			if !strings.Contains(out, "seccion=RATIFICADAS") {
				t.Errorf("expected section attribute in log output, got %q", out)
			}
		})
	}
}

func TestRequestLogger_WithRequestID(t *testing.T) {
	logger, buf := bufferLogger()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, "test-request-id"))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetCorrelationID(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "test-request-id" {
		t.Errorf("expected correlation id from request id, got %q", seen)
	}
	if !strings.Contains(buf.String(), "correlation_id=test-request-id") {
		t.Errorf("expected correlation id in log output, got %q", buf.String())
	}
}

func TestRequestLogger_GeneratesCorrelationID(t *testing.T) {
	logger, _ := bufferLogger()

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetCorrelationID(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	if seen == "" {
		t.Error("expected a generated correlation id")
	}
}

func TestRequestLogger_WithUserAgent(t *testing.T) {
	logger, buf := bufferLogger()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("User-Agent", "test-agent/1.0")

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "user_agent=test-agent/1.0") {
		t.Errorf("expected user agent in log output, got %q", buf.String())
	}
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	base := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: base, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("expected status code %d, got %d", http.StatusNotFound, rw.statusCode)
	}
	if base.Code != http.StatusNotFound {
		t.Errorf("expected base status code %d, got %d", http.StatusNotFound, base.Code)
	}
}

func TestResponseWriter_Write(t *testing.T) {
	base := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: base}

	data := []byte("test data")
	n, err := rw.Write(data)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("expected to write %d bytes, got %d", len(data), n)
	}
	if rw.statusCode != http.StatusOK {
		t.Errorf("expected default status code %d, got %d", http.StatusOK, rw.statusCode)
	}
	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("expected bytesWritten %d, got %d", len(data), rw.bytesWritten)
	}
}

func TestTimeout(t *testing.T) {
	t.Run("sets a deadline", func(t *testing.T) {
		var deadline time.Time
		var ok bool
		handler := Timeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline, ok = r.Context().Deadline()
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/glosas", nil))

		if !ok {
			t.Fatal("expected the request context to carry a deadline")
		}
		if time.Until(deadline) > time.Minute {
			t.Errorf("deadline too far in the future: %v", deadline)
		}
	})

	t.Run("zero leaves context untouched", func(t *testing.T) {
		var ok bool
		handler := Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok = r.Context().Deadline()
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/glosas", nil))

		if ok {
			t.Error("expected no deadline")
		}
	})
}
