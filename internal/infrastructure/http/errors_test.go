package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"3tcapital/goglosas/internal/testutil"
)

// failingResponseWriter simulates a client that hung up mid-response.
type failingResponseWriter struct {
	http.ResponseWriter
}

func (f *failingResponseWriter) Write(p []byte) (int, error) {
	return 0, &json.MarshalerError{}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		message        string
		errors         []string
		withLogger     bool
		expectedErrors []string
	}{
		{
			name:           "validation error",
			statusCode:     http.StatusBadRequest,
			message:        "Error de Validación",
			errors:         []string{"la factura es obligatoria"},
			withLogger:     true,
			expectedErrors: []string{"la factura es obligatoria"},
		},
		{
			name:           "multiple errors",
			statusCode:     http.StatusUnprocessableEntity,
			message:        "Error de Validación",
			errors:         []string{"Error 1", "Error 2", "Error 3"},
			expectedErrors: []string{"Error 1", "Error 2", "Error 3"},
		},
		{
			name:           "nil errors become empty array",
			statusCode:     http.StatusInternalServerError,
			message:        "Error Interno",
			errors:         nil,
			withLogger:     true,
			expectedErrors: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			var logger *slog.Logger
			if tt.withLogger {
				logger = testutil.NewNullLogger()
			}

			WriteError(w, tt.statusCode, tt.message, tt.errors, logger)

			if w.Code != tt.statusCode {
				t.Errorf("expected status code %d, got %d", tt.statusCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, response.Message)
			}
			if response.Errors == nil {
				t.Fatal("expected errors to be an array, got null")
			}
			if len(response.Errors) != len(tt.expectedErrors) {
				t.Fatalf("expected %d errors, got %d", len(tt.expectedErrors), len(response.Errors))
			}
			for i, want := range tt.expectedErrors {
				if response.Errors[i] != want {
					t.Errorf("expected error[%d] %q, got %q", i, want, response.Errors[i])
				}
			}
		})
	}
}

func TestWriteError_NilErrorsSerializeAsArray(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "No encontrado", nil, nil)

	if !strings.Contains(w.Body.String(), `"errors":[]`) {
		t.Errorf("expected empty errors array, got %s", w.Body.String())
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"importados": 3})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status code %d, got %d", http.StatusCreated, w.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["importados"] != 3 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestWriteError_EncodingFailureIsLogged(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	w := &failingResponseWriter{ResponseWriter: httptest.NewRecorder()}

	WriteError(w, http.StatusBadRequest, "Test", []string{"Error"}, logger)

	entry, ok := logs.Find("failed to encode response")
	if !ok {
		t.Fatal("expected encoding failure to be logged")
	}
	if entry["level"] != "ERROR" {
		t.Errorf("expected ERROR level, got %v", entry["level"])
	}
}
