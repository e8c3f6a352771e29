package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"3tcapital/goglosas/internal/core/session"
)

// ErrorBody mirrors the JSON error envelope written by the HTTP layer.
type ErrorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// NewRequest builds a request carrying sess in its context. body is JSON
// encoded unless it is already a string or an io.Reader.
func NewRequest(method, path string, body any, sess *session.Session) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
		reader = http.NoBody
	case string:
		reader = bytes.NewBufferString(b)
	case io.Reader:
		reader = b
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		req = req.WithContext(session.WithSession(req.Context(), *sess))
	}
	return req
}

// DecodeJSON fails the test unless w holds wantStatus and a body that
// decodes into v.
func DecodeJSON(t testing.TB, w *httptest.ResponseRecorder, wantStatus int, v any) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, w.Code, w.Body.String())
	}
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
}

// ReadErrorResponse decodes the error envelope in w.
func ReadErrorResponse(t testing.TB, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}
