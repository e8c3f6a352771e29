package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a standardized error response format.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// WriteError writes a standardized JSON error response to the HTTP response writer.
func WriteError(w http.ResponseWriter, statusCode int, message string, errors []string, log *slog.Logger) {
	if errors == nil {
		errors = []string{}
	}
	writeJSON(w, statusCode, ErrorResponse{Message: message, Errors: errors}, log)
}

// WriteJSON encodes body as the JSON response with statusCode.
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	writeJSON(w, statusCode, body, nil)
}

func writeJSON(w http.ResponseWriter, statusCode int, body any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		// The status line is already out; nothing else can be sent.
		if log != nil {
			log.Error("failed to encode response", "error", err)
		}
	}
}
