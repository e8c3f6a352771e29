// Package api holds the request plumbing shared by the dashboard handlers:
// session lookup, section scoping, body decoding and error mapping.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"3tcapital/goglosas/internal/application/mutation"
	"3tcapital/goglosas/internal/application/reconciliation"
	"3tcapital/goglosas/internal/application/recovery"
	"3tcapital/goglosas/internal/application/transfer"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
	httpx "3tcapital/goglosas/internal/infrastructure/http"
)

// DefaultMaxBodyBytes caps JSON request bodies when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

// Session returns the session placed in the request by the auth middleware.
// It writes a 401 and returns false when there is none.
func Session(w http.ResponseWriter, r *http.Request, log *slog.Logger) (session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok || !sess.Authenticated() {
		httpx.WriteError(w, http.StatusUnauthorized, "Error de Autenticación", []string{session.ErrNoSession.Error()}, log)
		return session.Session{}, false
	}
	return sess, true
}

// Scope resolves the section a request reads from the seccion query param.
func Scope(r *http.Request, sess session.Session) seccion.Seccion {
	return sess.Scope(r.URL.Query().Get("seccion"))
}

// DecodeJSON reads r's body into dst, rejecting unknown fields and bodies
// above maxBytes. It writes a 400 and returns false on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any, log *slog.Logger) bool {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", []string{"El cuerpo de la petición no es válido"}, log)
		return false
	}
	return true
}

// HandleError maps application errors to HTTP responses. Unknown errors
// become a 500.
func HandleError(w http.ResponseWriter, err error, log *slog.Logger) {
	if !writeKnown(w, err, log) {
		if log != nil {
			log.Error("request failed", "error", err)
		}
		httpx.WriteError(w, http.StatusInternalServerError, "Error Interno del Servidor", []string{"Ha ocurrido un error interno"}, log)
	}
}

// HandleRemoteError is HandleError for operations that talk to the remote
// store synchronously. Unknown errors become a 502.
func HandleRemoteError(w http.ResponseWriter, err error, log *slog.Logger) {
	if !writeKnown(w, err, log) {
		if log != nil {
			log.Warn("remote operation failed", "error", err)
		}
		httpx.WriteError(w, http.StatusBadGateway, "Error de Sincronización", []string{"No fue posible completar la operación con el servidor remoto"}, log)
	}
}

func writeKnown(w http.ResponseWriter, err error, log *slog.Logger) bool {
	var glosaErr *glosa.ValidationError
	var ingresoErr *ingreso.ValidationError

	switch {
	case errors.Is(err, session.ErrNoSession):
		httpx.WriteError(w, http.StatusUnauthorized, "Error de Autenticación", []string{err.Error()}, log)
	case errors.Is(err, session.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "Acceso Denegado", []string{err.Error()}, log)
	case errors.Is(err, mutation.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Registro no encontrado", []string{err.Error()}, log)
	case errors.Is(err, mutation.ErrDuplicateRequiresConfirmation):
		httpx.WriteError(w, http.StatusConflict, "Glosa duplicada", []string{err.Error(), "Envíe confirmado=true para registrarla de todas formas"}, log)
	case errors.As(err, &glosaErr):
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", glosaErr.Problems, log)
	case errors.As(err, &ingresoErr):
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", ingresoErr.Problems, log)
	case errors.Is(err, transfer.ErrEmptyImport),
		errors.Is(err, transfer.ErrMissingColumn),
		errors.Is(err, recovery.ErrNotArray),
		errors.Is(err, recovery.ErrUnrecognized):
		httpx.WriteError(w, http.StatusBadRequest, "Error de Importación", []string{err.Error()}, log)
	case errors.Is(err, reconciliation.ErrFetchTimeout):
		httpx.WriteError(w, http.StatusGatewayTimeout, "Error de Sincronización", []string{err.Error()}, log)
	default:
		return false
	}
	return true
}
