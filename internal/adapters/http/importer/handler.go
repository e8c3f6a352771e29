package importer

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"3tcapital/goglosas/internal/adapters/http/api"
	"3tcapital/goglosas/internal/application/recovery"
	"3tcapital/goglosas/internal/application/transfer"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
	httpx "3tcapital/goglosas/internal/infrastructure/http"
)

const (
	kindGlosas   = "glosas"
	kindIngresos = "ingresos"
	formField    = "archivo"
)

// Handler accepts bulk uploads as CSV (raw body or multipart field
// "archivo") or as a pasted JSON array.
type Handler struct {
	importer *transfer.Importer
	log      *slog.Logger
	maxBytes int64
}

func NewHandler(importer *transfer.Importer, maxBytes int64, log *slog.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = api.DefaultMaxBodyBytes
	}
	return &Handler{importer: importer, log: log.With("component", "http_import"), maxBytes: maxBytes}
}

// Import handles POST /api/import/{tipo}.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	kind := chi.URLParam(r, "tipo")
	if kind != kindGlosas && kind != kindIngresos {
		httpx.WriteError(w, http.StatusNotFound, "Tipo de importación desconocido", []string{fmt.Sprintf("tipo [%s] no soportado, use glosas o ingresos", kind)}, h.log)
		return
	}
	if err := sess.RequireAdmin(); err != nil {
		api.HandleError(w, err, h.log)
		return
	}

	payload, err := h.readPayload(w, r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Error de Importación", []string{err.Error()}, h.log)
		return
	}
	target := api.Scope(r, sess)

	report, err := h.run(r, sess, kind, payload, target)
	if err != nil {
		api.HandleRemoteError(w, err, h.log)
		return
	}
	h.log.Info("import completed", "tipo", kind, "seccion", target, "imported", report.Imported, "rejected", len(report.Rejected))
	httpx.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) run(r *http.Request, sess session.Session, kind string, payload []byte, target seccion.Seccion) (transfer.Report, error) {
	if isJSON(r, payload) {
		decoded, err := recovery.Decode(payload)
		if err != nil {
			return transfer.Report{}, err
		}
		if decoded.Kind.String() != kind {
			return transfer.Report{}, fmt.Errorf("%w: se esperaban %s", recovery.ErrUnrecognized, kind)
		}
		return h.importer.ImportJSON(r.Context(), sess, payload, target)
	}

	if kind == kindGlosas {
		return h.importer.ImportGlosasCSV(r.Context(), sess, bytes.NewReader(payload), target)
	}
	return h.importer.ImportIngresosCSV(r.Context(), sess, bytes.NewReader(payload), target)
}

func (h *Handler) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			return nil, fmt.Errorf("formulario inválido: %w", err)
		}
		file, _, err := r.FormFile(formField)
		if err != nil {
			return nil, fmt.Errorf("el campo %s es obligatorio", formField)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("no fue posible leer el archivo: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, transfer.ErrEmptyImport
	}
	return data, nil
}

func isJSON(r *http.Request, payload []byte) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) > 0 && trimmed[0] == '['
}
