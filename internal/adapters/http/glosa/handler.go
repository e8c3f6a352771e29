package glosa

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"3tcapital/goglosas/internal/adapters/http/api"
	"3tcapital/goglosas/internal/application/mutation"
	"3tcapital/goglosas/internal/application/stats"
	"3tcapital/goglosas/internal/application/workspace"
	coreglosa "3tcapital/goglosas/internal/core/glosa"
	httpx "3tcapital/goglosas/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the glosa mutations and the workspace.
type Handler struct {
	ws       *workspace.Workspace
	coord    *mutation.Coordinator
	log      *slog.Logger
	maxBytes int64
}

// NewHandler creates a new glosa HTTP handler.
func NewHandler(ws *workspace.Workspace, coord *mutation.Coordinator, maxBytes int64, log *slog.Logger) *Handler {
	return &Handler{
		ws:       ws,
		coord:    coord,
		log:      log.With("component", "http_glosas"),
		maxBytes: maxBytes,
	}
}

// ListResponse is the body of GET /api/glosas.
type ListResponse struct {
	Seccion string            `json:"seccion"`
	Total   int               `json:"total"`
	Glosas  []coreglosa.Glosa `json:"glosas"`
}

// List handles GET /api/glosas. Results are scoped to the requested
// section and keep the workspace order, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	scope := api.Scope(r, sess)
	glosas, _ := stats.FilterBySection(scope, h.ws.Glosas(), nil)
	if glosas == nil {
		glosas = []coreglosa.Glosa{}
	}
	httpx.WriteJSON(w, http.StatusOK, ListResponse{Seccion: string(scope), Total: len(glosas), Glosas: glosas})
}

// Create handles POST /api/glosas. A glosa matching an existing factura,
// servicio and valor is refused with 409 unless confirmado is true.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	var in mutation.NewGlosa
	if !api.DecodeJSON(w, r, h.maxBytes, &in, h.log) {
		return
	}
	if in.Seccion == "" {
		in.Seccion = api.Scope(r, sess)
	}

	created, err := h.coord.AddGlosa(r.Context(), sess, in)
	if err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PATCH /api/glosas/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	var patch coreglosa.Patch
	if !api.DecodeJSON(w, r, h.maxBytes, &patch, h.log) {
		return
	}

	updated, err := h.coord.UpdateGlosa(r.Context(), sess, chi.URLParam(r, "id"), patch)
	if err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

type estadoRequest struct {
	Estado coreglosa.Estado `json:"estado"`
}

// UpdateEstado handles PATCH /api/glosas/{id}/estado.
func (h *Handler) UpdateEstado(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	var body estadoRequest
	if !api.DecodeJSON(w, r, h.maxBytes, &body, h.log) {
		return
	}

	updated, err := h.coord.UpdateGlosaEstado(r.Context(), sess, chi.URLParam(r, "id"), body.Estado)
	if err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

// PromoteInternalFlag handles POST /api/glosas/{id}/registro-interno.
// Promoting an already registered glosa is a no-op reported as
// promovida=false.
func (h *Handler) PromoteInternalFlag(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	promoted, err := h.coord.PromoteInternalFlag(r.Context(), sess, id)
	if err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "promovida": promoted})
}

// Delete handles DELETE /api/glosas/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	if err := h.coord.DeleteGlosa(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicatesResponse is the body of GET /api/glosas/duplicados.
type DuplicatesResponse struct {
	Grupos     int               `json:"grupos"`
	Duplicadas []coreglosa.Glosa `json:"duplicadas"`
}

// Duplicates handles GET /api/glosas/duplicados, listing every glosa that
// shares its factura, servicio and valor with another in the same section.
func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	glosas, _ := stats.FilterBySection(api.Scope(r, sess), h.ws.Glosas(), nil)
	dups := coreglosa.FindDuplicates(glosas)
	if dups == nil {
		dups = []coreglosa.Glosa{}
	}

	groups := make(map[string]struct{})
	for _, g := range dups {
		groups[g.DuplicateKey()] = struct{}{}
	}
	httpx.WriteJSON(w, http.StatusOK, DuplicatesResponse{Grupos: len(groups), Duplicadas: dups})
}

// Deduplicate handles POST /api/glosas/deduplicar.
func (h *Handler) Deduplicate(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	removed, err := h.coord.DeduplicateGlosas(r.Context(), sess)
	if err != nil {
		api.HandleRemoteError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"eliminadas": removed})
}
