package ingreso

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"3tcapital/goglosas/internal/adapters/http/api"
	"3tcapital/goglosas/internal/application/mutation"
	"3tcapital/goglosas/internal/application/stats"
	"3tcapital/goglosas/internal/application/workspace"
	coreingreso "3tcapital/goglosas/internal/core/ingreso"
	httpx "3tcapital/goglosas/internal/infrastructure/http"
)

// Handler serves the payments recorded against facturas.
type Handler struct {
	ws       *workspace.Workspace
	coord    *mutation.Coordinator
	log      *slog.Logger
	maxBytes int64
}

func NewHandler(ws *workspace.Workspace, coord *mutation.Coordinator, maxBytes int64, log *slog.Logger) *Handler {
	return &Handler{
		ws:       ws,
		coord:    coord,
		log:      log.With("component", "http_ingresos"),
		maxBytes: maxBytes,
	}
}

type ListResponse struct {
	Seccion  string                `json:"seccion"`
	Total    int                   `json:"total"`
	Ingresos []coreingreso.Ingreso `json:"ingresos"`
}

// List handles GET /api/ingresos.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	scope := api.Scope(r, sess)
	_, ingresos := stats.FilterBySection(scope, nil, h.ws.Ingresos())
	if ingresos == nil {
		ingresos = []coreingreso.Ingreso{}
	}
	httpx.WriteJSON(w, http.StatusOK, ListResponse{Seccion: string(scope), Total: len(ingresos), Ingresos: ingresos})
}

// Create handles POST /api/ingresos.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	var in mutation.NewIngreso
	if !api.DecodeJSON(w, r, h.maxBytes, &in, h.log) {
		return
	}
	if in.Seccion == "" {
		in.Seccion = api.Scope(r, sess)
	}

	created, err := h.coord.AddIngreso(r.Context(), sess, in)
	if err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

// Delete handles DELETE /api/ingresos/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	if err := h.coord.DeleteIngreso(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
