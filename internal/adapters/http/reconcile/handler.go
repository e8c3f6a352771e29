package reconcile

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"3tcapital/goglosas/internal/adapters/http/api"
	"3tcapital/goglosas/internal/application/reconciliation"
	"3tcapital/goglosas/internal/application/recovery"
	"3tcapital/goglosas/internal/application/workspace"
	httpx "3tcapital/goglosas/internal/infrastructure/http"
)

// FlagRecoverer restores and pushes internal-registration flags.
type FlagRecoverer interface {
	RunFlagRecovery(ctx context.Context) (int, error)
	SyncPromotedFlags(ctx context.Context) (int, error)
}

// Handler exposes synchronization with the remote store and the flag
// recovery operations.
type Handler struct {
	ws        *workspace.Workspace
	fetcher   recovery.Fetcher
	recoverer FlagRecoverer
	log       *slog.Logger
}

func NewHandler(ws *workspace.Workspace, fetcher recovery.Fetcher, recoverer FlagRecoverer, log *slog.Logger) *Handler {
	return &Handler{
		ws:        ws,
		fetcher:   fetcher,
		recoverer: recoverer,
		log:       log.With("component", "http_sync"),
	}
}

// SyncResponse describes the outcome of POST /api/sync.
type SyncResponse struct {
	Glosas              int              `json:"glosas"`
	Ingresos            int              `json:"ingresos"`
	Omitida             bool             `json:"omitida"`
	Intentos            int              `json:"intentos"`
	IngresosDescartados bool             `json:"ingresos_descartados"`
	FlagsConservadas    int              `json:"flags_conservadas"`
	Estado              workspace.Status `json:"estado"`
}

// Sync handles POST /api/sync. Without force=true a user whose data is
// already loaded gets the current workspace back without a remote read.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	result, err := h.fetcher.FetchAndMerge(r.Context(), sess, reconciliation.Options{Force: force})
	if err != nil {
		api.HandleRemoteError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, SyncResponse{
		Glosas:              len(result.Glosas),
		Ingresos:            len(result.Ingresos),
		Omitida:             result.Skipped,
		Intentos:            result.Attempts,
		IngresosDescartados: result.IngresosDiscarded,
		FlagsConservadas:    result.PromotedFlags,
		Estado:              h.ws.Status(),
	})
}

// Status handles GET /api/sync/estado.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if _, ok := api.Session(w, r, h.log); !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.ws.Status())
}

// RecoverFlags handles POST /api/recovery/flags. It restores flags lost
// locally from cached copies of earlier releases.
func (h *Handler) RecoverFlags(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	if err := sess.RequireAdmin(); err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	recovered, err := h.recoverer.RunFlagRecovery(r.Context())
	if err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"recuperadas": recovered})
}

// SyncFlags handles POST /api/recovery/flags/sync. Every locally set flag
// is pushed to the remote store, rate limited.
func (h *Handler) SyncFlags(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	if err := sess.RequireAdmin(); err != nil {
		api.HandleError(w, err, h.log)
		return
	}
	synced, err := h.recoverer.SyncPromotedFlags(r.Context())
	if err != nil {
		h.log.Warn("flag sync incomplete", "synced", synced, "error", err)
		httpx.WriteError(w, http.StatusBadGateway, "Error de Sincronización",
			[]string{err.Error(), strconv.Itoa(synced) + " registros sincronizados antes del error"}, h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"sincronizadas": synced})
}
