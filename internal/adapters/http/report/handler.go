package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"3tcapital/goglosas/internal/adapters/http/api"
	"3tcapital/goglosas/internal/application/stats"
	"3tcapital/goglosas/internal/application/transfer"
	"3tcapital/goglosas/internal/application/workspace"
	httpx "3tcapital/goglosas/internal/infrastructure/http"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the read-only aggregates of a section.
type Handler struct {
	ws  *workspace.Workspace
	log *slog.Logger
	now func() time.Time
}

func NewHandler(ws *workspace.Workspace, log *slog.Logger) *Handler {
	return &Handler{ws: ws, log: log.With("component", "http_reports"), now: time.Now}
}

// StatisticsResponse wraps the section statistics.
type StatisticsResponse struct {
	Seccion      string           `json:"seccion"`
	Estadisticas stats.Statistics `json:"estadisticas"`
}

// Statistics handles GET /api/estadisticas.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	scope := api.Scope(r, sess)
	st := stats.ForSection(scope, h.ws.Glosas(), h.ws.Ingresos())
	httpx.WriteJSON(w, http.StatusOK, StatisticsResponse{Seccion: string(scope), Estadisticas: st})
}

// ConsolidadoResponse is the body of GET /api/consolidado.
type ConsolidadoResponse struct {
	Seccion  string                 `json:"seccion"`
	Total    int                    `json:"total"`
	Facturas []stats.InvoiceSummary `json:"facturas"`
}

// Consolidado handles GET /api/consolidado. The optional factura query
// param keeps only rows whose factura contains it, case-insensitively.
func (h *Handler) Consolidado(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	scope := api.Scope(r, sess)
	gs, is := stats.FilterBySection(scope, h.ws.Glosas(), h.ws.Ingresos())
	rows := filterFactura(stats.Consolidate(gs, is), r.URL.Query().Get("factura"))

	if limit, err := strconv.Atoi(r.URL.Query().Get("limite")); err == nil && limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []stats.InvoiceSummary{}
	}
	httpx.WriteJSON(w, http.StatusOK, ConsolidadoResponse{Seccion: string(scope), Total: len(rows), Facturas: rows})
}

// ConsolidadoXLSX handles GET /api/consolidado.xlsx.
func (h *Handler) ConsolidadoXLSX(w http.ResponseWriter, r *http.Request) {
	sess, ok := api.Session(w, r, h.log)
	if !ok {
		return
	}
	scope := api.Scope(r, sess)
	gs, is := stats.FilterBySection(scope, h.ws.Glosas(), h.ws.Ingresos())

	var buf bytes.Buffer
	if err := transfer.ExportConsolidadoXLSX(&buf, scope, stats.Consolidate(gs, is), stats.Compute(gs, is)); err != nil {
		api.HandleError(w, err, h.log)
		return
	}

	filename := fmt.Sprintf("consolidado-%s-%s.xlsx", strings.ToLower(string(scope)), h.now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("failed to write xlsx export", "error", err)
	}
}

func filterFactura(rows []stats.InvoiceSummary, needle string) []stats.InvoiceSummary {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return rows
	}
	var out []stats.InvoiceSummary
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Factura), needle) {
			out = append(out, row)
		}
	}
	return out
}
