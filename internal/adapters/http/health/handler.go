package health

import (
	"net/http"

	apphealth "3tcapital/goglosas/internal/application/health"
	corehealth "3tcapital/goglosas/internal/core/health"
	httpx "3tcapital/goglosas/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the health application service.
type Handler struct {
	service *apphealth.Service
}

func NewHandler(service *apphealth.Service) *Handler {
	return &Handler{service: service}
}

// Status answers 200 while the service can serve cached data. A degraded
// remote is reported in the body and the X-Health-Status header.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response := h.service.Status(r.Context())

	if response.Status != corehealth.StatusUp {
		w.Header().Set("X-Health-Status", response.Status)
	}
	httpx.WriteJSON(w, http.StatusOK, response)
}
