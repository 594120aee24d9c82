package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/fifo"
)

// RebuildService recomputes derived FIFO state
type RebuildService interface {
	RebuildSecurity(ctx context.Context, securityID uuid.UUID) (fifo.Result, error)
	RebuildAll(ctx context.Context) (fifo.BatchResult, error)
}

// RebuildHandler handles rebuild requests
type RebuildHandler struct {
	service RebuildService
}

// NewRebuildHandler creates a new rebuild handler
func NewRebuildHandler(service RebuildService) *RebuildHandler {
	return &RebuildHandler{service: service}
}

// RebuildResponse reports the outcome of a single-security rebuild
type RebuildResponse struct {
	SecurityID   string `json:"security_id"`
	Lots         int    `json:"lots"`
	Consumptions int    `json:"consumptions"`
}

// RebuildSecurity handles POST /api/v1/securities/{id}/rebuild
func (h *RebuildHandler) RebuildSecurity(w http.ResponseWriter, r *http.Request) {
	securityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid security id")
		return
	}

	result, err := h.service.RebuildSecurity(r.Context(), securityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}

	respondJSON(w, http.StatusOK, RebuildResponse{
		SecurityID:   securityID.String(),
		Lots:         len(result.Lots),
		Consumptions: len(result.Consumptions),
	})
}

// BatchRebuildResponse reports the outcome of a full rebuild
type BatchRebuildResponse struct {
	Total   int      `json:"total"`
	Rebuilt int      `json:"rebuilt"`
	Failed  []string `json:"failed,omitempty"`
}

// RebuildAll handles POST /api/v1/rebuild
func (h *RebuildHandler) RebuildAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RebuildAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "batch rebuild failed")
		return
	}

	resp := BatchRebuildResponse{Total: result.Total, Rebuilt: result.Rebuilt}
	for _, id := range result.Failed {
		resp.Failed = append(resp.Failed, id.String())
	}

	status := http.StatusOK
	if len(resp.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, resp)
}
