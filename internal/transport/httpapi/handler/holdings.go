package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/report"
)

// HoldingsService lists priced positions
type HoldingsService interface {
	Holdings(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) ([]report.Holding, error)
}

// HoldingsHandler handles holdings requests
type HoldingsHandler struct {
	service HoldingsService
}

// NewHoldingsHandler creates a new holdings handler
func NewHoldingsHandler(service HoldingsService) *HoldingsHandler {
	return &HoldingsHandler{service: service}
}

// HoldingResponse is one position in JSON form
type HoldingResponse struct {
	SecurityID     string `json:"security_id"`
	Shares         string `json:"shares"`
	CostBasis      string `json:"cost_basis"`
	MarketValue    string `json:"market_value,omitempty"`
	UnrealizedGain string `json:"unrealized_gain,omitempty"`
	Currency       string `json:"currency"`
	Priced         bool   `json:"priced"`
}

// GetHoldings handles GET /api/v1/portfolios/{id}/holdings?as_of=...
func (h *HoldingsHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err = time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid as_of date, want YYYY-MM-DD")
			return
		}
	}

	holdings, err := h.service.Holdings(r.Context(), portfolioID, asOf)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list holdings")
		return
	}

	out := make([]HoldingResponse, 0, len(holdings))
	for _, pos := range holdings {
		resp := HoldingResponse{
			SecurityID: pos.SecurityID.String(),
			Shares:     pos.Shares.String(),
			CostBasis:  pos.CostBasis.String(),
			Currency:   pos.Currency,
			Priced:     pos.Priced,
		}
		if pos.Priced {
			resp.MarketValue = pos.MarketValue.String()
			resp.UnrealizedGain = pos.UnrealizedGain.String()
		}
		out = append(out, resp)
	}

	respondJSON(w, http.StatusOK, out)
}
