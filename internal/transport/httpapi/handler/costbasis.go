package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/costbasis"
)

// CostBasisService answers cost basis and realized gain queries
type CostBasisService interface {
	CostBasis(ctx context.Context, securityID uuid.UUID) (costbasis.Result, error)
	PortfolioCostBasis(ctx context.Context, securityID, portfolioID uuid.UUID) (costbasis.Result, error)
	CostBasisInCurrency(ctx context.Context, securityID uuid.UUID, currency string) (costbasis.Result, error)
	RealizedGains(ctx context.Context, securityID uuid.UUID) ([]costbasis.RealizedEntry, error)
}

// CostBasisHandler handles cost basis requests
type CostBasisHandler struct {
	service CostBasisService
}

// NewCostBasisHandler creates a new cost basis handler
func NewCostBasisHandler(service CostBasisService) *CostBasisHandler {
	return &CostBasisHandler{service: service}
}

// CostBasisResponse is the JSON shape of a cost basis result. Fixed-point
// amounts are rendered as decimal strings to avoid float drift in clients.
type CostBasisResponse struct {
	SecurityID      string `json:"security_id"`
	RemainingShares string `json:"remaining_shares"`
	CostBasis       string `json:"cost_basis"`
	Currency        string `json:"currency"`
}

// GetCostBasis handles GET /api/v1/securities/{id}/cost-basis
// Optional query parameters: currency (convert), portfolio_id (restrict).
func (h *CostBasisHandler) GetCostBasis(w http.ResponseWriter, r *http.Request) {
	securityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid security id")
		return
	}

	var result costbasis.Result
	switch {
	case r.URL.Query().Get("currency") != "":
		result, err = h.service.CostBasisInCurrency(r.Context(), securityID, r.URL.Query().Get("currency"))
	case r.URL.Query().Get("portfolio_id") != "":
		portfolioID, parseErr := uuid.Parse(r.URL.Query().Get("portfolio_id"))
		if parseErr != nil {
			respondError(w, http.StatusBadRequest, "invalid portfolio id")
			return
		}
		result, err = h.service.PortfolioCostBasis(r.Context(), securityID, portfolioID)
	default:
		result, err = h.service.CostBasis(r.Context(), securityID)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute cost basis")
		return
	}

	respondJSON(w, http.StatusOK, CostBasisResponse{
		SecurityID:      securityID.String(),
		RemainingShares: result.RemainingShares.String(),
		CostBasis:       result.CostBasis.String(),
		Currency:        result.Currency,
	})
}

// RealizedGainResponse is one realized sale in JSON form
type RealizedGainResponse struct {
	TransactionID string `json:"transaction_id"`
	Date          string `json:"date"`
	SharesSold    string `json:"shares_sold"`
	CostBasis     string `json:"cost_basis"`
	Proceeds      string `json:"proceeds"`
	Gain          string `json:"gain"`
	Currency      string `json:"currency"`
}

// GetRealizedGains handles GET /api/v1/securities/{id}/realized-gains
func (h *CostBasisHandler) GetRealizedGains(w http.ResponseWriter, r *http.Request) {
	securityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid security id")
		return
	}

	entries, err := h.service.RealizedGains(r.Context(), securityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute realized gains")
		return
	}

	out := make([]RealizedGainResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RealizedGainResponse{
			TransactionID: e.TransactionID.String(),
			Date:          e.Date.Format("2006-01-02"),
			SharesSold:    e.SharesSold.String(),
			CostBasis:     e.CostBasis.String(),
			Proceeds:      e.Proceeds.String(),
			Gain:          e.Gain.String(),
			Currency:      e.Currency,
		})
	}

	respondJSON(w, http.StatusOK, out)
}
