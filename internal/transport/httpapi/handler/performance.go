package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/performance"
)

// PerformanceService computes performance reports
type PerformanceService interface {
	Report(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) (performance.Report, error)
}

// PerformanceHandler handles performance requests
type PerformanceHandler struct {
	service PerformanceService
}

// NewPerformanceHandler creates a new performance handler
func NewPerformanceHandler(service PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{service: service}
}

// PerformanceResponse is the JSON shape of a performance report
type PerformanceResponse struct {
	PortfolioID      string  `json:"portfolio_id"`
	From             string  `json:"from"`
	To               string  `json:"to"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Days             int     `json:"days"`
	Irr              float64 `json:"irr"`
	IrrConverged     bool    `json:"irr_converged"`
}

// GetPerformance handles GET /api/v1/portfolios/{id}/performance?from=...&to=...
// Dates are ISO (2006-01-02); from defaults to the epoch, to defaults to today.
func (h *PerformanceHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	from := time.Unix(0, 0).UTC()
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
			return
		}
	}

	to := time.Now().UTC()
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
			return
		}
	}

	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to date precedes from date")
		return
	}

	report, err := h.service.Report(r.Context(), portfolioID, from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute performance")
		return
	}

	respondJSON(w, http.StatusOK, PerformanceResponse{
		PortfolioID:      portfolioID.String(),
		From:             from.Format("2006-01-02"),
		To:               to.Format("2006-01-02"),
		TotalReturn:      report.Ttwror.TotalReturn,
		AnnualizedReturn: report.Ttwror.AnnualizedReturn,
		Days:             report.Ttwror.Days,
		Irr:              report.Irr.Irr,
		IrrConverged:     report.Irr.Converged,
	})
}
