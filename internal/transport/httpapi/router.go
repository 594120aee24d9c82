// Package httpapi exposes the accounting and performance queries over HTTP.
package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkozlov/basistrack/internal/transport/httpapi/handler"
	"github.com/pkozlov/basistrack/internal/transport/httpapi/middleware"
	"github.com/pkozlov/basistrack/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger             *logger.Logger
	AllowedOrigins     []string
	HealthHandler      *handler.HealthHandler
	TransactionHandler *handler.TransactionHandler
	CostBasisHandler   *handler.CostBasisHandler
	PerformanceHandler *handler.PerformanceHandler
	HoldingsHandler    *handler.HoldingsHandler
	RebuildHandler     *handler.RebuildHandler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit())

	// Health check endpoints
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TransactionHandler != nil {
			r.Post("/transactions", cfg.TransactionHandler.CreateTransaction)
		}

		if cfg.CostBasisHandler != nil {
			r.Get("/securities/{id}/cost-basis", cfg.CostBasisHandler.GetCostBasis)
			r.Get("/securities/{id}/realized-gains", cfg.CostBasisHandler.GetRealizedGains)
		}

		if cfg.RebuildHandler != nil {
			r.Post("/securities/{id}/rebuild", cfg.RebuildHandler.RebuildSecurity)
			r.Post("/rebuild", cfg.RebuildHandler.RebuildAll)
		}

		if cfg.PerformanceHandler != nil {
			r.Get("/portfolios/{id}/performance", cfg.PerformanceHandler.GetPerformance)
		}

		if cfg.HoldingsHandler != nil {
			r.Get("/portfolios/{id}/holdings", cfg.HoldingsHandler.GetHoldings)
		}
	})

	return r
}
