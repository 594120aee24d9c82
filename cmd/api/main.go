package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkozlov/basistrack/internal/costbasis"
	"github.com/pkozlov/basistrack/internal/fifo"
	"github.com/pkozlov/basistrack/internal/infra/fx"
	"github.com/pkozlov/basistrack/internal/infra/postgres"
	infraredis "github.com/pkozlov/basistrack/internal/infra/redis"
	"github.com/pkozlov/basistrack/internal/performance"
	"github.com/pkozlov/basistrack/internal/report"
	"github.com/pkozlov/basistrack/internal/transport/httpapi"
	"github.com/pkozlov/basistrack/internal/transport/httpapi/handler"
	"github.com/pkozlov/basistrack/pkg/config"
	"github.com/pkozlov/basistrack/pkg/logger"
)

// redisPinger adapts the redis client to the health handler's Pinger.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting basistrack API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"base_currency", cfg.BaseCurrency,
	)

	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	// The rate cache is an optimization; a dead Redis only slows conversions.
	var rateCache fx.RateCache
	var cachePinger handler.Pinger
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, rate conversions will hit the database", "error", err)
	} else {
		rateCache = infraredis.NewRateCacheWithTTL(redisClient, cfg.RateCacheTTL, log)
		cachePinger = redisPinger{client: redisClient}
		log.Info("Redis connection established")
	}

	// Repositories
	txnRepo := postgres.NewTransactionRepository(db.Pool)
	lotRepo := postgres.NewLotRepository(db.Pool)
	priceRepo := postgres.NewPriceRepository(db.Pool)
	rateRepo := postgres.NewRateRepository(db.Pool)

	// Services
	converter := fx.NewConverter(rateRepo, rateCache, log)
	rebuilder := fifo.NewRebuilder(txnRepo, txnRepo, lotRepo, log)
	costBasisSvc := costbasis.NewService(lotRepo, lotRepo, txnRepo, converter, log)
	performanceSvc := performance.NewService(txnRepo, priceRepo, log)
	holdingsSvc := report.NewService(txnRepo, costBasisSvc, priceRepo, log)
	log.Info("Accounting services initialized")

	// HTTP handlers
	healthHandler := handler.NewHealthHandler(db, cachePinger)
	transactionHandler := handler.NewTransactionHandler(txnRepo)
	costBasisHandler := handler.NewCostBasisHandler(costBasisSvc)
	performanceHandler := handler.NewPerformanceHandler(performanceSvc)
	holdingsHandler := handler.NewHoldingsHandler(holdingsSvc)
	rebuildHandler := handler.NewRebuildHandler(rebuilder)

	allowedOrigins := []string{"http://localhost:5173"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}

	r := httpapi.NewRouter(httpapi.Config{
		Logger:             log,
		AllowedOrigins:     allowedOrigins,
		HealthHandler:      healthHandler,
		TransactionHandler: transactionHandler,
		CostBasisHandler:   costBasisHandler,
		PerformanceHandler: performanceHandler,
		HoldingsHandler:    holdingsHandler,
		RebuildHandler:     rebuildHandler,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
