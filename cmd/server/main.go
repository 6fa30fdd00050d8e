// Package main is the entry point for the docflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docflow/internal/core/idempotency"
	"docflow/internal/domain/catalogs/product"
	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/delivery_note"
	"docflow/internal/domain/documents/invoice"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/domain/payments"
	"docflow/internal/domain/registers/stock"
	"docflow/internal/domain/reports"
	"docflow/internal/infrastructure/cache"
	v1 "docflow/internal/infrastructure/http/v1"
	"docflow/internal/infrastructure/http/v1/handlers"
	"docflow/internal/infrastructure/numerator"
	"docflow/internal/infrastructure/storage/postgres"
	"docflow/internal/infrastructure/storage/postgres/catalog_repo"
	"docflow/internal/infrastructure/storage/postgres/document_repo"
	"docflow/internal/infrastructure/storage/postgres/register_repo"
	"docflow/internal/infrastructure/storage/postgres/report_repo"
	"docflow/pkg/logger"
)

// reportTimeout bounds the aggregate report queries.
const reportTimeout = 10 * time.Second

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting docflow server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	if err := postgres.Migrate(ctx, txm); err != nil {
		log.Fatalw("failed to apply schema", "error", err)
	}
	log.Info("database connection established")

	healthChecks := map[string]handlers.HealthCheck{
		"database": pool.Ping,
	}

	// --- Idempotency store ---
	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer client.Close()

		idemStore = cache.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		healthChecks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		log.Infow("idempotency store: redis", "addr", cfg.RedisAddr)
	} else {
		idemStore = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
		log.Info("idempotency store: postgres")
	}

	// --- Repositories ---
	productRepo := catalog_repo.NewProductRepo(txm)
	clientRepo := catalog_repo.NewClientRepo(txm)
	documentRepo := document_repo.NewDocumentRepo(txm)
	stockRepo := register_repo.NewStockRepo(txm)
	paymentRepo := register_repo.NewPaymentRepo(txm)

	historyLog, err := postgres.NewHistoryLog(txm, postgres.DefaultCompressThreshold)
	if err != nil {
		log.Fatalw("failed to initialize history log", "error", err)
	}

	// --- Services ---
	taxRate, _ := cfg.TaxRate()
	stockService := stock.NewService(stockRepo)
	ledger := payments.NewLedger(paymentRepo)

	deps := documents.Deps{
		Repo:      documentRepo,
		Products:  productRepo,
		Clients:   clientRepo,
		Numerator: numerator.New(txm),
		Numbering: cfg.Numbering(),
		History:   historyLog,
		TxManager: txm,
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log,
		Development:   cfg.Development(),
		Products:      product.NewService(productRepo, stockService, txm),
		Stock:         stockService,
		Quotes:        quote.NewService(deps),
		DeliveryNotes: delivery_note.NewService(deps, stockService, ledger),
		Invoices:      invoice.NewService(deps, stockService, ledger, taxRate),
		Conversion:    conversion.NewService(deps, stockService, ledger, taxRate),
		Payments:      payments.NewService(ledger, documentRepo, historyLog, txm),
		Reports:       reports.NewService(report_repo.NewReportRepo(txm), txm.WithStatementTimeout(reportTimeout)),
		Idempotency:   idemStore,
		HealthChecks:  healthChecks,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.Addr, "tax_rate", taxRate.String(), "numbering", cfg.NumberingStrategy)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	pool.LogStats(ctx)
	log.Info("server stopped")
}
