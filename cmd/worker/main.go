// Package main is the entry point for the docflow background worker.
// It purges expired idempotency keys kept in PostgreSQL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"docflow/internal/infrastructure/storage/postgres"
	"docflow/pkg/logger"
)

// Config is the worker configuration read from the environment.
type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL     string        `envconfig:"DATABASE_URL" required:"true"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
	StatsInterval   time.Duration `envconfig:"STATS_INTERVAL" default:"5m"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting docflow worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	worker := NewWorker(pool, cfg, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs periodic maintenance jobs.
type Worker struct {
	pool        *postgres.Pool
	idempotency *postgres.IdempotencyStore
	cfg         Config
	log         *logger.Logger
}

// NewWorker creates a new maintenance worker.
func NewWorker(pool *postgres.Pool, cfg Config, log *logger.Logger) *Worker {
	txm := postgres.NewTxManager(pool)
	return &Worker{
		pool:        pool,
		idempotency: postgres.NewIdempotencyStore(txm, 0),
		cfg:         cfg,
		log:         log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	statsTicker := time.NewTicker(w.cfg.StatsInterval)
	defer statsTicker.Stop()

	w.cleanupIdempotency(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			w.cleanupIdempotency(ctx)
		case <-statsTicker.C:
			w.pool.LogStats(ctx)
		}
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	count, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}

	if count > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", count)
	}
}
