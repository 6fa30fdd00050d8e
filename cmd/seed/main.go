// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/catalogs/product"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/domain/registers/stock"
	"docflow/internal/infrastructure/numerator"
	"docflow/internal/infrastructure/storage/postgres"
	"docflow/internal/infrastructure/storage/postgres/catalog_repo"
	"docflow/internal/infrastructure/storage/postgres/document_repo"
	"docflow/internal/infrastructure/storage/postgres/register_repo"
	"docflow/pkg/logger"
)

var demoClients = []catalog_repo.Client{
	{ID: id.MustParse("0190a1c2-0000-7000-8000-000000000001"), Name: "Atelier Durand"},
	{ID: id.MustParse("0190a1c2-0000-7000-8000-000000000002"), Name: "Nordic Supplies"},
}

type seedProduct struct {
	Reference   string
	Designation string
	UnitPrice   string
	UnitCost    string
	Stock       int64
}

var demoProducts = []seedProduct{
	{"CBL-001", "Copper cable 2.5mm (100m)", "100", "62.40", 40},
	{"SWT-010", "Wall switch, white", "150", "80", 25},
	{"LMP-220", "LED bulb E27 9W", "1", "0.35", 500},
	{"BRK-016", "Circuit breaker 16A", "24.90", "11.20", 2},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	if err := postgres.Migrate(ctx, txm); err != nil {
		log.Fatalw("failed to apply schema", "error", err)
	}
	log.Info("connected to database")

	clients := catalog_repo.NewClientRepo(txm)
	for i := range demoClients {
		if err := clients.Upsert(ctx, &demoClients[i]); err != nil {
			log.Fatalw("failed to seed client", "name", demoClients[i].Name, "error", err)
		}
	}
	log.Infow("clients seeded", "count", len(demoClients))

	productRepo := catalog_repo.NewProductRepo(txm)
	productService := product.NewService(productRepo, stock.NewService(register_repo.NewStockRepo(txm)), txm)

	seeded := make([]*product.Product, 0, len(demoProducts))
	for _, sp := range demoProducts {
		p, err := seedOne(ctx, productService, sp)
		if err != nil {
			log.Fatalw("failed to seed product", "reference", sp.Reference, "error", err)
		}
		if p != nil {
			seeded = append(seeded, p)
		}
	}
	log.Infow("products seeded", "created", len(seeded), "total", len(demoProducts))

	if os.Getenv("SEED_DEMO_DATA") == "true" && len(seeded) > 0 {
		if err := seedDemoQuote(ctx, txm, productRepo, clients, seeded); err != nil {
			log.Fatalw("failed to seed demo quote", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedOne creates a product; an existing reference is left untouched.
func seedOne(ctx context.Context, svc *product.Service, sp seedProduct) (*product.Product, error) {
	p := product.NewProduct(sp.Reference, sp.Designation,
		decimal.RequireFromString(sp.UnitPrice), decimal.RequireFromString(sp.UnitCost))
	if err := svc.Create(ctx, p, sp.Stock); err != nil {
		if apperror.HasCode(err, apperror.CodeDuplicate) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func seedDemoQuote(
	ctx context.Context,
	txm *postgres.TxManager,
	products *catalog_repo.ProductRepo,
	clients *catalog_repo.ClientRepo,
	seeded []*product.Product,
) error {
	svc := quote.NewService(documents.Deps{
		Repo:      document_repo.NewDocumentRepo(txm),
		Products:  products,
		Clients:   clients,
		Numerator: numerator.New(txm),
		History:   postgresHistory(txm),
		TxManager: txm,
	})

	lines := make([]documents.LineInput, 0, len(seeded))
	for _, p := range seeded {
		lines = append(lines, documents.LineInput{ProductID: p.ID, Quantity: 1})
	}

	doc, err := svc.Create(ctx, quote.CreateInput{CreateInput: documents.CreateInput{
		ClientID: demoClients[0].ID,
		Notes:    "Demo quote",
		Lines:    lines,
	}})
	if err != nil {
		return err
	}
	if _, err := svc.ChangeStatus(ctx, doc.ID, documents.StatusAccepted); err != nil {
		return err
	}

	logger.Info(ctx, "demo quote created", "code", doc.Code, "total", doc.Total.String())
	return nil
}

func postgresHistory(txm *postgres.TxManager) documents.HistoryRecorder {
	h, err := postgres.NewHistoryLog(txm, postgres.DefaultCompressThreshold)
	if err != nil {
		return nil
	}
	return h
}
