// Package v1 provides the HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

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
	"docflow/internal/infrastructure/http/v1/handlers"
	"docflow/internal/infrastructure/http/v1/middleware"
	"docflow/pkg/logger"
)

// RouterConfig holds dependencies for router setup.
type RouterConfig struct {
	Logger *logger.Logger

	// Development enables gin debug mode
	Development bool

	Products      *product.Service
	Stock         *stock.Service
	Quotes        *quote.Service
	DeliveryNotes *delivery_note.Service
	Invoices      *invoice.Service
	Conversion    *conversion.Service
	Payments      *payments.Service
	Reports       *reports.Service

	// Idempotency stores X-Idempotency-Key outcomes; nil disables replay
	Idempotency idempotency.Store

	// HealthChecks are probed by /health/ready
	HealthChecks map[string]handlers.HealthCheck
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Idempotency(cfg.Idempotency))

	registerCatalogRoutes(v1, cfg)
	registerDocumentRoutes(v1, cfg)

	if cfg.Reports != nil {
		handlers.NewReportsHandler(handlers.NewBaseHandler(), cfg.Reports).
			RegisterRoutes(v1.Group("/reports"))
	}

	return router
}

// registerCatalogRoutes registers product catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Products == nil {
		return
	}
	baseHandler := handlers.NewBaseHandler()
	handlers.NewProductHandler(baseHandler, cfg.Products).RegisterRoutes(rg.Group("/products"))
}

// registerDocumentRoutes registers quote, delivery note and invoice endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	if cfg.Quotes != nil {
		handlers.NewQuoteHandler(baseHandler, cfg.Quotes, cfg.Conversion).
			RegisterRoutes(rg.Group("/quotes"))
	}

	if cfg.DeliveryNotes != nil {
		group := rg.Group("/delivery-notes")
		handlers.NewDeliveryNoteHandler(baseHandler, cfg.DeliveryNotes, cfg.Conversion, cfg.Stock).
			RegisterRoutes(group)
		handlers.NewPaymentHandler(baseHandler, cfg.Payments, documents.FamilyDeliveryNote).
			RegisterRoutes(group)
	}

	if cfg.Invoices != nil {
		group := rg.Group("/invoices")
		handlers.NewInvoiceHandler(baseHandler, cfg.Invoices, cfg.Stock).
			RegisterRoutes(group)
		handlers.NewPaymentHandler(baseHandler, cfg.Payments, documents.FamilyInvoice).
			RegisterRoutes(group)
	}
}
