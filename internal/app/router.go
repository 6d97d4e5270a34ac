package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockline-erp/stockline/internal/exchanges"
	"github.com/stockline-erp/stockline/internal/masterdata/categories"
	"github.com/stockline-erp/stockline/internal/masterdata/customers"
	"github.com/stockline-erp/stockline/internal/masterdata/products"
	"github.com/stockline-erp/stockline/internal/masterdata/transports"
	"github.com/stockline-erp/stockline/internal/masterdata/warehouses"
	"github.com/stockline-erp/stockline/internal/observability"
	"github.com/stockline-erp/stockline/internal/purchases"
	"github.com/stockline-erp/stockline/internal/sales"
	"github.com/stockline-erp/stockline/internal/stock"
	"github.com/stockline-erp/stockline/internal/transfers"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	StockHandler     *stock.Handler
	PurchaseHandler  *purchases.Handler
	SaleHandler      *sales.Handler
	TransferHandler  *transfers.Handler
	ExchangeHandler  *exchanges.Handler
	CategoryHandler  *categories.Handler
	ProductHandler   *products.Handler
	CustomerHandler  *customers.Handler
	WarehouseHandler *warehouses.Handler
	TransportHandler *transports.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with all API routes mounted.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/stocks", params.StockHandler.MountRoutes)
		api.Route("/purchases", params.PurchaseHandler.MountRoutes)
		api.Route("/purchase-returns", params.PurchaseHandler.MountReturnRoutes)
		api.Route("/sales", params.SaleHandler.MountRoutes)
		api.Route("/sale-returns", params.SaleHandler.MountReturnRoutes)
		api.Route("/transfers", params.TransferHandler.MountRoutes)
		api.Route("/exchanges", params.ExchangeHandler.MountRoutes)

		api.Route("/categories", params.CategoryHandler.MountRoutes)
		api.Route("/products", params.ProductHandler.MountRoutes)
		api.Route("/customers", params.CustomerHandler.MountRoutes)
		api.Route("/warehouses", params.WarehouseHandler.MountRoutes)
		api.Route("/transports", params.TransportHandler.MountRoutes)
	})

	return r
}
