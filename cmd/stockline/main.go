package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockline-erp/stockline/internal/app"
	"github.com/stockline-erp/stockline/internal/exchanges"
	"github.com/stockline-erp/stockline/internal/masterdata/categories"
	"github.com/stockline-erp/stockline/internal/masterdata/customers"
	"github.com/stockline-erp/stockline/internal/masterdata/products"
	"github.com/stockline-erp/stockline/internal/masterdata/transports"
	"github.com/stockline-erp/stockline/internal/masterdata/warehouses"
	"github.com/stockline-erp/stockline/internal/observability"
	"github.com/stockline-erp/stockline/internal/platform/cache"
	"github.com/stockline-erp/stockline/internal/platform/db"
	"github.com/stockline-erp/stockline/internal/purchases"
	"github.com/stockline-erp/stockline/internal/sales"
	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
	"github.com/stockline-erp/stockline/internal/transfers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, stock cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	ledger := stock.NewLedger(logger, metrics)
	audit := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	stockRepo := stock.NewRepository(pool)
	stockCache := stock.NewCache(redisClient, cfg.StockCacheTTL)
	stockService := stock.NewService(stockRepo, stockCache)
	stockHandler := stock.NewHandler(logger, stockService, cfg.ExportRowLimit)

	purchaseRepo := purchases.NewRepository(pool)
	purchaseService := purchases.NewService(logger, purchaseRepo, ledger, stockService, audit, idem)
	purchaseHandler := purchases.NewHandler(logger, purchaseService)

	saleRepo := sales.NewRepository(pool)
	saleService := sales.NewService(logger, saleRepo, ledger, stockService, audit, idem)
	saleHandler := sales.NewHandler(logger, saleService, cfg.ExportRowLimit)

	transferRepo := transfers.NewRepository(pool)
	transferService := transfers.NewService(logger, transferRepo, ledger, stockService, audit, idem)
	transferHandler := transfers.NewHandler(logger, transferService)

	exchangeRepo := exchanges.NewRepository(pool)
	exchangeService := exchanges.NewService(logger, exchangeRepo, ledger, stockService, audit, idem)
	exchangeHandler := exchanges.NewHandler(logger, exchangeService)

	categoryHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(pool)))
	productHandler := products.NewHandler(logger, products.NewService(products.NewRepository(pool)))
	customerHandler := customers.NewHandler(logger, customers.NewService(customers.NewRepository(pool)))
	warehouseHandler := warehouses.NewHandler(logger, warehouses.NewService(warehouses.NewRepository(pool)))
	transportHandler := transports.NewHandler(logger, transports.NewService(transports.NewRepository(pool)))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		StockHandler:     stockHandler,
		PurchaseHandler:  purchaseHandler,
		SaleHandler:      saleHandler,
		TransferHandler:  transferHandler,
		ExchangeHandler:  exchangeHandler,
		CategoryHandler:  categoryHandler,
		ProductHandler:   productHandler,
		CustomerHandler:  customerHandler,
		WarehouseHandler: warehouseHandler,
		TransportHandler: transportHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
