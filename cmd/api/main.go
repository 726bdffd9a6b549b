package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	inventoryApp "github.com/cobasjano/JC-sistema-sub001/internal/application/inventory"
	reportApp "github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	saleApp "github.com/cobasjano/JC-sistema-sub001/internal/application/sale"
	"github.com/cobasjano/JC-sistema-sub001/internal/bootstrap"
	infraRedis "github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/redis"
	appHTTP "github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/handlers"
	"github.com/cobasjano/JC-sistema-sub001/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "pos-api", "pos")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	saleRepo := postgres.NewSaleRepository(app.Pool)
	productRepo := postgres.NewProductRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	ranking := infraRedis.NewRanking(app.Redis)

	// --- Application services ---
	createSaleUC := saleApp.NewCreateSaleUseCase(saleRepo, productRepo, outboxRepo, txManager, saleApp.WithRecorder(app.Metrics))
	getSaleUC := saleApp.NewGetSaleUseCase(saleRepo)
	listSalesUC := saleApp.NewListSalesUseCase(saleRepo)
	upsertProductUC := inventoryApp.NewUpsertProductUseCase(productRepo)
	getProductUC := inventoryApp.NewGetProductUseCase(productRepo)
	listProductsUC := inventoryApp.NewListProductsUseCase(productRepo)
	recordPurchaseUC := inventoryApp.NewRecordPurchaseUseCase(productRepo, txManager)
	topProductsUC := reportApp.NewTopProductsUseCase(ranking, productRepo)

	// --- Build router ---
	router := appHTTP.NewRouter(appHTTP.RouterDeps{
		SaleHandler:      handlers.NewSaleHandler(createSaleUC, getSaleUC, listSalesUC),
		InventoryHandler: handlers.NewInventoryHandler(upsertProductUC, getProductUC, listProductsUC, recordPurchaseUC),
		ReportHandler:    handlers.NewReportHandler(topProductsUC),
		HealthHandler: handlers.NewHealthHandler(
			handlers.Check{Name: "postgres", Ping: app.Pool.Ping},
			handlers.Check{Name: "redis", Ping: func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }},
		),
		IdempotencyStore: idempotencyRepo,
		RedisClient:      app.Redis,
		Metrics:          app.Metrics,
		Server:           app.Config.Server,
		Sale:             app.Config.Sale,
		Auth:             app.Config.Auth,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
