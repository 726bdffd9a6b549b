package http

import (
	"net/http"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/idempotency"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/config"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/observability"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/handlers"
	customMW "github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	SaleHandler      *handlers.SaleHandler
	InventoryHandler *handlers.InventoryHandler
	ReportHandler    *handlers.ReportHandler
	HealthHandler    *handlers.HealthHandler

	IdempotencyStore idempotency.Store
	RedisClient      redis.UniversalClient
	Metrics          *observability.Metrics
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer

	Server config.ServerConfig
	Sale   config.SaleConfig
	Auth   config.AuthConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	timeout := deps.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", customMW.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Idempotency-Replayed"},
		AllowCredentials: deps.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	r.Get("/health", deps.HealthHandler.Health)
	r.Get("/health/live", deps.HealthHandler.Liveness)
	r.Get("/health/ready", deps.HealthHandler.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RequireAuth(deps.Auth.JWTSecret))
		if deps.Server.RateLimit > 0 {
			r.Use(customMW.RateLimit(deps.Server.RateLimit))
		}

		// Same-key requests are serialized before the replay lookup.
		createSale := []func(http.Handler) http.Handler{}
		if deps.RedisClient != nil {
			createSale = append(createSale, customMW.KeyLock(deps.RedisClient, deps.Sale.LockTTL))
		}
		if deps.IdempotencyStore != nil {
			createSale = append(createSale, customMW.Idempotency(deps.IdempotencyStore, deps.Sale.IdempotencyTTL))
		}

		r.With(createSale...).Post("/sales", deps.SaleHandler.CreateSale)
		r.Get("/sales", deps.SaleHandler.ListSales)
		r.Get("/sales/{id}", deps.SaleHandler.GetSale)

		r.Get("/products", deps.InventoryHandler.ListProducts)
		r.Post("/products", deps.InventoryHandler.UpsertProduct)
		r.Get("/products/{id}", deps.InventoryHandler.GetProduct)
		r.Post("/purchases", deps.InventoryHandler.RecordPurchase)

		r.Get("/reports/top-products", deps.ReportHandler.TopProducts)
	})

	return r
}
