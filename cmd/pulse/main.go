package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulseboard/pulse/pkg/analytics"
	"github.com/pulseboard/pulse/pkg/cache"
	"github.com/pulseboard/pulse/pkg/config"
	"github.com/pulseboard/pulse/pkg/eventstore"
	"github.com/pulseboard/pulse/pkg/httputil"
	"github.com/pulseboard/pulse/pkg/ingest"
	"github.com/pulseboard/pulse/pkg/llm"
	"github.com/pulseboard/pulse/pkg/middleware"
	"github.com/pulseboard/pulse/pkg/nlquery"
	"github.com/pulseboard/pulse/pkg/observability"
	"github.com/pulseboard/pulse/pkg/realtime"
	"github.com/pulseboard/pulse/pkg/tenant"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting pulse analytics service")

	// Durable event store.
	store, err := eventstore.Open(eventstore.Config{
		DSN:          cfg.ClickHouse.DSN,
		MaxOpenConns: cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns: cfg.ClickHouse.MaxIdleConns,
		WriteTimeout: cfg.ClickHouse.WriteTimeout,
		QueryTimeout: cfg.ClickHouse.QueryTimeout,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to event store")
		os.Exit(1)
	}
	defer store.Close()

	// Tenant credentials and query history live in Postgres.
	pg, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		logger.WithError(err).Error("Failed to open postgres")
		os.Exit(1)
	}
	defer pg.Close()
	pg.SetMaxOpenConns(cfg.Postgres.MaxConns)
	if err := pg.Ping(); err != nil {
		logger.WithError(err).Error("Failed to ping postgres")
		os.Exit(1)
	}

	// Redis backs the recent-events cache, the response cache, and the
	// rate limiter. The service degrades without it rather than failing.
	var redisClient = connectRedis(cfg, logger)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	hub := realtime.NewHub(logger, metrics)
	defer hub.Shutdown()

	var (
		recent    *cache.Recent
		responses *cache.Responses
		limiter   *middleware.EventRateLimiter
	)
	if redisClient != nil {
		recent = cache.NewRecent(redisClient, cfg.Redis.RecentMaxLen, cfg.Redis.RecentTTL)
		responses = cache.NewResponses(redisClient, cfg.Redis.ResponseTTL)
		limiter = middleware.NewEventRateLimiter(redisClient, cfg.Ingest.EventsPerMinute)
	}

	resolver := tenant.NewResolver(pg)
	auth := middleware.NewAuth(resolver)

	ingestSvc := ingest.NewService(store, recent, hub, limiter, logger, metrics,
		cfg.Ingest.MaxBatchSize, cfg.Redis.PublishTimeout)
	ingestHandlers := ingest.NewHandlers(ingestSvc, logger)

	history := nlquery.NewHistory(pg)
	querySvc := nlquery.NewService(store, llm.NewOpenAI(cfg.LLM), history, logger, metrics, cfg.Query.RowCap)
	queryHandlers := nlquery.NewHandlers(querySvc, history, logger)

	analyticsSvc := analytics.NewService(store.DB(), responses, hub, logger, metrics)
	analyticsHandlers := analytics.NewHandlers(analyticsSvc, logger)

	wsHandler := realtime.NewHandler(hub, logger)

	r := mux.NewRouter()
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(auth.Handler)

	apiRouter.HandleFunc("/events", ingestHandlers.IngestSingle).Methods(http.MethodPost)
	apiRouter.HandleFunc("/events/batch", ingestHandlers.IngestBatch).Methods(http.MethodPost)
	apiRouter.HandleFunc("/events/recent", ingestHandlers.Recent).Methods(http.MethodGet)

	apiRouter.HandleFunc("/query", queryHandlers.Ask).Methods(http.MethodPost)
	apiRouter.HandleFunc("/query/history", queryHandlers.HistoryList).Methods(http.MethodGet)

	apiRouter.HandleFunc("/analytics/overview", analyticsHandlers.Overview).Methods(http.MethodGet)
	apiRouter.HandleFunc("/analytics/dau", analyticsHandlers.DailyActiveUsers).Methods(http.MethodGet)
	apiRouter.HandleFunc("/analytics/funnel", analyticsHandlers.Funnel).Methods(http.MethodPost)
	apiRouter.HandleFunc("/analytics/retention", analyticsHandlers.Retention).Methods(http.MethodGet)
	apiRouter.HandleFunc("/analytics/pages", analyticsHandlers.TopPages).Methods(http.MethodGet)
	apiRouter.HandleFunc("/analytics/realtime", analyticsHandlers.Realtime).Methods(http.MethodGet)

	apiRouter.Handle("/realtime", wsHandler).Methods(http.MethodGet)

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(logger),
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(nil),
		httputil.MaxBytesMiddleware(1<<20),
	)(metrics.InstrumentHandler("api", r))

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate listener so probes and scrapes
	// stay off the public port.
	healthChecker := observability.NewHealthChecker(store.DB(), pg, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, server, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		hub.Shutdown()
		return nil
	})

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", server.Addr).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// connectRedis connects the shared Redis client. Redis is an availability
// enhancement here, not a dependency: caches and rate limiting are simply
// disabled when it cannot be reached.
func connectRedis(cfg *config.Config, logger *observability.Logger) *redis.Client {
	if !cfg.Redis.CacheEnabled {
		logger.Info("Redis caching disabled by configuration")
		return nil
	}
	client, err := cache.NewClient(cache.Config{
		URL:        cfg.Redis.URL,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without caches and rate limiting")
		return nil
	}
	return client
}
