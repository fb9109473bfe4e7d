package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drugfactsio/backend/internal/adapters/cache"
	"github.com/drugfactsio/backend/internal/adapters/database"
	"github.com/drugfactsio/backend/internal/adapters/events"
	"github.com/drugfactsio/backend/internal/adapters/providers/fda"
	"github.com/drugfactsio/backend/internal/adapters/providers/webhook"
	"github.com/drugfactsio/backend/internal/adapters/search"
	"github.com/drugfactsio/backend/internal/api/handlers"
	"github.com/drugfactsio/backend/internal/api/middleware"
	"github.com/drugfactsio/backend/internal/api/routes"
	"github.com/drugfactsio/backend/internal/application/services"
	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/anthropic"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/openfda"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/postgres"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/redis"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/typesense"
	"github.com/drugfactsio/backend/internal/infrastructure/observability"
	"github.com/drugfactsio/backend/pkg/breaker"
	"github.com/drugfactsio/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logging
	env := os.Getenv("ENV")
	if env == "" {
		env = "production"
	}
	observability.InitLogger(cfg.OTEL.ServiceName, env)

	log.Info().
		Str("service", cfg.OTEL.ServiceName).
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", env).
		Msg("Starting API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized successfully")

	// Initialize Redis client. The application works without caching.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis client")
	} else {
		defer redisClient.Close()
		log.Info().Msg("Redis client initialized successfully")
	}

	// Initialize Typesense client
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Typesense client")
	} else {
		log.Info().Msg("Typesense client initialized successfully")
	}

	// Initialize adapters
	labelAdapter := database.NewDrugLabelAdapter(pgClient)
	enrichmentAdapter := database.NewDrugEnrichmentAdapter(pgClient)
	relatedAdapter := database.NewRelatedDrugAdapter(pgClient)

	var searchRepo repositories.DrugSearchRepository
	if typesenseClient != nil {
		adapter := search.NewTypesenseAdapter(typesenseClient)
		if err := adapter.InitSchema(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
		}
		searchRepo = adapter
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Msg("Event bus initialized successfully")
	} else {
		log.Warn().Msg("Event bus disabled (Redis not available)")
	}

	// Circuit breakers and health tracking shared across the pipeline
	registry := breaker.NewRegistry(breaker.DefaultConfig())
	tracker := services.NewHealthTracker()

	// openFDA gateway
	fdaGateway := fda.NewGateway(openfda.NewClient(&cfg.OpenFDA), registry)

	// Anthropic content provider
	var contentProvider providers.ContentProvider
	if cfg.Anthropic.APIKey == "" {
		log.Warn().Msg("ANTHROPIC_API_KEY is not set; serving fallback enrichment content")
	} else {
		anthropicClient, err := anthropic.NewClient(&cfg.Anthropic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Anthropic client")
		} else {
			defer anthropicClient.Close()
			contentProvider = anthropicClient
		}
	}

	// Frontend cache-invalidation webhook
	var notifier providers.WebhookNotifier
	if wh := webhook.NewNotifier(&cfg.Webhook); wh.Enabled() {
		notifier = wh
		log.Info().Msg("Frontend webhook notifier configured")
	}

	// Initialize services
	generationService := services.NewContentGenerationService(contentProvider, tracker, registry)
	relatedService := services.NewRelatedDrugService(fdaGateway, cfg.Enrichment.RelatedDrugTarget, cfg.Enrichment.RelatedDrugRetries)
	enrichmentService := services.NewEnrichmentService(
		labelAdapter,
		enrichmentAdapter,
		relatedAdapter,
		searchRepo,
		fdaGateway,
		generationService,
		relatedService,
		eventBus,
		&cfg.Enrichment,
	)

	var cacheInvalidationService *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus, notifier)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
		} else {
			log.Info().Msg("Cache invalidation service started successfully")
		}
	}

	// Initialize handlers
	drugHandler := handlers.NewDrugHandler(enrichmentService, labelAdapter, enrichmentAdapter, relatedAdapter, searchRepo)
	healthHandler := handlers.NewHealthHandler(tracker, registry)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Info().Msg("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(drugHandler, healthHandler, cacheMiddleware, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	log.Info().Msg("Server stopped")
}
