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

	"github.com/rs/zerolog/log"

	"github.com/searchiq/storefront/internal/adapters/cache"
	"github.com/searchiq/storefront/internal/adapters/database"
	"github.com/searchiq/storefront/internal/adapters/events"
	"github.com/searchiq/storefront/internal/adapters/history"
	"github.com/searchiq/storefront/internal/adapters/session"
	"github.com/searchiq/storefront/internal/api/handlers"
	"github.com/searchiq/storefront/internal/api/routes"
	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/domain/repositories"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
	"github.com/searchiq/storefront/internal/infrastructure/clients/postgres"
	"github.com/searchiq/storefront/internal/infrastructure/clients/redis"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	"github.com/searchiq/storefront/internal/presentation"
	"github.com/searchiq/storefront/pkg/config"
	"github.com/searchiq/storefront/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	log.Info().
		Str("service", cfg.OTEL.ServiceName).
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", cfg.Env).
		Str("backend", cfg.Backend.BaseURL).
		Msg("Starting storefront")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableOTelLogs(cfg.OTEL.ServiceName)
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}

	health := handlers.NewHealthHandler(cfg.OTEL.ServiceName)
	sessionTTL := cfg.Session.RememberMeTTL()

	// Redis backs sessions, history, cache and the analysis bus; without it
	// everything lives in process memory.
	var (
		sessionStore  providers.SessionStore
		historyStore  providers.HistoryStore
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis, retry.DefaultConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory stores")
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
		health.AddCheck("redis", redisClient)
		sessionStore = session.NewRedisStore(redisClient, sessionTTL)
		historyStore = history.NewRedisHistory(redisClient, cfg.UI.HistoryMaxEntries, sessionTTL)
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Msg("Redis-backed session, history, cache and event bus initialized")
	} else {
		sessionStore = session.NewMemoryStore(sessionTTL)
		historyStore = history.NewMemoryHistory(cfg.UI.HistoryMaxEntries, sessionTTL)
		cacheProvider = cache.NewMemoryAdapter()
		eventBus = events.NewMemoryEventBus()
		log.Warn().Msg("Running with in-memory session, history, cache and event bus")
	}
	defer eventBus.Close()

	var analyticsRepo repositories.SearchAnalyticsRepository
	if cfg.Analytics.Enabled {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database, retry.DefaultConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Search analytics disabled: PostgreSQL unavailable")
		} else {
			defer pgClient.Close()
			health.AddCheck("postgres", pgClient)
			analyticsRepo = database.NewSearchAnalyticsAdapter(pgClient, metrics)
			log.Info().Msg("Search analytics enabled")
		}
	}

	renderer, err := presentation.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	api := backendapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout(), metrics)

	gate := services.NewLoadingGate()
	analytics := services.NewSearchAnalyticsService(analyticsRepo)
	authService := services.NewAuthSessionService(sessionStore, api)
	notificationService := services.NewNotificationService(sessionStore)
	searchService := services.NewSearchService(api, historyStore, analytics, gate, cfg.UI.SearchMaxResults)
	sparePartsService := services.NewSparePartsService(api, cache.NewJSONCache(cacheProvider, metrics), analytics, gate, cfg.UI.SearchMaxResults)
	analysisService := services.NewAnalysisService(api, eventBus, services.NewGenerations(), cfg.UI.AnalysisDebounce())
	defer analysisService.Close()

	authService.OnLogout(analysisService.Forget)

	ui := handlers.NewUISupport(authService, notificationService)
	router := routes.NewRouter(routes.Handlers{
		Health:       health,
		Auth:         handlers.NewAuthHandler(ui, authService, renderer, cfg.Session),
		Page:         handlers.NewPageHandler(ui, renderer, cfg.UI.AnalysisDebounceMs),
		Search:       handlers.NewSearchHandler(ui, searchService, analytics, renderer),
		SpareParts:   handlers.NewSparePartsHandler(ui, sparePartsService, renderer),
		Analysis:     handlers.NewAnalysisHandler(ui, analysisService),
		Notification: handlers.NewNotificationHandler(ui, renderer),
	}, authService, cfg, metrics)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddr).Msg("Storefront server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Storefront server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Storefront server stopped")
}
