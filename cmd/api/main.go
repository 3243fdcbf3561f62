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

	"github.com/medicrew/backend/internal/adapters/providers/llm"
	"github.com/medicrew/backend/internal/api/handlers"
	"github.com/medicrew/backend/internal/api/routes"
	"github.com/medicrew/backend/internal/app"
	"github.com/medicrew/backend/internal/application/orchestrator"
	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	"github.com/medicrew/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogLevel)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}
	registry := observability.NewRegistry()
	domainMetrics := observability.NewDomainMetrics(registry)

	repos, err := app.OpenRepositories(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.Close()

	messaging, err := app.OpenMessaging(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize cache and event bus")
	}

	// AI team
	generator := llm.NewTextGenerator(ctx, cfg, domainMetrics)
	orch := orchestrator.New(generator, orchestrator.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	orch.SetMetrics(metrics, domainMetrics)

	// Initialize services
	queueService := services.NewQueueService(repos.Queue)
	queueService.SetEventBus(messaging.EventBus)
	queueService.SetMetrics(domainMetrics)

	portalService := services.NewPortalService(repos.SymptomChecks, repos.DoctorNotes, queueService, orch, messaging.Cache)
	portalService.SetEventBus(messaging.EventBus)
	portalService.SetMetrics(metrics)

	consultationService := services.NewConsultationService(orch, repos.Consultations, repos.Patients, repos.SymptomChecks)
	consultationService.SetEventBus(messaging.EventBus)

	patientService := services.NewPatientService(repos.Patients, repos.Consultations, repos.Notifications)
	doctorService := services.NewDoctorService(repos.Doctors)
	notificationService := services.NewNotificationService(repos.Notifications)
	notificationService.SetEventBus(messaging.EventBus)
	reportService := services.NewReportService(repos.SymptomChecks, repos.DoctorNotes, cfg.Report.FontPath)

	cacheInvalidation := services.NewCacheInvalidationService(messaging.Cache, messaging.EventBus)
	if err := cacheInvalidation.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start cache invalidation")
		cacheInvalidation = nil
	}

	// Initialize handlers
	consultHandler := handlers.NewConsultHandler(consultationService)
	portalHandler := handlers.NewPortalHandler(portalService, queueService, reportService)
	patientHandler := handlers.NewPatientHandler(patientService, doctorService, consultationService, notificationService)
	sseHandler := handlers.NewSSEHandler(messaging.EventBus)
	consultLimiter := handlers.NewRateLimiter(messaging.Cache, "ratelimit:consult:", cfg.RateLimit.ConsultPerHour, time.Hour)
	consultLimiter.SetTrustProxy(cfg.RateLimit.TrustProxyHeaders)

	opts := routes.Options{
		Metrics:        metrics,
		MetricsPath:    cfg.Metrics.Path,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Metrics.Enabled {
		opts.Registry = registry
	}
	router := routes.NewRouter(consultHandler, portalHandler, patientHandler, sseHandler, consultLimiter, opts)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // 0 keeps consultation streams open
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Str("provider", generator.Name()).Msg("MediCrew API starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	if cacheInvalidation != nil {
		cacheInvalidation.Stop()
	}
	if err := messaging.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing event bus")
	}

	logger.Info().Msg("Server stopped")
}
