package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/config"
	"github.com/benvon/productivity-assistant/internal/handlers"
	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/middleware"
	"github.com/benvon/productivity-assistant/internal/queue"
	"github.com/benvon/productivity-assistant/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging of model requests")
	devFlag := flag.Bool("dev", false, "Use human-readable console logs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.DebugMode = cfg.DebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{Debug: cfg.DebugMode, Development: *devFlag})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", cfg.DebugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_base_url", cfg.AIBaseURL),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("use_mock_data", cfg.UseMockData),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:  cfg.OTELEnabled && cfg.OTELEndpoint != "",
		Endpoint: cfg.OTELEndpoint,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()
	if cfg.OTELEnabled && cfg.OTELEndpoint == "" {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
	}

	deps, err := app.New(ctx, cfg, zapLogger, app.Options{
		ConnectQueue:  true,
		QueueRetries:  10,
		MigrateSchema: true,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_dependencies", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			zapLogger.Warn("failed_to_close_connections", zap.Error(err))
		}
	}()

	checks := make(map[string]handlers.CheckFunc)
	for name, check := range deps.HealthChecks() {
		checks[name] = check
	}
	healthChecker := handlers.NewHealthChecker(checks)
	itemHandler := handlers.NewItemHandler(deps.Assistant, zapLogger)

	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit, deps.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// gorilla/mux runs middleware in registration order, first registered outermost
	r := mux.NewRouter()
	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		r.Use(otelmux.Middleware(telemetry.DefaultServiceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.AllowedOrigins(), zapLogger))

	r.HandleFunc("/health", healthChecker.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rateLimitMW)
	api.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	api.Use(middleware.RequireJSON)
	api.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	itemHandler.RegisterRoutes(api)

	// Preflight requests are answered by the CORS middleware; this only gives them a route
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if deps.Queue != nil {
		sweeper := queue.NewDeadLetterSweeper(deps.Queue, time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_sweeper_stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Parsing waits on the model, so writes get the request timeout plus headroom
		WriteTimeout:   middleware.DefaultRequestTimeout + 10*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("server_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
