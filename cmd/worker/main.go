package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/benvon/productivity-assistant/internal/app"
	"github.com/benvon/productivity-assistant/internal/config"
	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/telemetry"
	"github.com/benvon/productivity-assistant/internal/workers"
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
	if err := cfg.RequireQueue(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg.DebugMode = cfg.DebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{Debug: cfg.DebugMode, Development: *devFlag})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTELEnabled && cfg.OTELEndpoint != "",
		ServiceName: telemetry.DefaultServiceName + "-worker",
		Endpoint:    cfg.OTELEndpoint,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	deps, err := app.New(ctx, cfg, zapLogger, app.Options{ConnectQueue: true, QueueRetries: 10})
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_dependencies", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			zapLogger.Warn("failed_to_close_connections", zap.Error(err))
		}
	}()

	reindexer := workers.NewReindexer(deps.Assistant, deps.Queue, zapLogger)

	msgChan, errChan, err := deps.Queue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	zapLogger.Info("worker_started", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			zapLogger.Info("worker_stopped")
			return
		case msg, ok := <-msgChan:
			if !ok {
				zapLogger.Info("message_channel_closed")
				return
			}
			if err := reindexer.ProcessJob(ctx, msg); err != nil {
				job := msg.Job()
				zapLogger.Error("failed_to_process_job",
					zap.String("job_id", job.ID.String()),
					zap.String("job_type", string(job.Type)),
					zap.Error(err),
				)
			}
		}
	}
}
