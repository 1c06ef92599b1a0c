// Package app wires configuration into a ready-to-use assistant. It is shared
// by the server, the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/productivity-assistant/internal/config"
	"github.com/benvon/productivity-assistant/internal/database"
	"github.com/benvon/productivity-assistant/internal/ingest"
	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/pipeline"
	"github.com/benvon/productivity-assistant/internal/queue"
	"github.com/benvon/productivity-assistant/internal/services/ai"
	"github.com/benvon/productivity-assistant/internal/services/index"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options selects which optional dependencies are connected
type Options struct {
	// ConnectQueue dials RabbitMQ when RABBITMQ_URL is set
	ConnectQueue bool
	// QueueRetries is the number of extra dial attempts, for RabbitMQ starting up alongside us
	QueueRetries int
	// MigrateSchema applies the schema on startup
	MigrateSchema bool
}

// App holds the connected dependencies and the assistant built on them
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *database.DB
	Redis     *redis.Client
	Index     *index.RedisIndex
	Queue     *queue.RabbitMQQueue
	Assistant *pipeline.Assistant
}

// New connects to Postgres and Redis, optionally RabbitMQ, and builds the pipeline
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	log = logger.OrNop(log)
	a := &App{Config: cfg, Logger: log}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.DB = db
	log.Info("connected_to_database")

	if opts.MigrateSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	a.Redis = redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = a.Redis.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("connected_to_redis")

	var scheduler pipeline.ReindexScheduler
	if opts.ConnectQueue && cfg.RabbitMQURL != "" {
		q, err := dialQueue(ctx, cfg.RabbitMQURL, opts.QueueRetries, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Queue = q
		scheduler = queue.NewScheduler(q)
	} else {
		log.Info("index_repair_queue_disabled")
	}

	embedder := index.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.AIBaseURL, cfg.EmbeddingModel)
	a.Index = index.NewRedisIndex(a.Redis, embedder, cfg.IndexPrefix, log)

	extractor := ai.NewOpenAIExtractor(ai.Options{
		APIKey:          cfg.OpenAIKey,
		BaseURL:         cfg.AIBaseURL,
		Model:           cfg.AIModel,
		ParseTimeout:    cfg.ParseTimeout,
		EnrichTimeout:   cfg.EnrichTimeout,
		ParseMaxTokens:  cfg.ParseMaxTokens,
		EnrichMaxTokens: cfg.EnrichMaxTokens,
		DebugMode:       cfg.DebugMode,
	}, ai.NewTokenBudget(), log)

	store := database.NewItemRepository(db)
	calendar := ingest.NewCalendarSource(
		ingest.NewLoader(models.SourceCalendar, cfg.UseMockData, cfg.CalendarMockFile, log), log)
	email := ingest.NewEmailSource(
		ingest.NewLoader(models.SourceEmail, cfg.UseMockData, cfg.EmailMockFile, log), log)

	processor := pipeline.NewProcessor(store, a.Index, scheduler, log)
	a.Assistant = pipeline.NewAssistant(pipeline.Deps{
		Store:        store,
		Index:        a.Index,
		Extractor:    extractor,
		Processor:    processor,
		Orchestrator: pipeline.NewOrchestrator(calendar, email, store, extractor, processor, log),
		Logger:       log,
	})

	return a, nil
}

func dialQueue(ctx context.Context, url string, retries int, log *zap.Logger) (*queue.RabbitMQQueue, error) {
	const initialDelay = 2 * time.Second
	const maxDelay = 30 * time.Second

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, log)
		if err == nil {
			log.Info("connected_to_rabbitmq")
			return q, nil
		}
		lastErr = err
		if attempt == retries {
			break
		}

		delay := min(initialDelay*time.Duration(1<<uint(attempt)), maxDelay)
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", retries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq: %w", lastErr)
}

// HealthChecks returns a check per connected dependency
func (a *App) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": a.DB.HealthCheck,
		"index":    a.Index.HealthCheck,
	}
	if a.Queue != nil {
		checks["queue"] = a.Queue.HealthCheck
	}
	return checks
}

// Close releases every connection that was opened
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
