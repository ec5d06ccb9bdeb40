// ABOUTME: This file constructs every application dependency in one place
// ABOUTME: Wiring order is config, storage, domain services, transport
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"bias-tracker/authors"
	"bias-tracker/classifier"
	"bias-tracker/config"
	"bias-tracker/consumer"
	"bias-tracker/dlq"
	"bias-tracker/driver"
	"bias-tracker/handler"
	"bias-tracker/metrics"
	"bias-tracker/orchestrator"
	"bias-tracker/ratelimit"
	"bias-tracker/repository"
	"bias-tracker/retry"
	"bias-tracker/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all constructed application components.
type Dependencies struct {
	Config    *config.Config
	Topics    *config.TopicSet
	DBPool    *pgxpool.Pool
	Logger    *slog.Logger
	Metrics   *metrics.Collector
	DLQ       *dlq.FileDLQManager
	Pipeline  *orchestrator.Pipeline
	Ranker    service.RankerService
	Reprocess service.ReprocessService
	Consumer  *consumer.Consumer

	QueryHandler   *handler.QueryHandler
	HealthHandler  *handler.HealthHandler
	MetricsHandler *handler.MetricsHandler
}

// BuildDependencies constructs all application dependencies.
// Returns a cleanup function that should be deferred.
func BuildDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Dependencies, func(), error) {
	topics, err := config.LoadTopics(cfg.Topics.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load topic configuration: %w", err)
	}

	dbPool, err := repository.InitPool(ctx, cfg.Database.DSN, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	articleRepo := repository.NewArticleRepository(dbPool, log)
	judgmentRepo := repository.NewJudgmentRepository(dbPool, log)
	authorRepo := repository.NewAuthorRepository(dbPool, log)
	comparisonRepo := repository.NewComparisonRepository(dbPool, log)
	rankingRepo := repository.NewRankingRepository(dbPool, log)

	collector := metrics.NewCollector(cfg.Metrics, log)
	dlqManager := dlq.NewFileDLQManager(cfg.DLQ, log)
	oracleClient := driver.NewOracleClient(cfg.Oracle, log)

	limiter := ratelimit.NewWindowLimiter(cfg.RateLimit.Window, cfg.RateLimit.CallsPerWindow, log)
	slots := ratelimit.NewSlotPool(int64(cfg.Oracle.Concurrency))

	retryCfg := retry.RetryConfig{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		BaseDelay:     cfg.Retry.BaseDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		JitterFactor:  cfg.Retry.JitterFactor,
	}

	ingestService := service.NewIngestService(
		articleRepo,
		classifier.New(topics, cfg.Topics.MinLanguageScore),
		authors.NewResolver(),
		collector,
		log,
	)

	judgmentService := service.NewJudgmentService(
		oracleClient,
		judgmentRepo,
		topics,
		limiter,
		slots,
		dlqManager,
		collector,
		retryCfg,
		log,
	)

	aggregatorService := service.NewAggregatorService(authorRepo, log)

	rankerService := service.NewRankerService(
		judgmentRepo,
		comparisonRepo,
		rankingRepo,
		topics,
		cfg.Ranker,
		log,
	)

	reprocessService := service.NewReprocessService(
		dlqManager,
		oracleClient,
		judgmentRepo,
		articleRepo,
		aggregatorService,
		topics,
		limiter,
		collector,
		retryCfg,
		log,
	)

	pipeline := orchestrator.NewPipeline(
		ingestService,
		judgmentService,
		aggregatorService,
		cfg.Oracle.Concurrency,
		log,
	)

	eventHandler := consumer.NewArticleEventHandler(pipeline, log)
	redisConsumer, err := consumer.NewConsumer(cfg.Consumer, eventHandler, log)
	if err != nil {
		dbPool.Close()
		return nil, nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	cleanup := func() {
		dbPool.Close()
	}

	return &Dependencies{
		Config:         cfg,
		Topics:         topics,
		DBPool:         dbPool,
		Logger:         log,
		Metrics:        collector,
		DLQ:            dlqManager,
		Pipeline:       pipeline,
		Ranker:         rankerService,
		Reprocess:      reprocessService,
		Consumer:       redisConsumer,
		QueryHandler:   handler.NewQueryHandler(judgmentRepo, authorRepo, rankingRepo, topics),
		HealthHandler:  handler.NewHealthHandler(),
		MetricsHandler: handler.NewMetricsHandler(collector),
	}, cleanup, nil
}
