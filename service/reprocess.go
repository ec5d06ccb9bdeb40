// ABOUTME: This file re-judges DLQ'd keys once the oracle recovers
// ABOUTME: Successful re-judgments replace fallback records and fix author counts
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bias-tracker/config"
	"bias-tracker/domain"
	"bias-tracker/metrics"
	"bias-tracker/ratelimit"
	"bias-tracker/repository"
	"bias-tracker/retry"
)

// reprocessService implementation.
type reprocessService struct {
	source     DLQSource
	oracle     OracleClient
	judgments  repository.JudgmentRepository
	articles   repository.ArticleRepository
	aggregator AggregatorService
	topics     *config.TopicSet
	limiter    *ratelimit.WindowLimiter
	metrics    *metrics.Collector
	retryCfg   retry.RetryConfig
	logger     *slog.Logger
}

// NewReprocessService creates a new reprocess service.
func NewReprocessService(
	source DLQSource,
	oracle OracleClient,
	judgments repository.JudgmentRepository,
	articles repository.ArticleRepository,
	aggregator AggregatorService,
	topics *config.TopicSet,
	limiter *ratelimit.WindowLimiter,
	collector *metrics.Collector,
	retryCfg retry.RetryConfig,
	logger *slog.Logger,
) ReprocessService {
	return &reprocessService{
		source:     source,
		oracle:     oracle,
		judgments:  judgments,
		articles:   articles,
		aggregator: aggregator,
		topics:     topics,
		limiter:    limiter,
		metrics:    collector,
		retryCfg:   retryCfg,
		logger:     logger,
	}
}

// Reprocess attempts up to limit DLQ'd keys and returns how many were
// lifted into real judgments. Keys that fail again stay queued; spend
// control applies exactly as on the primary path.
func (s *reprocessService) Reprocess(ctx context.Context, limit int) (int, error) {
	messages, err := s.source.ListFailed(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list DLQ messages: %w", err)
	}

	reprocessed := 0

	for _, message := range messages {
		if err := ctx.Err(); err != nil {
			return reprocessed, err
		}

		lifted, err := s.reprocessOne(ctx, message.ArticleID, message.TopicID)
		if err != nil {
			s.logger.WarnContext(ctx, "reprocess attempt failed, key stays queued",
				"article_id", message.ArticleID,
				"topic_id", message.TopicID,
				"error", err)

			continue
		}

		if err := s.source.Ack(ctx, message); err != nil {
			s.logger.ErrorContext(ctx, "failed to ack DLQ message", "message_id", message.ID, "error", err)
		}

		if lifted {
			reprocessed++
		}
	}

	s.logger.InfoContext(ctx, "reprocess pass completed",
		"attempted", len(messages), "reprocessed", reprocessed)

	return reprocessed, nil
}

// reprocessOne re-judges a single DLQ'd key. It returns true when the
// fallback was lifted; false with a nil error means the entry is stale and
// should be acked without an oracle call.
func (s *reprocessService) reprocessOne(ctx context.Context, articleID, topicID string) (bool, error) {
	topic, err := s.topics.Topic(topicID)
	if err != nil {
		return false, err
	}

	existing, err := s.judgments.Find(ctx, articleID, topicID)
	if err != nil {
		return false, fmt.Errorf("failed to load judgment for reprocessing: %w", err)
	}

	if !existing.IsFallback() {
		// 再配送された古いDLQエントリ。本判定は既にあるのでACKして終わる
		s.logger.InfoContext(ctx, "key already holds a genuine judgment, dropping stale DLQ entry",
			"article_id", articleID, "topic_id", topicID)

		return false, nil
	}

	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return false, fmt.Errorf("failed to load article for reprocessing: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}

	retrier := retry.NewRetrier(s.retryCfg, IsRetryableError, s.logger)

	var record *domain.JudgmentRecord

	start := time.Now()
	err = retrier.Do(ctx, func() error {
		judged, judgeErr := s.oracle.Judge(ctx, article, topic)
		if judgeErr != nil {
			return judgeErr
		}

		record = judged

		return nil
	})

	s.metrics.RecordJudgment(topicID, time.Since(start), err == nil)

	if err != nil {
		return false, err
	}

	previous, err := s.judgments.Replace(ctx, record)
	if err != nil {
		if errors.Is(err, domain.ErrJudgmentExists) {
			// Lost the race to the primary path; the genuine record stands.
			s.logger.WarnContext(ctx, "judgment was replaced concurrently, keeping the existing record",
				"article_id", articleID, "topic_id", topicID)

			return false, nil
		}

		return false, fmt.Errorf("failed to replace fallback judgment: %w", err)
	}

	if err := s.aggregator.ApplyReplace(ctx, article, previous, record); err != nil {
		if errors.Is(err, domain.ErrAggregationContention) {
			return false, err
		}

		return false, fmt.Errorf("failed to update author profile: %w", err)
	}

	s.logger.InfoContext(ctx, "fallback judgment lifted",
		"article_id", articleID,
		"topic_id", topicID,
		"direction", record.Direction)

	return true, nil
}
