// ABOUTME: This file implements the judgment client protocol against the oracle
// ABOUTME: Existence check, slot, quota, retries, then fallback plus DLQ on exhaustion
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

// judgmentService implementation.
type judgmentService struct {
	oracle    OracleClient
	judgments repository.JudgmentRepository
	topics    *config.TopicSet
	limiter   *ratelimit.WindowLimiter
	slots     *ratelimit.SlotPool
	dlq       DLQPublisher
	metrics   *metrics.Collector
	retryCfg  retry.RetryConfig
	logger    *slog.Logger
}

// NewJudgmentService creates a new judgment service.
func NewJudgmentService(
	oracle OracleClient,
	judgments repository.JudgmentRepository,
	topics *config.TopicSet,
	limiter *ratelimit.WindowLimiter,
	slots *ratelimit.SlotPool,
	dlqPublisher DLQPublisher,
	collector *metrics.Collector,
	retryCfg retry.RetryConfig,
	logger *slog.Logger,
) JudgmentService {
	return &judgmentService{
		oracle:    oracle,
		judgments: judgments,
		topics:    topics,
		limiter:   limiter,
		slots:     slots,
		dlq:       dlqPublisher,
		metrics:   collector,
		retryCfg:  retryCfg,
		logger:    logger,
	}
}

// JudgeArticle judges one article against each of its assigned topics.
// Keys that already hold a judgment are skipped without an oracle call.
func (s *judgmentService) JudgeArticle(ctx context.Context, article *domain.Article, topicIDs []string) ([]*domain.JudgmentRecord, error) {
	var records []*domain.JudgmentRecord

	for _, topicID := range topicIDs {
		record, err := s.JudgeTopic(ctx, article, topicID)
		if err != nil {
			if errors.Is(err, domain.ErrJudgmentExists) {
				continue
			}

			return records, err
		}

		records = append(records, record)
	}

	return records, nil
}

// JudgeTopic judges one (article, topic) key. The oracle is consulted at
// most once per key: an existing record short-circuits before any spend.
// Retry exhaustion resolves to a persisted degraded-fallback record plus a
// DLQ entry, never a dropped key.
func (s *judgmentService) JudgeTopic(ctx context.Context, article *domain.Article, topicID string) (*domain.JudgmentRecord, error) {
	topic, err := s.topics.Topic(topicID)
	if err != nil {
		return nil, err
	}

	exists, err := s.judgments.Exists(ctx, article.ID, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to check judgment existence: %w", err)
	}

	if exists {
		s.logger.InfoContext(ctx, "judgment exists, skipping oracle call",
			"article_id", article.ID, "topic_id", topicID)
		s.metrics.RecordSkippedExisting(topicID)

		return nil, domain.ErrJudgmentExists
	}

	record, callErr := s.callOracle(ctx, article, topic)
	if callErr != nil {
		// キャンセルはフォールバックではなく呼び出し元へそのまま返す
		if ctx.Err() != nil {
			return nil, callErr
		}

		return s.resolveExhaustion(ctx, article.ID, topicID, callErr)
	}

	// callOracle が成功した場合、最終試行のスロットはまだ保持されている
	defer s.slots.Release()

	inserted, err := s.judgments.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to persist judgment: %w", err)
	}

	if !inserted {
		// Another worker judged this key while we were calling the oracle.
		s.logger.WarnContext(ctx, "lost judgment insert race",
			"article_id", article.ID, "topic_id", topicID)

		return nil, domain.ErrJudgmentExists
	}

	return record, nil
}

// callOracle runs the oracle call under the retry policy. Each attempt
// acquires a concurrency slot and waits on the window quota before calling;
// a failed attempt releases the slot before the backoff sleep so slow
// retries do not starve other callers. On success the final attempt's slot
// stays held and the caller releases it after persisting. A schema violation
// counts as transient exactly once, then fails the attempt loop.
func (s *judgmentService) callOracle(ctx context.Context, article *domain.Article, topic *domain.TopicDefinition) (*domain.JudgmentRecord, error) {
	schemaViolations := 0

	classify := func(err error) bool {
		if errors.Is(err, domain.ErrOracleSchemaViolation) {
			schemaViolations++
			return schemaViolations <= 1
		}

		return IsRetryableError(err)
	}

	retrier := retry.NewRetrier(s.retryCfg, classify, s.logger)

	var record *domain.JudgmentRecord

	start := time.Now()
	err := retrier.Do(ctx, func() error {
		if acquireErr := s.slots.Acquire(ctx); acquireErr != nil {
			return acquireErr
		}

		if s.limiter.Remaining() == 0 {
			s.metrics.RecordRateLimitWait()
		}

		if waitErr := s.limiter.Wait(ctx); waitErr != nil {
			s.slots.Release()
			return waitErr
		}

		judged, judgeErr := s.oracle.Judge(ctx, article, topic)
		if judgeErr != nil {
			s.slots.Release()
			return judgeErr
		}

		record = judged

		return nil
	})

	s.metrics.RecordJudgment(topic.ID, time.Since(start), err == nil)

	if err != nil {
		return nil, err
	}

	return record, nil
}

// resolveExhaustion persists the degraded-fallback record and publishes the
// key to the DLQ. The pipeline continues; reprocessing lifts the fallback
// later if the oracle recovers.
func (s *judgmentService) resolveExhaustion(ctx context.Context, articleID, topicID string, cause error) (*domain.JudgmentRecord, error) {
	s.logger.ErrorContext(ctx, "oracle judgment exhausted, writing fallback",
		"article_id", articleID,
		"topic_id", topicID,
		"error", cause)

	fallback := domain.NewFallbackRecord(articleID, topicID, cause)

	inserted, err := s.judgments.InsertIfAbsent(ctx, fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to persist fallback judgment: %w", err)
	}

	if !inserted {
		return nil, domain.ErrJudgmentExists
	}

	s.metrics.RecordFallback(topicID)

	if err := s.dlq.PublishFailedJudgment(ctx, articleID, topicID, s.retryCfg.MaxAttempts, cause); err != nil {
		// The fallback record is already durable; a DLQ write failure only
		// delays reprocessing.
		s.logger.ErrorContext(ctx, "failed to publish to DLQ",
			"article_id", articleID, "topic_id", topicID, "error", err)
	}

	return fallback, nil
}
