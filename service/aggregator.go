// ABOUTME: This file folds judgments into per-author profiles under keyed locks
// ABOUTME: Lock acquisition timeouts surface as contention errors and are retried
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bias-tracker/domain"
	"bias-tracker/repository"
)

const (
	// lockTimeout bounds how long one update may wait on an author's lock.
	lockTimeout = 5 * time.Second

	// contentionRetries is how many acquisition attempts one update gets
	// before the contention error reaches the caller.
	contentionRetries = 3
)

// keyedLock serializes profile updates per author key. Different authors
// proceed in parallel.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[string]chan struct{})}
}

func (l *keyedLock) acquire(ctx context.Context, key string, timeout time.Duration) error {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrAggregationContention
	case <-ctx.Done():
		return fmt.Errorf("aggregation cancelled: %w", ctx.Err())
	}
}

func (l *keyedLock) release(key string) {
	l.mu.Lock()
	ch := l.locks[key]
	l.mu.Unlock()

	<-ch
}

// aggregatorService implementation.
type aggregatorService struct {
	authors repository.AuthorRepository
	locks   *keyedLock
	logger  *slog.Logger
}

// NewAggregatorService creates a new aggregator service.
func NewAggregatorService(authorRepo repository.AuthorRepository, logger *slog.Logger) AggregatorService {
	return &aggregatorService{
		authors: authorRepo,
		locks:   newKeyedLock(),
		logger:  logger,
	}
}

// Apply folds one judgment into the author's profile. Articles without a
// resolved author contribute nothing. A judgment is never dropped on
// contention: the update retries before the error reaches the caller.
func (s *aggregatorService) Apply(ctx context.Context, article *domain.Article, record *domain.JudgmentRecord) error {
	if article.AuthorKey == "" {
		return nil
	}

	return s.withLock(ctx, article.AuthorKey, func() error {
		profile, err := s.loadOrCreate(ctx, article)
		if err != nil {
			return err
		}

		profile.RecordVariant(article.Byline, article.SourceID)
		profile.Counts(record.TopicID)[record.Direction]++
		profile.TotalJudged++
		profile.AvgConfidence += (record.Confidence - profile.AvgConfidence) / float64(profile.TotalJudged)
		profile.LastUpdated = time.Now().UTC()

		if err := s.authors.Save(ctx, profile); err != nil {
			return fmt.Errorf("failed to save author profile: %w", err)
		}

		s.logger.InfoContext(ctx, "author profile updated",
			"author_key", profile.Key,
			"topic_id", record.TopicID,
			"direction", record.Direction,
			"total_judged", profile.TotalJudged)

		return nil
	})
}

// ApplyReplace swaps a displaced judgment for its replacement in the
// author's counts. Used when reprocessing lifts a fallback record.
func (s *aggregatorService) ApplyReplace(ctx context.Context, article *domain.Article, previous, replacement *domain.JudgmentRecord) error {
	if article.AuthorKey == "" {
		return nil
	}

	return s.withLock(ctx, article.AuthorKey, func() error {
		profile, err := s.loadOrCreate(ctx, article)
		if err != nil {
			return err
		}

		counts := profile.Counts(previous.TopicID)
		if counts[previous.Direction] > 0 {
			counts[previous.Direction]--
		}

		profile.Counts(replacement.TopicID)[replacement.Direction]++

		if profile.TotalJudged > 0 {
			profile.AvgConfidence += (replacement.Confidence - previous.Confidence) / float64(profile.TotalJudged)
		}

		profile.LastUpdated = time.Now().UTC()

		if err := s.authors.Save(ctx, profile); err != nil {
			return fmt.Errorf("failed to save author profile: %w", err)
		}

		s.logger.InfoContext(ctx, "author profile judgment replaced",
			"author_key", profile.Key,
			"topic_id", replacement.TopicID,
			"previous_direction", previous.Direction,
			"direction", replacement.Direction)

		return nil
	})
}

func (s *aggregatorService) withLock(ctx context.Context, key string, update func() error) error {
	var err error

	for attempt := 1; attempt <= contentionRetries; attempt++ {
		err = s.locks.acquire(ctx, key, lockTimeout)
		if err == nil {
			defer s.locks.release(key)

			return update()
		}

		if !errors.Is(err, domain.ErrAggregationContention) {
			return err
		}

		s.logger.WarnContext(ctx, "author lock contention, retrying",
			"author_key", key, "attempt", attempt)
	}

	return err
}

func (s *aggregatorService) loadOrCreate(ctx context.Context, article *domain.Article) (*domain.AuthorProfile, error) {
	profile, err := s.authors.Find(ctx, article.AuthorKey)
	if err == nil {
		return profile, nil
	}

	if !errors.Is(err, domain.ErrAuthorNotFound) {
		return nil, fmt.Errorf("failed to load author profile: %w", err)
	}

	displayName := article.Byline
	if displayName == "" {
		displayName = article.AuthorKey
	}

	return domain.NewAuthorProfile(article.AuthorKey, displayName), nil
}
