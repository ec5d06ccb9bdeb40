// ABOUTME: This file implements the ingest pipeline: dedup, classification, author resolution
// ABOUTME: Exactly one Article survives per content hash regardless of fetch concurrency
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bias-tracker/authors"
	"bias-tracker/classifier"
	"bias-tracker/domain"
	"bias-tracker/metrics"
	"bias-tracker/repository"
)

// ingestService implementation.
type ingestService struct {
	articles   repository.ArticleRepository
	classifier *classifier.Classifier
	resolver   *authors.Resolver
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	articles repository.ArticleRepository,
	topicClassifier *classifier.Classifier,
	resolver *authors.Resolver,
	collector *metrics.Collector,
	logger *slog.Logger,
) IngestService {
	return &ingestService{
		articles:   articles,
		classifier: topicClassifier,
		resolver:   resolver,
		metrics:    collector,
		logger:     logger,
	}
}

// Ingest processes one fetched article. Duplicates and topic misses are
// expected short-circuits surfaced as sentinel errors; everything else is a
// real failure.
func (s *ingestService) Ingest(ctx context.Context, fetched domain.FetchedArticle) (*IngestResult, error) {
	if strings.TrimSpace(fetched.Text) == "" {
		return nil, domain.ErrEmptyArticleText
	}

	hash := domain.ContentHash(fetched.Text)

	// Cheap read-side duplicate check. The insert below remains the
	// authoritative gate under concurrency.
	if _, err := s.articles.FindByID(ctx, hash); err == nil {
		s.logger.InfoContext(ctx, "duplicate fetch dropped", "article_id", hash, "source_id", fetched.SourceID)
		s.metrics.RecordIngest(true, false, false)

		return nil, domain.ErrDuplicateArticle
	} else if !errors.Is(err, domain.ErrArticleNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	classification := s.classifier.Classify(fetched.Text, fetched.DeclaredLanguage)

	topicIDs := classification.TopicIDs()
	if len(topicIDs) == 0 {
		s.logger.InfoContext(ctx, "article matches no topic",
			"article_id", hash,
			"source_id", fetched.SourceID,
			"language", classification.Language)
		s.metrics.RecordIngest(false, true, false)

		return nil, domain.ErrNoTopicMatch
	}

	article := domain.NewArticle(fetched, classification.Language)

	resolution, authorResolved := s.resolver.Resolve(fetched.Byline, fetched.Headline, fetched.Text)
	if authorResolved {
		article.AuthorKey = resolution.Key
	}

	inserted, err := s.articles.InsertIfAbsent(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("failed to persist article: %w", err)
	}

	if !inserted {
		// A concurrent fetch of the same content won the insert race.
		s.logger.InfoContext(ctx, "lost dedup race, dropping fetch", "article_id", article.ID)
		s.metrics.RecordIngest(true, false, false)

		return nil, domain.ErrDuplicateArticle
	}

	s.metrics.RecordIngest(false, false, authorResolved)

	s.logger.InfoContext(ctx, "article ingested",
		"article_id", article.ID,
		"source_id", article.SourceID,
		"language", article.Language,
		"topics", topicIDs,
		"author_resolved", authorResolved)

	return &IngestResult{
		Article:        article,
		Classification: classification,
		TopicIDs:       topicIDs,
		AuthorResolved: authorResolved,
	}, nil
}
