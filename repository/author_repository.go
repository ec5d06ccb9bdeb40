// ABOUTME: This file implements author profile persistence as upserted rows
// ABOUTME: Topic counts and variants are stored as jsonb documents
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"bias-tracker/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// authorRepository implementation.
type authorRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewAuthorRepository creates a new author repository.
func NewAuthorRepository(db *pgxpool.Pool, logger *slog.Logger) AuthorRepository {
	return &authorRepository{
		db:     db,
		logger: logger,
	}
}

// Find loads one author profile by its normalized key.
func (r *authorRepository) Find(ctx context.Context, key string) (*domain.AuthorProfile, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to find author: database connection is nil")
	}

	query := `
		SELECT key, display_name, variants, sources, topic_counts, total_judged, avg_confidence, last_updated
		FROM author_profiles
		WHERE key = $1
	`

	var profile domain.AuthorProfile

	var variants, sources, topicCounts []byte

	err := r.db.QueryRow(ctx, query, key).Scan(
		&profile.Key,
		&profile.DisplayName,
		&variants,
		&sources,
		&topicCounts,
		&profile.TotalJudged,
		&profile.AvgConfidence,
		&profile.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuthorNotFound
		}

		r.logger.ErrorContext(ctx, "failed to find author", "error", err, "key", key)
		return nil, fmt.Errorf("failed to find author: %w", err)
	}

	if err := json.Unmarshal(variants, &profile.Variants); err != nil {
		return nil, fmt.Errorf("failed to decode author variants: %w", err)
	}

	if err := json.Unmarshal(sources, &profile.Sources); err != nil {
		return nil, fmt.Errorf("failed to decode author sources: %w", err)
	}

	if err := json.Unmarshal(topicCounts, &profile.TopicCounts); err != nil {
		return nil, fmt.Errorf("failed to decode author topic counts: %w", err)
	}

	if profile.TopicCounts == nil {
		profile.TopicCounts = make(map[string]domain.CategoryCounts)
	}

	return &profile, nil
}

// Save upserts the full profile row. Callers hold the author's aggregation
// lock, so the last write is always the freshest state.
func (r *authorRepository) Save(ctx context.Context, profile *domain.AuthorProfile) error {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("failed to save author: database connection is nil")
	}

	variants, err := json.Marshal(profile.Variants)
	if err != nil {
		return fmt.Errorf("failed to encode author variants: %w", err)
	}

	sources, err := json.Marshal(profile.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode author sources: %w", err)
	}

	topicCounts, err := json.Marshal(profile.TopicCounts)
	if err != nil {
		return fmt.Errorf("failed to encode author topic counts: %w", err)
	}

	query := `
		INSERT INTO author_profiles (key, display_name, variants, sources, topic_counts, total_judged, avg_confidence, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    variants = EXCLUDED.variants,
		    sources = EXCLUDED.sources,
		    topic_counts = EXCLUDED.topic_counts,
		    total_judged = EXCLUDED.total_judged,
		    avg_confidence = EXCLUDED.avg_confidence,
		    last_updated = EXCLUDED.last_updated
	`

	_, err = r.db.Exec(ctx, query,
		profile.Key,
		profile.DisplayName,
		variants,
		sources,
		topicCounts,
		profile.TotalJudged,
		profile.AvgConfidence,
		profile.LastUpdated,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to save author", "error", err, "key", profile.Key)
		return fmt.Errorf("failed to save author: %w", err)
	}

	return nil
}
