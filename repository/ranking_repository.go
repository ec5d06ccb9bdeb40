// ABOUTME: This file implements comparison edge and ranking snapshot persistence
// ABOUTME: Snapshots are derived data, append-only, with the latest row served per topic
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bias-tracker/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// comparisonRepository implementation.
type comparisonRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewComparisonRepository creates a new comparison edge repository.
func NewComparisonRepository(db *pgxpool.Pool, logger *slog.Logger) ComparisonRepository {
	return &comparisonRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores one pairwise comparison edge.
func (r *comparisonRepository) Insert(ctx context.Context, edge *domain.ComparisonEdge) error {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("failed to insert comparison edge: database connection is nil")
	}

	if !edge.Outcome.Valid() {
		return fmt.Errorf("failed to insert comparison edge: invalid outcome %q", edge.Outcome)
	}

	query := `
		INSERT INTO comparison_edges (article_a, article_b, topic_id, outcome, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		edge.ArticleA,
		edge.ArticleB,
		edge.TopicID,
		edge.Outcome,
		edge.Confidence,
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert comparison edge", "error", err, "topic_id", edge.TopicID)
		return fmt.Errorf("failed to insert comparison edge: %w", err)
	}

	return nil
}

// FindByTopicWindow returns edges recorded for a topic inside the window.
func (r *comparisonRepository) FindByTopicWindow(ctx context.Context, topicID string, from, to time.Time) ([]*domain.ComparisonEdge, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to find comparison edges: database connection is nil")
	}

	query := `
		SELECT article_a, article_b, topic_id, outcome, confidence
		FROM comparison_edges
		WHERE topic_id = $1 AND created_at >= $2 AND created_at < $3
	`

	rows, err := r.db.Query(ctx, query, topicID, from, to)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to query comparison edges", "error", err, "topic_id", topicID)
		return nil, fmt.Errorf("failed to query comparison edges: %w", err)
	}
	defer rows.Close()

	var edges []*domain.ComparisonEdge

	for rows.Next() {
		var edge domain.ComparisonEdge

		err := rows.Scan(&edge.ArticleA, &edge.ArticleB, &edge.TopicID, &edge.Outcome, &edge.Confidence)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comparison edge: %w", err)
		}

		edges = append(edges, &edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comparison edges: %w", err)
	}

	return edges, nil
}

// rankingRepository implementation.
type rankingRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewRankingRepository creates a new ranking snapshot repository.
func NewRankingRepository(db *pgxpool.Pool, logger *slog.Logger) RankingRepository {
	return &rankingRepository{
		db:     db,
		logger: logger,
	}
}

// SaveSnapshot appends a freshly computed snapshot for a topic.
func (r *rankingRepository) SaveSnapshot(ctx context.Context, snapshot *domain.RankingSnapshot) error {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("failed to save ranking snapshot: database connection is nil")
	}

	entries, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode ranking entries: %w", err)
	}

	query := `
		INSERT INTO ranking_snapshots (id, topic_id, window_from, window_to, generated_at, entries)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Exec(ctx, query,
		snapshot.ID,
		snapshot.TopicID,
		snapshot.WindowFrom,
		snapshot.WindowTo,
		snapshot.GeneratedAt,
		entries,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to save ranking snapshot", "error", err, "topic_id", snapshot.TopicID)
		return fmt.Errorf("failed to save ranking snapshot: %w", err)
	}

	r.logger.InfoContext(ctx, "ranking snapshot saved",
		"topic_id", snapshot.TopicID, "entries", len(snapshot.Entries))

	return nil
}

// LatestSnapshot returns the newest snapshot for a topic.
func (r *rankingRepository) LatestSnapshot(ctx context.Context, topicID string) (*domain.RankingSnapshot, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to load ranking snapshot: database connection is nil")
	}

	query := `
		SELECT id, topic_id, window_from, window_to, generated_at, entries
		FROM ranking_snapshots
		WHERE topic_id = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var snapshot domain.RankingSnapshot

	var entries []byte

	err := r.db.QueryRow(ctx, query, topicID).Scan(
		&snapshot.ID,
		&snapshot.TopicID,
		&snapshot.WindowFrom,
		&snapshot.WindowTo,
		&snapshot.GeneratedAt,
		&entries,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoSnapshot
		}

		r.logger.ErrorContext(ctx, "failed to load ranking snapshot", "error", err, "topic_id", topicID)
		return nil, fmt.Errorf("failed to load ranking snapshot: %w", err)
	}

	if err := json.Unmarshal(entries, &snapshot.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode ranking entries: %w", err)
	}

	return &snapshot, nil
}
