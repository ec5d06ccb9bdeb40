// ABOUTME: This file implements judgment persistence with one row per (article, topic)
// ABOUTME: Conditional inserts keep the at-most-once oracle spend guarantee race-safe
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

// judgmentRepository implementation.
type judgmentRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewJudgmentRepository creates a new judgment repository.
func NewJudgmentRepository(db *pgxpool.Pool, logger *slog.Logger) JudgmentRepository {
	return &judgmentRepository{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether a judgment exists for the (article, topic) key.
func (r *judgmentRepository) Exists(ctx context.Context, articleID, topicID string) (bool, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return false, fmt.Errorf("failed to check judgment existence: database connection is nil")
	}

	query := `SELECT EXISTS(SELECT 1 FROM judgments WHERE article_id = $1 AND topic_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, articleID, topicID).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "failed to check judgment existence", "error", err,
			"article_id", articleID, "topic_id", topicID)
		return false, fmt.Errorf("failed to check judgment existence: %w", err)
	}

	return exists, nil
}

// Find returns the judgment for the (article, topic) key, or
// domain.ErrJudgmentNotFound when no row exists.
func (r *judgmentRepository) Find(ctx context.Context, articleID, topicID string) (*domain.JudgmentRecord, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to find judgment: database connection is nil")
	}

	return r.findOne(ctx, articleID, topicID)
}

// InsertIfAbsent stores the judgment unless one already exists for its
// (article, topic) key. Returns true when this call created the row.
func (r *judgmentRepository) InsertIfAbsent(ctx context.Context, record *domain.JudgmentRecord) (bool, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return false, fmt.Errorf("failed to insert judgment: database connection is nil")
	}

	evidence, err := json.Marshal(record.Evidence)
	if err != nil {
		return false, fmt.Errorf("failed to encode evidence: %w", err)
	}

	query := `
		INSERT INTO judgments (id, article_id, topic_id, direction, strength, confidence, evidence, reasoning, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (article_id, topic_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		record.ID,
		record.ArticleID,
		record.TopicID,
		record.Direction,
		record.Strength,
		record.Confidence,
		evidence,
		record.Reasoning,
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert judgment", "error", err,
			"article_id", record.ArticleID, "topic_id", record.TopicID)
		return false, fmt.Errorf("failed to insert judgment: %w", err)
	}

	inserted := tag.RowsAffected() > 0
	if !inserted {
		r.logger.InfoContext(ctx, "judgment already exists",
			"article_id", record.ArticleID, "topic_id", record.TopicID)
	}

	return inserted, nil
}

// Replace overwrites the fallback judgment for the record's (article, topic)
// key and returns the row it displaced. A genuine judgment is never
// overwritten; the guard is in the WHERE clause so a race with the primary
// path cannot clobber it.
func (r *judgmentRepository) Replace(ctx context.Context, record *domain.JudgmentRecord) (*domain.JudgmentRecord, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to replace judgment: database connection is nil")
	}

	previous, err := r.findOne(ctx, record.ArticleID, record.TopicID)
	if err != nil {
		return nil, err
	}

	if !previous.IsFallback() {
		return nil, fmt.Errorf("record for %s/%s is not a fallback: %w",
			record.ArticleID, record.TopicID, domain.ErrJudgmentExists)
	}

	evidence, err := json.Marshal(record.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}

	query := `
		UPDATE judgments
		SET id = $3, direction = $4, strength = $5, confidence = $6, evidence = $7, reasoning = $8, status = $9, created_at = $10
		WHERE article_id = $1 AND topic_id = $2 AND status = $11
	`

	tag, err := r.db.Exec(ctx, query,
		record.ArticleID,
		record.TopicID,
		record.ID,
		record.Direction,
		record.Strength,
		record.Confidence,
		evidence,
		record.Reasoning,
		record.Status,
		record.CreatedAt,
		domain.JudgmentStatusFallback,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to replace judgment", "error", err,
			"article_id", record.ArticleID, "topic_id", record.TopicID)
		return nil, fmt.Errorf("failed to replace judgment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// findOneとUPDATEの間に本判定が入った
		return nil, fmt.Errorf("record for %s/%s was replaced concurrently: %w",
			record.ArticleID, record.TopicID, domain.ErrJudgmentExists)
	}

	r.logger.InfoContext(ctx, "judgment replaced",
		"article_id", record.ArticleID, "topic_id", record.TopicID,
		"previous_status", previous.Status)

	return previous, nil
}

// FindByArticle returns all judgments for one article.
func (r *judgmentRepository) FindByArticle(ctx context.Context, articleID string) ([]*domain.JudgmentRecord, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to find judgments: database connection is nil")
	}

	query := judgmentSelect + ` WHERE article_id = $1 ORDER BY topic_id`

	return r.queryRecords(ctx, query, articleID)
}

// FindFallbacks returns degraded-fallback judgments, oldest first, for the
// reprocessing pass.
func (r *judgmentRepository) FindFallbacks(ctx context.Context, limit int) ([]*domain.JudgmentRecord, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to find fallback judgments: database connection is nil")
	}

	query := judgmentSelect + ` WHERE status = $1 ORDER BY created_at ASC LIMIT $2`

	return r.queryRecords(ctx, query, domain.JudgmentStatusFallback, limit)
}

// FindByTopicWindow returns judgments for a topic whose articles were
// published inside the window.
func (r *judgmentRepository) FindByTopicWindow(ctx context.Context, topicID string, from, to time.Time) ([]*domain.JudgmentRecord, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to find judgments: database connection is nil")
	}

	query := `
		SELECT j.id, j.article_id, j.topic_id, j.direction, j.strength, j.confidence, j.evidence, j.reasoning, j.status, j.created_at
		FROM judgments j
		JOIN articles a ON a.id = j.article_id
		WHERE j.topic_id = $1 AND a.published_at >= $2 AND a.published_at < $3
		ORDER BY a.published_at DESC
	`

	return r.queryRecords(ctx, query, topicID, from, to)
}

// ListRecent returns the newest judgments across all topics.
func (r *judgmentRepository) ListRecent(ctx context.Context, limit int) ([]*domain.JudgmentRecord, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to list judgments: database connection is nil")
	}

	query := judgmentSelect + ` ORDER BY created_at DESC LIMIT $1`

	return r.queryRecords(ctx, query, limit)
}

// TopicDistribution derives the topic's category distribution and last
// processed time from the persisted judgments.
func (r *judgmentRepository) TopicDistribution(ctx context.Context, topic *domain.TopicDefinition) (*domain.TopicStats, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to compute topic distribution: database connection is nil")
	}

	query := `
		SELECT direction, COUNT(*), MAX(created_at)
		FROM judgments
		WHERE topic_id = $1
		GROUP BY direction
	`

	rows, err := r.db.Query(ctx, query, topic.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to compute topic distribution", "error", err, "topic_id", topic.ID)
		return nil, fmt.Errorf("failed to compute topic distribution: %w", err)
	}
	defer rows.Close()

	stats := &domain.TopicStats{TopicID: topic.ID, DisplayName: topic.DisplayName}

	for rows.Next() {
		var direction string

		var count int

		var latest time.Time

		if err := rows.Scan(&direction, &count, &latest); err != nil {
			r.logger.ErrorContext(ctx, "failed to scan topic distribution", "error", err)
			return nil, fmt.Errorf("failed to scan topic distribution: %w", err)
		}

		stats.TotalArticles += count

		switch direction {
		case topic.Poles[0]:
			stats.PoleACount = count
		case topic.Poles[1]:
			stats.PoleBCount = count
		case domain.CategoryNeutral:
			stats.NeutralCount = count
		}

		if latest.After(stats.LastProcessed) {
			stats.LastProcessed = latest
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to compute topic distribution: %w", err)
	}

	return stats, nil
}

const judgmentSelect = `
	SELECT id, article_id, topic_id, direction, strength, confidence, evidence, reasoning, status, created_at
	FROM judgments`

func (r *judgmentRepository) findOne(ctx context.Context, articleID, topicID string) (*domain.JudgmentRecord, error) {
	query := judgmentSelect + ` WHERE article_id = $1 AND topic_id = $2`

	records, err := r.queryRecords(ctx, query, articleID, topicID)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no record for %s/%s: %w", articleID, topicID, domain.ErrJudgmentNotFound)
	}

	return records[0], nil
}

func (r *judgmentRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*domain.JudgmentRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to query judgments", "error", err)
		return nil, fmt.Errorf("failed to query judgments: %w", err)
	}
	defer rows.Close()

	var records []*domain.JudgmentRecord

	for rows.Next() {
		var record domain.JudgmentRecord

		var evidence []byte

		err := rows.Scan(
			&record.ID,
			&record.ArticleID,
			&record.TopicID,
			&record.Direction,
			&record.Strength,
			&record.Confidence,
			&evidence,
			&record.Reasoning,
			&record.Status,
			&record.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				break
			}

			r.logger.ErrorContext(ctx, "failed to scan judgment", "error", err)
			return nil, fmt.Errorf("failed to scan judgment: %w", err)
		}

		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &record.Evidence); err != nil {
				return nil, fmt.Errorf("failed to decode evidence: %w", err)
			}
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate judgments: %w", err)
	}

	return records, nil
}
