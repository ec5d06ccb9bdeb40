// ABOUTME: This file implements article persistence with hash-keyed dedup
// ABOUTME: Inserts race-safely on the content hash using ON CONFLICT DO NOTHING
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bias-tracker/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// articleRepository implementation.
type articleRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *pgxpool.Pool, logger *slog.Logger) ArticleRepository {
	return &articleRepository{
		db:     db,
		logger: logger,
	}
}

// InsertIfAbsent stores the article unless one with the same content hash
// already exists. Returns true when this call created the row. Concurrent
// inserts of the same hash are resolved by the database, so exactly one
// caller observes true.
func (r *articleRepository) InsertIfAbsent(ctx context.Context, article *domain.Article) (bool, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return false, fmt.Errorf("failed to insert article: database connection is nil")
	}

	r.logger.InfoContext(ctx, "inserting article", "article_id", article.ID, "source_id", article.SourceID)

	query := `
		INSERT INTO articles (id, source_id, region, language, byline, author_key, headline, text, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		article.ID,
		article.SourceID,
		article.Region,
		article.Language,
		article.Byline,
		article.AuthorKey,
		article.Headline,
		article.Text,
		article.PublishedAt,
		article.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert article", "error", err, "article_id", article.ID)
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	inserted := tag.RowsAffected() > 0
	if !inserted {
		r.logger.InfoContext(ctx, "article already exists", "article_id", article.ID)
	}

	return inserted, nil
}

// FindByID finds an article by its content hash ID.
func (r *articleRepository) FindByID(ctx context.Context, articleID string) (*domain.Article, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("failed to find article: database connection is nil")
	}

	query := `
		SELECT id, source_id, region, language, byline, author_key, headline, text, published_at, created_at
		FROM articles
		WHERE id = $1
	`

	var article domain.Article
	err := r.db.QueryRow(ctx, query, articleID).Scan(
		&article.ID,
		&article.SourceID,
		&article.Region,
		&article.Language,
		&article.Byline,
		&article.AuthorKey,
		&article.Headline,
		&article.Text,
		&article.PublishedAt,
		&article.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "article not found", "article_id", articleID)
			return nil, domain.ErrArticleNotFound
		}

		r.logger.ErrorContext(ctx, "failed to find article", "error", err, "article_id", articleID)
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return &article, nil
}

// SetAuthorKey records the resolved author key on an existing article.
func (r *articleRepository) SetAuthorKey(ctx context.Context, articleID, authorKey string) error {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("failed to set author key: database connection is nil")
	}

	query := `UPDATE articles SET author_key = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, articleID, authorKey)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to set author key", "error", err, "article_id", articleID)
		return fmt.Errorf("failed to set author key: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}

	return nil
}
