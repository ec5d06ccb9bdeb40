package repository

import (
	"context"
	"time"

	"bias-tracker/domain"
)

// ArticleRepository handles canonical article persistence.
type ArticleRepository interface {
	InsertIfAbsent(ctx context.Context, article *domain.Article) (bool, error)
	FindByID(ctx context.Context, articleID string) (*domain.Article, error)
	SetAuthorKey(ctx context.Context, articleID, authorKey string) error
}

// JudgmentRepository handles per (article, topic) judgment persistence.
type JudgmentRepository interface {
	Exists(ctx context.Context, articleID, topicID string) (bool, error)
	Find(ctx context.Context, articleID, topicID string) (*domain.JudgmentRecord, error)
	InsertIfAbsent(ctx context.Context, record *domain.JudgmentRecord) (bool, error)
	Replace(ctx context.Context, record *domain.JudgmentRecord) (*domain.JudgmentRecord, error)
	FindByArticle(ctx context.Context, articleID string) ([]*domain.JudgmentRecord, error)
	FindFallbacks(ctx context.Context, limit int) ([]*domain.JudgmentRecord, error)
	FindByTopicWindow(ctx context.Context, topicID string, from, to time.Time) ([]*domain.JudgmentRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.JudgmentRecord, error)
	TopicDistribution(ctx context.Context, topic *domain.TopicDefinition) (*domain.TopicStats, error)
}

// AuthorRepository handles author profile persistence.
type AuthorRepository interface {
	Find(ctx context.Context, key string) (*domain.AuthorProfile, error)
	Save(ctx context.Context, profile *domain.AuthorProfile) error
}

// ComparisonRepository handles pairwise comparison edge persistence.
type ComparisonRepository interface {
	Insert(ctx context.Context, edge *domain.ComparisonEdge) error
	FindByTopicWindow(ctx context.Context, topicID string, from, to time.Time) ([]*domain.ComparisonEdge, error)
}

// RankingRepository handles derived ranking snapshot persistence.
type RankingRepository interface {
	SaveSnapshot(ctx context.Context, snapshot *domain.RankingSnapshot) error
	LatestSnapshot(ctx context.Context, topicID string) (*domain.RankingSnapshot, error)
}
