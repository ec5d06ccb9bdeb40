package service

import (
	"context"

	"bias-tracker/classifier"
	"bias-tracker/dlq"
	"bias-tracker/domain"
)

// IngestResult is the outcome of a successful article ingest.
type IngestResult struct {
	Article        *domain.Article
	Classification classifier.Classification
	TopicIDs       []string
	AuthorResolved bool
}

// IngestService runs the fetch-side pipeline: dedup, classify, author resolution.
type IngestService interface {
	Ingest(ctx context.Context, fetched domain.FetchedArticle) (*IngestResult, error)
}

// JudgmentService obtains bias judgments from the oracle, at most one per
// (article, topic) key.
type JudgmentService interface {
	JudgeArticle(ctx context.Context, article *domain.Article, topicIDs []string) ([]*domain.JudgmentRecord, error)
	JudgeTopic(ctx context.Context, article *domain.Article, topicID string) (*domain.JudgmentRecord, error)
}

// AggregatorService folds judgments into per-author profiles under keyed locks.
type AggregatorService interface {
	Apply(ctx context.Context, article *domain.Article, record *domain.JudgmentRecord) error
	ApplyReplace(ctx context.Context, article *domain.Article, previous, replacement *domain.JudgmentRecord) error
}

// RankerService computes comparative ranking snapshots per topic.
type RankerService interface {
	ComputeSnapshot(ctx context.Context, topicID string) (*domain.RankingSnapshot, error)
	RunOnce(ctx context.Context) error
}

// ReprocessService re-judges DLQ'd keys, replacing their fallback records.
type ReprocessService interface {
	Reprocess(ctx context.Context, limit int) (int, error)
}

// OracleClient is the judgment oracle surface the services depend on.
type OracleClient interface {
	Judge(ctx context.Context, article *domain.Article, topic *domain.TopicDefinition) (*domain.JudgmentRecord, error)
	Compare(ctx context.Context, a, b *domain.Article, topic *domain.TopicDefinition) (*domain.ComparisonEdge, error)
}

// DLQPublisher publishes exhausted judgment keys.
type DLQPublisher interface {
	PublishFailedJudgment(ctx context.Context, articleID, topicID string, attempts int, lastError error) error
}

// DLQSource reads back and acknowledges published failures.
type DLQSource interface {
	ListFailed(ctx context.Context, limit int) ([]dlq.FailedJudgmentMessage, error)
	Ack(ctx context.Context, message dlq.FailedJudgmentMessage) error
}
