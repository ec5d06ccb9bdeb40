// ABOUTME: This file wires the ingest, judgment, and aggregation stages into one batch pipeline
// ABOUTME: Expected short-circuits (duplicates, no topic match) are counted, not treated as failures
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"bias-tracker/domain"
	"bias-tracker/service"
)

// BatchSummary reports what happened to one batch of fetched articles.
type BatchSummary struct {
	Total      int `json:"total"`
	Ingested   int `json:"ingested"`
	Duplicates int `json:"duplicates"`
	NoTopic    int `json:"no_topic"`
	Judged     int `json:"judged"`
	Fallbacks  int `json:"fallbacks"`
	Failed     int `json:"failed"`
}

// Pipeline runs fetched articles through dedup, classification, judgment,
// and author aggregation.
type Pipeline struct {
	ingest      service.IngestService
	judgments   service.JudgmentService
	aggregator  service.AggregatorService
	concurrency int
	logger      *slog.Logger
}

// NewPipeline creates a batch pipeline. Concurrency bounds the ingest stage;
// oracle concurrency is governed separately by the judgment client's slot pool.
func NewPipeline(
	ingest service.IngestService,
	judgments service.JudgmentService,
	aggregator service.AggregatorService,
	concurrency int,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		ingest:      ingest,
		judgments:   judgments,
		aggregator:  aggregator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// articleOutcome carries one article's pipeline result between stages.
type articleOutcome struct {
	duplicate bool
	noTopic   bool
	judged    int
	fallbacks int
}

// ProcessBatch pushes every fetched article through the full pipeline and
// returns per-batch counters. Individual article failures never abort the
// batch; only context cancellation does.
func (p *Pipeline) ProcessBatch(ctx context.Context, fetched []domain.FetchedArticle) BatchSummary {
	summary := BatchSummary{Total: len(fetched)}
	if len(fetched) == 0 {
		return summary
	}

	stage := Stage[domain.FetchedArticle, articleOutcome]{
		Name:        "article_pipeline",
		Concurrency: p.concurrency,
		Process:     p.processOne,
	}

	for _, result := range RunStage(ctx, stage, fetched) {
		switch {
		case result.Err != nil:
			summary.Failed++
		case result.Value.duplicate:
			summary.Duplicates++
		case result.Value.noTopic:
			summary.NoTopic++
		default:
			summary.Ingested++
			summary.Judged += result.Value.judged
			summary.Fallbacks += result.Value.fallbacks
		}
	}

	p.logger.InfoContext(ctx, "batch processed",
		"total", summary.Total,
		"ingested", summary.Ingested,
		"duplicates", summary.Duplicates,
		"no_topic", summary.NoTopic,
		"judged", summary.Judged,
		"fallbacks", summary.Fallbacks,
		"failed", summary.Failed)

	return summary
}

// ProcessOne is the single-article entry point used by the event consumer.
func (p *Pipeline) ProcessOne(ctx context.Context, fetched domain.FetchedArticle) error {
	_, err := p.processOne(ctx, fetched)
	return err
}

func (p *Pipeline) processOne(ctx context.Context, fetched domain.FetchedArticle) (articleOutcome, error) {
	var outcome articleOutcome

	ingested, err := p.ingest.Ingest(ctx, fetched)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateArticle):
			outcome.duplicate = true
			return outcome, nil
		case errors.Is(err, domain.ErrNoTopicMatch):
			outcome.noTopic = true
			return outcome, nil
		default:
			return outcome, err
		}
	}

	records, err := p.judgments.JudgeArticle(ctx, ingested.Article, ingested.TopicIDs)
	if err != nil {
		return outcome, err
	}

	for _, record := range records {
		if record.IsFallback() {
			outcome.fallbacks++
		}

		outcome.judged++

		if err := p.aggregator.Apply(ctx, ingested.Article, record); err != nil {
			p.logger.ErrorContext(ctx, "failed to aggregate judgment",
				"article_id", record.ArticleID,
				"topic_id", record.TopicID,
				"error", err)

			return outcome, err
		}
	}

	return outcome, nil
}
