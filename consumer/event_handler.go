// ABOUTME: This file routes fetched-article stream events into the pipeline
// ABOUTME: Unknown event types are ignored so other consumers can share the stream
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"bias-tracker/domain"
)

// EventType constants published by the article fetcher.
const (
	EventTypeArticleFetched = "ArticleFetched"
)

// ArticleProcessor runs one fetched article through the bias pipeline.
type ArticleProcessor interface {
	ProcessOne(ctx context.Context, fetched domain.FetchedArticle) error
}

// ArticleEventHandler handles fetched-article events.
type ArticleEventHandler struct {
	processor ArticleProcessor
	logger    *slog.Logger
}

// NewArticleEventHandler creates a new ArticleEventHandler.
func NewArticleEventHandler(processor ArticleProcessor, logger *slog.Logger) *ArticleEventHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ArticleEventHandler{
		processor: processor,
		logger:    logger,
	}
}

// HandleEvent processes a single event based on its type.
func (h *ArticleEventHandler) HandleEvent(ctx context.Context, event Event) error {
	h.logger.Info("handling event",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"message_id", event.MessageID,
	)

	switch event.EventType {
	case EventTypeArticleFetched:
		return h.handleArticleFetched(ctx, event)
	default:
		h.logger.Debug("ignoring unknown event type", "event_type", event.EventType)
		return nil
	}
}

func (h *ArticleEventHandler) handleArticleFetched(ctx context.Context, event Event) error {
	var payload domain.FetchedArticle
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Error("failed to unmarshal ArticleFetched payload",
			"event_id", event.EventID,
			"error", err,
		)

		return err
	}

	h.logger.Info("processing ArticleFetched event",
		"source_id", payload.SourceID,
		"headline", payload.Headline,
	)

	if err := h.processor.ProcessOne(ctx, payload); err != nil {
		h.logger.Error("failed to process fetched article",
			"source_id", payload.SourceID,
			"error", err,
		)

		return err
	}

	return nil
}
