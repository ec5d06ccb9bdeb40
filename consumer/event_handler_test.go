package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"bias-tracker/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	fetched []domain.FetchedArticle
	err     error
}

func (p *recordingProcessor) ProcessOne(_ context.Context, fetched domain.FetchedArticle) error {
	if p.err != nil {
		return p.err
	}

	p.fetched = append(p.fetched, fetched)

	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestArticleEventHandler_HandleEvent(t *testing.T) {
	t.Run("should feed ArticleFetched payloads into the pipeline", func(t *testing.T) {
		processor := &recordingProcessor{}
		handler := NewArticleEventHandler(processor, quietLogger())

		payload, err := json.Marshal(domain.FetchedArticle{
			SourceID:         "nzz",
			DeclaredLanguage: "de",
			Headline:         "Streit um das Rahmenabkommen",
			Text:             "Die bilateralen Verträge stehen erneut zur Debatte.",
		})
		require.NoError(t, err)

		err = handler.HandleEvent(context.Background(), Event{
			MessageID: "1-0",
			EventType: EventTypeArticleFetched,
			Payload:   payload,
		})

		require.NoError(t, err)
		require.Len(t, processor.fetched, 1)
		assert.Equal(t, "nzz", processor.fetched[0].SourceID)
	})

	t.Run("should ignore unknown event types", func(t *testing.T) {
		processor := &recordingProcessor{}
		handler := NewArticleEventHandler(processor, quietLogger())

		err := handler.HandleEvent(context.Background(), Event{
			MessageID: "2-0",
			EventType: "FeedRefreshed",
		})

		assert.NoError(t, err)
		assert.Empty(t, processor.fetched)
	})

	t.Run("should surface malformed payloads for redelivery", func(t *testing.T) {
		handler := NewArticleEventHandler(&recordingProcessor{}, quietLogger())

		err := handler.HandleEvent(context.Background(), Event{
			MessageID: "3-0",
			EventType: EventTypeArticleFetched,
			Payload:   json.RawMessage(`{not json`),
		})

		assert.Error(t, err)
	})
}
