// ABOUTME: This file tests the ingest pipeline end to end against in-memory storage
// ABOUTME: Covers dedup under concurrency, classification, and author resolution
package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"bias-tracker/authors"
	"bias-tracker/classifier"
	"bias-tracker/config"
	"bias-tracker/domain"
	"bias-tracker/metrics"
	"bias-tracker/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testTopicSet(t *testing.T) *config.TopicSet {
	t.Helper()

	set, err := config.NewTopicSet(config.TopicsFile{
		Topics: []domain.TopicDefinition{
			{
				ID:          "immigration-integration",
				DisplayName: "Immigration and Integration",
				Poles:       [2]string{"restrictive", "liberal"},
				Threshold:   2.0,
				Keywords: map[string][]domain.Keyword{
					"de": {{Term: "asyl", Weight: 2.0}, {Term: "einwanderung", Weight: 1.5}},
					"fr": {{Term: "asile", Weight: 2.0}},
					"en": {{Term: "asylum", Weight: 2.0}},
				},
			},
			{
				ID:          "eu-relations",
				DisplayName: "EU Relations",
				Poles:       [2]string{"pro_eu", "eu_skeptical"},
				Threshold:   2.0,
				Keywords: map[string][]domain.Keyword{
					"de": {{Term: "rahmenabkommen", Weight: 2.0}, {Term: "bilaterale", Weight: 1.5}},
					"fr": {{Term: "accord-cadre", Weight: 2.0}},
				},
			},
		},
	})
	require.NoError(t, err)

	return set
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollector(config.MetricsConfig{Enabled: true}, testLogger())
}

func newTestIngestService(t *testing.T) (IngestService, *repository.MemoryArticleRepository) {
	t.Helper()

	articles := repository.NewMemoryArticleRepository()
	svc := NewIngestService(
		articles,
		classifier.New(testTopicSet(t), 1.0),
		authors.NewResolver(),
		testMetrics(),
		testLogger(),
	)

	return svc, articles
}

func germanArticle() domain.FetchedArticle {
	return domain.FetchedArticle{
		SourceID:         "tagesanzeiger",
		Region:           "zurich",
		DeclaredLanguage: "de",
		Byline:           "Anna Meier",
		Headline:         "Asylpolitik und Rahmenabkommen unter Druck",
		Text:             "Die Debatte um Asyl und das Rahmenabkommen mit der EU spitzt sich zu. Der Bundesrat sucht einen Ausweg.",
		PublishedAt:      time.Now().UTC(),
	}
}

func TestIngestService_Ingest(t *testing.T) {
	t.Run("german article lands on both matched topics", func(t *testing.T) {
		svc, articles := newTestIngestService(t)

		result, err := svc.Ingest(context.Background(), germanArticle())
		require.NoError(t, err)

		assert.Equal(t, "de", result.Article.Language)
		assert.ElementsMatch(t, []string{"immigration-integration", "eu-relations"}, result.TopicIDs)
		assert.True(t, result.AuthorResolved)
		assert.Equal(t, "anna meier", result.Article.AuthorKey)
		assert.Equal(t, 1, articles.Count())
	})

	t.Run("second fetch of identical content is a duplicate", func(t *testing.T) {
		svc, articles := newTestIngestService(t)

		_, err := svc.Ingest(context.Background(), germanArticle())
		require.NoError(t, err)

		_, err = svc.Ingest(context.Background(), germanArticle())
		assert.ErrorIs(t, err, domain.ErrDuplicateArticle)
		assert.Equal(t, 1, articles.Count())
	})

	t.Run("whitespace variants of same text are duplicates", func(t *testing.T) {
		svc, articles := newTestIngestService(t)

		first := germanArticle()
		_, err := svc.Ingest(context.Background(), first)
		require.NoError(t, err)

		second := germanArticle()
		second.Text = "  Die  Debatte um Asyl und das Rahmenabkommen mit der EU spitzt sich zu.\n\nDer Bundesrat sucht einen Ausweg. "

		_, err = svc.Ingest(context.Background(), second)
		assert.ErrorIs(t, err, domain.ErrDuplicateArticle)
		assert.Equal(t, 1, articles.Count())
	})

	t.Run("concurrent fetches of same content create exactly one article", func(t *testing.T) {
		svc, articles := newTestIngestService(t)

		var wg sync.WaitGroup

		var mu sync.Mutex

		successes, duplicates := 0, 0

		for i := 0; i < 8; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := svc.Ingest(context.Background(), germanArticle())

				mu.Lock()
				defer mu.Unlock()

				switch {
				case err == nil:
					successes++
				case err == domain.ErrDuplicateArticle:
					duplicates++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, 7, duplicates)
		assert.Equal(t, 1, articles.Count())
	})

	t.Run("article matching no topic is dropped", func(t *testing.T) {
		svc, articles := newTestIngestService(t)

		fetched := germanArticle()
		fetched.Text = "Das Fussballspiel am Sonntag endete unentschieden nach Verlängerung."

		_, err := svc.Ingest(context.Background(), fetched)
		assert.ErrorIs(t, err, domain.ErrNoTopicMatch)
		assert.Equal(t, 0, articles.Count())
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		svc, _ := newTestIngestService(t)

		fetched := germanArticle()
		fetched.Text = "   \n\t  "

		_, err := svc.Ingest(context.Background(), fetched)
		assert.ErrorIs(t, err, domain.ErrEmptyArticleText)
	})

	t.Run("article without byline ingests with empty author key", func(t *testing.T) {
		svc, _ := newTestIngestService(t)

		fetched := germanArticle()
		fetched.Byline = ""
		fetched.Headline = "Asylpolitik"
		fetched.Text = "Die Asylpolitik bleibt umstritten und das Parlament debattiert weiter über neue Regeln."

		result, err := svc.Ingest(context.Background(), fetched)
		require.NoError(t, err)
		assert.False(t, result.AuthorResolved)
		assert.Empty(t, result.Article.AuthorKey)
	})
}
