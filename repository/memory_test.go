// ABOUTME: This file tests the in-memory repository implementations
// ABOUTME: Focuses on the conditional insert and window filtering semantics
package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"bias-tracker/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryArticleRepository_InsertIfAbsent(t *testing.T) {
	t.Run("second insert of same hash is rejected", func(t *testing.T) {
		repo := NewMemoryArticleRepository()
		article := domain.NewArticle(domain.FetchedArticle{
			SourceID: "nzz",
			Text:     "Der Bundesrat hat heute entschieden.",
		}, "de")

		inserted, err := repo.InsertIfAbsent(context.Background(), article)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = repo.InsertIfAbsent(context.Background(), article)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, 1, repo.Count())
	})

	t.Run("concurrent inserts of same hash create exactly one article", func(t *testing.T) {
		repo := NewMemoryArticleRepository()
		article := domain.NewArticle(domain.FetchedArticle{Text: "same body"}, "de")

		var wg sync.WaitGroup

		winners := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				inserted, err := repo.InsertIfAbsent(context.Background(), article)
				require.NoError(t, err)
				winners <- inserted
			}()
		}

		wg.Wait()
		close(winners)

		wins := 0
		for inserted := range winners {
			if inserted {
				wins++
			}
		}

		assert.Equal(t, 1, wins)
		assert.Equal(t, 1, repo.Count())
	})
}

func TestMemoryJudgmentRepository(t *testing.T) {
	newRecord := func(articleID, topicID string, status domain.JudgmentStatus) *domain.JudgmentRecord {
		return &domain.JudgmentRecord{
			ID:        uuid.New(),
			ArticleID: articleID,
			TopicID:   topicID,
			Direction: domain.CategoryNeutral,
			Status:    status,
			CreatedAt: time.Now().UTC(),
		}
	}

	t.Run("insert is conditional on the article topic key", func(t *testing.T) {
		repo := NewMemoryJudgmentRepository()

		inserted, err := repo.InsertIfAbsent(context.Background(), newRecord("a1", "eu-relations", domain.JudgmentStatusSucceeded))
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = repo.InsertIfAbsent(context.Background(), newRecord("a1", "eu-relations", domain.JudgmentStatusSucceeded))
		require.NoError(t, err)
		assert.False(t, inserted)

		exists, err := repo.Exists(context.Background(), "a1", "eu-relations")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("replace returns the displaced record", func(t *testing.T) {
		repo := NewMemoryJudgmentRepository()

		fallback := newRecord("a1", "climate-energy", domain.JudgmentStatusFallback)
		_, err := repo.InsertIfAbsent(context.Background(), fallback)
		require.NoError(t, err)

		real := newRecord("a1", "climate-energy", domain.JudgmentStatusSucceeded)
		real.Direction = "green_progressive"

		previous, err := repo.Replace(context.Background(), real)
		require.NoError(t, err)
		assert.True(t, previous.IsFallback())

		records, err := repo.FindByArticle(context.Background(), "a1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "green_progressive", records[0].Direction)
	})

	t.Run("replace refuses to overwrite a genuine judgment", func(t *testing.T) {
		repo := NewMemoryJudgmentRepository()

		genuine := newRecord("a1", "climate-energy", domain.JudgmentStatusSucceeded)
		genuine.Direction = "conservative_business"
		_, err := repo.InsertIfAbsent(context.Background(), genuine)
		require.NoError(t, err)

		_, err = repo.Replace(context.Background(), newRecord("a1", "climate-energy", domain.JudgmentStatusSucceeded))
		assert.ErrorIs(t, err, domain.ErrJudgmentExists)

		records, err := repo.FindByArticle(context.Background(), "a1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "conservative_business", records[0].Direction)
	})

	t.Run("find returns the stored record or a not-found error", func(t *testing.T) {
		repo := NewMemoryJudgmentRepository()

		_, err := repo.Find(context.Background(), "a1", "eu-relations")
		assert.ErrorIs(t, err, domain.ErrJudgmentNotFound)

		_, err = repo.InsertIfAbsent(context.Background(), newRecord("a1", "eu-relations", domain.JudgmentStatusFallback))
		require.NoError(t, err)

		record, err := repo.Find(context.Background(), "a1", "eu-relations")
		require.NoError(t, err)
		assert.True(t, record.IsFallback())
	})

	t.Run("fallback listing skips succeeded records", func(t *testing.T) {
		repo := NewMemoryJudgmentRepository()

		_, err := repo.InsertIfAbsent(context.Background(), newRecord("a1", "eu-relations", domain.JudgmentStatusSucceeded))
		require.NoError(t, err)
		_, err = repo.InsertIfAbsent(context.Background(), newRecord("a2", "eu-relations", domain.JudgmentStatusFallback))
		require.NoError(t, err)

		fallbacks, err := repo.FindFallbacks(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, fallbacks, 1)
		assert.Equal(t, "a2", fallbacks[0].ArticleID)
	})

	t.Run("topic distribution buckets by pole and tracks the latest judgment", func(t *testing.T) {
		repo := NewMemoryJudgmentRepository()
		topic := &domain.TopicDefinition{
			ID:          "eu-relations",
			DisplayName: "EU Relations",
			Poles:       [2]string{"pro_eu", "eu_skeptical"},
		}

		latest := time.Now().UTC()
		directions := map[string]string{
			"a1": "pro_eu",
			"a2": "pro_eu",
			"a3": "neutral",
			"a4": "eu_skeptical",
		}
		for articleID, direction := range directions {
			record := newRecord(articleID, "eu-relations", domain.JudgmentStatusSucceeded)
			record.Direction = direction
			record.CreatedAt = latest.Add(-time.Minute)
			if articleID == "a4" {
				record.CreatedAt = latest
			}
			_, err := repo.InsertIfAbsent(context.Background(), record)
			require.NoError(t, err)
		}

		// 別トピックのレコードは集計に入らない
		other := newRecord("a1", "climate-energy", domain.JudgmentStatusSucceeded)
		_, err := repo.InsertIfAbsent(context.Background(), other)
		require.NoError(t, err)

		stats, err := repo.TopicDistribution(context.Background(), topic)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.TotalArticles)
		assert.Equal(t, 2, stats.PoleACount)
		assert.Equal(t, 1, stats.NeutralCount)
		assert.Equal(t, 1, stats.PoleBCount)
		assert.Equal(t, latest, stats.LastProcessed)
	})

	t.Run("window query filters on publication time", func(t *testing.T) {
		repo := NewMemoryJudgmentRepository()
		now := time.Now().UTC()

		_, err := repo.InsertIfAbsent(context.Background(), newRecord("recent", "swiss-politics", domain.JudgmentStatusSucceeded))
		require.NoError(t, err)
		repo.SetPublishedAt("recent", now.Add(-time.Hour))

		_, err = repo.InsertIfAbsent(context.Background(), newRecord("stale", "swiss-politics", domain.JudgmentStatusSucceeded))
		require.NoError(t, err)
		repo.SetPublishedAt("stale", now.Add(-30*24*time.Hour))

		records, err := repo.FindByTopicWindow(context.Background(), "swiss-politics", now.Add(-7*24*time.Hour), now)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "recent", records[0].ArticleID)
	})
}

func TestMemoryAuthorRepository_SaveIsolatesCallers(t *testing.T) {
	t.Run("mutating a found profile does not leak into the store", func(t *testing.T) {
		repo := NewMemoryAuthorRepository()

		profile := domain.NewAuthorProfile("anna-meier", "Anna Meier")
		profile.Counts("eu-relations")["pro_eu"] = 2
		require.NoError(t, repo.Save(context.Background(), profile))

		found, err := repo.Find(context.Background(), "anna-meier")
		require.NoError(t, err)
		found.Counts("eu-relations")["pro_eu"] = 99

		again, err := repo.Find(context.Background(), "anna-meier")
		require.NoError(t, err)
		assert.Equal(t, 2, again.Counts("eu-relations")["pro_eu"])
	})

	t.Run("unknown key yields not found", func(t *testing.T) {
		repo := NewMemoryAuthorRepository()

		_, err := repo.Find(context.Background(), "nobody")
		assert.ErrorIs(t, err, domain.ErrAuthorNotFound)
	})
}

func TestMemoryRankingRepository_LatestSnapshot(t *testing.T) {
	t.Run("returns the newest snapshot per topic", func(t *testing.T) {
		repo := NewMemoryRankingRepository()

		older := &domain.RankingSnapshot{ID: uuid.New(), TopicID: "eu-relations", GeneratedAt: time.Now().Add(-time.Hour)}
		newer := &domain.RankingSnapshot{ID: uuid.New(), TopicID: "eu-relations", GeneratedAt: time.Now()}

		require.NoError(t, repo.SaveSnapshot(context.Background(), older))
		require.NoError(t, repo.SaveSnapshot(context.Background(), newer))

		latest, err := repo.LatestSnapshot(context.Background(), "eu-relations")
		require.NoError(t, err)
		assert.Equal(t, newer.ID, latest.ID)
	})

	t.Run("missing topic yields no snapshot error", func(t *testing.T) {
		repo := NewMemoryRankingRepository()

		_, err := repo.LatestSnapshot(context.Background(), "climate-energy")
		assert.ErrorIs(t, err, domain.ErrNoSnapshot)
	})
}
