// ABOUTME: This file tests per-author aggregation under keyed locking
// ABOUTME: Concurrent updates to one author must both land without loss
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"bias-tracker/domain"
	"bias-tracker/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authoredArticle(id, authorKey string) *domain.Article {
	return &domain.Article{
		ID:        id,
		SourceID:  "nzz",
		Byline:    "Anna Meier",
		AuthorKey: authorKey,
		Language:  "de",
	}
}

func judgment(articleID, topicID, direction string, confidence float64) *domain.JudgmentRecord {
	return &domain.JudgmentRecord{
		ID:         uuid.New(),
		ArticleID:  articleID,
		TopicID:    topicID,
		Direction:  direction,
		Strength:   0.5,
		Confidence: confidence,
		Status:     domain.JudgmentStatusSucceeded,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestAggregatorService_Apply(t *testing.T) {
	t.Run("first judgment creates the profile", func(t *testing.T) {
		authorRepo := repository.NewMemoryAuthorRepository()
		svc := NewAggregatorService(authorRepo, testLogger())

		article := authoredArticle("a1", "anna meier")
		err := svc.Apply(context.Background(), article, judgment("a1", "immigration-integration", "restrictive", 0.8))
		require.NoError(t, err)

		profile, err := authorRepo.Find(context.Background(), "anna meier")
		require.NoError(t, err)
		assert.Equal(t, "Anna Meier", profile.DisplayName)
		assert.Equal(t, 1, profile.Counts("immigration-integration")["restrictive"])
		assert.Equal(t, 1, profile.TotalJudged)
		assert.InDelta(t, 0.8, profile.AvgConfidence, 0.0001)
		assert.Contains(t, profile.Variants, "Anna Meier")
		assert.Contains(t, profile.Sources, "nzz")
	})

	t.Run("average confidence is a running mean", func(t *testing.T) {
		authorRepo := repository.NewMemoryAuthorRepository()
		svc := NewAggregatorService(authorRepo, testLogger())

		article := authoredArticle("a1", "anna meier")
		require.NoError(t, svc.Apply(context.Background(), article, judgment("a1", "eu-relations", "pro_eu", 0.9)))
		require.NoError(t, svc.Apply(context.Background(), authoredArticle("a2", "anna meier"), judgment("a2", "eu-relations", "neutral", 0.5)))

		profile, err := authorRepo.Find(context.Background(), "anna meier")
		require.NoError(t, err)
		assert.Equal(t, 2, profile.TotalJudged)
		assert.InDelta(t, 0.7, profile.AvgConfidence, 0.0001)
	})

	t.Run("article without author key is a no-op", func(t *testing.T) {
		authorRepo := repository.NewMemoryAuthorRepository()
		svc := NewAggregatorService(authorRepo, testLogger())

		article := authoredArticle("a1", "")
		err := svc.Apply(context.Background(), article, judgment("a1", "eu-relations", "pro_eu", 0.9))
		require.NoError(t, err)

		_, err = authorRepo.Find(context.Background(), "anna meier")
		assert.ErrorIs(t, err, domain.ErrAuthorNotFound)
	})

	t.Run("concurrent opposing judgments both land", func(t *testing.T) {
		authorRepo := repository.NewMemoryAuthorRepository()
		svc := NewAggregatorService(authorRepo, testLogger())

		var wg sync.WaitGroup

		wg.Add(2)

		go func() {
			defer wg.Done()

			err := svc.Apply(context.Background(), authoredArticle("a1", "anna meier"),
				judgment("a1", "immigration-integration", "restrictive", 0.7))
			assert.NoError(t, err)
		}()

		go func() {
			defer wg.Done()

			err := svc.Apply(context.Background(), authoredArticle("a2", "anna meier"),
				judgment("a2", "immigration-integration", "liberal", 0.7))
			assert.NoError(t, err)
		}()

		wg.Wait()

		profile, err := authorRepo.Find(context.Background(), "anna meier")
		require.NoError(t, err)

		counts := profile.Counts("immigration-integration")
		assert.Equal(t, 1, counts["restrictive"])
		assert.Equal(t, 1, counts["liberal"])
		assert.Equal(t, 2, profile.TotalJudged)
	})

	t.Run("many concurrent updates never lose a count", func(t *testing.T) {
		authorRepo := repository.NewMemoryAuthorRepository()
		svc := NewAggregatorService(authorRepo, testLogger())

		const updates = 50

		var wg sync.WaitGroup

		for i := 0; i < updates; i++ {
			wg.Add(1)

			go func(n int) {
				defer wg.Done()

				article := authoredArticle("a", "anna meier")
				err := svc.Apply(context.Background(), article, judgment("a", "swiss-politics", "left_center", 0.5))
				assert.NoError(t, err)
			}(i)
		}

		wg.Wait()

		profile, err := authorRepo.Find(context.Background(), "anna meier")
		require.NoError(t, err)
		assert.Equal(t, updates, profile.TotalJudged)
		assert.Equal(t, updates, profile.Counts("swiss-politics")["left_center"])
	})
}

func TestAggregatorService_ApplyReplace(t *testing.T) {
	t.Run("fallback count moves to the real direction", func(t *testing.T) {
		authorRepo := repository.NewMemoryAuthorRepository()
		svc := NewAggregatorService(authorRepo, testLogger())

		article := authoredArticle("a1", "anna meier")
		fallback := domain.NewFallbackRecord("a1", "eu-relations", domain.ErrOracleUnavailable)
		require.NoError(t, svc.Apply(context.Background(), article, fallback))

		replacement := judgment("a1", "eu-relations", "eu_skeptical", 0.9)
		require.NoError(t, svc.ApplyReplace(context.Background(), article, fallback, replacement))

		profile, err := authorRepo.Find(context.Background(), "anna meier")
		require.NoError(t, err)

		counts := profile.Counts("eu-relations")
		assert.Equal(t, 0, counts["neutral"])
		assert.Equal(t, 1, counts["eu_skeptical"])
		assert.Equal(t, 1, profile.TotalJudged)
		assert.InDelta(t, 0.9, profile.AvgConfidence, 0.0001)
	})

	t.Run("replace never drives a count negative", func(t *testing.T) {
		authorRepo := repository.NewMemoryAuthorRepository()
		svc := NewAggregatorService(authorRepo, testLogger())

		article := authoredArticle("a1", "anna meier")
		previous := judgment("a1", "eu-relations", "neutral", 0.5)
		replacement := judgment("a1", "eu-relations", "pro_eu", 0.8)

		// No prior Apply for this judgment; the decrement has nothing to take.
		require.NoError(t, svc.ApplyReplace(context.Background(), article, previous, replacement))

		profile, err := authorRepo.Find(context.Background(), "anna meier")
		require.NoError(t, err)
		assert.Equal(t, 0, profile.Counts("eu-relations")["neutral"])
		assert.Equal(t, 1, profile.Counts("eu-relations")["pro_eu"])
	})
}
