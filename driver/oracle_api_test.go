// ABOUTME: This file tests the judgment oracle HTTP client against a stub server
// ABOUTME: Covers schema validation, error mapping, and excerpt truncation
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"bias-tracker/config"
	"bias-tracker/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testTopic() *domain.TopicDefinition {
	return &domain.TopicDefinition{
		ID:          "eu-relations",
		DisplayName: "EU Relations",
		Poles:       [2]string{"pro_eu", "eu_skeptical"},
		Threshold:   2.0,
	}
}

func testArticle() *domain.Article {
	return &domain.Article{
		ID:       "abc123",
		Language: "de",
		Text:     "Das Rahmenabkommen mit der EU bleibt umstritten.",
	}
}

func testOracleConfig(host string) config.OracleConfig {
	return config.OracleConfig{
		Host:        host,
		APIPath:     "/api/v1/judge",
		ComparePath: "/api/v1/compare",
		Model:       "test-model",
		Timeout:     5 * time.Second,
		MaxExcerpt:  3000,
	}
}

func TestOracleClient_Judge(t *testing.T) {
	t.Run("valid response becomes a succeeded judgment", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/judge", r.URL.Path)

			var req judgmentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "abc123", req.ArticleID)
			assert.Equal(t, "eu-relations", req.TopicID)
			assert.Contains(t, req.Categories, "neutral")

			json.NewEncoder(w).Encode(judgmentResponse{
				Direction:  "eu_skeptical",
				Strength:   0.7,
				Confidence: 0.85,
				Evidence:   []string{"bleibt umstritten"},
				Reasoning:  "framing leans against the agreement",
			})
		}))
		defer server.Close()

		client := NewOracleClient(testOracleConfig(server.URL), testLogger())

		record, err := client.Judge(context.Background(), testArticle(), testTopic())
		require.NoError(t, err)
		assert.Equal(t, "eu_skeptical", record.Direction)
		assert.Equal(t, domain.JudgmentStatusSucceeded, record.Status)
		assert.InDelta(t, 0.85, record.Confidence, 0.0001)
		assert.False(t, record.CreatedAt.IsZero())
	})

	t.Run("direction outside category set is a schema violation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(judgmentResponse{
				Direction:  "extremely-biased",
				Strength:   0.5,
				Confidence: 0.5,
			})
		}))
		defer server.Close()

		client := NewOracleClient(testOracleConfig(server.URL), testLogger())

		_, err := client.Judge(context.Background(), testArticle(), testTopic())
		assert.ErrorIs(t, err, domain.ErrOracleSchemaViolation)
	})

	t.Run("strength above one is a schema violation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(judgmentResponse{
				Direction:  "pro_eu",
				Strength:   1.4,
				Confidence: 0.5,
			})
		}))
		defer server.Close()

		client := NewOracleClient(testOracleConfig(server.URL), testLogger())

		_, err := client.Judge(context.Background(), testArticle(), testTopic())
		assert.ErrorIs(t, err, domain.ErrOracleSchemaViolation)
	})

	t.Run("malformed body is a schema violation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json at all"))
		}))
		defer server.Close()

		client := NewOracleClient(testOracleConfig(server.URL), testLogger())

		_, err := client.Judge(context.Background(), testArticle(), testTopic())
		assert.ErrorIs(t, err, domain.ErrOracleSchemaViolation)
	})

	t.Run("server error surfaces as HTTPError with status code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewOracleClient(testOracleConfig(server.URL), testLogger())

		_, err := client.Judge(context.Background(), testArticle(), testTopic())
		require.Error(t, err)

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	})

	t.Run("unreachable oracle maps to unavailable", func(t *testing.T) {
		cfg := testOracleConfig("http://127.0.0.1:1")
		cfg.Timeout = 500 * time.Millisecond
		client := NewOracleClient(cfg, testLogger())

		_, err := client.Judge(context.Background(), testArticle(), testTopic())
		assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	})

	t.Run("long article text is truncated to the excerpt budget", func(t *testing.T) {
		var receivedExcerpt string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req judgmentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			receivedExcerpt = req.Excerpt

			json.NewEncoder(w).Encode(judgmentResponse{Direction: "neutral"})
		}))
		defer server.Close()

		cfg := testOracleConfig(server.URL)
		cfg.MaxExcerpt = 100
		client := NewOracleClient(cfg, testLogger())

		article := testArticle()
		article.Text = strings.Repeat("ü", 500)

		_, err := client.Judge(context.Background(), article, testTopic())
		require.NoError(t, err)
		assert.Equal(t, 100, len([]rune(receivedExcerpt)))
	})
}

func TestOracleClient_Compare(t *testing.T) {
	articleB := &domain.Article{ID: "def456", Language: "de", Text: "Anderer Text."}

	t.Run("valid outcome becomes an edge", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/compare", r.URL.Path)
			json.NewEncoder(w).Encode(comparisonResponse{Outcome: "a-more-biased", Confidence: 0.6})
		}))
		defer server.Close()

		client := NewOracleClient(testOracleConfig(server.URL), testLogger())

		edge, err := client.Compare(context.Background(), testArticle(), articleB, testTopic())
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeAMoreBiased, edge.Outcome)
		assert.Equal(t, "abc123", edge.ArticleA)
		assert.Equal(t, "def456", edge.ArticleB)
	})

	t.Run("unknown outcome is a schema violation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(comparisonResponse{Outcome: "both-fine", Confidence: 0.6})
		}))
		defer server.Close()

		client := NewOracleClient(testOracleConfig(server.URL), testLogger())

		_, err := client.Compare(context.Background(), testArticle(), articleB, testTopic())
		assert.ErrorIs(t, err, domain.ErrOracleSchemaViolation)
	})
}
