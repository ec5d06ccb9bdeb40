// ABOUTME: This file exposes the read-only query API over judgments, authors, and rankings
// ABOUTME: Handlers translate domain sentinel errors into HTTP status codes
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bias-tracker/config"
	"bias-tracker/domain"
	"bias-tracker/repository"

	"github.com/labstack/echo/v4"
)

const (
	defaultJudgmentLimit = 50
	maxJudgmentLimit     = 200
)

// judgmentResponse is the wire shape of one judgment record.
type judgmentResponse struct {
	ID         string    `json:"id"`
	ArticleID  string    `json:"article_id"`
	TopicID    string    `json:"topic_id"`
	Direction  string    `json:"direction"`
	Strength   float64   `json:"strength"`
	Confidence float64   `json:"confidence"`
	Evidence   []string  `json:"evidence,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// authorResponse is the wire shape of one author profile.
type authorResponse struct {
	Key           string                           `json:"key"`
	DisplayName   string                           `json:"display_name"`
	Variants      []string                         `json:"variants,omitempty"`
	Sources       []string                         `json:"sources,omitempty"`
	TopicCounts   map[string]domain.CategoryCounts `json:"topic_counts"`
	TotalJudged   int                              `json:"total_judged"`
	AvgConfidence float64                          `json:"avg_confidence"`
	LastUpdated   time.Time                        `json:"last_updated"`
}

// QueryHandler serves the read-only query endpoints.
type QueryHandler struct {
	judgments repository.JudgmentRepository
	authors   repository.AuthorRepository
	rankings  repository.RankingRepository
	topics    *config.TopicSet
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(
	judgments repository.JudgmentRepository,
	authors repository.AuthorRepository,
	rankings repository.RankingRepository,
	topics *config.TopicSet,
) *QueryHandler {
	return &QueryHandler{
		judgments: judgments,
		authors:   authors,
		rankings:  rankings,
		topics:    topics,
	}
}

// ListJudgments handles GET /v1/judgments.
func (h *QueryHandler) ListJudgments(c echo.Context) error {
	limit := defaultJudgmentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}

		limit = parsed
	}

	if limit > maxJudgmentLimit {
		limit = maxJudgmentLimit
	}

	records, err := h.judgments.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list judgments")
	}

	responses := make([]judgmentResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, toJudgmentResponse(record))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"judgments": responses,
		"count":     len(responses),
	})
}

// GetAuthor handles GET /v1/authors/:key.
func (h *QueryHandler) GetAuthor(c echo.Context) error {
	key := c.Param("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "author key is required")
	}

	profile, err := h.authors.Find(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrAuthorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "author not found")
		}

		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load author profile")
	}

	return c.JSON(http.StatusOK, authorResponse{
		Key:           profile.Key,
		DisplayName:   profile.DisplayName,
		Variants:      profile.Variants,
		Sources:       profile.Sources,
		TopicCounts:   profile.TopicCounts,
		TotalJudged:   profile.TotalJudged,
		AvgConfidence: profile.AvgConfidence,
		LastUpdated:   profile.LastUpdated,
	})
}

// GetTopicRanking handles GET /v1/topics/:id/ranking.
func (h *QueryHandler) GetTopicRanking(c echo.Context) error {
	topicID := c.Param("id")

	if _, err := h.topics.Topic(topicID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown topic")
	}

	snapshot, err := h.rankings.LatestSnapshot(c.Request().Context(), topicID)
	if err != nil {
		if errors.Is(err, domain.ErrNoSnapshot) {
			return echo.NewHTTPError(http.StatusNotFound, "no ranking computed for topic yet")
		}

		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load ranking snapshot")
	}

	return c.JSON(http.StatusOK, snapshot)
}

// GetTopicStats handles GET /v1/topics/:id/stats.
func (h *QueryHandler) GetTopicStats(c echo.Context) error {
	topicID := c.Param("id")

	topic, err := h.topics.Topic(topicID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown topic")
	}

	stats, err := h.judgments.TopicDistribution(c.Request().Context(), topic)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute topic distribution")
	}

	return c.JSON(http.StatusOK, stats)
}

func toJudgmentResponse(record *domain.JudgmentRecord) judgmentResponse {
	return judgmentResponse{
		ID:         record.ID.String(),
		ArticleID:  record.ArticleID,
		TopicID:    record.TopicID,
		Direction:  record.Direction,
		Strength:   record.Strength,
		Confidence: record.Confidence,
		Evidence:   record.Evidence,
		Reasoning:  record.Reasoning,
		Status:     string(record.Status),
		CreatedAt:  record.CreatedAt,
	}
}
