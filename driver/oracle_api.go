// ABOUTME: This file implements the HTTP client for the external judgment oracle
// ABOUTME: Responses are schema-validated before they are allowed to persist
package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"bias-tracker/config"
	"bias-tracker/domain"

	"github.com/google/uuid"
)

// HTTPError carries the status code of a failed oracle call so the error
// classifier can distinguish retryable server errors from client errors.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("oracle request failed with status: %s", e.Status)
}

type judgmentRequest struct {
	Model      string   `json:"model"`
	ArticleID  string   `json:"article_id"`
	Excerpt    string   `json:"excerpt"`
	Language   string   `json:"language"`
	TopicID    string   `json:"topic_id"`
	Categories []string `json:"categories"`
}

type judgmentResponse struct {
	Direction  string   `json:"direction"`
	Strength   float64  `json:"strength"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
	Reasoning  string   `json:"reasoning"`
}

type comparisonRequest struct {
	Model    string `json:"model"`
	TopicID  string `json:"topic_id"`
	ExcerptA string `json:"excerpt_a"`
	ExcerptB string `json:"excerpt_b"`
	Language string `json:"language"`
}

type comparisonResponse struct {
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`
}

// OracleClient talks to the judgment oracle API.
type OracleClient struct {
	cfg    config.OracleConfig
	client *http.Client
	logger *slog.Logger
}

// NewOracleClient creates an oracle client from config.
func NewOracleClient(cfg config.OracleConfig, logger *slog.Logger) *OracleClient {
	return &OracleClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Judge asks the oracle for a bias judgment on one (article, topic) pair.
// The returned record is schema-validated against the topic's category set.
func (c *OracleClient) Judge(ctx context.Context, article *domain.Article, topic *domain.TopicDefinition) (*domain.JudgmentRecord, error) {
	payload := judgmentRequest{
		Model:      c.cfg.Model,
		ArticleID:  article.ID,
		Excerpt:    c.excerpt(article.Text),
		Language:   article.Language,
		TopicID:    topic.ID,
		Categories: topic.Categories(),
	}

	var response judgmentResponse
	if err := c.post(ctx, c.cfg.APIPath, payload, &response); err != nil {
		return nil, err
	}

	record := &domain.JudgmentRecord{
		ID:         uuid.New(),
		ArticleID:  article.ID,
		TopicID:    topic.ID,
		Direction:  response.Direction,
		Strength:   response.Strength,
		Confidence: response.Confidence,
		Evidence:   response.Evidence,
		Reasoning:  response.Reasoning,
		Status:     domain.JudgmentStatusSucceeded,
		CreatedAt:  time.Now().UTC(),
	}

	if err := record.Validate(topic); err != nil {
		c.logger.WarnContext(ctx, "oracle response failed validation",
			"error", err, "article_id", article.ID, "topic_id", topic.ID)
		return nil, err
	}

	c.logger.InfoContext(ctx, "judgment received",
		"article_id", article.ID,
		"topic_id", topic.ID,
		"direction", record.Direction,
		"confidence", record.Confidence)

	return record, nil
}

// Compare asks the oracle which of two articles leans harder on a topic.
func (c *OracleClient) Compare(ctx context.Context, a, b *domain.Article, topic *domain.TopicDefinition) (*domain.ComparisonEdge, error) {
	payload := comparisonRequest{
		Model:    c.cfg.Model,
		TopicID:  topic.ID,
		ExcerptA: c.excerpt(a.Text),
		ExcerptB: c.excerpt(b.Text),
		Language: a.Language,
	}

	var response comparisonResponse
	if err := c.post(ctx, c.cfg.ComparePath, payload, &response); err != nil {
		return nil, err
	}

	edge := &domain.ComparisonEdge{
		ArticleA:   a.ID,
		ArticleB:   b.ID,
		TopicID:    topic.ID,
		Outcome:    domain.EdgeOutcome(response.Outcome),
		Confidence: response.Confidence,
	}

	if !edge.Outcome.Valid() {
		return nil, fmt.Errorf("%w: comparison outcome %q", domain.ErrOracleSchemaViolation, response.Outcome)
	}

	if edge.Confidence < 0 || edge.Confidence > 1 {
		return nil, fmt.Errorf("%w: comparison confidence %v out of [0,1]",
			domain.ErrOracleSchemaViolation, edge.Confidence)
	}

	return edge, nil
}

// CheckHealth verifies the oracle endpoint responds.
func (c *OracleClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Host+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return nil
}

func (c *OracleClient) post(ctx context.Context, path string, payload, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to marshal oracle payload", "error", err)
		return fmt.Errorf("failed to marshal oracle payload: %w", err)
	}

	apiURL := c.cfg.Host + path

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodPost, apiURL, bytes.NewReader(jsonData))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to create oracle request", "error", err, "api_url", apiURL)
		return fmt.Errorf("failed to create oracle request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to reach oracle", "error", err, "api_url", apiURL)
		return fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.ErrorContext(ctx, "oracle returned non-200 status",
			"status", resp.Status, "body", string(bodyBytes))

		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read oracle response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.ErrorContext(ctx, "failed to unmarshal oracle response", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrOracleSchemaViolation, err)
	}

	return nil
}

// excerpt truncates article text to the configured oracle request size.
func (c *OracleClient) excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= c.cfg.MaxExcerpt {
		return text
	}

	return string(runes[:c.cfg.MaxExcerpt])
}
