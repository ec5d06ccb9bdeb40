package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JudgmentStatus distinguishes genuine oracle judgments from fallbacks
// written after the retry budget was exhausted.
type JudgmentStatus string

const (
	JudgmentStatusSucceeded JudgmentStatus = "succeeded"
	JudgmentStatusFallback  JudgmentStatus = "degraded-fallback"
)

// JudgmentRecord is the persisted bias assessment for one (article, topic)
// pair. At most one record exists per key.
type JudgmentRecord struct {
	CreatedAt  time.Time      `db:"created_at"`
	ID         uuid.UUID      `db:"id"`
	ArticleID  string         `db:"article_id"`
	TopicID    string         `db:"topic_id"`
	Direction  string         `db:"direction"`
	Strength   float64        `db:"strength"`
	Confidence float64        `db:"confidence"`
	Evidence   []string       `db:"evidence"`
	Reasoning  string         `db:"reasoning"`
	Status     JudgmentStatus `db:"status"`
}

// IsFallback reports whether this record was written on oracle failure.
// Downstream reprocessing jobs use this to find keys worth re-judging.
func (j *JudgmentRecord) IsFallback() bool {
	return j.Status == JudgmentStatusFallback
}

// Validate checks the record against its topic's enumerated category set and
// the [0,1] bounds on strength and confidence.
func (j *JudgmentRecord) Validate(topic *TopicDefinition) error {
	if j.ArticleID == "" {
		return ErrMissingArticleID
	}

	if !topic.ValidCategory(j.Direction) {
		return fmt.Errorf("%w: direction %q not in categories of topic %q",
			ErrOracleSchemaViolation, j.Direction, topic.ID)
	}

	if j.Strength < 0 || j.Strength > 1 {
		return fmt.Errorf("%w: strength %v out of [0,1]", ErrOracleSchemaViolation, j.Strength)
	}

	if j.Confidence < 0 || j.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of [0,1]", ErrOracleSchemaViolation, j.Confidence)
	}

	return nil
}

// NewFallbackRecord builds the degraded-fallback judgment persisted when the
// oracle cannot be reached or validated within the retry budget.
func NewFallbackRecord(articleID, topicID string, cause error) *JudgmentRecord {
	reasoning := "oracle unavailable"
	if cause != nil {
		reasoning = fmt.Sprintf("oracle unavailable: %v", cause)
	}

	return &JudgmentRecord{
		ID:         uuid.New(),
		ArticleID:  articleID,
		TopicID:    topicID,
		Direction:  CategoryNeutral,
		Strength:   0,
		Confidence: 0,
		Reasoning:  reasoning,
		Status:     JudgmentStatusFallback,
		CreatedAt:  time.Now().UTC(),
	}
}
