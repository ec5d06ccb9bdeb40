package domain

import (
	"time"

	"github.com/google/uuid"
)

// EdgeOutcome enumerates the three possible pairwise comparison results.
type EdgeOutcome string

const (
	OutcomeAMoreBiased EdgeOutcome = "a-more-biased"
	OutcomeBMoreBiased EdgeOutcome = "b-more-biased"
	OutcomeEqual       EdgeOutcome = "equal"
)

// Valid reports whether the outcome is one of the enumerated values.
func (o EdgeOutcome) Valid() bool {
	return o == OutcomeAMoreBiased || o == OutcomeBMoreBiased || o == OutcomeEqual
}

// ComparisonEdge is pairwise tie-breaking evidence between two articles on
// one topic. Read-only once produced.
type ComparisonEdge struct {
	ArticleA   string      `db:"article_a"`
	ArticleB   string      `db:"article_b"`
	TopicID    string      `db:"topic_id"`
	Outcome    EdgeOutcome `db:"outcome"`
	Confidence float64     `db:"confidence"`
}

// RankedArticle is one entry in a ranking snapshot. Score lies on the bias
// spectrum: negative toward pole A, positive toward pole B.
type RankedArticle struct {
	ArticleID string  `json:"article_id"`
	Direction string  `json:"direction"`
	Score     float64 `json:"score"`
}

// RankingSnapshot is a derived, recomputable ordering of a topic's articles
// over a comparison window. It never feeds back into judgment state.
type RankingSnapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	ID          uuid.UUID       `json:"id"`
	TopicID     string          `json:"topic_id"`
	WindowFrom  time.Time       `json:"window_from"`
	WindowTo    time.Time       `json:"window_to"`
	Entries     []RankedArticle `json:"entries"`
}
