// ABOUTME: Domain-level sentinel errors for the bias-tracker pipeline
// ABOUTME: These errors are used with errors.Is() for error type checking
package domain

import "errors"

// Ingestion outcomes. Both are expected short-circuits, not failures.
var (
	// ErrDuplicateArticle indicates the content hash already exists; the
	// current fetch terminates with no further side effects.
	ErrDuplicateArticle = errors.New("duplicate article")

	// ErrNoTopicMatch indicates no topic cleared its score threshold.
	ErrNoTopicMatch = errors.New("article matches no configured topic")

	// ErrEmptyArticleText indicates the fetcher delivered an empty body.
	ErrEmptyArticleText = errors.New("article text is empty")
)

// Lookup errors
var (
	// ErrArticleNotFound indicates the requested article does not exist.
	ErrArticleNotFound = errors.New("article not found")

	// ErrAuthorNotFound indicates no profile exists for the author key.
	ErrAuthorNotFound = errors.New("author profile not found")

	// ErrJudgmentExists indicates a record already exists for the
	// (article, topic) key. Idempotent re-entry relies on this.
	ErrJudgmentExists = errors.New("judgment record already exists")

	// ErrJudgmentNotFound indicates no record exists for the
	// (article, topic) key.
	ErrJudgmentNotFound = errors.New("judgment record not found")

	// ErrUnknownTopic indicates a topic ID absent from configuration.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrNoSnapshot indicates no ranking has been computed for the topic yet.
	ErrNoSnapshot = errors.New("no ranking snapshot for topic")
)

// Oracle errors
var (
	// ErrOracleUnavailable indicates the judgment oracle is not reachable.
	ErrOracleUnavailable = errors.New("judgment oracle unavailable")

	// ErrOracleSchemaViolation indicates the oracle returned a response that
	// fails schema validation. Treated as transient once, then as failure.
	ErrOracleSchemaViolation = errors.New("oracle response violates schema")

	// ErrOracleExhausted indicates retries or call quota ran out; resolved
	// via a degraded-fallback record, never by dropping the key.
	ErrOracleExhausted = errors.New("oracle retry budget exhausted")
)

// Aggregation errors
var (
	// ErrAggregationContention indicates the author lock could not be
	// acquired in time. Callers must retry; a dropped update corrupts
	// author statistics.
	ErrAggregationContention = errors.New("author lock acquisition timed out")
)

// Validation errors
var (
	// ErrMissingArticleID indicates article_id is required but missing.
	ErrMissingArticleID = errors.New("article ID is required")

	// ErrInvalidTopicConfig indicates malformed topic definitions. The only
	// fatal startup condition in the core.
	ErrInvalidTopicConfig = errors.New("invalid topic configuration")
)
