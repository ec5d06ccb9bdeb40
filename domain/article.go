package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// FetchedArticle is the raw payload delivered by the article fetcher.
// The fetcher owns retrieval mechanics; everything here is already plain text.
type FetchedArticle struct {
	SourceID         string    `json:"source_id"`
	Region           string    `json:"region"`
	DeclaredLanguage string    `json:"declared_language"`
	Byline           string    `json:"byline"`
	Headline         string    `json:"headline"`
	Text             string    `json:"text"`
	PublishedAt      time.Time `json:"published_at"`
}

// Article is the canonical, immutable form of a deduplicated article.
type Article struct {
	CreatedAt   time.Time `db:"created_at"`
	ID          string    `db:"id"`
	SourceID    string    `db:"source_id"`
	Region      string    `db:"region"`
	Language    string    `db:"language"`
	Byline      string    `db:"byline"`
	AuthorKey   string    `db:"author_key"`
	Headline    string    `db:"headline"`
	Text        string    `db:"text"`
	PublishedAt time.Time `db:"published_at"`
}

// ContentHash computes the dedup key for raw article text. Whitespace runs are
// collapsed before hashing so re-fetches that differ only in formatting map to
// the same Article.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:])
}

// NewArticle builds the canonical Article for a fetched payload. The language
// is the classifier's verdict, not the fetcher's declared prior.
func NewArticle(fetched FetchedArticle, language string) *Article {
	return &Article{
		ID:          ContentHash(fetched.Text),
		SourceID:    fetched.SourceID,
		Region:      fetched.Region,
		Language:    language,
		Byline:      fetched.Byline,
		Headline:    fetched.Headline,
		Text:        fetched.Text,
		PublishedAt: fetched.PublishedAt,
		CreatedAt:   time.Now().UTC(),
	}
}
