package domain

import "time"

// CategoryCounts maps category label to judged-article count for one topic.
type CategoryCounts map[string]int

// Total sums the counts across all categories.
func (c CategoryCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}

	return total
}

// AuthorProfile is the rolling per-author bias distribution. Mutated only by
// the aggregator under that author's lock.
type AuthorProfile struct {
	LastUpdated   time.Time                 `db:"last_updated"`
	Key           string                    `db:"key"`
	DisplayName   string                    `db:"display_name"`
	Variants      []string                  `db:"variants"`
	Sources       []string                  `db:"sources"`
	TopicCounts   map[string]CategoryCounts `db:"topic_counts"`
	TotalJudged   int                       `db:"total_judged"`
	AvgConfidence float64                   `db:"avg_confidence"`
}

// NewAuthorProfile initializes an empty profile for a previously unseen author.
func NewAuthorProfile(key, displayName string) *AuthorProfile {
	return &AuthorProfile{
		Key:         key,
		DisplayName: displayName,
		TopicCounts: make(map[string]CategoryCounts),
	}
}

// Counts returns the category counts for a topic, creating the map lazily.
func (p *AuthorProfile) Counts(topicID string) CategoryCounts {
	counts, ok := p.TopicCounts[topicID]
	if !ok {
		counts = make(CategoryCounts)
		p.TopicCounts[topicID] = counts
	}

	return counts
}

// RecordVariant remembers a byline spelling and source if not seen before.
func (p *AuthorProfile) RecordVariant(byline, sourceID string) {
	if byline != "" && !contains(p.Variants, byline) {
		p.Variants = append(p.Variants, byline)
	}

	if sourceID != "" && !contains(p.Sources, sourceID) {
		p.Sources = append(p.Sources, sourceID)
	}
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}

	return false
}
