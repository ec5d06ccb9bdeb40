package domain

import "time"

// CategoryNeutral is the shared middle category every topic carries in
// addition to its two poles.
const CategoryNeutral = "neutral"

// Keyword is a single weighted match term for one language.
type Keyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// TopicDefinition describes one configured contentious topic. Loaded once at
// startup and treated as read-only for the process lifetime.
type TopicDefinition struct {
	ID          string               `yaml:"id"`
	DisplayName string               `yaml:"display_name"`
	// Poles is the ordered bipolar label pair, e.g. ["restrictive", "liberal"].
	Poles    [2]string            `yaml:"poles"`
	Keywords map[string][]Keyword `yaml:"keywords"`
	// Threshold is the minimum aggregate keyword score for topic assignment.
	Threshold float64 `yaml:"threshold"`
}

// Categories returns the enumerated bias category set for this topic:
// both poles plus "neutral".
func (t *TopicDefinition) Categories() []string {
	return []string{t.Poles[0], CategoryNeutral, t.Poles[1]}
}

// ValidCategory reports whether label is in the topic's category set.
func (t *TopicDefinition) ValidCategory(label string) bool {
	return label == t.Poles[0] || label == t.Poles[1] || label == CategoryNeutral
}

// TopicStats is the aggregate judgment distribution for one topic, derived
// from persisted judgments at query time.
type TopicStats struct {
	TopicID       string    `json:"topic_id"`
	DisplayName   string    `json:"display_name"`
	TotalArticles int       `json:"total_articles"`
	PoleACount    int       `json:"pole_a_count"`
	NeutralCount  int       `json:"neutral_count"`
	PoleBCount    int       `json:"pole_b_count"`
	LastProcessed time.Time `json:"last_processed"`
}

// DirectionSign maps a category label onto the bias spectrum: pole A is
// negative, pole B positive, neutral zero. Unknown labels count as zero.
func (t *TopicDefinition) DirectionSign(label string) float64 {
	switch label {
	case t.Poles[0]:
		return -1
	case t.Poles[1]:
		return 1
	default:
		return 0
	}
}
