// Package classifier assigns a language tag and topic set to article text
// using the weighted multilingual keyword sets from configuration. It is pure:
// fixed configuration and fixed text always produce the same result.
package classifier

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bias-tracker/config"
)

// TopicScore is one topic assignment with its aggregate keyword score.
type TopicScore struct {
	TopicID string
	Score   float64
}

// Classification is the classifier verdict for one article.
type Classification struct {
	Language string
	Topics   []TopicScore
}

// TopicIDs returns the matched topic IDs in configuration order.
func (c Classification) TopicIDs() []string {
	ids := make([]string, len(c.Topics))
	for i, t := range c.Topics {
		ids[i] = t.TopicID
	}

	return ids
}

type foldedKeyword struct {
	term   string
	weight float64
}

// Classifier holds keyword sets folded once at construction. Safe for
// concurrent use; all state is read-only after New.
type Classifier struct {
	// byLanguage[lang][topicID] -> folded keywords
	byLanguage       map[string]map[string][]foldedKeyword
	topics           *config.TopicSet
	languages        []string
	minLanguageScore float64
}

// New builds a classifier from the immutable topic set.
func New(topics *config.TopicSet, minLanguageScore float64) *Classifier {
	c := &Classifier{
		byLanguage:       make(map[string]map[string][]foldedKeyword),
		topics:           topics,
		minLanguageScore: minLanguageScore,
	}

	for _, topic := range topics.All() {
		for lang, keywords := range topic.Keywords {
			perTopic, ok := c.byLanguage[lang]
			if !ok {
				perTopic = make(map[string][]foldedKeyword)
				c.byLanguage[lang] = perTopic
				c.languages = append(c.languages, lang)
			}

			folded := make([]foldedKeyword, 0, len(keywords))
			for _, kw := range keywords {
				folded = append(folded, foldedKeyword{term: fold(kw.Term), weight: kw.Weight})
			}
			perTopic[topic.ID] = folded
		}
	}

	// Fixed iteration order keeps the result deterministic.
	sort.Strings(c.languages)

	return c
}

// Classify scores every configured language's keyword sets against the text.
// The language tag is the best-scoring language above the minimum threshold,
// falling back to the declared source language; ties prefer the declared
// language. Topic assignment is every topic whose score in the chosen
// language's keyword set meets the topic threshold.
func (c *Classifier) Classify(text, declaredLanguage string) Classification {
	folded := fold(text)

	scores := make(map[string]map[string]float64, len(c.languages))
	totals := make(map[string]float64, len(c.languages))

	for _, lang := range c.languages {
		perTopic := make(map[string]float64)
		for topicID, keywords := range c.byLanguage[lang] {
			score := 0.0
			for _, kw := range keywords {
				if strings.Contains(folded, kw.term) {
					score += kw.weight
				}
			}
			if score > 0 {
				perTopic[topicID] = score
			}
		}

		scores[lang] = perTopic
		for _, s := range perTopic {
			totals[lang] += s
		}
	}

	language := declaredLanguage
	best := 0.0
	for _, lang := range c.languages {
		total := totals[lang]
		if total < c.minLanguageScore {
			continue
		}
		// Strict improvement required, so an equal score never displaces
		// the declared language once chosen.
		if total > best || (total == best && lang == declaredLanguage) {
			best = total
			language = lang
		}
	}

	var matched []TopicScore
	for _, topic := range c.topics.All() {
		score := scores[language][topic.ID]
		if score >= topic.Threshold {
			matched = append(matched, TopicScore{TopicID: topic.ID, Score: score})
		}
	}

	return Classification{Language: language, Topics: matched}
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips diacritics so "Flüchtling" matches "fluchtling".
func fold(s string) string {
	stripped, _, err := transform.String(foldTransformer, s)
	if err != nil {
		stripped = s
	}

	return strings.ToLower(stripped)
}
