// ABOUTME: This file resolves article bylines to stable author keys
// ABOUTME: Byline spellings that normalize identically map to one author
package authors

import (
	"regexp"
	"strings"
)

// bylinePatterns match explicit author credits near the top of an article.
// The leading word covers the byline conventions of the supported languages.
var bylinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bBy\s+([A-ZÀ-Þ][a-zà-ÿ]+(?:\s+[A-ZÀ-Þ]\.?)?\s+[A-ZÀ-Þ][a-zà-ÿ]+)`),
	regexp.MustCompile(`\bVon\s+([A-ZÀ-Þ][a-zà-ÿ]+(?:\s+[A-ZÀ-Þ]\.?)?\s+[A-ZÀ-Þ][a-zà-ÿ]+)`),
	regexp.MustCompile(`\bPar\s+([A-ZÀ-Þ][a-zà-ÿ]+(?:\s+[A-ZÀ-Þ]\.?)?\s+[A-ZÀ-Þ][a-zà-ÿ]+)`),
	regexp.MustCompile(`\bDi\s+([A-ZÀ-Þ][a-zà-ÿ]+(?:\s+[A-ZÀ-Þ]\.?)?\s+[A-ZÀ-Þ][a-zà-ÿ]+)`),
	regexp.MustCompile(`\bBy\s+([A-Z]\.\s?[A-Z][a-zà-ÿ]+)`),
}

// headlinePattern catches analysis pieces that credit the author in the headline.
var headlinePattern = regexp.MustCompile(`Analysis by ([A-ZÀ-Þ][a-zà-ÿ]+ [A-ZÀ-Þ][a-zà-ÿ]+):`)

var initialDot = regexp.MustCompile(`\b([a-zà-ÿ])\.`)

// genericBylines are staff credits that never identify a person.
var genericBylines = map[string]struct{}{
	"staff":            {},
	"editor":           {},
	"correspondent":    {},
	"reporter":         {},
	"news desk":        {},
	"editorial board":  {},
	"opinion":          {},
	"wire services":    {},
	"associated press": {},
	"reuters":          {},
	"bloomberg":        {},
	"news service":     {},
	"staff writer":     {},
	"redaktion":        {},
	"agenturen":        {},
	"sda":              {},
	"keystone-sda":     {},
	"afp":              {},
	"ats":              {},
}

// contentSearchLimit bounds how far into the body we look for a byline.
const contentSearchLimit = 1000

// Resolver turns raw byline material into a stable author identity.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolution is a resolved author identity.
type Resolution struct {
	DisplayName string
	Key         string
}

// Resolve finds the best author identity for an article. The explicit byline
// wins when it names a person; otherwise the headline and the top of the body
// are scanned. Returns false when no credible person can be identified.
func (r *Resolver) Resolve(byline, headline, text string) (Resolution, bool) {
	if name := strings.TrimSpace(byline); name != "" && r.validName(name) {
		return Resolution{DisplayName: name, Key: NormalizeKey(name)}, true
	}

	if name := r.extractFromHeadline(headline); name != "" {
		return Resolution{DisplayName: name, Key: NormalizeKey(name)}, true
	}

	if name := r.extractFromContent(text); name != "" {
		return Resolution{DisplayName: name, Key: NormalizeKey(name)}, true
	}

	return Resolution{}, false
}

// extractFromContent scans the first paragraphs of the body, where bylines
// usually appear.
func (r *Resolver) extractFromContent(text string) string {
	searchText := text
	if runes := []rune(text); len(runes) > contentSearchLimit {
		searchText = string(runes[:contentSearchLimit])
	}

	for _, pattern := range bylinePatterns {
		match := pattern.FindStringSubmatch(searchText)
		if match == nil {
			continue
		}

		name := strings.TrimSpace(match[1])
		if r.validName(name) {
			return name
		}
	}

	return ""
}

func (r *Resolver) extractFromHeadline(headline string) string {
	match := headlinePattern.FindStringSubmatch(headline)
	if match == nil {
		return ""
	}

	name := strings.TrimSpace(match[1])
	if !r.validName(name) {
		return ""
	}

	return name
}

// validName rejects generic staff credits and strings that do not look like
// a person's name.
func (r *Resolver) validName(name string) bool {
	lower := strings.ToLower(name)
	if _, generic := genericBylines[lower]; generic {
		return false
	}

	parts := strings.Fields(name)
	if len(parts) < 2 {
		return false
	}

	if name == strings.ToUpper(name) || name == strings.ToLower(name) {
		return false
	}

	return true
}

// NormalizeKey produces the stable lookup key for a byline spelling.
// "J. Smith", "J Smith" and "j smith" all collapse to one key.
func NormalizeKey(name string) string {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))

	return initialDot.ReplaceAllString(name, "$1")
}
