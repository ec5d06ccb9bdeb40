package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bias-tracker/domain"
)

// SourceDefinition describes one configured news source. Retrieval itself is
// the fetcher's concern; the core only needs the declared language prior and
// region tag.
type SourceDefinition struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Language  string `yaml:"language"`
	Region    string `yaml:"region"`
	KnownLean string `yaml:"known_lean"`
}

// TopicsFile is the on-disk shape of the topic/source configuration.
type TopicsFile struct {
	Topics  []domain.TopicDefinition `yaml:"topics"`
	Sources []SourceDefinition       `yaml:"sources"`
}

// TopicSet is the validated, immutable in-memory form shared by all
// classification calls for the process lifetime.
type TopicSet struct {
	topics  map[string]*domain.TopicDefinition
	ordered []*domain.TopicDefinition
	sources map[string]SourceDefinition
}

// LoadTopics reads and validates the YAML topic definitions. A malformed file
// is the only fatal startup condition in the core.
func LoadTopics(path string) (*TopicSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidTopicConfig, path, err)
	}

	var file TopicsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidTopicConfig, path, err)
	}

	return NewTopicSet(file)
}

// NewTopicSet validates parsed definitions and freezes them.
func NewTopicSet(file TopicsFile) (*TopicSet, error) {
	if len(file.Topics) == 0 {
		return nil, fmt.Errorf("%w: no topics defined", domain.ErrInvalidTopicConfig)
	}

	set := &TopicSet{
		topics:  make(map[string]*domain.TopicDefinition, len(file.Topics)),
		sources: make(map[string]SourceDefinition, len(file.Sources)),
	}

	for i := range file.Topics {
		topic := &file.Topics[i]

		if err := validateTopic(topic); err != nil {
			return nil, err
		}

		if _, exists := set.topics[topic.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate topic id %q", domain.ErrInvalidTopicConfig, topic.ID)
		}

		set.topics[topic.ID] = topic
		set.ordered = append(set.ordered, topic)
	}

	for _, source := range file.Sources {
		if source.ID == "" {
			return nil, fmt.Errorf("%w: source with empty id", domain.ErrInvalidTopicConfig)
		}
		set.sources[source.ID] = source
	}

	return set, nil
}

func validateTopic(topic *domain.TopicDefinition) error {
	if topic.ID == "" {
		return fmt.Errorf("%w: topic with empty id", domain.ErrInvalidTopicConfig)
	}

	if topic.Poles[0] == "" || topic.Poles[1] == "" {
		return fmt.Errorf("%w: topic %q needs both poles", domain.ErrInvalidTopicConfig, topic.ID)
	}

	if topic.Poles[0] == topic.Poles[1] || topic.Poles[0] == domain.CategoryNeutral ||
		topic.Poles[1] == domain.CategoryNeutral {
		return fmt.Errorf("%w: topic %q has degenerate poles", domain.ErrInvalidTopicConfig, topic.ID)
	}

	if topic.Threshold <= 0 {
		return fmt.Errorf("%w: topic %q threshold must be positive", domain.ErrInvalidTopicConfig, topic.ID)
	}

	if len(topic.Keywords) == 0 {
		return fmt.Errorf("%w: topic %q has no keyword sets", domain.ErrInvalidTopicConfig, topic.ID)
	}

	for lang, keywords := range topic.Keywords {
		if len(keywords) == 0 {
			return fmt.Errorf("%w: topic %q language %q has no keywords", domain.ErrInvalidTopicConfig, topic.ID, lang)
		}
		for _, kw := range keywords {
			if kw.Term == "" {
				return fmt.Errorf("%w: topic %q language %q has empty keyword", domain.ErrInvalidTopicConfig, topic.ID, lang)
			}
			if kw.Weight <= 0 {
				return fmt.Errorf("%w: topic %q keyword %q weight must be positive", domain.ErrInvalidTopicConfig, topic.ID, kw.Term)
			}
		}
	}

	return nil
}

// Topic returns the definition for id, or ErrUnknownTopic.
func (s *TopicSet) Topic(id string) (*domain.TopicDefinition, error) {
	topic, ok := s.topics[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTopic, id)
	}

	return topic, nil
}

// All returns topics in file order.
func (s *TopicSet) All() []*domain.TopicDefinition {
	return s.ordered
}

// Languages returns the union of languages appearing in any keyword set.
func (s *TopicSet) Languages() []string {
	seen := make(map[string]bool)
	var languages []string

	for _, topic := range s.ordered {
		for lang := range topic.Keywords {
			if !seen[lang] {
				seen[lang] = true
				languages = append(languages, lang)
			}
		}
	}

	return languages
}

// Source returns the registry entry for a source ID, if configured.
func (s *TopicSet) Source(id string) (SourceDefinition, bool) {
	source, ok := s.sources[id]
	return source, ok
}
