// ABOUTME: This file implements metrics collection for oracle spend and pipeline health
// ABOUTME: Tracks per-topic counters plus latency, exported as JSON and Prometheus text
package metrics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"bias-tracker/config"
)

// TopicMetrics tracks oracle spend and outcomes for one topic.
type TopicMetrics struct {
	TopicID          string        `json:"topic_id"`
	OracleCalls      int64         `json:"oracle_calls"`
	SuccessCount     int64         `json:"success_count"`
	FailureCount     int64         `json:"failure_count"`
	FallbackCount    int64         `json:"fallback_count"`
	SkippedExisting  int64         `json:"skipped_existing"`
	SuccessRate      float64       `json:"success_rate"`
	AvgJudgmentTime  time.Duration `json:"avg_judgment_time_ms"`
	LastJudgmentTime time.Time     `json:"last_judgment_time"`
	totalTime        time.Duration
}

// PipelineMetrics tracks ingest-side counters across all topics.
type PipelineMetrics struct {
	ArticlesIngested  int64 `json:"articles_ingested"`
	DuplicatesDropped int64 `json:"duplicates_dropped"`
	NoTopicMatches    int64 `json:"no_topic_matches"`
	AuthorsResolved   int64 `json:"authors_resolved"`
	RateLimitWaits    int64 `json:"rate_limit_waits"`
}

// ExportData contains all metrics for export.
type ExportData struct {
	Pipeline    *PipelineMetrics         `json:"pipeline"`
	Topics      map[string]*TopicMetrics `json:"topics"`
	ExportTime  time.Time                `json:"export_time"`
	ServiceName string                   `json:"service_name"`
}

// Collector manages metric collection and aggregation.
type Collector struct {
	enabled bool
	logger  *slog.Logger

	mu       sync.RWMutex
	topics   map[string]*TopicMetrics
	pipeline PipelineMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector(cfg config.MetricsConfig, logger *slog.Logger) *Collector {
	logger.Info("metrics collector initialized", "enabled", cfg.Enabled, "path", cfg.Path)

	return &Collector{
		enabled: cfg.Enabled,
		logger:  logger,
		topics:  make(map[string]*TopicMetrics),
	}
}

// RecordJudgment records one oracle judgment outcome for a topic.
func (c *Collector) RecordJudgment(topicID string, duration time.Duration, success bool) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	metrics := c.topic(topicID)
	metrics.OracleCalls++
	metrics.LastJudgmentTime = time.Now()
	metrics.totalTime += duration

	if success {
		metrics.SuccessCount++
	} else {
		metrics.FailureCount++
	}

	if metrics.OracleCalls > 0 {
		metrics.SuccessRate = float64(metrics.SuccessCount) / float64(metrics.OracleCalls)
		metrics.AvgJudgmentTime = time.Duration(metrics.totalTime.Nanoseconds() / metrics.OracleCalls)
	}
}

// RecordFallback records one degraded-fallback judgment for a topic.
func (c *Collector) RecordFallback(topicID string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.topic(topicID).FallbackCount++
}

// RecordSkippedExisting records a judgment request short-circuited by the
// existence check, i.e. an oracle call that was not spent.
func (c *Collector) RecordSkippedExisting(topicID string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.topic(topicID).SkippedExisting++
}

// RecordIngest records one ingest outcome.
func (c *Collector) RecordIngest(duplicate, noTopic, authorResolved bool) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case duplicate:
		c.pipeline.DuplicatesDropped++
	case noTopic:
		c.pipeline.NoTopicMatches++
	default:
		c.pipeline.ArticlesIngested++
		if authorResolved {
			c.pipeline.AuthorsResolved++
		}
	}
}

// RecordRateLimitWait records that an oracle call had to wait on window quota.
func (c *Collector) RecordRateLimitWait() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pipeline.RateLimitWaits++
}

// GetTopicMetrics returns a copy of the metrics for one topic.
func (c *Collector) GetTopicMetrics(topicID string) *TopicMetrics {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	metrics, exists := c.topics[topicID]
	if !exists {
		return nil
	}

	found := *metrics

	return &found
}

// GetPipelineMetrics returns a copy of the pipeline counters.
func (c *Collector) GetPipelineMetrics() PipelineMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.pipeline
}

// ExportJSON exports all metrics in JSON format.
func (c *Collector) ExportJSON() ([]byte, error) {
	if !c.enabled {
		return []byte("{}"), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	pipeline := c.pipeline
	exportData := &ExportData{
		Pipeline:    &pipeline,
		Topics:      make(map[string]*TopicMetrics),
		ExportTime:  time.Now(),
		ServiceName: "bias-tracker",
	}

	for topicID, metrics := range c.topics {
		found := *metrics
		exportData.Topics[topicID] = &found
	}

	return json.MarshalIndent(exportData, "", "  ")
}

// ExportPrometheus exports metrics in Prometheus text format.
func (c *Collector) ExportPrometheus() string {
	if !c.enabled {
		return ""
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var builder strings.Builder

	builder.WriteString("# HELP biastracker_oracle_calls_total Total oracle judgment calls\n")
	builder.WriteString("# TYPE biastracker_oracle_calls_total counter\n")
	builder.WriteString("# HELP biastracker_fallbacks_total Degraded-fallback judgments written\n")
	builder.WriteString("# TYPE biastracker_fallbacks_total counter\n")
	builder.WriteString("# HELP biastracker_judgment_time_seconds Average oracle judgment time\n")
	builder.WriteString("# TYPE biastracker_judgment_time_seconds gauge\n")
	builder.WriteString("# HELP biastracker_oracle_success_rate Ratio of successful oracle calls\n")
	builder.WriteString("# TYPE biastracker_oracle_success_rate gauge\n")

	topicIDs := make([]string, 0, len(c.topics))
	for topicID := range c.topics {
		topicIDs = append(topicIDs, topicID)
	}
	sort.Strings(topicIDs)

	for _, topicID := range topicIDs {
		metrics := c.topics[topicID]

		builder.WriteString(fmt.Sprintf("biastracker_oracle_calls_total{topic=%q} %d\n",
			topicID, metrics.OracleCalls))
		builder.WriteString(fmt.Sprintf("biastracker_fallbacks_total{topic=%q} %d\n",
			topicID, metrics.FallbackCount))
		builder.WriteString(fmt.Sprintf("biastracker_judgment_time_seconds{topic=%q} %.6f\n",
			topicID, metrics.AvgJudgmentTime.Seconds()))
		builder.WriteString(fmt.Sprintf("biastracker_oracle_success_rate{topic=%q} %.4f\n",
			topicID, metrics.SuccessRate))
	}

	builder.WriteString(fmt.Sprintf("biastracker_articles_ingested_total %d\n", c.pipeline.ArticlesIngested))
	builder.WriteString(fmt.Sprintf("biastracker_duplicates_dropped_total %d\n", c.pipeline.DuplicatesDropped))
	builder.WriteString(fmt.Sprintf("biastracker_no_topic_matches_total %d\n", c.pipeline.NoTopicMatches))
	builder.WriteString(fmt.Sprintf("biastracker_rate_limit_waits_total %d\n", c.pipeline.RateLimitWaits))

	return builder.String()
}

// Reset clears all collected metrics.
func (c *Collector) Reset() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.topics = make(map[string]*TopicMetrics)
	c.pipeline = PipelineMetrics{}
	c.logger.Info("metrics reset completed")
}

// topic returns the metrics entry for a topic, creating it lazily.
// Callers hold the write lock.
func (c *Collector) topic(topicID string) *TopicMetrics {
	metrics, exists := c.topics[topicID]
	if !exists {
		metrics = &TopicMetrics{TopicID: topicID}
		c.topics[topicID] = metrics
	}

	return metrics
}
