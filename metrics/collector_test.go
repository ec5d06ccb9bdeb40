// ABOUTME: This file tests the metrics collector counters and export formats
// ABOUTME: Covers per-topic aggregation and the disabled no-op path
package metrics

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"bias-tracker/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollector(enabled bool) *Collector {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewCollector(config.MetricsConfig{Enabled: enabled, Path: "/metrics"}, logger)
}

func TestCollector_RecordJudgment(t *testing.T) {
	t.Run("success rate and average time track per topic", func(t *testing.T) {
		collector := testCollector(true)

		collector.RecordJudgment("eu-relations", 100*time.Millisecond, true)
		collector.RecordJudgment("eu-relations", 300*time.Millisecond, true)
		collector.RecordJudgment("eu-relations", 200*time.Millisecond, false)

		metrics := collector.GetTopicMetrics("eu-relations")
		require.NotNil(t, metrics)
		assert.Equal(t, int64(3), metrics.OracleCalls)
		assert.Equal(t, int64(2), metrics.SuccessCount)
		assert.InDelta(t, 2.0/3.0, metrics.SuccessRate, 0.0001)
		assert.Equal(t, 200*time.Millisecond, metrics.AvgJudgmentTime)
	})

	t.Run("topics are tracked independently", func(t *testing.T) {
		collector := testCollector(true)

		collector.RecordJudgment("eu-relations", time.Millisecond, true)
		collector.RecordFallback("climate-energy")

		assert.Equal(t, int64(1), collector.GetTopicMetrics("eu-relations").OracleCalls)
		assert.Equal(t, int64(1), collector.GetTopicMetrics("climate-energy").FallbackCount)
		assert.Equal(t, int64(0), collector.GetTopicMetrics("climate-energy").OracleCalls)
	})

	t.Run("disabled collector records nothing", func(t *testing.T) {
		collector := testCollector(false)

		collector.RecordJudgment("eu-relations", time.Millisecond, true)

		assert.Nil(t, collector.GetTopicMetrics("eu-relations"))
	})
}

func TestCollector_RecordIngest(t *testing.T) {
	collector := testCollector(true)

	collector.RecordIngest(false, false, true)
	collector.RecordIngest(false, false, false)
	collector.RecordIngest(true, false, false)
	collector.RecordIngest(false, true, false)

	pipeline := collector.GetPipelineMetrics()
	assert.Equal(t, int64(2), pipeline.ArticlesIngested)
	assert.Equal(t, int64(1), pipeline.DuplicatesDropped)
	assert.Equal(t, int64(1), pipeline.NoTopicMatches)
	assert.Equal(t, int64(1), pipeline.AuthorsResolved)
}

func TestCollector_ExportJSON(t *testing.T) {
	t.Run("export contains topics and pipeline counters", func(t *testing.T) {
		collector := testCollector(true)
		collector.RecordJudgment("swiss-politics", 50*time.Millisecond, true)
		collector.RecordIngest(false, false, true)

		data, err := collector.ExportJSON()
		require.NoError(t, err)

		var export ExportData
		require.NoError(t, json.Unmarshal(data, &export))

		assert.Equal(t, "bias-tracker", export.ServiceName)
		assert.Contains(t, export.Topics, "swiss-politics")
		assert.Equal(t, int64(1), export.Pipeline.ArticlesIngested)
	})

	t.Run("disabled collector exports empty object", func(t *testing.T) {
		collector := testCollector(false)

		data, err := collector.ExportJSON()
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	})
}

func TestCollector_ExportPrometheus(t *testing.T) {
	collector := testCollector(true)
	collector.RecordJudgment("eu-relations", 50*time.Millisecond, true)
	collector.RecordFallback("eu-relations")
	collector.RecordRateLimitWait()

	output := collector.ExportPrometheus()

	assert.Contains(t, output, `biastracker_oracle_calls_total{topic="eu-relations"} 1`)
	assert.Contains(t, output, `biastracker_fallbacks_total{topic="eu-relations"} 1`)
	assert.Contains(t, output, "biastracker_rate_limit_waits_total 1")
}
