// ABOUTME: This file implements a JSON file-based Dead Letter Queue for failed judgments
// ABOUTME: Exhausted (article, topic) keys are persisted here for later reprocessing
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"bias-tracker/config"
	"bias-tracker/domain"
	"bias-tracker/driver"
)

// FailedJudgmentMessage records one (article, topic) key whose oracle
// judgment ran out of retries. A degraded-fallback record exists in the
// store for every message here.
type FailedJudgmentMessage struct {
	ID          string         `json:"id"`
	ArticleID   string         `json:"article_id"`
	TopicID     string         `json:"topic_id"`
	Attempts    int            `json:"attempts"`
	LastError   ErrorDetails   `json:"last_error"`
	Timestamp   time.Time      `json:"timestamp"`
	ServiceName string         `json:"service_name"`
	TaskType    string         `json:"task_type"`
	Metadata    map[string]any `json:"metadata"`
}

type ErrorDetails struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsRetryable bool   `json:"is_retryable"`
}

// FileDLQManager stores failed judgment keys as JSON files under a
// date-partitioned directory tree.
type FileDLQManager struct {
	config  config.DLQConfig
	counter uint64
	mu      sync.Mutex
	logger  *slog.Logger
}

func NewFileDLQManager(cfg config.DLQConfig, logger *slog.Logger) *FileDLQManager {
	return &FileDLQManager{
		config: cfg,
		logger: logger,
	}
}

// PublishFailedJudgment persists one exhausted key. Never blocks the caller
// on anything but local disk.
func (dlq *FileDLQManager) PublishFailedJudgment(ctx context.Context, articleID, topicID string, attempts int, lastError error) error {
	dlq.mu.Lock()
	dlq.counter++
	messageID := fmt.Sprintf("dlq_%s_%03d", time.Now().Format("20060102"), dlq.counter)
	dlq.mu.Unlock()

	dlq.logger.InfoContext(ctx, "DLQ publication started",
		"message_id", messageID,
		"article_id", articleID,
		"topic_id", topicID,
		"attempts", attempts,
		"error_type", fmt.Sprintf("%T", lastError))

	message := FailedJudgmentMessage{
		ID:          messageID,
		ArticleID:   articleID,
		TopicID:     topicID,
		Attempts:    attempts,
		LastError:   dlq.analyzeError(lastError),
		Timestamp:   time.Now().UTC(),
		ServiceName: "bias-tracker",
		TaskType:    "oracle_judgment",
		Metadata: map[string]any{
			"fallback_written": true,
		},
	}

	if err := dlq.writeMessageToFile(message); err != nil {
		dlq.logger.ErrorContext(ctx, "DLQ publication failed",
			"message_id", messageID,
			"article_id", articleID,
			"topic_id", topicID,
			"error", err)
		return err
	}

	dlq.logger.InfoContext(ctx, "DLQ publication completed",
		"message_id", messageID,
		"article_id", articleID,
		"topic_id", topicID,
		"attempts", attempts,
		"error_type", message.LastError.Type)

	return nil
}

func (dlq *FileDLQManager) analyzeError(err error) ErrorDetails {
	details := ErrorDetails{}
	if err == nil {
		details.Type = "UnknownError"
		return details
	}

	details.Message = err.Error()

	// エラータイプの判定
	var httpErr *driver.HTTPError

	switch {
	case errors.As(err, &httpErr):
		details.Type = "HTTPError"
		details.IsRetryable = httpErr.StatusCode >= 500 || httpErr.StatusCode == 408 || httpErr.StatusCode == 429
	case errors.Is(err, domain.ErrOracleUnavailable):
		details.Type = "OracleUnavailable"
		details.IsRetryable = true
	case errors.Is(err, domain.ErrOracleSchemaViolation):
		details.Type = "SchemaViolation"
		details.IsRetryable = false
	default:
		details.Type = "UnknownError"
		details.IsRetryable = false
	}

	return details
}

func (dlq *FileDLQManager) writeMessageToFile(message FailedJudgmentMessage) error {
	// 日付別ディレクトリ作成
	dateDir := message.Timestamp.Format("2006-01-02")
	dir := filepath.Join(dlq.config.BasePath, "failed-judgments", dateDir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}

	targetPath := filepath.Join(dir, message.ID+".json")
	tempFile := targetPath + ".tmp"

	messageBytes, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	// 一時ファイルに書き込み（原子性保証）
	if err := os.WriteFile(tempFile, messageBytes, 0600); err != nil {
		return fmt.Errorf("write temp file failed: %w", err)
	}

	if err := os.Rename(tempFile, targetPath); err != nil {
		if cleanupErr := os.Remove(tempFile); cleanupErr != nil {
			dlq.logger.Error("failed to cleanup temp file", "temp_file", tempFile, "error", cleanupErr)
		}

		return fmt.Errorf("rename file failed: %w", err)
	}

	return nil
}

// ListFailed returns up to limit pending messages, oldest first.
func (dlq *FileDLQManager) ListFailed(ctx context.Context, limit int) ([]FailedJudgmentMessage, error) {
	failedDir := filepath.Join(dlq.config.BasePath, "failed-judgments")

	var messages []FailedJudgmentMessage

	err := filepath.Walk(failedDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			dlq.logger.WarnContext(ctx, "failed to read DLQ file", "file", path, "error", err)
			return nil
		}

		var message FailedJudgmentMessage
		if err := json.Unmarshal(data, &message); err != nil {
			dlq.logger.WarnContext(ctx, "failed to parse DLQ file", "file", path, "error", err)
			return nil
		}

		messages = append(messages, message)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list DLQ messages: %w", err)
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].Timestamp.Before(messages[j].Timestamp) })

	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}

	return messages, nil
}

// Ack removes a message whose key has been successfully re-judged.
func (dlq *FileDLQManager) Ack(ctx context.Context, message FailedJudgmentMessage) error {
	dateDir := message.Timestamp.Format("2006-01-02")
	path := filepath.Join(dlq.config.BasePath, "failed-judgments", dateDir, message.ID+".json")

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to ack DLQ message: %w", err)
	}

	dlq.logger.InfoContext(ctx, "DLQ message acked",
		"message_id", message.ID,
		"article_id", message.ArticleID,
		"topic_id", message.TopicID)

	return nil
}

// DLQ統計情報
type DLQStats struct {
	OldestFailure    time.Time `json:"oldest_failure"`
	TotalFailedItems int       `json:"total_failed_items"`
	DiskUsage        int64     `json:"disk_usage_bytes"`
	DailyFailureRate float64   `json:"daily_failure_rate"`
}

func (dlq *FileDLQManager) GetStats() (DLQStats, error) {
	stats := DLQStats{}

	failedDir := filepath.Join(dlq.config.BasePath, "failed-judgments")

	err := filepath.Walk(failedDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if !info.IsDir() && filepath.Ext(path) == ".json" {
			stats.TotalFailedItems++
			stats.DiskUsage += info.Size()

			if stats.OldestFailure.IsZero() || info.ModTime().Before(stats.OldestFailure) {
				stats.OldestFailure = info.ModTime()
			}
		}

		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to calculate stats: %w", err)
	}

	// 日次失敗率計算
	if !stats.OldestFailure.IsZero() {
		daysSinceOldest := time.Since(stats.OldestFailure).Hours() / 24
		if daysSinceOldest > 0 {
			stats.DailyFailureRate = float64(stats.TotalFailedItems) / daysSinceOldest
		}
	}

	return stats, nil
}

// 古いファイルのクリーンアップ
func (dlq *FileDLQManager) StartCleanup(ctx context.Context) {
	if !dlq.config.EnableCleanup {
		dlq.logger.Info("DLQ cleanup disabled")
		return
	}

	ticker := time.NewTicker(24 * time.Hour) // 1日1回実行
	defer ticker.Stop()

	dlq.logger.Info("DLQ cleanup started",
		"retention", dlq.config.Retention,
		"base_path", dlq.config.BasePath)

	for {
		select {
		case <-ctx.Done():
			dlq.logger.Info("DLQ cleanup stopped")
			return
		case <-ticker.C:
			if err := dlq.cleanup(); err != nil {
				dlq.logger.Error("DLQ cleanup failed", "error", err)
			}
		}
	}
}

func (dlq *FileDLQManager) cleanup() error {
	cutoff := time.Now().Add(-dlq.config.Retention)
	removedCount := 0

	failedDir := filepath.Join(dlq.config.BasePath, "failed-judgments")

	err := filepath.Walk(failedDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if !info.IsDir() && info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				dlq.logger.Warn("failed to remove old DLQ file", "file", path, "error", err)
				return nil // 続行
			}

			removedCount++
		}

		return nil
	})

	if removedCount > 0 {
		dlq.logger.Info("DLQ cleanup completed",
			"removed_files", removedCount,
			"cutoff", cutoff)
	}

	return err
}
