// ABOUTME: This file classifies oracle errors for retry decisions
// ABOUTME: Distinguishes between transient and permanent failures
package service

import (
	"context"
	"errors"
	"net"
	"syscall"

	"bias-tracker/domain"
	"bias-tracker/driver"
)

// IsRetryableError determines if an oracle error should trigger a retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// コンテキストエラーは基本的にリトライ不可
	if errors.Is(err, context.Canceled) {
		return false
	}

	// タイムアウトは一時的エラーとしてリトライ
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// 不達のオラクルは一時的エラー
	if errors.Is(err, domain.ErrOracleUnavailable) {
		return true
	}

	// スキーマ違反は一度だけリトライ（呼び出し側が回数を管理）
	if errors.Is(err, domain.ErrOracleSchemaViolation) {
		return true
	}

	// システムコールエラー・OpErrorのチェック（優先）
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Err != nil {
			if errno, ok := opErr.Err.(syscall.Errno); ok {
				return errno == syscall.ECONNREFUSED ||
					errno == syscall.ECONNRESET ||
					errno == syscall.ETIMEDOUT
			}
		}

		if opErr.Temporary() || opErr.Timeout() {
			return true
		}
	}

	// ネットワークエラーのチェック
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || netErr.Temporary()
	}

	// HTTPレスポンスエラーのチェック
	var httpErr *driver.HTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTPStatus(httpErr.StatusCode)
	}

	// その他は永続的エラーとみなす
	return false
}

// isRetryableHTTPStatus determines if HTTP status code is retryable.
func isRetryableHTTPStatus(status int) bool {
	switch {
	case status >= 500 && status <= 599:
		// 5xxサーバーエラーはリトライ可能
		return true
	case status == 408: // Request Timeout
		return true
	case status == 429: // Too Many Requests
		return true
	default:
		// 4xxクライアントエラーは基本的にリトライ不可
		return false
	}
}
