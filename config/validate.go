package config

import (
	"fmt"
)

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Oracle.Host == "" {
		return fmt.Errorf("oracle host cannot be empty")
	}

	if config.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle timeout must be positive: %v", config.Oracle.Timeout)
	}

	if config.Oracle.Concurrency <= 0 {
		return fmt.Errorf("oracle concurrency must be positive: %d", config.Oracle.Concurrency)
	}

	if config.Oracle.MaxExcerpt <= 0 {
		return fmt.Errorf("oracle max excerpt must be positive: %d", config.Oracle.MaxExcerpt)
	}

	if config.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive: %d", config.Retry.MaxAttempts)
	}

	if config.Retry.BackoffFactor <= 1.0 {
		return fmt.Errorf("backoff factor must be greater than 1.0: %f", config.Retry.BackoffFactor)
	}

	if config.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive: %v", config.RateLimit.Window)
	}

	if config.RateLimit.CallsPerWindow <= 0 {
		return fmt.Errorf("rate limit calls per window must be positive: %d", config.RateLimit.CallsPerWindow)
	}

	if config.Consumer.Enabled {
		if config.Consumer.RedisURL == "" {
			return fmt.Errorf("consumer redis URL cannot be empty when consumer is enabled")
		}
		if config.Consumer.BatchSize <= 0 {
			return fmt.Errorf("consumer batch size must be positive: %d", config.Consumer.BatchSize)
		}
	}

	if config.Ranker.EdgeWeight < 0 {
		return fmt.Errorf("ranker edge weight must be non-negative: %f", config.Ranker.EdgeWeight)
	}

	if config.Ranker.Window <= 0 {
		return fmt.Errorf("ranker window must be positive: %v", config.Ranker.Window)
	}

	if config.Topics.Path == "" {
		return fmt.Errorf("topics config path cannot be empty")
	}

	if config.Topics.MinLanguageScore < 0 {
		return fmt.Errorf("min language score must be non-negative: %f", config.Topics.MinLanguageScore)
	}

	return nil
}
