package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadConfig builds the configuration from defaults and overrides provided via environment variables.
func LoadConfig() (*Config, error) {
	config := defaultConfig()

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func loadFromEnv(config *Config) error {
	if err := loadServerConfig(&config.Server); err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	if dsn := os.Getenv("BIAS_TRACKER_DB_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if err := loadOracleConfig(&config.Oracle); err != nil {
		return fmt.Errorf("failed to load oracle config: %w", err)
	}

	if err := loadRetryConfig(&config.Retry); err != nil {
		return fmt.Errorf("failed to load retry config: %w", err)
	}

	if err := loadRateLimitConfig(&config.RateLimit); err != nil {
		return fmt.Errorf("failed to load rate limit config: %w", err)
	}

	if err := loadConsumerConfig(&config.Consumer); err != nil {
		return fmt.Errorf("failed to load consumer config: %w", err)
	}

	if err := loadDLQConfig(&config.DLQ); err != nil {
		return fmt.Errorf("failed to load DLQ config: %w", err)
	}

	if err := loadMetricsConfig(&config.Metrics); err != nil {
		return fmt.Errorf("failed to load metrics config: %w", err)
	}

	if err := loadRankerConfig(&config.Ranker); err != nil {
		return fmt.Errorf("failed to load ranker config: %w", err)
	}

	if err := loadTopicsConfig(&config.Topics); err != nil {
		return fmt.Errorf("failed to load topics config: %w", err)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	return nil
}

func loadServerConfig(cfg *ServerConfig) error {
	var err error

	if cfg.Port, err = parseIntEnv("SERVER_PORT", cfg.Port); err != nil {
		return err
	}

	if cfg.ShutdownTimeout, err = parseDurationEnv("SERVER_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}

	if cfg.ReadTimeout, err = parseDurationEnv("SERVER_READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return err
	}

	if cfg.WriteTimeout, err = parseDurationEnv("SERVER_WRITE_TIMEOUT", cfg.WriteTimeout); err != nil {
		return err
	}

	return nil
}

func loadOracleConfig(cfg *OracleConfig) error {
	var err error

	if host := os.Getenv("ORACLE_HOST"); host != "" {
		cfg.Host = host
	}

	if path := os.Getenv("ORACLE_API_PATH"); path != "" {
		cfg.APIPath = path
	}

	if path := os.Getenv("ORACLE_COMPARE_PATH"); path != "" {
		cfg.ComparePath = path
	}

	if model := os.Getenv("ORACLE_MODEL"); model != "" {
		cfg.Model = model
	}

	if cfg.Timeout, err = parseDurationEnv("ORACLE_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}

	if cfg.MaxExcerpt, err = parseIntEnv("ORACLE_MAX_EXCERPT", cfg.MaxExcerpt); err != nil {
		return err
	}

	if cfg.Concurrency, err = parseIntEnv("ORACLE_CONCURRENCY", cfg.Concurrency); err != nil {
		return err
	}

	return nil
}

func loadRetryConfig(cfg *RetryConfig) error {
	var err error

	if cfg.MaxAttempts, err = parseIntEnv("RETRY_MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return err
	}

	if cfg.BaseDelay, err = parseDurationEnv("RETRY_BASE_DELAY", cfg.BaseDelay); err != nil {
		return err
	}

	if cfg.MaxDelay, err = parseDurationEnv("RETRY_MAX_DELAY", cfg.MaxDelay); err != nil {
		return err
	}

	if cfg.BackoffFactor, err = parseFloatEnv("RETRY_BACKOFF_FACTOR", cfg.BackoffFactor); err != nil {
		return err
	}

	if cfg.JitterFactor, err = parseFloatEnv("RETRY_JITTER_FACTOR", cfg.JitterFactor); err != nil {
		return err
	}

	return nil
}

func loadRateLimitConfig(cfg *RateLimitConfig) error {
	var err error

	if cfg.Window, err = parseDurationEnv("RATE_LIMIT_WINDOW", cfg.Window); err != nil {
		return err
	}

	if cfg.CallsPerWindow, err = parseIntEnv("RATE_LIMIT_CALLS_PER_WINDOW", cfg.CallsPerWindow); err != nil {
		return err
	}

	return nil
}

func loadConsumerConfig(cfg *ConsumerConfig) error {
	var err error

	if url := os.Getenv("CONSUMER_REDIS_URL"); url != "" {
		cfg.RedisURL = url
	}

	if key := os.Getenv("CONSUMER_STREAM_KEY"); key != "" {
		cfg.StreamKey = key
	}

	if group := os.Getenv("CONSUMER_GROUP_NAME"); group != "" {
		cfg.GroupName = group
	}

	if name := os.Getenv("CONSUMER_NAME"); name != "" {
		cfg.ConsumerName = name
	}

	var batch int
	if batch, err = parseIntEnv("CONSUMER_BATCH_SIZE", int(cfg.BatchSize)); err != nil {
		return err
	}
	cfg.BatchSize = int64(batch)

	if cfg.BlockTimeout, err = parseDurationEnv("CONSUMER_BLOCK_TIMEOUT", cfg.BlockTimeout); err != nil {
		return err
	}

	if cfg.Enabled, err = parseBoolEnv("CONSUMER_ENABLED", cfg.Enabled); err != nil {
		return err
	}

	return nil
}

func loadDLQConfig(cfg *DLQConfig) error {
	var err error

	if path := os.Getenv("DLQ_BASE_PATH"); path != "" {
		cfg.BasePath = path
	}

	if cfg.Retention, err = parseDurationEnv("DLQ_RETENTION", cfg.Retention); err != nil {
		return err
	}

	if cfg.EnableCleanup, err = parseBoolEnv("DLQ_ENABLE_CLEANUP", cfg.EnableCleanup); err != nil {
		return err
	}

	return nil
}

func loadMetricsConfig(cfg *MetricsConfig) error {
	var err error

	if cfg.Enabled, err = parseBoolEnv("METRICS_ENABLED", cfg.Enabled); err != nil {
		return err
	}

	if path := os.Getenv("METRICS_PATH"); path != "" {
		cfg.Path = path
	}

	return nil
}

func loadRankerConfig(cfg *RankerConfig) error {
	var err error

	if cfg.EdgeWeight, err = parseFloatEnv("RANKER_EDGE_WEIGHT", cfg.EdgeWeight); err != nil {
		return err
	}

	if cfg.Window, err = parseDurationEnv("RANKER_WINDOW", cfg.Window); err != nil {
		return err
	}

	if cfg.Interval, err = parseDurationEnv("RANKER_INTERVAL", cfg.Interval); err != nil {
		return err
	}

	return nil
}

func loadTopicsConfig(cfg *TopicsConfig) error {
	var err error

	if path := os.Getenv("TOPICS_CONFIG_PATH"); path != "" {
		cfg.Path = path
	}

	if cfg.MinLanguageScore, err = parseFloatEnv("TOPICS_MIN_LANGUAGE_SCORE", cfg.MinLanguageScore); err != nil {
		return err
	}

	return nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return d, nil
	}
	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return i, nil
	}
	return defaultValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return b, nil
	}
	return defaultValue, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return f, nil
	}
	return defaultValue, nil
}
