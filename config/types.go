package config

import (
	"time"
)

// Config aggregates all service configuration blocks.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Oracle    OracleConfig    `json:"oracle"`
	Retry     RetryConfig     `json:"retry"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Consumer  ConsumerConfig  `json:"consumer"`
	DLQ       DLQConfig       `json:"dlq"`
	Metrics   MetricsConfig   `json:"metrics"`
	Ranker    RankerConfig    `json:"ranker"`
	Topics    TopicsConfig    `json:"topics"`
	Logging   LoggingConfig   `json:"logging"`
}

type ServerConfig struct {
	Port            int           `json:"port" env:"SERVER_PORT" default:"9300"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn" env:"BIAS_TRACKER_DB_DSN"`
}

// OracleConfig defines how to reach the external judgment oracle.
type OracleConfig struct {
	Host        string        `json:"host" env:"ORACLE_HOST" default:"http://judgment-oracle:11434"`
	APIPath     string        `json:"api_path" env:"ORACLE_API_PATH" default:"/api/v1/judge"`
	ComparePath string        `json:"compare_path" env:"ORACLE_COMPARE_PATH" default:"/api/v1/compare"`
	Model       string        `json:"model" env:"ORACLE_MODEL" default:"gemma3:4b"`
	Timeout     time.Duration `json:"timeout" env:"ORACLE_TIMEOUT" default:"60s"`
	MaxExcerpt  int           `json:"max_excerpt" env:"ORACLE_MAX_EXCERPT" default:"3000"`
	Concurrency int           `json:"concurrency" env:"ORACLE_CONCURRENCY" default:"4"`
}

type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" env:"RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelay     time.Duration `json:"base_delay" env:"RETRY_BASE_DELAY" default:"1s"`
	MaxDelay      time.Duration `json:"max_delay" env:"RETRY_MAX_DELAY" default:"30s"`
	BackoffFactor float64       `json:"backoff_factor" env:"RETRY_BACKOFF_FACTOR" default:"2.0"`
	JitterFactor  float64       `json:"jitter_factor" env:"RETRY_JITTER_FACTOR" default:"0.1"`
}

// RateLimitConfig caps oracle calls per window to respect external quota.
type RateLimitConfig struct {
	Window        time.Duration `json:"window" env:"RATE_LIMIT_WINDOW" default:"1m"`
	CallsPerWindow int          `json:"calls_per_window" env:"RATE_LIMIT_CALLS_PER_WINDOW" default:"10"`
}

// ConsumerConfig configures the Redis Streams article-event consumer.
type ConsumerConfig struct {
	RedisURL     string        `json:"redis_url" env:"CONSUMER_REDIS_URL" default:"redis://localhost:6379"`
	StreamKey    string        `json:"stream_key" env:"CONSUMER_STREAM_KEY" default:"bias:events:articles"`
	GroupName    string        `json:"group_name" env:"CONSUMER_GROUP_NAME" default:"bias-tracker-group"`
	ConsumerName string        `json:"consumer_name" env:"CONSUMER_NAME" default:"bias-tracker-1"`
	BatchSize    int64         `json:"batch_size" env:"CONSUMER_BATCH_SIZE" default:"10"`
	BlockTimeout time.Duration `json:"block_timeout" env:"CONSUMER_BLOCK_TIMEOUT" default:"5s"`
	Enabled      bool          `json:"enabled" env:"CONSUMER_ENABLED" default:"false"`
}

type DLQConfig struct {
	BasePath      string        `json:"base_path" env:"DLQ_BASE_PATH" default:"/var/dlq/bias-tracker"`
	Retention     time.Duration `json:"retention" env:"DLQ_RETENTION" default:"720h"`
	EnableCleanup bool          `json:"enable_cleanup" env:"DLQ_ENABLE_CLEANUP" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"METRICS_ENABLED" default:"true"`
	Path    string `json:"path" env:"METRICS_PATH" default:"/metrics"`
}

// RankerConfig tunes the comparative ranking batch pass.
type RankerConfig struct {
	// EdgeWeight scales how far a single pairwise edge nudges a pair apart.
	EdgeWeight float64       `json:"edge_weight" env:"RANKER_EDGE_WEIGHT" default:"0.05"`
	Window     time.Duration `json:"window" env:"RANKER_WINDOW" default:"168h"`
	Interval   time.Duration `json:"interval" env:"RANKER_INTERVAL" default:"1h"`
}

// TopicsConfig points at the YAML topic/source definitions file.
type TopicsConfig struct {
	Path string `json:"path" env:"TOPICS_CONFIG_PATH" default:"topics.yaml"`
	// MinLanguageScore is the minimum aggregate match density before the
	// classifier overrides the declared source language.
	MinLanguageScore float64 `json:"min_language_score" env:"TOPICS_MIN_LANGUAGE_SCORE" default:"1.0"`
}

type LoggingConfig struct {
	Level string `json:"level" env:"LOG_LEVEL" default:"info"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            9300,
			ShutdownTimeout: 30 * time.Second,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
		},
		Oracle: OracleConfig{
			Host:        "http://judgment-oracle:11434",
			APIPath:     "/api/v1/judge",
			ComparePath: "/api/v1/compare",
			Model:       "gemma3:4b",
			Timeout:     60 * time.Second,
			MaxExcerpt:  3000,
			Concurrency: 4,
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			BaseDelay:     1 * time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2.0,
			JitterFactor:  0.1,
		},
		RateLimit: RateLimitConfig{
			Window:         time.Minute,
			CallsPerWindow: 10,
		},
		Consumer: ConsumerConfig{
			RedisURL:     "redis://localhost:6379",
			StreamKey:    "bias:events:articles",
			GroupName:    "bias-tracker-group",
			ConsumerName: "bias-tracker-1",
			BatchSize:    10,
			BlockTimeout: 5 * time.Second,
			Enabled:      false,
		},
		DLQ: DLQConfig{
			BasePath:      "/var/dlq/bias-tracker",
			Retention:     720 * time.Hour,
			EnableCleanup: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Ranker: RankerConfig{
			EdgeWeight: 0.05,
			Window:     168 * time.Hour,
			Interval:   time.Hour,
		},
		Topics: TopicsConfig{
			Path:             "topics.yaml",
			MinLanguageScore: 1.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
