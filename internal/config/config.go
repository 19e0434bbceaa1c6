package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/retry"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Service    ServiceConfig    `yaml:"service"`
	Upload     UploadConfig     `yaml:"upload"`
	Submission SubmissionConfig `yaml:"submission"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Retry      RetryConfig      `yaml:"retry"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"60s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"0s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// ServiceConfig points at the external enhancement service.
type ServiceConfig struct {
	BaseURL string        `yaml:"base_url" env:"SERVICE_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"SERVICE_TIMEOUT" env-default:"30s"`
	// Algorithms switches the catalog client to the per-algorithm
	// GET /models?algo=<name> variant when non-empty.
	Algorithms []string `yaml:"algorithms" env:"SERVICE_ALGORITHMS" env-separator:","`
}

type UploadConfig struct {
	MaxSize          int64         `yaml:"max_size" env:"UPLOAD_MAX_SIZE" env-default:"33554432"`
	ProgressInterval time.Duration `yaml:"progress_interval" env:"UPLOAD_PROGRESS_INTERVAL" env-default:"100ms"`
}

type SubmissionConfig struct {
	Timeout   time.Duration `yaml:"timeout" env:"SUBMISSION_TIMEOUT" env-default:"30m"`
	Retention time.Duration `yaml:"retention" env:"SUBMISSION_RETENTION" env-default:"2m"`
}

type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers     []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	EventsTopic string   `yaml:"events_topic" env:"KAFKA_EVENTS_TOPIC" env-default:"enhancement-jobs"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ARCHIVE_ENABLED" env-default:"false"`
	Endpoint  string `yaml:"endpoint" env:"ARCHIVE_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"ARCHIVE_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"ARCHIVE_BUCKET" env-default:"submissions"`
	UseSSL    bool   `yaml:"use_ssl" env:"ARCHIVE_USE_SSL" env-default:"false"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env:"RETRY_DELAY" env-default:"200ms"`
	Backoff  float64       `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"2"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// MustLoad reads CONFIG_PATH when set and the environment otherwise.
// A .env file in the working directory is loaded first if present.
func MustLoad() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}

	return &cfg, nil
}

// DefaultRetryStrategy is used for best-effort side channels only. Calls to
// the enhancement service are never retried.
func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}
