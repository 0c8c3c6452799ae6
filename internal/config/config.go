package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration, read from the environment. Load .env
// with godotenv in main before calling FromEnv.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	// MediaRoot is the base directory for originals and derivatives.
	MediaRoot string

	// DatabaseURL is the PostgreSQL connection string, shared by the DBOS
	// runtime and the pipeline store.
	DatabaseURL string
	AppName     string
	QueueName   string
	Concurrency int

	RedisAddr string

	Replication ReplicationConfig
	Enrich      EnrichConfig
	Limits      LimitsConfig
}

// ReplicationConfig configures the object-storage replication coordinator.
type ReplicationConfig struct {
	Enabled       bool
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// EnrichConfig configures the AI metadata service.
type EnrichConfig struct {
	Enabled          bool
	APIKey           string
	BaseURL          string
	Model            string
	RequestsPerMin   int
	RequestTimeout   time.Duration
}

// LimitsConfig carries processing thresholds. The OCR retry thresholds are
// empirical values carried over as-is; tune with care.
type LimitsConfig struct {
	AudioMaxSizeBytes    int64
	PDFOptimizeThreshold int64
	PDFKeepRatio         float64
	OCRMinConfidence     float64
	OCRMinTextLen        int
	StaleProcessingAge   time.Duration
}

// FromEnv builds a Config from environment variables and applies defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    envOr("WORKER_HTTP_ADDR", ":8081"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogFormat:   envOr("LOG_FORMAT", "text"),
		MediaRoot:   envOr("MEDIA_ROOT", "./media"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AppName:     envOr("APP_NAME", "media-pipeline-worker"),
		QueueName:   envOr("QUEUE_NAME", "default"),
		Concurrency: envInt("WORKER_CONCURRENCY", 4),
		RedisAddr:   envOr("REDIS_ADDR", "localhost:6379"),
		Replication: ReplicationConfig{
			Enabled:       envBool("REPLICATION_ENABLED", false),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			Bucket:        envOr("S3_BUCKET", "media"),
			UseSSL:        envBool("S3_USE_SSL", true),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		Enrich: EnrichConfig{
			Enabled:        envBool("ENRICH_ENABLED", true),
			APIKey:         os.Getenv("ENRICH_API_KEY"),
			BaseURL:        envOr("ENRICH_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:          envOr("ENRICH_MODEL", "gemini-2.0-flash"),
			RequestsPerMin: envInt("ENRICH_REQUESTS_PER_MIN", 10),
			RequestTimeout: envDuration("ENRICH_REQUEST_TIMEOUT", 60*time.Second),
		},
		Limits: LimitsConfig{
			AudioMaxSizeBytes:    int64(envInt("AUDIO_MAX_SIZE_MB", 50)) * 1024 * 1024,
			PDFOptimizeThreshold: int64(envInt("PDF_OPTIMIZE_THRESHOLD_MB", 10)) * 1024 * 1024,
			PDFKeepRatio:         envFloat("PDF_KEEP_RATIO", 0.8),
			OCRMinConfidence:     envFloat("OCR_MIN_CONFIDENCE", 70),
			OCRMinTextLen:        envInt("OCR_MIN_TEXT_LEN", 50),
			StaleProcessingAge:   envDuration("STALE_PROCESSING_AGE", time.Hour),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Replication.Enabled && cfg.Replication.Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required when replication is enabled")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
