package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string // empty disables the rotating file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// WorkerConfig controls how batch items are executed.
type WorkerConfig struct {
	Concurrency int // 1 runs items sequentially
}

// ExtractConfig tunes text extraction.
type ExtractConfig struct {
	Clean          bool
	ProbeThreshold int
}

// StorageConfig configures s3:// references.
type StorageConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string // checked by /status in serve mode
}

// ServerConfig is used by serve mode only.
type ServerConfig struct {
	Port            string
	Root            string // directory holding the local paths of submitted jobs
	RedisURL        string // empty keeps job status in memory
	StatusTTL       time.Duration
	ShutdownTimeout time.Duration
}

// TempConfig controls removal of leftover temp downloads.
type TempConfig struct {
	CleanupAge      time.Duration
	CleanupInterval time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Worker  WorkerConfig
	Extract ExtractConfig
	Storage StorageConfig
	Server  ServerConfig
	Temp    TempConfig
}

// Load reads envFile into the environment, without overriding variables that
// are already set, and then builds the configuration. A missing file is not
// an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdftoolkit",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Worker = WorkerConfig{
		Concurrency: parseInt(getEnv("WORKER_CONCURRENCY", "1"), 1),
	}
	if cfg.Worker.Concurrency < 1 {
		cfg.Worker.Concurrency = 1
	}

	cfg.Extract = ExtractConfig{
		Clean:          parseBool(getEnv("EXTRACT_CLEAN_TEXT", "false")),
		ProbeThreshold: parseInt(getEnv("EXTRACT_PROBE_THRESHOLD", "300"), 300),
	}

	cfg.Storage = StorageConfig{
		Region:          getEnv("AWS_REGION", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		Bucket:          getEnv("S3_BUCKET", ""),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		Root:            getEnv("SERVE_ROOT", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		StatusTTL:       parseDuration(getEnv("JOB_STATUS_TTL", "24h"), 24*time.Hour),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"), 30*time.Second),
	}

	cfg.Temp = TempConfig{
		CleanupAge:      parseDuration(getEnv("TEMP_CLEANUP_AGE", "1h"), time.Hour),
		CleanupInterval: parseDuration(getEnv("TEMP_CLEANUP_INTERVAL", "15m"), 15*time.Minute),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
