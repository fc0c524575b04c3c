// Package config loads service configuration from DZ_* environment
// variables and validates it at startup so misconfiguration fails fast
// with every problem reported at once.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend selectors.
const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// Config is the full runtime configuration.
type Config struct {
	Addr           string        // listen address, e.g. ":8080"
	TTL            time.Duration // item/session time-to-live
	SweepInterval  time.Duration // eviction sweep cadence
	MaxUploadBytes int64         // per-file ceiling, 0 = unlimited

	Storage   string // "local" or "minio"
	LocalPath string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string

	LogLevel  string // debug|info|warn|error
	LogFormat string // json|console
}

// Load reads configuration from the environment, applying defaults.
// Unparseable durations and numbers are reported by Validate, not here.
func Load() Config {
	return Config{
		Addr:           getenvDefault("DZ_ADDR", ":8080"),
		TTL:            getenvDuration("DZ_TTL", 600*time.Second),
		SweepInterval:  getenvDuration("DZ_SWEEP_INTERVAL", time.Minute),
		MaxUploadBytes: getenvInt64("DZ_MAX_UPLOAD_BYTES", 32<<20),
		Storage:        getenvDefault("DZ_STORAGE", StorageLocal),
		LocalPath:      getenvDefault("DZ_LOCAL_PATH", "./data"),
		MinioEndpoint:  os.Getenv("DZ_S3_ENDPOINT"),
		MinioAccessKey: os.Getenv("DZ_S3_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("DZ_S3_SECRET_KEY"),
		MinioBucket:    os.Getenv("DZ_BUCKET"),
		LogLevel:       getenvDefault("DZ_LOG_LEVEL", "info"),
		LogFormat:      getenvDefault("DZ_LOG_FORMAT", "console"),
	}
}

// ValidationError is one configuration problem found at startup.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate checks the whole configuration and returns every problem
// found, not just the first one.
func (c Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, message string) {
		errs = append(errs, ValidationError{Field: field, Message: message})
	}

	if strings.TrimSpace(c.Addr) == "" {
		add("DZ_ADDR", "listen address is required")
	}
	if c.TTL <= 0 {
		add("DZ_TTL", "must be a positive duration, e.g. 600s")
	}
	if c.SweepInterval <= 0 {
		add("DZ_SWEEP_INTERVAL", "must be a positive duration, e.g. 60s")
	}
	if c.MaxUploadBytes < 0 {
		add("DZ_MAX_UPLOAD_BYTES", "must not be negative (0 disables the limit)")
	}

	switch c.Storage {
	case StorageLocal:
		if strings.TrimSpace(c.LocalPath) == "" {
			add("DZ_LOCAL_PATH", "required when DZ_STORAGE=local")
		}
	case StorageMinio:
		if c.MinioEndpoint == "" {
			add("DZ_S3_ENDPOINT", "required when DZ_STORAGE=minio")
		}
		if c.MinioAccessKey == "" {
			add("DZ_S3_ACCESS_KEY", "required when DZ_STORAGE=minio")
		}
		if c.MinioSecretKey == "" {
			add("DZ_S3_SECRET_KEY", "required when DZ_STORAGE=minio")
		}
		if c.MinioBucket == "" {
			add("DZ_BUCKET", "required when DZ_STORAGE=minio")
		}
	default:
		add("DZ_STORAGE", fmt.Sprintf("unsupported storage backend: %q", c.Storage))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		add("DZ_LOG_LEVEL", fmt.Sprintf("unknown level: %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		add("DZ_LOG_FORMAT", fmt.Sprintf("unknown format: %q", c.LogFormat))
	}

	return errs
}

// ErrorString formats validation errors for a startup log line.
func ErrorString(errs []ValidationError) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration invalid with %d error(s):", len(errs)))
	for _, err := range errs {
		sb.WriteString("\n  - " + err.Error())
	}
	return sb.String()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are read as seconds for convenience.
		if secs, serr := strconv.Atoi(v); serr == nil {
			return time.Duration(secs) * time.Second
		}
		return -1 // caught by Validate
	}
	return d
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1 // caught by Validate
	}
	return n
}
