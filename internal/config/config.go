package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrCDNRequired is returned when the input is a project directory but no CDN
// base URL was supplied via --cdn or CDN_BASE_URL.
var ErrCDNRequired = errors.New("--cdn is required when --in is a directory")

const (
	// DefaultInput and DefaultOutput are used when --in/--out are not given.
	DefaultInput  = "."
	DefaultOutput = "."
)

// Settings contains environment-derived configuration for collecting and downloading images.
type Settings struct {
	CDNBaseURL      string        // Default for --cdn
	MaxConcurrent   int           // Default for --concurrency, defaults to 8
	HTTPTimeout     time.Duration // HTTP client timeout, defaults to 60 seconds
	HTTPRetries     int           // Retries for transport errors, 5xx and 429, defaults to 3
	HTTPMaxBodySize int64         // Maximum size of a single downloaded file in bytes, defaults to 50MB
	UserAgent       string        // User-Agent header sent with every request
	LogLevel        string        // debug, info, warn or error
}

// Options is the resolved command line configuration. It is built once per
// run and never mutated afterwards.
type Options struct {
	Input       string // File of newline-delimited URLs, or a project directory
	Output      string // Directory downloads are written to
	CDN         string // CDN base URL, required only for project directories
	List        bool   // Print the collected URLs instead of downloading them
	Concurrency int    // Maximum number of downloads in flight
}

// LoadSettings loads configuration from environment variables and optional .env file.
// Optional variables: CDN_BASE_URL, MAX_CONCURRENT_DOWNLOADS, HTTP_TIMEOUT, HTTP_RETRIES,
// HTTP_MAX_BODY_SIZE, HTTP_USER_AGENT, LOG_LEVEL.
func LoadSettings() (*Settings, error) {
	// If .env exists, try to load it
	if _, err := os.Stat(".env"); err == nil {
		err := godotenv.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	cdn := strings.TrimSpace(getEnv("CDN_BASE_URL", ""))

	maxConcurrent := getEnvInt("MAX_CONCURRENT_DOWNLOADS", 8)
	if maxConcurrent <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be positive, got %d", maxConcurrent)
	}

	httpTimeout := time.Duration(getEnvInt("HTTP_TIMEOUT", 60)) * time.Second
	httpRetries := getEnvInt("HTTP_RETRIES", 3)
	httpMaxBodySize := int64(getEnvInt("HTTP_MAX_BODY_SIZE", 50*1024*1024)) // 50MB default

	return &Settings{
		CDNBaseURL:      cdn,
		MaxConcurrent:   maxConcurrent,
		HTTPTimeout:     httpTimeout,
		HTTPRetries:     httpRetries,
		HTTPMaxBodySize: httpMaxBodySize,
		UserAgent:       getEnv("HTTP_USER_AGENT", ""),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}, nil
}

// get the env variable with a default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// getEnvInt returns an integer env var, defaulting when unset/empty or invalid.
func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return i
	}
	return def
}
