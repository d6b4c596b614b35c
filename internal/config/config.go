// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Upstream UpstreamConfig
	Throttle ThrottleConfig
	Crawl    CrawlConfig
	Output   OutputConfig
	Storage  StorageConfig
	Server   ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	Dir   string // Per-run log files go here; empty disables file logging
}

// UpstreamConfig describes the catalog API being ingested.
type UpstreamConfig struct {
	BaseURL        string
	CityUUID       string
	URLsFile       string // Optional line-delimited list of category URLs
	UserAgent      string
	RequestTimeout time.Duration
}

// ThrottleConfig holds the request pacing settings.
type ThrottleConfig struct {
	DownloadDelay      time.Duration // Base delay between dispatches (default: 1.5s)
	RandomizeDelay     bool          // Jitter each delay by 0.5x to 1.5x (default: true)
	ConcurrentRequests int           // Requests in flight at once (default: 1)

	AutoThrottle      bool          // Adapt delay to observed latency (default: true)
	StartDelay        time.Duration // Initial auto-throttle delay (default: 1s)
	MaxDelay          time.Duration // Auto-throttle ceiling (default: 10s)
	TargetConcurrency float64       // Auto-throttle target (default: 1.0)

	DefaultRetryAfter time.Duration // Pause used when a 429 carries no usable Retry-After (default: 60s)
	RobotsObey        bool          // Honour robots.txt disallow rules (default: true)
}

// CrawlConfig holds orchestrator fan-out limits.
type CrawlConfig struct {
	CategoryConcurrency int // Categories processed at once (default: 1)
	DetailConcurrency   int // Detail fetches per category at once (default: 1)
}

// OutputConfig holds the JSON export settings.
type OutputConfig struct {
	Path string // Empty disables the JSON file
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DataPath      string // Directory for the embedded store and search index
	Driver        string // badger, sqlite or none
	SearchEnabled bool
	PostgresDSN   string // Optional warehouse sink
}

// ServerConfig holds the read-only API server configuration.
type ServerConfig struct {
	Enabled      bool          // Serve the API and keep running after the crawl
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logDir := fs.String("log-dir", "", "Directory for per-run log files")

	baseURL := fs.String("base-url", "", "Catalog API base URL")
	cityUUID := fs.String("city-uuid", "", "City UUID sent with every catalog request")
	urlsFile := fs.String("urls-file", "", "File with category URLs, one per line")
	userAgent := fs.String("user-agent", "", "User-Agent header for outbound requests")
	requestTimeout := fs.String("request-timeout", "", "Per-request timeout (default: 30s)")

	downloadDelay := fs.String("download-delay", "", "Base delay between requests (default: 1.5s)")
	randomizeDelay := fs.String("randomize-delay", "", "Randomize the delay (default: true)")
	concurrentRequests := fs.String("concurrent-requests", "", "Requests in flight (default: 1)")
	autoThrottle := fs.String("autothrottle", "", "Enable latency-based throttling (default: true)")
	maxDelay := fs.String("autothrottle-max-delay", "", "Auto-throttle maximum delay (default: 10s)")
	robotsObey := fs.String("robots-obey", "", "Honour robots.txt (default: true)")

	categoryConcurrency := fs.String("category-concurrency", "", "Categories crawled at once (default: 1)")
	detailConcurrency := fs.String("detail-concurrency", "", "Detail fetches per category at once (default: 1)")

	outputPath := fs.String("output", "", "JSON output file (default: result.json)")
	dataPath := fs.String("data-path", "", "Directory for the product store")
	storeDriver := fs.String("store", "", "Store driver: badger, sqlite or none (default: badger)")
	pgDSN := fs.String("pg-dsn", "", "Postgres DSN for the warehouse sink")

	serve := fs.String("serve", "", "Serve the read-only API (default: false)")
	serverPort := fs.String("port", "", "Server port (default: 8080)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Dir:   getConfigValue(*logDir, "LOG_DIR", "logs"),
		},
		Upstream: UpstreamConfig{
			BaseURL:   strings.TrimRight(getConfigValue(*baseURL, "BASE_URL", "https://alkoteka.com/web-api/v1"), "/"),
			CityUUID:  getConfigValue(*cityUUID, "CITY_UUID", "4a70f9e0-46ae-11e7-83ff-00155d026416"),
			URLsFile:  getConfigValue(*urlsFile, "URLS_FILE", ""),
			UserAgent: getConfigValue(*userAgent, "USER_AGENT", "catalog-ingest/1.0"),
		},
		Throttle: ThrottleConfig{
			RandomizeDelay:     getBoolConfigValue(*randomizeDelay, "RANDOMIZE_DELAY", true),
			ConcurrentRequests: getIntConfigValue(*concurrentRequests, "CONCURRENT_REQUESTS", 1),
			AutoThrottle:       getBoolConfigValue(*autoThrottle, "AUTOTHROTTLE_ENABLED", true),
			TargetConcurrency:  getFloatConfigValue("", "AUTOTHROTTLE_TARGET_CONCURRENCY", 1.0),
			RobotsObey:         getBoolConfigValue(*robotsObey, "ROBOTS_OBEY", true),
		},
		Crawl: CrawlConfig{
			CategoryConcurrency: getIntConfigValue(*categoryConcurrency, "CATEGORY_CONCURRENCY", 1),
			DetailConcurrency:   getIntConfigValue(*detailConcurrency, "DETAIL_CONCURRENCY", 1),
		},
		Output: OutputConfig{
			Path: getConfigValue(*outputPath, "OUTPUT_PATH", "result.json"),
		},
		Storage: StorageConfig{
			DataPath:      getConfigValue(*dataPath, "DATA_PATH", ""),
			Driver:        strings.ToLower(getConfigValue(*storeDriver, "STORE_DRIVER", StoreBadger)),
			SearchEnabled: getBoolConfigValue("", "SEARCH_ENABLED", true),
			PostgresDSN:   getConfigValue(*pgDSN, "PG_DSN", ""),
		},
		Server: ServerConfig{
			Enabled: getBoolConfigValue(*serve, "SERVE", false),
			Port:    getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flagVal  string
		envKey   string
		fallback string
	}{
		{&cfg.Upstream.RequestTimeout, *requestTimeout, "REQUEST_TIMEOUT", "30s"},
		{&cfg.Throttle.DownloadDelay, *downloadDelay, "DOWNLOAD_DELAY", "1.5s"},
		{&cfg.Throttle.StartDelay, "", "AUTOTHROTTLE_START_DELAY", "1s"},
		{&cfg.Throttle.MaxDelay, *maxDelay, "AUTOTHROTTLE_MAX_DELAY", "10s"},
		{&cfg.Throttle.DefaultRetryAfter, "", "DEFAULT_RETRY_AFTER", "60s"},
		{&cfg.Server.ReadTimeout, "", "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, "", "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, "", "SERVER_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		v, err := getDurationConfigValue(d.flagVal, d.envKey, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL: %q", c.Upstream.BaseURL)
	}

	if _, err := uuid.Parse(c.Upstream.CityUUID); err != nil {
		return fmt.Errorf("invalid city UUID %q: %w", c.Upstream.CityUUID, err)
	}

	if c.Throttle.DownloadDelay < 0 {
		return errors.New("download delay cannot be negative")
	}
	if c.Throttle.ConcurrentRequests < 1 {
		return fmt.Errorf("concurrent requests must be at least 1, got %d", c.Throttle.ConcurrentRequests)
	}
	if c.Throttle.AutoThrottle {
		if c.Throttle.TargetConcurrency <= 0 {
			return fmt.Errorf("auto-throttle target concurrency must be positive, got %v", c.Throttle.TargetConcurrency)
		}
		if c.Throttle.MaxDelay < c.Throttle.StartDelay {
			return fmt.Errorf("auto-throttle max delay %s is below start delay %s", c.Throttle.MaxDelay, c.Throttle.StartDelay)
		}
	}
	if c.Throttle.DefaultRetryAfter <= 0 {
		return errors.New("default retry-after must be positive")
	}

	if c.Crawl.CategoryConcurrency < 1 || c.Crawl.DetailConcurrency < 1 {
		return errors.New("crawl concurrency must be at least 1")
	}

	switch c.Storage.Driver {
	case StoreBadger, StoreSQLite:
		if c.Storage.DataPath == "" {
			return errors.New("data path cannot be empty after expansion")
		}
	case StoreNone:
		if c.Server.Enabled {
			return errors.New("serving the API requires a store driver")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be badger, sqlite, or none)", c.Storage.Driver)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ./data.
func (c *Config) expandDataPath() error {
	expanded, err := expandPath(c.Storage.DataPath, "")
	if err != nil {
		return err
	}
	if expanded == "" {
		expanded, err = expandPath("data", "")
		if err != nil {
			return err
		}
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
// Bare numbers are read as seconds, so DOWNLOAD_DELAY=1.5 works.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	if secs, err := strconv.ParseFloat(strValue, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
