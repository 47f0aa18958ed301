package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration, assembled from
// environment variables (and an optional .env file) rather than a config
// file on disk.
type Config struct {
	Server    ServerConfig
	Render    RenderConfig
	Broker    BrokerConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds gateway HTTP server settings.
type ServerConfig struct {
	// Host to listen on.
	Host string
	// Port to listen on.
	Port int
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout int
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RenderConfig holds worker-side browser and rendering defaults.
type RenderConfig struct {
	MaxConcurrentScreenshots  int
	BrowserType               string
	Headless                  bool
	ViewportWidth             int
	ViewportHeight            int
	DefaultImageType          string
	DefaultImageQuality       int
	DefaultWaitUntil          string
	DefaultTimeoutMs          int
	DefaultWaitForSelectorMs  int
}

// BrokerConfig holds the shared key-value broker connection and schema.
type BrokerConfig struct {
	Host              string
	Port              int
	DB                int
	Password          string
	TaskQueue         string
	ResultPrefix      string
	ResultTTLSeconds  int
}

// Addr returns the host:port the broker client should dial.
func (b BrokerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string
}

// RateLimitConfig holds the per-client token bucket guarding the gateway's
// public RPC surface.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// JSONRPCVersion is the JSON-RPC protocol version this cluster speaks.
const JSONRPCVersion = "2.0"

// Load builds a Config from environment variables, having first attempted
// to load a .env file (via godotenv) from the working directory. A missing
// .env file is not an error — the process may be configured purely through
// its environment (e.g. under a supervisor or container runtime).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getString("HOST", DefaultHost),
			Port:            getInt("PORT", DefaultPort),
			ShutdownTimeout: getInt("SHUTDOWN_TIMEOUT_SECONDS", int(DefaultShutdownTimeout.Seconds())),
		},
		Render: RenderConfig{
			MaxConcurrentScreenshots: getInt("MAX_CONCURRENT_SCREENSHOTS", DefaultMaxConcurrentScreenshots),
			BrowserType:              getString("BROWSER_TYPE", DefaultBrowserType),
			Headless:                 getBool("HEADLESS", DefaultHeadless),
			ViewportWidth:            getInt("VIEWPORT_WIDTH", DefaultViewportWidth),
			ViewportHeight:           getInt("VIEWPORT_HEIGHT", DefaultViewportHeight),
			DefaultImageType:         getString("DEFAULT_IMAGE_TYPE", DefaultImageType),
			DefaultImageQuality:      getInt("DEFAULT_IMAGE_QUALITY", DefaultImageQuality),
			DefaultWaitUntil:         getString("DEFAULT_WAIT_UNTIL", DefaultWaitUntil),
			DefaultTimeoutMs:         getInt("DEFAULT_TIMEOUT_MS", DefaultTimeoutMs),
			DefaultWaitForSelectorMs: getInt("DEFAULT_WAIT_FOR_SELECTOR_TIMEOUT", DefaultWaitForSelectorTimeoutMs),
		},
		Broker: BrokerConfig{
			Host:             getString("REDIS_HOST", DefaultRedisHost),
			Port:             getInt("REDIS_PORT", DefaultRedisPort),
			DB:               getInt("REDIS_DB", DefaultRedisDB),
			Password:         getString("REDIS_PASSWORD", ""),
			TaskQueue:        getString("REDIS_TASK_QUEUE", DefaultRedisTaskQueue),
			ResultPrefix:     getString("REDIS_RESULT_PREFIX", DefaultRedisResultPrefix),
			ResultTTLSeconds: getInt("REDIS_RESULT_TTL_SECONDS", DefaultRedisResultTTLSecs),
		},
		Logging: LoggingConfig{
			Level: getString("LOG_LEVEL", DefaultLogLevel),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getInt("RATE_LIMIT_RPS", DefaultRateLimitRPS),
			Burst:             getInt("RATE_LIMIT_BURST", DefaultRateLimitBurst),
		},
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		Warn("config: invalid int for %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		Warn("config: invalid bool for %s=%q, using default %v", key, v, def)
		return def
	}
}

// ParseLevel maps a LOG_LEVEL string onto a LogLevel, defaulting to Info.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}
