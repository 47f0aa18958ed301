package common

import "time"

// Timeout defaults for RPC and operations
const (
	// DefaultShutdownTimeout is the graceful shutdown timeout
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultResultWaitSlack is added to a caller's timeout_ms when bounding
	// how long the gateway blocks on wait_for_result.
	DefaultResultWaitSlack = 5 * time.Second
)

// Render defaults, mirrored from spec environment variables when unset.
const (
	DefaultMaxConcurrentScreenshots = 4
	DefaultBrowserType              = "chromium"
	DefaultHeadless                 = true
	DefaultViewportWidth            = 1280
	DefaultViewportHeight           = 720
	DefaultImageType                = "png"
	DefaultImageQuality             = 90
	DefaultWaitUntil                = "load"
	DefaultTimeoutMs                = 30000
	DefaultWaitForSelectorTimeoutMs = 5000
)

// Rate limit defaults for the gateway's per-client token bucket.
const (
	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 100
)

// Broker defaults.
const (
	DefaultRedisHost            = "localhost"
	DefaultRedisPort            = 6379
	DefaultRedisDB              = 0
	DefaultRedisTaskQueue       = "screenshot_tasks"
	DefaultRedisResultPrefix    = "screenshot_result:"
	DefaultRedisResultTTLSecs   = 3600
	DefaultMailboxTTL           = 60 * time.Second
	DefaultPopTaskTimeout       = 5 * time.Second
	DefaultJSONRPCVersion       = "2.0"
	DefaultLogLevel             = "info"
	DefaultHost                 = "0.0.0.0"
	DefaultPort                 = 8080
)
