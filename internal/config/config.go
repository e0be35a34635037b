// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// RedisAddr points at the ordered-set store as host:port.
	RedisAddr string `koanf:"redis_addr"`

	// RedisUsername and RedisPassword are optional store credentials.
	RedisUsername string `koanf:"redis_username"`
	RedisPassword string `koanf:"redis_password"`

	// RedisDB selects the store's numeric database namespace.
	RedisDB int `koanf:"redis_db"`

	// QueueSize bounds the in-memory update queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of batch flush workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// FlushBatchSize is the number of queued updates that triggers a
	// board write.
	FlushBatchSize int `koanf:"flush_batch_size"`

	// FlushIntervalMS is the maximum time a queued update waits before
	// being written, in milliseconds.
	FlushIntervalMS int `koanf:"flush_interval_ms"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		QueueSize:           100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		FlushBatchSize:      100,
		FlushIntervalMS:     200,
		MaxLeaderboardLimit: 100,
	}
}
