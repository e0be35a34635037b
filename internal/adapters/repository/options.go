// Package repository defines the ranking board contract and errors.
package repository

import (
	"time"

	"github.com/pnlboard/pnlboard/pkg/logger"
)

// Option applies a configuration option to the RedisBoard.
type Option func(*RedisBoard)

// WithAddr sets the store address as host:port.
func WithAddr(addr string) Option {
	return func(b *RedisBoard) {
		if addr != "" {
			b.addr = addr
		}
	}
}

// WithCredentials sets the optional store credentials.
func WithCredentials(username, password string) Option {
	return func(b *RedisBoard) {
		b.username = username
		b.password = password
	}
}

// WithDB selects the store's numeric database namespace.
func WithDB(db int) Option {
	return func(b *RedisBoard) {
		if db >= 0 {
			b.db = db
		}
	}
}

// WithTimeouts sets the client's dial, read, and write timeouts.
// Zero values keep the defaults.
func WithTimeouts(dial, read, write time.Duration) Option {
	return func(b *RedisBoard) {
		if dial > 0 {
			b.dialTimeout = dial
		}
		if read > 0 {
			b.readTimeout = read
		}
		if write > 0 {
			b.writeTimeout = write
		}
	}
}

// WithLogger sets a custom logger for the board.
func WithLogger(l logger.Logger) Option {
	return func(b *RedisBoard) {
		if l != nil {
			b.logger = l
		}
	}
}
