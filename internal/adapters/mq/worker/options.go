// Package worker drains queued PnL updates into the ranking board.
package worker

import (
	"time"

	"github.com/pnlboard/pnlboard/pkg/logger"
)

// Option applies a configuration option to the Flusher.
type Option func(*Flusher)

// WithName sets a name used in logs.
func WithName(name string) Option {
	return func(w *Flusher) {
		if name != "" {
			w.name = name
			w.logger = logger.Get().Named(name)
		}
	}
}

// WithBatchSize sets the number of updates that triggers a flush.
func WithBatchSize(size int) Option {
	return func(w *Flusher) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithFlushInterval sets the maximum time a buffered update waits before
// being flushed.
func WithFlushInterval(interval time.Duration) Option {
	return func(w *Flusher) {
		if interval > 0 {
			w.flushInterval = interval
		}
	}
}

// WithLogger sets a custom logger for the flusher.
func WithLogger(l logger.Logger) Option {
	return func(w *Flusher) {
		if l != nil {
			w.logger = l
		}
	}
}
