package service

import (
	"time"

	repository "github.com/pnlboard/pnlboard/internal/adapters/repository"
	"github.com/pnlboard/pnlboard/internal/domain/address"
	"github.com/pnlboard/pnlboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreAddr sets the ordered-set store address as host:port.
func WithStoreAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.redisAddr = addr
		}
	}
}

// WithStoreCredentials sets the optional store credentials.
func WithStoreCredentials(username, password string) Option {
	return func(s *Service) {
		s.redisUsername = username
		s.redisPassword = password
	}
}

// WithStoreDB selects the store's numeric database namespace.
func WithStoreDB(db int) Option {
	return func(s *Service) {
		if db >= 0 {
			s.redisDB = db
		}
	}
}

// WithBoard injects a pre-built board, bypassing store construction.
// Used by tests and by embedders that manage their own connection.
func WithBoard(b repository.Board) Option {
	return func(s *Service) {
		if b != nil {
			s.board = b
		}
	}
}

// WithNormalizer replaces the default wallet address normalizer.
func WithNormalizer(n *address.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithWorkerCount sets the number of flush workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFlushBatchSize sets the number of updates that triggers a flush.
func WithFlushBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithFlushInterval sets the maximum time a queued update waits before
// being written to the board.
func WithFlushInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
