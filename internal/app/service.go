// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	updatequeue "github.com/pnlboard/pnlboard/internal/adapters/mq/queue"
	workerpool "github.com/pnlboard/pnlboard/internal/adapters/mq/worker"
	repository "github.com/pnlboard/pnlboard/internal/adapters/repository"
	"github.com/pnlboard/pnlboard/internal/domain/address"
	"github.com/pnlboard/pnlboard/internal/domain/dedupe"
	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
	"github.com/pnlboard/pnlboard/pkg/logger"
	"github.com/pnlboard/pnlboard/pkg/metrics"
)

// Service implements the API dependencies for the PnL ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	board      repository.Board
	deduper    dedupe.Deduper
	queue      updatequeue.Queue
	normalizer *address.Normalizer
	pool       *workerpool.Pool

	// Configuration
	redisAddr     string
	redisUsername string
	redisPassword string
	redisDB       int
	workerCount   int
	queueSize     int
	dedupeSize    int
	batchSize     int
	flushInterval time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		redisAddr:     "localhost:6379",
		workerCount:   0, // pool picks a CPU-based default
		queueSize:     100000,
		dedupeSize:    50000,
		batchSize:     100,
		flushInterval: 200 * time.Millisecond,
		logger:        nil, // resolved when the service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start connects to the store, initializes the boards, and starts the
// ingestion pipeline. A store that cannot be reached or initialized is
// fatal; the error is returned to the caller.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	if s.board == nil {
		s.board = repository.NewRedisBoard(
			repository.WithAddr(s.redisAddr),
			repository.WithCredentials(s.redisUsername, s.redisPassword),
			repository.WithDB(s.redisDB),
			repository.WithLogger(s.logger.Named("board")),
		)
	}
	if err := s.board.Connect(ctx); err != nil {
		return err
	}
	if err := s.board.EnsureBoards(ctx); err != nil {
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = updatequeue.NewInMemoryQueue(
		updatequeue.WithCapacity(s.queueSize),
	)
	if s.normalizer == nil {
		s.normalizer = address.New()
	}

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.board,
		workerpool.WithBatchSize(s.batchSize),
		workerpool.WithFlushInterval(s.flushInterval),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("store", s.redisAddr),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service. Shutdown problems are logged,
// never propagated; the process is exiting either way.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	if s.pool != nil {
		s.pool.Stop()
	}

	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn(ctx, "queue close failed", logger.Error(err))
		}
	}

	if s.board != nil {
		if err := s.board.Close(); err != nil {
			s.logger.Warn(ctx, "store close failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// SeenAndRecord atomically checks if an update id was seen and records it
// if not. Returns true if the update was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordUpdateDuplicate()
	}
	return seen
}

// Unrecord removes an update ID from the seen list, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits an update for asynchronous processing. Returns true when
// the update was accepted or recognized as a duplicate, false when it was
// rejected (bad address or queue backpressure).
func (s *Service) Enqueue(ctx context.Context, u model.PnlUpdate) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false
	}

	wallet, ok := s.normalizer.Normalize(u.Wallet)
	if !ok {
		metrics.RecordUpdateRejected()
		s.logger.Warn(ctx, "rejected update with unusable wallet address",
			logger.String("updateID", u.UpdateID),
		)
		return false
	}
	u.Wallet = wallet

	if u.UpdateID != "" && s.SeenAndRecord(ctx, u.UpdateID) {
		s.logger.Debug(ctx, "duplicate update skipped",
			logger.String("updateID", u.UpdateID),
			logger.String("wallet", u.Wallet),
		)
		return true // processed, as a duplicate
	}

	if !s.queue.Enqueue(ctx, u) {
		// Backpressure: release the ID so the producer can resubmit.
		if u.UpdateID != "" {
			s.Unrecord(ctx, u.UpdateID)
		}
		metrics.RecordUpdateRejected()
		return false
	}

	metrics.RecordUpdateAccepted()
	return true
}

// UpdateWalletPnl synchronously writes pnl for wallet in the named
// timeframes. Empty tfs means all timeframes.
func (s *Service) UpdateWalletPnl(ctx context.Context, wallet string, pnl float64, tfs ...timeframe.Timeframe) error {
	board, err := s.activeBoard()
	if err != nil {
		return err
	}
	return board.UpsertScore(ctx, wallet, pnl, tfs...)
}

// BatchUpdatePnl synchronously applies a batch of updates.
func (s *Service) BatchUpdatePnl(ctx context.Context, updates []model.PnlUpdate, tfs ...timeframe.Timeframe) error {
	board, err := s.activeBoard()
	if err != nil {
		return err
	}
	return board.BatchUpsert(ctx, updates, tfs...)
}

// RemoveWallet deletes a wallet from every timeframe's board.
func (s *Service) RemoveWallet(ctx context.Context, wallet string) error {
	board, err := s.activeBoard()
	if err != nil {
		return err
	}
	return board.Remove(ctx, wallet)
}

// TopN returns the top n entries of tf ordered by PnL descending.
func (s *Service) TopN(ctx context.Context, tf timeframe.Timeframe, n int) ([]repository.Entry, error) {
	board, err := s.activeBoard()
	if err != nil {
		return nil, err
	}
	return board.TopN(ctx, tf, n)
}

// Rank returns the wallet's current entry in tf.
// Returns repository.ErrNotRanked when the wallet has no score there.
func (s *Service) Rank(ctx context.Context, wallet string, tf timeframe.Timeframe) (repository.Entry, error) {
	board, err := s.activeBoard()
	if err != nil {
		return repository.Entry{}, err
	}
	return board.Rank(ctx, wallet, tf)
}

// RankRange returns the entries in the 1-based inclusive rank range.
func (s *Service) RankRange(ctx context.Context, tf timeframe.Timeframe, start, end int) ([]repository.Entry, error) {
	board, err := s.activeBoard()
	if err != nil {
		return nil, err
	}
	return board.RankRange(ctx, tf, start, end)
}

// Count returns the number of ranked wallets in tf.
func (s *Service) Count(ctx context.Context, tf timeframe.Timeframe) (int64, error) {
	board, err := s.activeBoard()
	if err != nil {
		return 0, err
	}
	return board.Count(ctx, tf)
}

// Stats reports aggregate statistics for every timeframe.
func (s *Service) Stats(ctx context.Context) (map[timeframe.Timeframe]repository.Stats, error) {
	board, err := s.activeBoard()
	if err != nil {
		return nil, err
	}
	return board.Stats(ctx)
}

// ClearAll deletes every timeframe's board outright.
func (s *Service) ClearAll(ctx context.Context) error {
	board, err := s.activeBoard()
	if err != nil {
		return err
	}
	s.logger.Warn(ctx, "clearing all leaderboards")
	return board.DropBoards(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateQueueSize(queueLen)

		sizes := make(map[string]int64, len(timeframe.All()))
		for _, tf := range timeframe.All() {
			count, err := s.board.Count(ctx, tf)
			if err != nil {
				continue
			}
			sizes[tf.String()] = count
		}
		stats["boardSizes"] = sizes
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// activeBoard returns the board when the service is running.
func (s *Service) activeBoard() (repository.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.board == nil {
		return nil, ErrNotStarted
	}
	return s.board, nil
}
