// Package worker drains queued PnL updates into the ranking board.
//
// Each worker accumulates updates into a batch and flushes it when the
// batch is full or the flush interval elapses, so a burst of per-wallet
// updates becomes one batched board write instead of many round trips.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
	"github.com/pnlboard/pnlboard/pkg/logger"
	"github.com/pnlboard/pnlboard/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultBatchSize        = 100
	defaultFlushInterval    = 200 * time.Millisecond
	drainFlushTimeout       = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
)

// Update abstracts what workers read off the queue.
type Update = model.PnlUpdate

// Board receives flushed batches. Flushers always write all timeframes.
type Board interface {
	BatchUpsert(ctx context.Context, updates []model.PnlUpdate, tfs ...timeframe.Timeframe) error
}

// Queue defines how workers receive updates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Update
}

// Flusher batches queued updates and writes them to the board.
type Flusher struct {
	queue         Queue
	board         Board
	name          string
	batchSize     int
	flushInterval time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewFlusher creates a new flusher with configuration options.
func NewFlusher(queue Queue, board Board, opts ...Option) *Flusher {
	w := &Flusher{
		queue:         queue,
		board:         board,
		name:          "flusher",
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Get().Named("flusher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the flush loop until ctx is canceled, Shutdown is called, or
// the queue closes.
func (w *Flusher) Run(ctx context.Context) {
	defer close(w.done)

	updates := w.queue.Dequeue(ctx)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]Update, 0, w.batchSize)
	for {
		select {
		case <-ctx.Done():
			w.drain(batch)
			return
		case <-w.shutdown:
			w.drain(batch)
			return
		case u, ok := <-updates:
			if !ok {
				w.drain(batch)
				return
			}
			batch = append(batch, u)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// Shutdown gracefully stops the flusher, flushing any buffered batch.
func (w *Flusher) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
		// already signaled
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// flush writes one batch to the board.
func (w *Flusher) flush(ctx context.Context, batch []Update) {
	start := time.Now()
	err := w.board.BatchUpsert(ctx, batch)
	metrics.RecordFlushLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordFlushBatchSize(len(batch))
	if err != nil {
		// The board's state for these wallets is unknown; surface the
		// failure loudly, producers decide whether to resubmit.
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "batch flush failed",
			logger.Int("updates", len(batch)),
			logger.Error(err),
		)
	}
}

// drain flushes the remaining batch on the way out, detached from the
// (possibly canceled) run context.
func (w *Flusher) drain(batch []Update) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainFlushTimeout)
	defer cancel()
	w.flush(ctx, batch)
}

// Pool manages multiple flushers sharing one queue.
type Pool struct {
	workers []*Flusher

	logger logger.Logger
}

// NewPool creates a pool of workerCount flushers. A non-positive count
// defaults to a small multiple of the CPU count.
func NewPool(workerCount int, queue Queue, board Board, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Flusher, workerCount),
		logger:  logger.Get().Named("flusher-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewFlusher(
			queue,
			board,
			append(opts, WithName("flusher-"+strconv.Itoa(i)))...,
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Start starts all flushers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all flushers, waiting a bounded time for each.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "flusher stop timed out", logger.String("name", w.name))
		}
		cancel()
	}
	metrics.UpdateWorkerActiveCount(0)
}
