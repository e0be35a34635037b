// Package queue defines the contract for buffering PnL updates between
// producers and the batch flush workers.
//
// The in-memory bounded queue is the only implementation; enqueue never
// blocks, it reports backpressure instead.
package queue

import (
	"context"
	"sync"

	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/pkg/metrics"
)

// defaultCapacity bounds the queue when no option is supplied.
const defaultCapacity = 100_000

// Update is the payload type flowing through the queue.
type Update = model.PnlUpdate

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an update to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, u Update) bool

	// Dequeue returns the channel updates arrive on.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Update

	// Len returns the current number of queued updates.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new updates can be
	// enqueued and the dequeue channel drains then closes.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	updates  chan Update
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.updates = make(chan Update, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// Enqueue adds an update to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, u Update) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.updates <- u:
		metrics.RecordQueueEnqueue()
		q.observeSize()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		// Queue full: backpressure, the caller decides what to do.
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns a channel that receives updates as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		for u := range q.updates {
			select {
			case out <- u:
				metrics.RecordQueueDequeue()
				q.observeSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued updates.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.updates)
	q.observeSize()
	return size
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.updates)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observeSize() {
	size := len(q.updates)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
