// Package dedupe defines the interface for idempotency tracking.
//
// Producers feeding the board may deliver the same update more than once
// (stream reconnects, retried POSTs). The deduper remembers recently seen
// update IDs so the ingestion path can drop duplicates before they reach
// the queue.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen update IDs to ensure at-most-once enqueueing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set, allowing it to be retried.
	// Used when an update was marked as seen but failed to be enqueued
	// (queue backpressure).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// defaultMaxSize bounds memory when no option is supplied.
const defaultMaxSize = 50_000

// inMemoryDeduper implements Deduper with a map plus a FIFO ring of IDs.
// When the bound is reached the oldest recorded ID is evicted; with
// maxSize <= 0 the set grows without bound.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // insertion order; empty slots hold ""
	next    int      // ring index of the next write
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		// Evict whatever occupies the slot about to be reused. The slot may
		// hold an ID already removed via Unrecord; deleting a missing key
		// is harmless.
		if old := d.ring[d.next]; old != "" {
			if _, exists := d.seen[old]; exists {
				delete(d.seen, old)
				d.size.Add(-1)
			}
		}
		d.ring[d.next] = id
		d.next = (d.next + 1) % d.maxSize
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		// The ring slot keeps the stale ID until overwritten; eviction
		// tolerates that.
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// Size returns the current number of recorded IDs.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
