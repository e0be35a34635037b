package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pnlboard/pnlboard/internal/adapters/mq/queue"
	"github.com/pnlboard/pnlboard/internal/adapters/mq/worker"
	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
	"github.com/pnlboard/pnlboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// recordingBoard captures flushed batches.
type recordingBoard struct {
	mu      sync.Mutex
	batches [][]model.PnlUpdate
}

func (b *recordingBoard) BatchUpsert(_ context.Context, updates []model.PnlUpdate, _ ...timeframe.Timeframe) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := make([]model.PnlUpdate, len(updates))
	copy(batch, updates)
	b.batches = append(b.batches, batch)
	return nil
}

func (b *recordingBoard) snapshot() [][]model.PnlUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]model.PnlUpdate, len(b.batches))
	copy(out, b.batches)
	return out
}

func (b *recordingBoard) totalUpdates() int {
	total := 0
	for _, batch := range b.snapshot() {
		total += len(batch)
	}
	return total
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestFlusher_BatchSizeTrigger(t *testing.T) {
	Convey("Given a flusher with batch size 2", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		board := &recordingBoard{}
		w := worker.NewFlusher(q, board,
			worker.WithBatchSize(2),
			worker.WithFlushInterval(time.Hour), // only the size trigger fires
		)
		go w.Run(ctx)
		defer func() { _ = w.Shutdown(context.Background()) }()

		Convey("When enough updates arrive to fill a batch", func() {
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W1", PnlUSD: 1}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W2", PnlUSD: 2}), ShouldBeTrue)

			Convey("Then one batch of two is flushed", func() {
				So(waitFor(func() bool { return board.totalUpdates() == 2 }, 2*time.Second), ShouldBeTrue)
				batches := board.snapshot()
				So(batches, ShouldHaveLength, 1)
				So(batches[0][0].Wallet, ShouldEqual, "W1")
				So(batches[0][1].Wallet, ShouldEqual, "W2")
			})
		})
	})
}

func TestFlusher_IntervalTrigger(t *testing.T) {
	Convey("Given a flusher with a short flush interval", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		board := &recordingBoard{}
		w := worker.NewFlusher(q, board,
			worker.WithBatchSize(100),
			worker.WithFlushInterval(20*time.Millisecond),
		)
		go w.Run(ctx)
		defer func() { _ = w.Shutdown(context.Background()) }()

		Convey("When a single update sits below the batch size", func() {
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W1", PnlUSD: 1}), ShouldBeTrue)

			Convey("Then the interval flushes it anyway", func() {
				So(waitFor(func() bool { return board.totalUpdates() == 1 }, 2*time.Second), ShouldBeTrue)
			})
		})
	})
}

func TestFlusher_DrainOnShutdown(t *testing.T) {
	Convey("Given a flusher with buffered updates", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		board := &recordingBoard{}
		w := worker.NewFlusher(q, board,
			worker.WithBatchSize(100),
			worker.WithFlushInterval(time.Hour),
		)
		go w.Run(ctx)

		So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W1", PnlUSD: 1}), ShouldBeTrue)
		// Give the run loop a moment to buffer the update.
		So(waitFor(func() bool { return q.Len(ctx) == 0 }, 2*time.Second), ShouldBeTrue)

		Convey("When the flusher shuts down", func() {
			So(w.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then the buffered batch was drained to the board", func() {
				So(board.totalUpdates(), ShouldEqual, 1)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of flushers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		board := &recordingBoard{}
		p := worker.NewPool(3, q, board,
			worker.WithBatchSize(4),
			worker.WithFlushInterval(20*time.Millisecond),
		)
		p.Start(ctx)

		Convey("When many updates are enqueued", func() {
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W", PnlUSD: float64(i)}), ShouldBeTrue)
			}

			Convey("Then every update reaches the board", func() {
				So(waitFor(func() bool { return board.totalUpdates() == 20 }, 5*time.Second), ShouldBeTrue)
				p.Stop()
			})
		})

		Convey("When the pool stops idle", func() {
			p.Stop()

			Convey("Then nothing was flushed", func() {
				So(board.totalUpdates(), ShouldEqual, 0)
			})
		})
	})
}
