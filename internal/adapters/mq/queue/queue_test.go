package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/pnlboard/pnlboard/internal/adapters/mq/queue"
	"github.com/pnlboard/pnlboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given a small in-memory queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When enqueueing within capacity", func() {
			ok := q.Enqueue(ctx, model.PnlUpdate{Wallet: "W1", PnlUSD: 1})

			Convey("Then the update is accepted and counted", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W2"}), ShouldBeTrue)

			Convey("Then further enqueues report backpressure", func() {
				So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W3"}), ShouldBeFalse)
			})
		})

		Convey("When dequeuing", func() {
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W1", PnlUSD: 9.5}), ShouldBeTrue)
			dequeueCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			ch := q.Dequeue(dequeueCtx)

			Convey("Then updates arrive in order", func() {
				select {
				case u := <-ch:
					So(u.Wallet, ShouldEqual, "W1")
					So(u.PnlUSD, ShouldEqual, 9.5)
				case <-time.After(time.Second):
					t.Fatal("timed out waiting for dequeue")
				}
			})
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given an open queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then it reports closed and rejects enqueues", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W"}), ShouldBeFalse)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When closing with buffered updates", func() {
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.PnlUpdate{Wallet: "W2"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then the dequeue channel drains and closes", func() {
				ch := q.Dequeue(ctx)
				var got []string
				for u := range ch {
					got = append(got, u.Wallet)
				}
				So(got, ShouldResemble, []string{"W1", "W2"})
			})
		})
	})
}
