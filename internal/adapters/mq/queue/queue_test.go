package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/httcp/internal/adapters/mq/queue"
	"github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	convey.Convey("Given a queue with capacity two", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		ctx := context.Background()
		convey.So(q.Capacity(), convey.ShouldEqual, 2)

		convey.Convey("When enqueuing and dequeuing one job", func() {
			convey.So(q.Enqueue(ctx, queue.Job{BatchID: "b", Index: 3}), convey.ShouldBeNil)
			convey.So(q.Len(), convey.ShouldEqual, 1)

			job := <-q.Dequeue(ctx)

			convey.Convey("Then the job comes out stamped", func() {
				convey.So(job.Index, convey.ShouldEqual, 3)
				convey.So(job.Enqueued.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the queue is full", func() {
			convey.So(q.Enqueue(ctx, queue.Job{Index: 0}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, queue.Job{Index: 1}), convey.ShouldBeNil)
			err := q.Enqueue(ctx, queue.Job{Index: 2})

			convey.Convey("Then enqueue reports ErrFull without blocking", func() {
				convey.So(errors.Is(err, queue.ErrFull), convey.ShouldBeTrue)
				convey.So(q.Len(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := q.Enqueue(cctx, queue.Job{})
			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
		})

		convey.Convey("When the queue is closed", func() {
			convey.So(q.Enqueue(ctx, queue.Job{Index: 7}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then enqueue fails and queued jobs drain", func() {
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(errors.Is(q.Enqueue(ctx, queue.Job{}), queue.ErrClosed), convey.ShouldBeTrue)

				var got []int
				for j := range q.Dequeue(ctx) {
					got = append(got, j.Index)
				}
				convey.So(got, convey.ShouldResemble, []int{7})
			})
		})
	})
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	convey.Convey("Given many producers and one consumer", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		const producers, perProducer = 8, 50
		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perProducer; i++ {
					for errors.Is(q.Enqueue(ctx, queue.Job{Index: i}), queue.ErrFull) {
						time.Sleep(time.Millisecond)
					}
				}
			}()
		}
		go func() {
			wg.Wait()
			_ = q.Close()
		}()

		count := 0
		for range q.Dequeue(ctx) {
			count++
		}

		convey.Convey("Then every job is delivered once", func() {
			convey.So(count, convey.ShouldEqual, producers*perProducer)
		})
	})
}
