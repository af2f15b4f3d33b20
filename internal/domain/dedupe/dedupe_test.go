package dedupe_test

import (
	"context"
	"sync"
	"testing"

	"github.com/okian/httcp/internal/domain/dedupe"
	"github.com/okian/httcp/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func key(ev uint64) model.EventKey {
	return model.EventKey{Run: 1, Lumi: 10, Event: ev}
}

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When recording events", func() {
			Convey("And the event is new", func() {
				So(d.SeenAndRecord(ctx, key(1)), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the event was already seen", func() {
				d.SeenAndRecord(ctx, key(1))
				So(d.SeenAndRecord(ctx, key(1)), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And only the event number differs", func() {
				d.SeenAndRecord(ctx, key(1))
				So(d.SeenAndRecord(ctx, model.EventKey{Run: 2, Lumi: 10, Event: 1}), ShouldBeFalse)
			})
		})

		Convey("When marking a batch with an internal repeat", func() {
			d.SeenAndRecord(ctx, key(5))
			flags := d.MarkBatch(ctx, []model.EventKey{key(4), key(5), key(6), key(4)})

			Convey("Then earlier and repeated keys are flagged", func() {
				So(flags, ShouldResemble, []bool{false, true, false, true})
				So(d.Size(), ShouldEqual, 3)
			})
		})

		Convey("When unrecording events", func() {
			d.SeenAndRecord(ctx, key(1))
			d.SeenAndRecord(ctx, key(2))
			d.Unrecord(ctx, key(1))
			d.Unrecord(ctx, key(99))

			Convey("Then the key can be recorded again", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, key(1)), ShouldBeFalse)
			})
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := uint64(1); i <= 3; i++ {
			d.SeenAndRecord(ctx, key(i))
		}

		Convey("When a new key arrives", func() {
			So(d.SeenAndRecord(ctx, key(4)), ShouldBeFalse)

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, key(2)), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, key(1)), ShouldBeFalse)
			})
		})

		Convey("When an unrecorded key leaves a gap", func() {
			d.Unrecord(ctx, key(1))
			So(d.SeenAndRecord(ctx, key(4)), ShouldBeFalse)

			Convey("Then nothing else is evicted", func() {
				So(d.SeenAndRecord(ctx, key(2)), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, key(3)), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := uint64(0); i < 1000; i++ {
			d.SeenAndRecord(ctx, key(i))
		}
		So(d.Size(), ShouldEqual, 1000)
		d.Unrecord(ctx, key(0))
		So(d.Size(), ShouldEqual, 999)
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When goroutines race on the same keys", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := uint64(0); i < 100; i++ {
						if !d.SeenAndRecord(ctx, key(i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each key is new exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}
