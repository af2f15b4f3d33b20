package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/httcp/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func update(channel string, events int64) repository.Update {
	return repository.Update{
		Channel: channel,
		Events:  events,
		Pairs:   2 * events,
		Steps: []repository.StepCount{
			{Name: "opposite_sign", Pairs: events, Events: events},
			{Name: "angular_separation", Pairs: events / 2, Events: events / 2},
		},
		Selected: events / 2,
		TieBreak: map[string]int64{"single": events / 2},
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given an empty store", t, func() {
		s := repository.NewMemoryStore(repository.WithClock(func() time.Time { return fixed }))

		Convey("Then the snapshot is empty", func() {
			snap := s.Snapshot(ctx)
			So(snap.Channels, ShouldBeEmpty)
			So(snap.TakenAt, ShouldEqual, fixed)
		})

		Convey("When adding two updates for one channel", func() {
			So(s.Add(ctx, update("etau", 10)), ShouldBeNil)
			So(s.Add(ctx, update("etau", 4)), ShouldBeNil)

			Convey("Then counts are summed per step", func() {
				cf, err := s.Channel(ctx, "etau")
				So(err, ShouldBeNil)
				So(cf.Events, ShouldEqual, 14)
				So(cf.Pairs, ShouldEqual, 28)
				So(cf.Steps[0], ShouldResemble, repository.StepCount{Name: "opposite_sign", Pairs: 14, Events: 14})
				So(cf.Steps[1].Events, ShouldEqual, 7)
				So(cf.TieBreak["single"], ShouldEqual, 7)
			})

			Convey("Then an earlier snapshot is not modified", func() {
				before := s.Snapshot(ctx)
				So(s.Add(ctx, update("etau", 10)), ShouldBeNil)
				So(before.Channels[0].Events, ShouldEqual, 14)
			})
		})

		Convey("When adding updates for two channels", func() {
			So(s.Add(ctx, update("mutau", 1)), ShouldBeNil)
			So(s.Add(ctx, update("etau", 1)), ShouldBeNil)

			Convey("Then channels are listed by name", func() {
				snap := s.Snapshot(ctx)
				So(len(snap.Channels), ShouldEqual, 2)
				So(snap.Channels[0].Channel, ShouldEqual, "etau")
			})
		})

		Convey("When the step names differ from the recorded ones", func() {
			So(s.Add(ctx, update("etau", 2)), ShouldBeNil)
			u := update("etau", 2)
			u.Steps[1].Name = "transverse_mass_cut"
			err := s.Add(ctx, u)
			So(errors.Is(err, repository.ErrStepMismatch), ShouldBeTrue)
		})

		Convey("When asking for an unknown channel", func() {
			_, err := s.Channel(ctx, "tautau")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When resetting", func() {
			So(s.Add(ctx, update("etau", 2)), ShouldBeNil)
			s.Reset(ctx)
			So(s.Snapshot(ctx).Channels, ShouldBeEmpty)
		})
	})

	Convey("Given concurrent writers", t, func() {
		s := repository.NewMemoryStore()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Add(ctx, update("etau", 2))
				_ = s.Snapshot(ctx)
			}()
		}
		wg.Wait()

		cf, err := s.Channel(ctx, "etau")
		So(err, ShouldBeNil)
		So(cf.Events, ShouldEqual, 32)
	})
}
