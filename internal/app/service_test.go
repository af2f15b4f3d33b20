package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	service "github.com/okian/httcp/internal/app"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/selection"
	"github.com/okian/httcp/internal/domain/types"
	"github.com/okian/httcp/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithFormat(logger.FormatText, io.Discard); err != nil {
		panic(err)
	}
}

// request builds three events: a clean opposite-sign pair, a same-sign pair
// and an event without taus.
func request(firstEvent uint64) *types.SelectRequest {
	req := unkeyedRequest()
	for i := range req.Events {
		req.Events[i].SetKey(model.EventKey{Run: 1, Lumi: 1, Event: firstEvent + uint64(i)})
	}
	return req
}

// unkeyedRequest is request without run, luminosity block and event numbers.
func unkeyedRequest() *types.SelectRequest {
	return &types.SelectRequest{Events: []types.Event{
		{
			Leg1: []types.Lepton{{Pt: 35, Eta: 0.2, Phi: 0.1, Charge: -1, Score: 0.05}},
			Leg2: []types.Lepton{{Pt: 40, Eta: -0.4, Phi: 3.0, Mass: 1.777, Charge: 1, Score: 0.9}},
			MET:  types.MET{Pt: 10, Phi: 0.15},
		},
		{
			Leg1: []types.Lepton{{Pt: 35, Phi: 0.1, Charge: 1, Score: 0.05}},
			Leg2: []types.Lepton{{Pt: 40, Phi: 3.0, Charge: 1, Score: 0.9}},
			MET:  types.MET{Pt: 10, Phi: 0.15},
		},
		{
			Leg1: []types.Lepton{{Pt: 35, Phi: 0.1, Charge: 1, Score: 0.05}},
			Leg2: []types.Lepton{},
			MET:  types.MET{Pt: 10, Phi: 0.15},
		},
	}}
}

func batch(firstEvent uint64) *model.Batch {
	b, err := request(firstEvent).Batch(model.ETau, "test")
	So(err, ShouldBeNil)
	return b
}

func TestService_New(t *testing.T) {
	Convey("Given default options", t, func() {
		svc, err := service.New()

		Convey("Then the service is created for the etau channel", func() {
			So(err, ShouldBeNil)
			So(svc.Channel(), ShouldEqual, "etau")
			So(svc.IsStarted(), ShouldBeFalse)
		})
	})

	Convey("Given an invalid selection configuration", t, func() {
		cfg := selection.DefaultConfig()
		cfg.Thresholds.MinDeltaR = -1
		_, err := service.New(service.WithSelection(cfg))

		Convey("Then construction fails", func() {
			So(errors.Is(err, selection.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc, err := service.New()
		So(err, ShouldBeNil)

		Convey("When selecting", func() {
			_, err := svc.Select(context.Background(), batch(1))

			Convey("Then it reports that it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting and stopping twice", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.IsStarted(), ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.IsStarted(), ShouldBeFalse)
		})
	})
}

func TestService_Select(t *testing.T) {
	Convey("Given a started service with one event per chunk", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc, err := service.New(service.WithWorkerCount(2), service.WithChunkSize(1))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When selecting a batch", func() {
			out, err := svc.Select(ctx, batch(10))
			So(err, ShouldBeNil)

			Convey("Then chunks are stitched back in event order", func() {
				So(out.Result.Len(), ShouldEqual, 3)
				So(out.Result.Pairs[0], ShouldResemble, pairing.Pair{Leg1: 0, Leg2: 0})
				So(out.Result.Pairs[1].Absent(), ShouldBeTrue)
				So(out.Result.Pairs[2].Absent(), ShouldBeTrue)
				So(out.Result.Cutflow.PairCounts(), ShouldResemble, []int{1, 1, 1})
			})

			Convey("Then features are filled for the selected event only", func() {
				So(out.Features.InvariantMass[0], ShouldBeGreaterThan, 0)
				So(out.Features.DeltaR[1], ShouldEqual, -99999)
				So(svc.Histograms().Entries(), ShouldEqual, 1)
			})

			Convey("Then the cutflow store holds the counts", func() {
				cf := svc.Cutflow(ctx)
				So(len(cf.Channels), ShouldEqual, 1)
				etau := cf.Channels[0]
				So(etau.Events, ShouldEqual, 3)
				So(etau.Pairs, ShouldEqual, 2)
				So(etau.Steps[0].Pairs, ShouldEqual, 1)
				So(etau.Selected, ShouldEqual, 1)
				So(etau.TieBreak["single"], ShouldEqual, 1)
			})

			Convey("And selecting the same events again", func() {
				again, err := svc.Select(ctx, batch(10))
				So(err, ShouldBeNil)

				Convey("Then they are flagged duplicate and not counted", func() {
					So(again.Duplicates, ShouldResemble, []bool{true, true, true})
					So(again.Result.Selected(), ShouldEqual, 0)
					So(again.Result.Candidates, ShouldResemble, []int{0, 0, 0})
					So(again.Result.Cutflow.PairCounts(), ShouldResemble, []int{0, 0, 0})
					etau := svc.Cutflow(ctx).Channels[0]
					So(etau.Events, ShouldEqual, 3)
					So(etau.Duplicates, ShouldEqual, 3)
				})
			})

			Convey("And reading stats", func() {
				st := svc.Stats()
				So(st.Workers, ShouldEqual, 2)
				So(st.SeenEvents, ShouldEqual, 3)
				So(st.ChunksDone, ShouldEqual, 3)
			})
		})

		Convey("When the events carry no keys", func() {
			unkeyed := func() *model.Batch {
				b, err := unkeyedRequest().Batch(model.ETau, "unkeyed")
				So(err, ShouldBeNil)
				So(b.Keys, ShouldBeNil)
				return b
			}
			first, err := svc.Select(ctx, unkeyed())
			So(err, ShouldBeNil)
			second, err := svc.Select(ctx, unkeyed())
			So(err, ShouldBeNil)

			Convey("Then none of them is ever a duplicate", func() {
				So(second.Duplicates, ShouldResemble, []bool{false, false, false})
				So(second.Result.Pairs[0], ShouldResemble, pairing.Pair{Leg1: 0, Leg2: 0})
				So(second.Result.Pairs, ShouldResemble, first.Result.Pairs)
				So(svc.Cutflow(ctx).Channels[0].Events, ShouldEqual, 6)
			})
		})

		Convey("When the batch is empty", func() {
			empty, err := (&types.SelectRequest{}).Batch(model.ETau, "empty")
			So(err, ShouldBeNil)
			out, err := svc.Select(ctx, empty)

			Convey("Then the result is empty", func() {
				So(err, ShouldBeNil)
				So(out.Result.Len(), ShouldEqual, 0)
			})
		})

		Convey("When MET is misaligned", func() {
			b := batch(20)
			b.MET.Pt = b.MET.Pt[:1]
			_, err := svc.Select(ctx, b)

			Convey("Then it fails fast", func() {
				So(errors.Is(err, pairing.ErrMisaligned), ShouldBeTrue)
			})
		})

		Convey("When resetting the cutflow", func() {
			_, err := svc.Select(ctx, batch(30))
			So(err, ShouldBeNil)
			svc.ResetCutflow(ctx)
			So(svc.Cutflow(ctx).Channels, ShouldBeEmpty)
			So(svc.Histograms().Entries(), ShouldEqual, 0)
		})
	})
}

func TestService_DedupeDisabled(t *testing.T) {
	Convey("Given a started service with duplicate detection off", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc, err := service.New(service.WithWorkerCount(2), service.WithDedupeSize(0))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When the same keyed batch is selected twice", func() {
			first, err := svc.Select(ctx, batch(10))
			So(err, ShouldBeNil)
			second, err := svc.Select(ctx, batch(10))
			So(err, ShouldBeNil)

			Convey("Then both results are equal", func() {
				So(second.Result, ShouldResemble, first.Result)
				So(second.Duplicates, ShouldResemble, []bool{false, false, false})
				So(second.Result.Pairs[0], ShouldResemble, pairing.Pair{Leg1: 0, Leg2: 0})
			})

			Convey("Then both batches are counted", func() {
				etau := svc.Cutflow(ctx).Channels[0]
				So(etau.Events, ShouldEqual, 6)
				So(etau.Duplicates, ShouldEqual, 0)
				So(etau.Selected, ShouldEqual, 2)
				So(svc.Stats().SeenEvents, ShouldEqual, 0)
			})
		})
	})
}
