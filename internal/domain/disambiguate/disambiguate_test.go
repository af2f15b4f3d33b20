package disambiguate_test

import (
	"testing"

	"github.com/okian/httcp/internal/domain/disambiguate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBest(t *testing.T) {
	tb := disambiguate.DefaultTieBreak()

	Convey("Given no candidates", t, func() {
		i, stage := disambiguate.Best(nil, tb)
		So(i, ShouldEqual, -1)
		So(stage, ShouldEqual, disambiguate.StageNone)
	})

	Convey("Given a single candidate", t, func() {
		i, stage := disambiguate.Best([]disambiguate.Candidate{{Leg1Isolation: 9}}, tb)
		So(i, ShouldEqual, 0)
		So(stage.String(), ShouldEqual, "single")
	})

	Convey("Given candidates with distinct isolation", t, func() {
		cands := []disambiguate.Candidate{
			{Leg1Isolation: 0.3, Leg1Pt: 50},
			{Leg1Isolation: 0.1, Leg1Pt: 20},
			{Leg1Isolation: 0.2, Leg1Pt: 90},
		}

		Convey("Then the most isolated leg1 wins", func() {
			i, stage := disambiguate.Best(cands, tb)
			So(i, ShouldEqual, 1)
			So(stage, ShouldEqual, disambiguate.StageIsolation)
		})
	})

	Convey("Given two candidates tied on isolation", t, func() {
		cands := []disambiguate.Candidate{
			{Leg1Isolation: 0.1, Leg1Pt: 30},
			{Leg1Isolation: 0.1, Leg1Pt: 35},
		}

		Convey("Then the higher leg1 pt wins", func() {
			i, stage := disambiguate.Best(cands, tb)
			So(i, ShouldEqual, 1)
			So(stage, ShouldEqual, disambiguate.StageLeg1Pt)
		})
	})

	Convey("Given two candidates tied on isolation and leg1 pt", t, func() {
		cands := []disambiguate.Candidate{
			{Leg1Isolation: 0.1, Leg1Pt: 30, Leg2Discriminator: 0.90},
			{Leg1Isolation: 0.1, Leg1Pt: 30, Leg2Discriminator: 0.95},
		}

		Convey("Then the higher discriminator wins", func() {
			i, stage := disambiguate.Best(cands, tb)
			So(i, ShouldEqual, 1)
			So(stage, ShouldEqual, disambiguate.StageDiscriminator)
		})
	})

	Convey("Given candidates tied up to the discriminator", t, func() {
		cands := []disambiguate.Candidate{
			{Leg1Isolation: 0.1, Leg1Pt: 30, Leg2Discriminator: 0.9, Leg2Pt: 25},
			{Leg1Isolation: 0.1, Leg1Pt: 30, Leg2Discriminator: 0.9, Leg2Pt: 40},
		}

		Convey("When the leg2 pt stage is enabled", func() {
			i, stage := disambiguate.Best(cands, disambiguate.TieBreak{Leg2Pt: true})
			So(i, ShouldEqual, 1)
			So(stage, ShouldEqual, disambiguate.StageLeg2Pt)
		})

		Convey("When using the default stages", func() {
			i, stage := disambiguate.Best(cands, tb)
			So(i, ShouldEqual, 0)
			So(stage, ShouldEqual, disambiguate.StageDiscriminator)
		})
	})

	Convey("Given three candidates where only the top two tie", t, func() {
		cands := []disambiguate.Candidate{
			{Leg1Isolation: 0.5, Leg1Pt: 100},
			{Leg1Isolation: 0.1, Leg1Pt: 20},
			{Leg1Isolation: 0.1, Leg1Pt: 25},
		}

		Convey("Then the pt re-sort runs over the whole list", func() {
			i, _ := disambiguate.Best(cands, tb)
			So(i, ShouldEqual, 0)
		})
	})

	Convey("Given the same input twice", t, func() {
		cands := []disambiguate.Candidate{
			{Leg1Isolation: 0.1, Leg1Pt: 30, Leg2Discriminator: 0.9, Leg2Pt: 40},
			{Leg1Isolation: 0.1, Leg1Pt: 30, Leg2Discriminator: 0.9, Leg2Pt: 40},
		}

		Convey("Then the first of identical candidates wins every time", func() {
			a, _ := disambiguate.Best(cands, tb)
			b, _ := disambiguate.Best(cands, tb)
			So(a, ShouldEqual, 0)
			So(b, ShouldEqual, a)
		})
	})
}
