package features_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/okian/httcp/internal/domain/features"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/ragged"
	. "github.com/smartystreets/goconvey/convey"
)

func batch() *model.Batch {
	leg := func(name string, phi float64) model.Collection {
		return model.Collection{
			Name:   name,
			Pt:     ragged.FromRows([][]float64{{45}, {}}),
			Eta:    ragged.FromRows([][]float64{{0}, {}}),
			Phi:    ragged.FromRows([][]float64{{phi}, {}}),
			Mass:   ragged.FromRows([][]float64{{0}, {}}),
			Charge: ragged.FromRows([][]int32{{1}, {}}),
		}
	}
	l1, l2 := leg("Electron", 0), leg("Tau", math.Pi)
	return &model.Batch{
		Leg1:        l1,
		Leg2:        l2,
		MET:         model.MET{Pt: []float64{0, 0}, Phi: []float64{0, 0}},
		Leg1Indices: model.AllIndices(&l1),
		Leg2Indices: model.AllIndices(&l2),
	}
}

func TestCompute(t *testing.T) {
	Convey("Given a selected back-to-back pair and an empty event", t, func() {
		b := batch()
		pairs := []pairing.Pair{{Leg1: 0, Leg2: 0}, pairing.NoPair}

		Convey("When computing features", func() {
			f, err := features.Compute(b, pairs)
			So(err, ShouldBeNil)

			Convey("Then the selected event gets the pair mass and separation", func() {
				So(f.InvariantMass[0], ShouldAlmostEqual, 90, 1e-6)
				So(f.DeltaR[0], ShouldAlmostEqual, math.Pi, 1e-9)
			})

			Convey("Then the empty event gets the fill value", func() {
				So(f.InvariantMass[1], ShouldEqual, features.EmptyFloat)
				So(f.DeltaR[1], ShouldEqual, features.EmptyFloat)
			})

			Convey("Then histograms skip the empty event", func() {
				h := features.NewHistograms()
				h.Fill(f)
				So(h.Entries(), ShouldEqual, 1)

				var buf bytes.Buffer
				So(h.WriteYODA(&buf), ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "hcand_invm")
				So(buf.String(), ShouldContainSubstring, "hcand_dr")
			})
		})

		Convey("When the pairs do not cover every event", func() {
			_, err := features.Compute(b, pairs[:1])
			So(errors.Is(err, pairing.ErrMisaligned), ShouldBeTrue)
		})
	})
}
