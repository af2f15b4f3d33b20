package pairing_test

import (
	"errors"
	"testing"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/ragged"
	. "github.com/smartystreets/goconvey/convey"
)

func collection(name string, pts [][]float64) model.Collection {
	zeros := func() ragged.Array[float64] {
		return ragged.Map(ragged.FromRows(pts), func(float64) float64 { return 0 })
	}
	return model.Collection{
		Name:          name,
		Pt:            ragged.FromRows(pts),
		Eta:           zeros(),
		Phi:           zeros(),
		Mass:          zeros(),
		Charge:        ragged.Map(ragged.FromRows(pts), func(float64) int32 { return 1 }),
		Isolation:     ragged.Map(ragged.FromRows(pts), func(pt float64) float64 { return 1 / pt }),
		Discriminator: ragged.Map(ragged.FromRows(pts), func(pt float64) float64 { return pt / 100 }),
	}
}

func TestCartesian(t *testing.T) {
	Convey("Given two electrons and three taus in one event and none in the next", t, func() {
		ele := collection("Electron", [][]float64{{30, 40}, {}})
		tau := collection("Tau", [][]float64{{20, 50, 35}, {25}})
		idx1, idx2 := model.AllIndices(&ele), model.AllIndices(&tau)

		Convey("When building the product without ordering", func() {
			table, err := pairing.Cartesian(idx1, idx2, &ele, &tau)
			So(err, ShouldBeNil)

			Convey("Then there are a*b pairs in leg1-major order", func() {
				So(table.Len(), ShouldEqual, 2)
				So(table.Pairs.Row(0), ShouldResemble, []pairing.Pair{
					{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2},
				})
				So(table.Pairs.Count(1), ShouldEqual, 0)
			})

			Convey("Then the dereferenced objects follow the pairs", func() {
				So(table.Leg1.Row(0)[3].Pt, ShouldEqual, 40)
				So(table.Leg2.Row(0)[4].Pt, ShouldEqual, 50)
				So(ragged.SameShape(table.Pairs, table.Leg1), ShouldBeTrue)
			})
		})

		Convey("When the legs are pre-sorted", func() {
			table, err := pairing.Cartesian(idx1, idx2, &ele, &tau, pairing.WithPreSort(true))
			So(err, ShouldBeNil)

			Convey("Then leg1 runs by isolation and leg2 by discriminator", func() {
				So(table.Pairs.Row(0)[:3], ShouldResemble, []pairing.Pair{{1, 1}, {1, 2}, {1, 0}})
			})

			Convey("Then the input indices are untouched", func() {
				So(idx1.Row(0), ShouldResemble, []int32{0, 1})
			})
		})

		Convey("When a leg1 index is padding", func() {
			pad := ragged.FromRows([][]int32{{-1}, {}})
			table, err := pairing.Cartesian(pad, idx2, &ele, &tau)
			So(err, ShouldBeNil)
			So(table.Leg1.Row(0)[0], ShouldResemble, model.Object{})
		})

		Convey("When an index points past the objects", func() {
			bad := ragged.FromRows([][]int32{{0, 2}, {}})
			_, err := pairing.Cartesian(bad, idx2, &ele, &tau)
			So(errors.Is(err, pairing.ErrIndexOutOfRange), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "event 0")
		})

		Convey("When the index lists disagree on event count", func() {
			short := ragged.FromRows([][]int32{{0}})
			_, err := pairing.Cartesian(idx1, short, &ele, &tau)
			So(errors.Is(err, pairing.ErrMisaligned), ShouldBeTrue)
		})

		Convey("When a collection field is misaligned", func() {
			tau.Eta = ragged.FromRows([][]float64{{0}, {0}})
			_, err := pairing.Cartesian(idx1, idx2, &ele, &tau)
			So(errors.Is(err, pairing.ErrMisaligned), ShouldBeTrue)
			So(errors.Is(err, model.ErrShapeMismatch), ShouldBeTrue)
		})
	})

	Convey("Given no events at all", t, func() {
		ele := collection("Electron", [][]float64{})
		tau := collection("Tau", [][]float64{})

		Convey("Then the product is empty", func() {
			table, err := pairing.Cartesian(model.AllIndices(&ele), model.AllIndices(&tau), &ele, &tau)
			So(err, ShouldBeNil)
			So(table.Len(), ShouldEqual, 0)
		})
	})
}

func TestTableFilter(t *testing.T) {
	Convey("Given a table of three pairs", t, func() {
		ele := collection("Electron", [][]float64{{30}})
		tau := collection("Tau", [][]float64{{20, 50, 35}})
		table, err := pairing.Cartesian(model.AllIndices(&ele), model.AllIndices(&tau), &ele, &tau)
		So(err, ShouldBeNil)

		Convey("When filtering with a mask", func() {
			out, err := table.Filter(ragged.FromRows([][]bool{{true, false, true}}))
			So(err, ShouldBeNil)
			So(out.Pairs.Row(0), ShouldResemble, []pairing.Pair{{0, 0}, {0, 2}})
			So(out.Leg2.Row(0)[1].Pt, ShouldEqual, 35)
		})

		Convey("When the mask has the wrong shape", func() {
			_, err := table.Filter(ragged.FromRows([][]bool{{true}}))
			So(errors.Is(err, ragged.ErrLengthMismatch), ShouldBeTrue)
		})

		Convey("Then NoPair is absent", func() {
			So(pairing.NoPair.Absent(), ShouldBeTrue)
			So(pairing.Pair{}.Absent(), ShouldBeFalse)
		})
	})
}
