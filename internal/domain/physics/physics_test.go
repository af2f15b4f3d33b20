package physics_test

import (
	"math"
	"testing"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/physics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeltaPhi(t *testing.T) {
	Convey("Given two azimuthal angles across the boundary", t, func() {
		d := physics.DeltaPhi(3.0, -3.0)

		Convey("Then the separation wraps", func() {
			So(d, ShouldAlmostEqual, 6.0-2*math.Pi, 1e-12)
		})
	})
}

func TestDeltaR(t *testing.T) {
	Convey("Given two objects", t, func() {
		a := model.Object{Pt: 30, Eta: 0.5, Phi: 0.1}
		b := model.Object{Pt: 25, Eta: -0.5, Phi: 0.1}

		Convey("Then delta R is the eta distance when phi matches", func() {
			So(physics.DeltaR(a, b), ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Then an object has zero separation from itself", func() {
			So(physics.DeltaR(a, a), ShouldAlmostEqual, 0, 1e-12)
		})
	})
}

func TestTransverseMass(t *testing.T) {
	Convey("Given a lepton and MET", t, func() {
		lep := model.Object{Pt: 40, Phi: 0}

		Convey("When they are back to back", func() {
			mt := physics.TransverseMass(lep, 10, math.Pi)
			So(mt, ShouldAlmostEqual, math.Sqrt(2*40*10*2), 1e-9)
		})

		Convey("When they are collinear", func() {
			So(physics.TransverseMass(lep, 10, 0), ShouldAlmostEqual, 0, 1e-9)
		})
	})
}

func TestInvariantMass(t *testing.T) {
	Convey("Given two massless back-to-back objects", t, func() {
		a := model.Object{Pt: 45, Eta: 0, Phi: 0}
		b := model.Object{Pt: 45, Eta: 0, Phi: math.Pi}

		Convey("Then the mass is the sum of energies", func() {
			So(physics.InvariantMass(a, b), ShouldAlmostEqual, 90, 1e-6)
		})
	})
}
