// Package physics computes the kinematic quantities used by pair selection.
package physics

import (
	"math"

	"go-hep.org/x/hep/fmom"

	"github.com/okian/httcp/internal/domain/model"
)

// FourMomentum converts an object to a (pt, eta, phi, m) four-vector.
func FourMomentum(o model.Object) fmom.PtEtaPhiM {
	return fmom.NewPtEtaPhiM(o.Pt, o.Eta, o.Phi, o.Mass)
}

// DeltaPhi returns the azimuthal separation wrapped to [-pi, pi].
func DeltaPhi(phi1, phi2 float64) float64 {
	d := math.Mod(phi1-phi2, 2*math.Pi)
	switch {
	case d > math.Pi:
		d -= 2 * math.Pi
	case d < -math.Pi:
		d += 2 * math.Pi
	}
	return d
}

// DeltaR returns sqrt(deta^2 + dphi^2) between two objects.
func DeltaR(a, b model.Object) float64 {
	p1, p2 := FourMomentum(a), FourMomentum(b)
	return fmom.DeltaR(&p1, &p2)
}

// TransverseMass returns sqrt(2 pt metPt (1 - cos dphi)) of an object and MET.
func TransverseMass(o model.Object, metPt, metPhi float64) float64 {
	v := 2 * o.Pt * metPt * (1 - math.Cos(DeltaPhi(o.Phi, metPhi)))
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// InvariantMass returns the mass of the summed four-momenta.
func InvariantMass(a, b model.Object) float64 {
	p1, p2 := FourMomentum(a), FourMomentum(b)
	return fmom.Add(&p1, &p2).M()
}
