// Package preselect applies the ordered pair-level cuts and records the
// cumulative mask after every cut.
package preselect

import (
	"fmt"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/physics"
	"github.com/okian/httcp/internal/domain/ragged"
)

// Cut names, in evaluation order.
const (
	CutOppositeSign      = "opposite_sign"
	CutAngularSeparation = "angular_separation"
	CutTransverseMass    = "transverse_mass_cut"
)

// CutNames lists the cuts in the order they are applied.
var CutNames = []string{CutOppositeSign, CutAngularSeparation, CutTransverseMass}

// Thresholds are the working points of the cuts.
type Thresholds struct {
	// MinDeltaR is the exclusive lower bound on delta R between the legs.
	MinDeltaR float64 `json:"min_delta_r" yaml:"min_delta_r"`
	// MaxTransverseMass is the exclusive upper bound on mT(leg1, MET).
	MaxTransverseMass float64 `json:"max_transverse_mass" yaml:"max_transverse_mass"`
}

// DefaultThresholds returns the standard working points.
func DefaultThresholds() Thresholds {
	return Thresholds{MinDeltaR: 0.5, MaxTransverseMass: 50}
}

// Step is the cumulative mask after one named cut. Mask has the shape of the
// pair table it was computed on.
type Step struct {
	Name string
	Mask ragged.Array[bool]
}

// Cutflow is the ordered list of steps.
type Cutflow []Step

// Final returns the mask of the last step.
func (c Cutflow) Final() ragged.Array[bool] {
	if len(c) == 0 {
		return ragged.Array[bool]{}
	}
	return c[len(c)-1].Mask
}

// Names returns the step names in order.
func (c Cutflow) Names() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Name
	}
	return out
}

// PairCounts returns the number of surviving pairs after each step.
func (c Cutflow) PairCounts() []int {
	out := make([]int, len(c))
	for i, s := range c {
		for _, v := range s.Mask.Values() {
			if v {
				out[i]++
			}
		}
	}
	return out
}

// EventCounts returns, after each step, the number of events with at least
// one surviving pair.
func (c Cutflow) EventCounts() []int {
	out := make([]int, len(c))
	for i, s := range c {
		for _, n := range ragged.CountTrue(s.Mask) {
			if n > 0 {
				out[i]++
			}
		}
	}
	return out
}

// Slice returns the steps restricted to events [start, end).
func (c Cutflow) Slice(start, end int) Cutflow {
	out := make(Cutflow, len(c))
	for i, s := range c {
		out[i] = Step{Name: s.Name, Mask: s.Mask.Slice(start, end)}
	}
	return out
}

// Concat stitches cutflows of consecutive event ranges. All parts must carry
// the same step names.
func Concat(parts ...Cutflow) Cutflow {
	if len(parts) == 0 {
		return nil
	}
	out := make(Cutflow, len(parts[0]))
	for i, s := range parts[0] {
		masks := make([]ragged.Array[bool], len(parts))
		for j, p := range parts {
			masks[j] = p[i].Mask
		}
		out[i] = Step{Name: s.Name, Mask: ragged.Concat(masks...)}
	}
	return out
}

type predicate func(l1, l2 model.Object, metPt, metPhi float64) bool

func predicates(th Thresholds) []predicate {
	return []predicate{
		func(l1, l2 model.Object, _, _ float64) bool {
			return l1.Charge*l2.Charge < 0
		},
		func(l1, l2 model.Object, _, _ float64) bool {
			return physics.DeltaR(l1, l2) > th.MinDeltaR
		},
		func(l1, _ model.Object, metPt, metPhi float64) bool {
			return physics.TransverseMass(l1, metPt, metPhi) < th.MaxTransverseMass
		},
	}
}

// Apply evaluates every cut on every pair of t. The returned cutflow holds
// one step per cut; each mask is the base validity mask (leg1 index >= 0)
// AND-ed with all cuts up to and including that step.
func Apply(t *pairing.Table, met model.MET, th Thresholds) (Cutflow, error) {
	events := t.Len()
	if len(met.Pt) != events || len(met.Phi) != events {
		return nil, fmt.Errorf("%w: MET has %d/%d entries for %d events", pairing.ErrMisaligned, len(met.Pt), len(met.Phi), events)
	}

	total := t.Pairs.Total()
	cum := make([]bool, total)
	pairs, leg1, leg2 := t.Pairs.Values(), t.Leg1.Values(), t.Leg2.Values()
	for i, p := range pairs {
		cum[i] = p.Leg1 >= 0
	}

	event := eventOf(t.Pairs)
	preds := predicates(th)
	flow := make(Cutflow, len(preds))
	for s, pred := range preds {
		for i := range cum {
			if !cum[i] {
				continue
			}
			ev := event[i]
			cum[i] = pred(leg1[i], leg2[i], met.Pt[ev], met.Phi[ev])
		}
		values := make([]bool, total)
		copy(values, cum)
		mask, err := ragged.WithValues(t.Pairs, values)
		if err != nil {
			return nil, err
		}
		flow[s] = Step{Name: CutNames[s], Mask: mask}
	}
	return flow, nil
}

func eventOf[T any](a ragged.Array[T]) []int {
	out := make([]int, 0, a.Total())
	for i := 0; i < a.Len(); i++ {
		for range a.Row(i) {
			out = append(out, i)
		}
	}
	return out
}
