// Package disambiguate picks one pair out of several surviving candidates
// of an event.
//
// Candidates are ranked by a chain of stable sorts:
//
//  1. leg1 isolation, ascending;
//  2. leg1 pt, descending, if the top two tie on isolation;
//  3. leg2 discriminator, descending, if the top two also tie on pt;
//  4. leg2 pt, descending, if the top two also tie on discriminator.
//     This stage is off by default and enabled by TieBreak.Leg2Pt; without
//     it the top candidate after the discriminator sort is taken.
//
// Every re-sort is applied to the whole list and is stable with respect to
// the previous ranking, so equal keys keep the order of the earlier stages.
//
// Ties are only ever checked between the first two ranked candidates. When
// three or more candidates share the leading key, a later stage may rank a
// candidate that did not tie ahead of the ones that did. Analyses that
// depend on this ranking expect exactly this behaviour.
package disambiguate

import "sort"

// Candidate is the information the tie-break needs about one pair.
type Candidate struct {
	Leg1Isolation     float64
	Leg1Pt            float64
	Leg2Discriminator float64
	Leg2Pt            float64
}

// TieBreak selects optional stages.
type TieBreak struct {
	// Leg2Pt enables the final leg2 pt stage.
	Leg2Pt bool `json:"leg2_pt" yaml:"leg2_pt"`
}

// DefaultTieBreak runs the three standard stages.
func DefaultTieBreak() TieBreak {
	return TieBreak{}
}

// Stage identifies the last ranking stage that was evaluated.
type Stage int

const (
	StageNone Stage = iota
	StageSingle
	StageIsolation
	StageLeg1Pt
	StageDiscriminator
	StageLeg2Pt
)

var stageNames = [...]string{"none", "single", "isolation", "leg1_pt", "discriminator", "leg2_pt"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Best returns the position in cands of the selected candidate and the last
// stage evaluated. It returns -1 for an empty list. A single candidate is
// returned without computing any key.
func Best(cands []Candidate, tb TieBreak) (int, Stage) {
	switch len(cands) {
	case 0:
		return -1, StageNone
	case 1:
		return 0, StageSingle
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	top := func(key func(Candidate) float64) bool {
		return key(cands[order[0]]) == key(cands[order[1]])
	}
	rank := func(key func(Candidate) float64, descending bool) {
		sort.SliceStable(order, func(a, b int) bool {
			ka, kb := key(cands[order[a]]), key(cands[order[b]])
			if descending {
				return ka > kb
			}
			return ka < kb
		})
	}

	iso := func(c Candidate) float64 { return c.Leg1Isolation }
	pt1 := func(c Candidate) float64 { return c.Leg1Pt }
	disc := func(c Candidate) float64 { return c.Leg2Discriminator }
	pt2 := func(c Candidate) float64 { return c.Leg2Pt }

	rank(iso, false)
	if !top(iso) {
		return order[0], StageIsolation
	}
	rank(pt1, true)
	if !top(pt1) {
		return order[0], StageLeg1Pt
	}
	rank(disc, true)
	if !tb.Leg2Pt || !top(disc) {
		return order[0], StageDiscriminator
	}
	rank(pt2, true)
	return order[0], StageLeg2Pt
}
