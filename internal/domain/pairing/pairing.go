// Package pairing builds every (leg1, leg2) candidate per event.
package pairing

import (
	"fmt"
	"sort"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/ragged"
)

// Pair holds the provenance of a candidate: one index into each collection.
type Pair struct {
	Leg1 int32 `json:"leg1"`
	Leg2 int32 `json:"leg2"`
}

// NoPair marks an event without a selected candidate.
var NoPair = Pair{Leg1: -1, Leg2: -1}

// Absent reports whether p is the NoPair marker.
func (p Pair) Absent() bool {
	return p == NoPair
}

// Table is the per-event candidate list. Leg1 and Leg2 hold the
// dereferenced objects and share the shape of Pairs.
type Table struct {
	Pairs ragged.Array[Pair]
	Leg1  ragged.Array[model.Object]
	Leg2  ragged.Array[model.Object]
}

// Len returns the number of events.
func (t *Table) Len() int {
	return t.Pairs.Len()
}

// Filter keeps, per event, the candidates whose mask entry is true.
func (t *Table) Filter(mask ragged.Array[bool]) (*Table, error) {
	pairs, err := ragged.Filter(t.Pairs, mask)
	if err != nil {
		return nil, fmt.Errorf("filter pairs: %w", err)
	}
	l1, err := ragged.Filter(t.Leg1, mask)
	if err != nil {
		return nil, fmt.Errorf("filter leg1: %w", err)
	}
	l2, err := ragged.Filter(t.Leg2, mask)
	if err != nil {
		return nil, fmt.Errorf("filter leg2: %w", err)
	}
	return &Table{Pairs: pairs, Leg1: l1, Leg2: l2}, nil
}

// Cartesian pairs every eligible leg1 object with every eligible leg2 object
// of the same event. Traversal is leg1-major: for leg1 indices [a, b] and
// leg2 indices [x, y] the pairs are (a,x) (a,y) (b,x) (b,y).
// A negative index is kept and dereferences to the zero Object.
func Cartesian(leg1Idx, leg2Idx ragged.Array[int32], leg1, leg2 *model.Collection, opts ...Option) (*Table, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validate(leg1Idx, leg2Idx, leg1, leg2, o); err != nil {
		return nil, err
	}

	events := leg1Idx.Len()
	total := 0
	for i := 0; i < events; i++ {
		total += leg1Idx.Count(i) * leg2Idx.Count(i)
	}

	pairs := ragged.NewBuilder[Pair](events, total)
	objs1 := ragged.NewBuilder[model.Object](events, total)
	objs2 := ragged.NewBuilder[model.Object](events, total)

	var buf1, buf2 []int32
	for i := 0; i < events; i++ {
		idx1, idx2 := leg1Idx.Row(i), leg2Idx.Row(i)
		if o.presort {
			buf1 = sortByScore(append(buf1[:0], idx1...), i, leg1, isolation, false)
			buf2 = sortByScore(append(buf2[:0], idx2...), i, leg2, discriminator, true)
			idx1, idx2 = buf1, buf2
		}
		for _, a := range idx1 {
			oa := leg1.Object(i, a)
			for _, b := range idx2 {
				pairs.Append(Pair{Leg1: a, Leg2: b})
				objs1.Append(oa)
				objs2.Append(leg2.Object(i, b))
			}
		}
		pairs.EndRow()
		objs1.EndRow()
		objs2.EndRow()
	}

	return &Table{Pairs: pairs.Build(), Leg1: objs1.Build(), Leg2: objs2.Build()}, nil
}

func validate(leg1Idx, leg2Idx ragged.Array[int32], leg1, leg2 *model.Collection, o options) error {
	var req1, req2 []model.Field
	if o.presort {
		req1 = []model.Field{model.FieldIsolation}
		req2 = []model.Field{model.FieldDiscriminator}
	}
	if err := leg1.Validate(req1...); err != nil {
		return fmt.Errorf("%w: leg1: %w", ErrMisaligned, err)
	}
	if err := leg2.Validate(req2...); err != nil {
		return fmt.Errorf("%w: leg2: %w", ErrMisaligned, err)
	}

	events := leg1Idx.Len()
	switch {
	case leg2Idx.Len() != events:
		return fmt.Errorf("%w: leg2 indices have %d events, leg1 indices have %d", ErrMisaligned, leg2Idx.Len(), events)
	case leg1.Len() != events:
		return fmt.Errorf("%w: %s has %d events, leg1 indices have %d", ErrMisaligned, leg1.Name, leg1.Len(), events)
	case leg2.Len() != events:
		return fmt.Errorf("%w: %s has %d events, leg1 indices have %d", ErrMisaligned, leg2.Name, leg2.Len(), events)
	}

	for i := 0; i < events; i++ {
		if err := checkRange(leg1Idx.Row(i), leg1, i); err != nil {
			return err
		}
		if err := checkRange(leg2Idx.Row(i), leg2, i); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(idx []int32, c *model.Collection, event int) error {
	n := c.Count(event)
	for _, v := range idx {
		if int(v) >= n {
			return fmt.Errorf("%w: %s index %d in event %d with %d objects", ErrIndexOutOfRange, c.Name, v, event, n)
		}
	}
	return nil
}

func isolation(o model.Object) float64     { return o.Isolation }
func discriminator(o model.Object) float64 { return o.Discriminator }

func sortByScore(idx []int32, event int, c *model.Collection, score func(model.Object) float64, descending bool) []int32 {
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if ia < 0 || ib < 0 {
			return ia >= 0 && ib < 0
		}
		sa, sb := score(c.Object(event, ia)), score(c.Object(event, ib))
		if descending {
			return sa > sb
		}
		return sa < sb
	})
	return idx
}
