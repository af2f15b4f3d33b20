package model

import "github.com/okian/httcp/internal/domain/ragged"

// BatchBuilder assembles a Batch event by event from row-oriented objects.
type BatchBuilder struct {
	id      string
	ch      Channel
	keys    []EventKey
	events  int
	leg1    collectionBuilder
	leg2    collectionBuilder
	met     MET
	leg1Idx *ragged.Builder[int32]
	leg2Idx *ragged.Builder[int32]
}

// NewBatchBuilder returns a builder for a batch of channel ch.
// sizeHint is the expected number of events.
func NewBatchBuilder(ch Channel, id string, sizeHint int) *BatchBuilder {
	return &BatchBuilder{
		id:      id,
		ch:      ch,
		keys:    make([]EventKey, 0, sizeHint),
		leg1:    newCollectionBuilder(sizeHint),
		leg2:    newCollectionBuilder(sizeHint),
		met:     MET{Pt: make([]float64, 0, sizeHint), Phi: make([]float64, 0, sizeHint)},
		leg1Idx: ragged.NewBuilder[int32](sizeHint, 2*sizeHint),
		leg2Idx: ragged.NewBuilder[int32](sizeHint, 2*sizeHint),
	}
}

// Event is the row-oriented view of one event.
// Nil index lists mean every object is eligible. A nil Key marks an event
// without run, luminosity block and event numbers.
type Event struct {
	Key         *EventKey
	Leg1        []Object
	Leg2        []Object
	METPt       float64
	METPhi      float64
	Leg1Indices []int32
	Leg2Indices []int32
}

// Add appends one event.
func (b *BatchBuilder) Add(ev Event) {
	b.events++
	if ev.Key != nil {
		b.keys = append(b.keys, *ev.Key)
	}
	b.leg1.add(ev.Leg1)
	b.leg2.add(ev.Leg2)
	b.met.Pt = append(b.met.Pt, ev.METPt)
	b.met.Phi = append(b.met.Phi, ev.METPhi)
	appendIndices(b.leg1Idx, ev.Leg1Indices, len(ev.Leg1))
	appendIndices(b.leg2Idx, ev.Leg2Indices, len(ev.Leg2))
}

// Len returns the number of events added so far.
func (b *BatchBuilder) Len() int {
	return b.events
}

// Build returns the assembled batch. The batch carries keys only when every
// event had one. The builder must not be reused.
func (b *BatchBuilder) Build() *Batch {
	keys := b.keys
	if len(keys) != b.events {
		keys = nil
	}
	return &Batch{
		ID:          b.id,
		Keys:        keys,
		Leg1:        b.leg1.build(b.ch.Leg1.Collection),
		Leg2:        b.leg2.build(b.ch.Leg2.Collection),
		MET:         b.met,
		Leg1Indices: b.leg1Idx.Build(),
		Leg2Indices: b.leg2Idx.Build(),
	}
}

func appendIndices(dst *ragged.Builder[int32], idx []int32, n int) {
	if idx != nil {
		dst.Append(idx...)
	} else {
		for i := 0; i < n; i++ {
			dst.Append(int32(i))
		}
	}
	dst.EndRow()
}

type collectionBuilder struct {
	pt, eta, phi, mass, iso, disc *ragged.Builder[float64]
	charge                        *ragged.Builder[int32]
}

func newCollectionBuilder(events int) collectionBuilder {
	f := func() *ragged.Builder[float64] { return ragged.NewBuilder[float64](events, 2*events) }
	return collectionBuilder{
		pt: f(), eta: f(), phi: f(), mass: f(), iso: f(), disc: f(),
		charge: ragged.NewBuilder[int32](events, 2*events),
	}
}

func (c collectionBuilder) add(objs []Object) {
	for _, o := range objs {
		c.pt.Append(o.Pt)
		c.eta.Append(o.Eta)
		c.phi.Append(o.Phi)
		c.mass.Append(o.Mass)
		c.charge.Append(o.Charge)
		c.iso.Append(o.Isolation)
		c.disc.Append(o.Discriminator)
	}
	c.pt.EndRow()
	c.eta.EndRow()
	c.phi.EndRow()
	c.mass.EndRow()
	c.charge.EndRow()
	c.iso.EndRow()
	c.disc.EndRow()
}

func (c collectionBuilder) build(name string) Collection {
	return Collection{
		Name:          name,
		Pt:            c.pt.Build(),
		Eta:           c.eta.Build(),
		Phi:           c.phi.Build(),
		Mass:          c.mass.Build(),
		Charge:        c.charge.Build(),
		Isolation:     c.iso.Build(),
		Discriminator: c.disc.Build(),
	}
}
