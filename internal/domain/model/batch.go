package model

import (
	"fmt"

	"github.com/okian/httcp/internal/domain/ragged"
)

// EventKey identifies a recorded collision.
type EventKey struct {
	Run   uint32 `json:"run"`
	Lumi  uint32 `json:"luminosityBlock"`
	Event uint64 `json:"event"`
}

// String renders the key as run:lumi:event.
func (k EventKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.Run, k.Lumi, k.Event)
}

// Batch is a block of events with everything the pair selection reads.
// Leg1Indices and Leg2Indices list, per event, which objects of Leg1 and Leg2
// are eligible for pairing; they are produced upstream by object selection.
type Batch struct {
	ID          string
	Keys        []EventKey
	Leg1        Collection
	Leg2        Collection
	MET         MET
	Leg1Indices ragged.Array[int32]
	Leg2Indices ragged.Array[int32]
}

// Len returns the number of events.
func (b *Batch) Len() int {
	return b.Leg1Indices.Len()
}

// Validate checks the per-event fields that are not owned by the pair
// generator: MET and, when present, event keys.
func (b *Batch) Validate() error {
	n := b.Len()
	if len(b.MET.Pt) != n || len(b.MET.Phi) != n {
		return fmt.Errorf("%w: MET has %d/%d entries for %d events", ErrShapeMismatch, len(b.MET.Pt), len(b.MET.Phi), n)
	}
	if b.Keys != nil && len(b.Keys) != n {
		return fmt.Errorf("%w: %d event keys for %d events", ErrShapeMismatch, len(b.Keys), n)
	}
	return nil
}

// Slice returns events [start, end) as an independent batch.
func (b *Batch) Slice(start, end int) *Batch {
	out := &Batch{
		ID:          b.ID,
		Leg1:        b.Leg1.Slice(start, end),
		Leg2:        b.Leg2.Slice(start, end),
		MET:         MET{Pt: b.MET.Pt[start:end:end], Phi: b.MET.Phi[start:end:end]},
		Leg1Indices: b.Leg1Indices.Slice(start, end),
		Leg2Indices: b.Leg2Indices.Slice(start, end),
	}
	if b.Keys != nil {
		out.Keys = b.Keys[start:end:end]
	}
	return out
}

// AllIndices returns every object index of c, i.e. no upstream filtering.
func AllIndices(c *Collection) ragged.Array[int32] {
	return ragged.Local(c.Pt)
}
