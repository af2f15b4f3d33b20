// Package model contains the physics data passed between layers.
package model

import (
	"fmt"

	"github.com/okian/httcp/internal/domain/ragged"
)

// Field names a per-object column of a Collection.
type Field string

// Object fields. Isolation and Discriminator are role specific quality
// scores: lower isolation is better, higher discriminator is better.
const (
	FieldPt            Field = "pt"
	FieldEta           Field = "eta"
	FieldPhi           Field = "phi"
	FieldMass          Field = "mass"
	FieldCharge        Field = "charge"
	FieldIsolation     Field = "isolation"
	FieldDiscriminator Field = "discriminator"
)

// KinematicFields are required on every collection.
var KinematicFields = []Field{FieldPt, FieldEta, FieldPhi, FieldMass, FieldCharge}

// Object is one reconstructed physics object, dereferenced from a Collection.
type Object struct {
	Pt            float64
	Eta           float64
	Phi           float64
	Mass          float64
	Charge        int32
	Isolation     float64
	Discriminator float64
}

// Collection holds objects of one type for every event in columnar form.
// Isolation and Discriminator may be left unset when the role that uses the
// collection does not need them.
type Collection struct {
	Name          string
	Pt            ragged.Array[float64]
	Eta           ragged.Array[float64]
	Phi           ragged.Array[float64]
	Mass          ragged.Array[float64]
	Charge        ragged.Array[int32]
	Isolation     ragged.Array[float64]
	Discriminator ragged.Array[float64]
}

// Len returns the number of events.
func (c *Collection) Len() int {
	return c.Pt.Len()
}

// Count returns the number of objects in event i.
func (c *Collection) Count(event int) int {
	return c.Pt.Count(event)
}

// Object dereferences object idx of event. A negative idx yields the zero
// Object, which is how padding entries are represented.
func (c *Collection) Object(event int, idx int32) Object {
	if idx < 0 {
		return Object{}
	}
	o := Object{
		Pt:     c.Pt.Row(event)[idx],
		Eta:    c.Eta.Row(event)[idx],
		Phi:    c.Phi.Row(event)[idx],
		Mass:   c.Mass.Row(event)[idx],
		Charge: c.Charge.Row(event)[idx],
	}
	if !c.Isolation.IsZero() {
		o.Isolation = c.Isolation.Row(event)[idx]
	}
	if !c.Discriminator.IsZero() {
		o.Discriminator = c.Discriminator.Row(event)[idx]
	}
	return o
}

// Validate checks that the kinematic fields plus any extra required fields
// are present and share the shape of Pt.
func (c *Collection) Validate(required ...Field) error {
	fields := append(append([]Field{}, KinematicFields...), required...)
	for _, f := range fields {
		present, same := c.shapeOf(f)
		if !present {
			return fmt.Errorf("%w: %s.%s", ErrMissingField, c.Name, f)
		}
		if !same {
			return fmt.Errorf("%w: %s.%s does not match %s.pt", ErrShapeMismatch, c.Name, f, c.Name)
		}
	}
	// Optional scores, when set, must still line up.
	for _, f := range []Field{FieldIsolation, FieldDiscriminator} {
		if present, same := c.shapeOf(f); present && !same {
			return fmt.Errorf("%w: %s.%s does not match %s.pt", ErrShapeMismatch, c.Name, f, c.Name)
		}
	}
	return nil
}

func (c *Collection) shapeOf(f Field) (present, same bool) {
	switch f {
	case FieldPt:
		return !c.Pt.IsZero(), true
	case FieldEta:
		return !c.Eta.IsZero(), ragged.SameShape(c.Eta, c.Pt)
	case FieldPhi:
		return !c.Phi.IsZero(), ragged.SameShape(c.Phi, c.Pt)
	case FieldMass:
		return !c.Mass.IsZero(), ragged.SameShape(c.Mass, c.Pt)
	case FieldCharge:
		return !c.Charge.IsZero(), ragged.SameShape(c.Charge, c.Pt)
	case FieldIsolation:
		return !c.Isolation.IsZero(), ragged.SameShape(c.Isolation, c.Pt)
	case FieldDiscriminator:
		return !c.Discriminator.IsZero(), ragged.SameShape(c.Discriminator, c.Pt)
	}
	return false, false
}

// Slice returns events [start, end) of the collection.
func (c *Collection) Slice(start, end int) Collection {
	out := Collection{
		Name:   c.Name,
		Pt:     c.Pt.Slice(start, end),
		Eta:    c.Eta.Slice(start, end),
		Phi:    c.Phi.Slice(start, end),
		Mass:   c.Mass.Slice(start, end),
		Charge: c.Charge.Slice(start, end),
	}
	if !c.Isolation.IsZero() {
		out.Isolation = c.Isolation.Slice(start, end)
	}
	if !c.Discriminator.IsZero() {
		out.Discriminator = c.Discriminator.Slice(start, end)
	}
	return out
}

// MET is the per-event missing transverse energy.
type MET struct {
	Pt  []float64
	Phi []float64
}

// Len returns the number of events.
func (m MET) Len() int {
	return len(m.Pt)
}
