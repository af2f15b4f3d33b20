package columnar

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/ragged"
)

// Event-level column names, as in NanoAOD.
const (
	ColumnRun         = "run"
	ColumnLumi        = "luminosityBlock"
	ColumnEvent       = "event"
	ColumnMETPt       = "MET_pt"
	ColumnMETPhi      = "MET_phi"
	ColumnLeg1Indices = "leg1_indices"
	ColumnLeg2Indices = "leg2_indices"
)

// MetadataChannel is the schema metadata key naming the channel of a file.
const MetadataChannel = "httcp.channel"

// column returns the branch name of field f of collection coll, e.g. Electron_pt.
func column(coll string, f model.Field) string {
	return coll + "_" + string(f)
}

func lookup(rec arrow.Record, name string) (arrow.Array, bool) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, false
	}
	return rec.Column(idx[0]), true
}

func require(rec arrow.Record, name string) (arrow.Array, error) {
	col, ok := lookup(rec, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return col, nil
}

// floats widens a floating point array to float64.
func floats(a arrow.Array) ([]float64, error) {
	out := make([]float64, a.Len())
	switch a := a.(type) {
	case *array.Float64:
		copy(out, a.Float64Values())
	case *array.Float32:
		for i := range out {
			out[i] = float64(a.Value(i))
		}
	default:
		return nil, fmt.Errorf("%w: %s, want float", ErrUnsupportedType, a.DataType())
	}
	return out, nil
}

// ints converts any integer array to int64.
func ints(a arrow.Array) ([]int64, error) {
	out := make([]int64, a.Len())
	switch a := a.(type) {
	case *array.Int8:
		for i := range out {
			out[i] = int64(a.Value(i))
		}
	case *array.Int16:
		for i := range out {
			out[i] = int64(a.Value(i))
		}
	case *array.Int32:
		for i := range out {
			out[i] = int64(a.Value(i))
		}
	case *array.Int64:
		copy(out, a.Int64Values())
	case *array.Uint8:
		for i := range out {
			out[i] = int64(a.Value(i))
		}
	case *array.Uint16:
		for i := range out {
			out[i] = int64(a.Value(i))
		}
	case *array.Uint32:
		for i := range out {
			out[i] = int64(a.Value(i))
		}
	case *array.Uint64:
		for i := range out {
			out[i] = int64(a.Value(i))
		}
	default:
		return nil, fmt.Errorf("%w: %s, want integer", ErrUnsupportedType, a.DataType())
	}
	return out, nil
}

// rows splits the flat values of a list array by its offsets. Null rows
// become empty rows.
func rows[T any](l *array.List, values []T) ragged.Array[T] {
	b := ragged.NewBuilder[T](l.Len(), len(values))
	for i := 0; i < l.Len(); i++ {
		if l.IsValid(i) {
			start, end := l.ValueOffsets(i)
			b.Append(values[start:end]...)
		}
		b.EndRow()
	}
	return b.Build()
}

func asList(a arrow.Array, name string) (*array.List, error) {
	l, ok := a.(*array.List)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want list", ErrUnsupportedType, name, a.DataType())
	}
	return l, nil
}

func floatList(rec arrow.Record, name string) (ragged.Array[float64], error) {
	col, err := require(rec, name)
	if err != nil {
		return ragged.Array[float64]{}, err
	}
	l, err := asList(col, name)
	if err != nil {
		return ragged.Array[float64]{}, err
	}
	values, err := floats(l.ListValues())
	if err != nil {
		return ragged.Array[float64]{}, fmt.Errorf("%s: %w", name, err)
	}
	return rows(l, values), nil
}

func int32List(rec arrow.Record, name string) (ragged.Array[int32], error) {
	col, err := require(rec, name)
	if err != nil {
		return ragged.Array[int32]{}, err
	}
	l, err := asList(col, name)
	if err != nil {
		return ragged.Array[int32]{}, err
	}
	wide, err := ints(l.ListValues())
	if err != nil {
		return ragged.Array[int32]{}, fmt.Errorf("%s: %w", name, err)
	}
	values := make([]int32, len(wide))
	for i, v := range wide {
		values[i] = int32(v)
	}
	return rows(l, values), nil
}

func buildFloatList(mem memory.Allocator, a ragged.Array[float64]) arrow.Array {
	lb := array.NewListBuilder(mem, arrow.PrimitiveTypes.Float64)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Float64Builder)
	for i := 0; i < a.Len(); i++ {
		lb.Append(true)
		vb.AppendValues(a.Row(i), nil)
	}
	return lb.NewArray()
}

func buildInt32List(mem memory.Allocator, a ragged.Array[int32]) arrow.Array {
	lb := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int32)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Int32Builder)
	for i := 0; i < a.Len(); i++ {
		lb.Append(true)
		vb.AppendValues(a.Row(i), nil)
	}
	return lb.NewArray()
}

func buildBoolList(mem memory.Allocator, a ragged.Array[bool]) arrow.Array {
	lb := array.NewListBuilder(mem, arrow.FixedWidthTypes.Boolean)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.BooleanBuilder)
	for i := 0; i < a.Len(); i++ {
		lb.Append(true)
		vb.AppendValues(a.Row(i), nil)
	}
	return lb.NewArray()
}

func buildFloats(mem memory.Allocator, v []float64) arrow.Array {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(v, nil)
	return b.NewArray()
}

func releaseAll(cols []arrow.Array) {
	for _, c := range cols {
		c.Release()
	}
}
