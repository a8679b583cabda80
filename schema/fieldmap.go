package schema

import (
	"bytes"
	"fmt"
	"math"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// FieldMap is an immutable mapping from every field of a schema to its
// value. Optional fields may hold nil.
type FieldMap struct {
	schema *Schema
	values map[string]any
}

func (m *FieldMap) Schema() *Schema { return m.schema }

// Value returns the value of f, nil for a null optional field.
func (m *FieldMap) Value(f *Field) any {
	v := m.values[f.handle]
	if b, ok := v.([]byte); ok {
		return bytes.Clone(b)
	}
	return v
}

func (m *FieldMap) Int64(f *Field) (int64, bool) {
	v, ok := m.values[f.handle].(int64)
	return v, ok
}

func (m *FieldMap) Float64(f *Field) (float64, bool) {
	v, ok := m.values[f.handle].(float64)
	return v, ok
}

func (m *FieldMap) Text(f *Field) (string, bool) {
	v, ok := m.values[f.handle].(string)
	return v, ok
}

func (m *FieldMap) Bytes(f *Field) ([]byte, bool) {
	v, ok := m.values[f.handle].([]byte)
	return bytes.Clone(v), ok
}

func (m *FieldMap) Geo(f *Field) (GeoBounds, bool) {
	v, ok := m.values[f.handle].(GeoBounds)
	return v, ok
}

// Edit returns a mutable copy. Changes to the copy never affect m.
func (m *FieldMap) Edit() *MutableFieldMap {
	mm := &MutableFieldMap{schema: m.schema, values: make(map[string]any, len(m.values))}
	for k, v := range m.values {
		mm.values[k] = v
	}
	return mm
}

// Equal compares schemas structurally and values field by field.
func (m *FieldMap) Equal(other *FieldMap) bool {
	if m == nil || other == nil {
		return m == other
	}
	if !m.schema.Equal(other.schema) {
		return false
	}
	for _, f := range m.schema.Fields() {
		if !valuesEqual(m.values[f.handle], other.values[f.handle]) {
			return false
		}
	}
	return true
}

func (m *FieldMap) GoString() string {
	return fmt.Sprintf("FieldMap{%s %v}", m.schema, m.values)
}

func valuesEqual(a, b any) bool {
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok || bok {
		return aok && bok && bytes.Equal(ab, bb)
	}
	return a == b
}

// MutableFieldMap builds or edits a FieldMap. Errors from Set are deferred
// to Build so calls can be chained.
type MutableFieldMap struct {
	schema *Schema
	values map[string]any
	err    error
}

// NewFieldMap starts a FieldMap for s and freezes s.
func NewFieldMap(s *Schema) *MutableFieldMap {
	s.Freeze()
	return &MutableFieldMap{schema: s, values: make(map[string]any)}
}

func (m *MutableFieldMap) Schema() *Schema { return m.schema }

// Set assigns a value to f.
func (m *MutableFieldMap) Set(f *Field, value any) *MutableFieldMap {
	if m.err != nil {
		return m
	}
	if !f.BelongsTo(m.schema) {
		m.err = glerr.New(glerr.CodeSchemaFieldMapInvalid,
			fmt.Sprintf("field %q does not belong to schema %s", f.handle, m.schema))
		return m
	}
	v, err := NormalizeValue(f.typ, value)
	if err != nil {
		m.err = glerr.Wrap(err, glerr.CodeSchemaFieldMapInvalid,
			fmt.Sprintf("cannot set field %q", f.handle), glerr.Field("field", f.handle))
		return m
	}
	m.values[f.handle] = v
	return m
}

// Get returns the current value of f and whether it was set.
func (m *MutableFieldMap) Get(f *Field) (any, bool) {
	v, ok := m.values[f.handle]
	return v, ok
}

// Build returns the FieldMap. Unset optional fields become nil; an unset
// required field is an error.
func (m *MutableFieldMap) Build() (*FieldMap, error) {
	if m.err != nil {
		return nil, m.err
	}
	fields := m.schema.Fields()
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := m.values[f.handle]
		if !ok || v == nil {
			if !f.typ.Optional {
				return nil, glerr.New(glerr.CodeSchemaFieldMapInvalid,
					fmt.Sprintf("cannot create field map: field %q is missing", f.handle),
					glerr.Field("field", f.handle))
			}
			v = nil
		}
		values[f.handle] = v
	}
	return &FieldMap{schema: m.schema, values: values}, nil
}

// MustBuild is Build that panics on error.
func (m *MutableFieldMap) MustBuild() *FieldMap {
	fm, err := m.Build()
	if err != nil {
		panic(err)
	}
	return fm
}

// NormalizeValue converts a Go value to the canonical type for t:
// []byte, int64, float64, string or GeoBounds. nil passes only when t is
// optional.
func NormalizeValue(t FieldType, value any) (any, error) {
	if value == nil {
		if t.Optional {
			return nil, nil
		}
		return nil, glerr.New(glerr.CodeSchemaFieldMapInvalid, "nil value for a required field")
	}
	v, err := normalizeKind(t.Kind, value)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func normalizeKind(k Kind, value any) (any, error) {
	switch k {
	case Blob:
		if b, ok := value.([]byte); ok {
			return bytes.Clone(b), nil
		}
	case LongInt:
		if u, ok := value.(uint64); ok {
			if u > math.MaxInt64 {
				return nil, glerr.New(glerr.CodeSchemaFieldMapInvalid,
					fmt.Sprintf("value %d overflows a %s field", u, k))
			}
			return int64(u), nil
		}
		if u, ok := value.(uint); ok {
			return normalizeKind(k, uint64(u))
		}
		if n, ok := asInt64(value); ok {
			return n, nil
		}
	case DoubleFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case uint64:
			return float64(v), nil
		case uint:
			return float64(v), nil
		}
		if n, ok := asInt64(value); ok {
			return float64(n), nil
		}
	case Text, TextFullText:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case Geo:
		switch v := value.(type) {
		case GeoBounds:
			return v, v.Validate()
		case *GeoBounds:
			if v == nil {
				return nil, glerr.New(glerr.CodeSchemaFieldMapInvalid, "nil geo bounds")
			}
			return *v, v.Validate()
		}
	}
	return nil, glerr.New(glerr.CodeSchemaFieldMapInvalid,
		fmt.Sprintf("value of type %T is not valid for a %s field", value, k))
}

// asInt64 widens every integer type that fits in an int64.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	}
	return 0, false
}
