package schema

import (
	"fmt"
	"strings"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// Kind is the storage kind of a field value.
type Kind int

const (
	Blob Kind = iota + 1
	LongInt
	DoubleFloat
	Text
	TextFullText
	Geo
)

var kindCodes = map[Kind]string{
	Blob:         "blb",
	LongInt:      "lng",
	DoubleFloat:  "dbl",
	Text:         "txt",
	TextFullText: "fts",
	Geo:          "geo",
}

func (k Kind) String() string {
	switch k {
	case Blob:
		return "blob"
	case LongInt:
		return "long"
	case DoubleFloat:
		return "double"
	case Text:
		return "text"
	case TextFullText:
		return "fulltext"
	case Geo:
		return "geo"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FieldType is a field kind plus its nullability.
type FieldType struct {
	Kind     Kind
	Optional bool
}

// Required returns the non-optional FieldType for k.
func Required(k Kind) FieldType { return FieldType{Kind: k} }

// Nullable returns the optional FieldType for k.
func Nullable(k Kind) FieldType { return FieldType{Kind: k, Optional: true} }

// Code returns the persisted type code, e.g. "lng" or "lng?".
func (t FieldType) Code() string {
	code := kindCodes[t.Kind]
	if t.Optional {
		return code + "?"
	}
	return code
}

func (t FieldType) String() string { return t.Code() }

// Indexable reports whether the field can be used in equality predicates.
func (t FieldType) Indexable() bool {
	return t.Kind != Blob
}

// Scalar reports whether the field can be used in range, comparison and
// ordering predicates.
func (t FieldType) Scalar() bool {
	switch t.Kind {
	case LongInt, DoubleFloat, Text, TextFullText:
		return true
	default:
		return false
	}
}

func (t FieldType) valid() bool {
	_, ok := kindCodes[t.Kind]
	return ok
}

// ParseFieldType parses a persisted type code.
func ParseFieldType(code string) (FieldType, error) {
	base, optional := strings.CutSuffix(code, "?")
	for k, c := range kindCodes {
		if c == base {
			return FieldType{Kind: k, Optional: optional}, nil
		}
	}
	return FieldType{}, glerr.New(glerr.CodeSchemaTypeInvalid,
		fmt.Sprintf("unknown field type code %q", code), glerr.Field("code", code))
}

// Field is a named, typed slot of exactly one Schema.
type Field struct {
	handle string
	typ    FieldType
	owner  *Schema
}

func (f *Field) Handle() string    { return f.handle }
func (f *Field) Type() FieldType   { return f.typ }
func (f *Field) Schema() *Schema   { return f.owner }
func (f *Field) Optional() bool    { return f.typ.Optional }
func (f *Field) Indexable() bool   { return f.typ.Indexable() }
func (f *Field) Scalar() bool      { return f.typ.Scalar() }
func (f *Field) String() string    { return fmt.Sprintf("%s(%s)", f.handle, f.typ.Code()) }

// BelongsTo reports whether f is a field of s, comparing structurally so a
// schema rebuilt from storage matches its declared counterpart.
func (f *Field) BelongsTo(s *Schema) bool {
	if f == nil || s == nil || f.owner == nil {
		return false
	}
	if f.owner == s {
		return true
	}
	if f.owner.handle != s.handle || f.owner.version != s.version {
		return false
	}
	other, ok := s.Field(f.handle)
	return ok && other.typ == f.typ
}
