// Package schema defines graph element schemas: versioned, ordered sets of
// typed fields with optional per-field validators, and the FieldMap values
// built from them.
//
// A Schema is declared in two phases. Fields and validators are added while
// it is unfrozen; registering it with a database or building a FieldMap
// from it freezes it permanently.
//
//	person := schema.New("person", 1)
//	name := person.TextField("n")
//	age := person.Optional().LongField("a")
//	fm, err := schema.NewFieldMap(person).Set(name, "Ada").Build()
package schema

import (
	"fmt"
	"sort"
	"sync"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// Validator decides whether value may be stored into a field. current is
// the field map being written.
type Validator func(current *FieldMap, value any) bool

// Schema is a named, versioned field set.
type Schema struct {
	handle  string
	version int

	mu         sync.RWMutex
	frozen     bool
	fields     []*Field
	byHandle   map[string]*Field
	validators map[string]Validator
}

// New returns an unfrozen schema.
func New(handle string, version int) *Schema {
	return &Schema{
		handle:     handle,
		version:    version,
		byHandle:   make(map[string]*Field),
		validators: make(map[string]Validator),
	}
}

func (s *Schema) Handle() string { return s.handle }
func (s *Schema) Version() int   { return s.version }

func (s *Schema) String() string {
	return fmt.Sprintf("%s@%d", s.handle, s.version)
}

// AddField declares a field. It fails if the schema is frozen or the handle
// is already declared.
func (s *Schema) AddField(handle string, t FieldType) (*Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return nil, glerr.New(glerr.CodeSchemaFieldFrozen,
			fmt.Sprintf("schema %s is already frozen", s), glerr.Field("field", handle))
	}
	if !t.valid() {
		return nil, glerr.New(glerr.CodeSchemaTypeInvalid,
			fmt.Sprintf("field %q has unknown kind %s", handle, t.Kind))
	}
	if _, ok := s.byHandle[handle]; ok {
		return nil, glerr.New(glerr.CodeSchemaFieldConflict,
			fmt.Sprintf("field %q has already been added to schema %s", handle, s),
			glerr.Field("field", handle))
	}

	f := &Field{handle: handle, typ: t, owner: s}
	s.fields = append(s.fields, f)
	s.byHandle[handle] = f
	return f, nil
}

// MustAddField is AddField that panics on error.
func (s *Schema) MustAddField(handle string, t FieldType) *Field {
	f, err := s.AddField(handle, t)
	if err != nil {
		panic(err)
	}
	return f
}

func (s *Schema) BlobField(handle string) *Field     { return s.MustAddField(handle, Required(Blob)) }
func (s *Schema) LongField(handle string) *Field     { return s.MustAddField(handle, Required(LongInt)) }
func (s *Schema) DoubleField(handle string) *Field   { return s.MustAddField(handle, Required(DoubleFloat)) }
func (s *Schema) TextField(handle string) *Field     { return s.MustAddField(handle, Required(Text)) }
func (s *Schema) FullTextField(handle string) *Field { return s.MustAddField(handle, Required(TextFullText)) }
func (s *Schema) GeoField(handle string) *Field      { return s.MustAddField(handle, Required(Geo)) }

// OptionalFields declares nullable fields on its schema.
type OptionalFields struct{ s *Schema }

// Optional returns helpers that declare nullable fields.
func (s *Schema) Optional() OptionalFields { return OptionalFields{s: s} }

func (o OptionalFields) BlobField(handle string) *Field { return o.s.MustAddField(handle, Nullable(Blob)) }
func (o OptionalFields) LongField(handle string) *Field { return o.s.MustAddField(handle, Nullable(LongInt)) }
func (o OptionalFields) DoubleField(handle string) *Field {
	return o.s.MustAddField(handle, Nullable(DoubleFloat))
}
func (o OptionalFields) TextField(handle string) *Field { return o.s.MustAddField(handle, Nullable(Text)) }
func (o OptionalFields) FullTextField(handle string) *Field {
	return o.s.MustAddField(handle, Nullable(TextFullText))
}
func (o OptionalFields) GeoField(handle string) *Field { return o.s.MustAddField(handle, Nullable(Geo)) }

// OnValidate attaches the validator for f. Only one validator per field is
// allowed.
func (s *Schema) OnValidate(f *Field, v Validator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f == nil || s.byHandle[f.handle] != f {
		return glerr.New(glerr.CodeSchemaFieldNotFound,
			fmt.Sprintf("field does not belong to schema %s", s))
	}
	if s.frozen {
		return glerr.New(glerr.CodeSchemaFieldFrozen,
			fmt.Sprintf("schema %s is already frozen", s), glerr.Field("field", f.handle))
	}
	if _, ok := s.validators[f.handle]; ok {
		return glerr.New(glerr.CodeSchemaValidatorConflict,
			fmt.Sprintf("field %q already has a validator", f.handle), glerr.Field("field", f.handle))
	}
	s.validators[f.handle] = v
	return nil
}

// Freeze makes the schema immutable. Calling it again has no effect.
func (s *Schema) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

func (s *Schema) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []*Field {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Field(handle string) (*Field, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.byHandle[handle]
	return f, ok
}

func (s *Schema) Validator(f *Field) (Validator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.validators[f.handle]
	return v, ok
}

// Signature returns the sorted "handle:code" pairs that define structural
// equality.
func (s *Schema) Signature() []string {
	fields := s.Fields()
	sig := make([]string, len(fields))
	for i, f := range fields {
		sig[i] = f.handle + ":" + f.typ.Code()
	}
	sort.Strings(sig)
	return sig
}

// Equal compares handle, version and field set. Validators are not part of
// a schema's identity.
func (s *Schema) Equal(other *Schema) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if s.handle != other.handle || s.version != other.version {
		return false
	}
	return s.SameFields(other)
}

// SameFields compares only the field sets.
func (s *Schema) SameFields(other *Schema) bool {
	a, b := s.Signature(), other.Signature()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
