package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/graphlite/schema"
)

// Declaration is a schema as written in a CUE or YAML file, before it is
// turned into a *schema.Schema.
type Declaration struct {
	Handle  string             `yaml:"handle" json:"handle"`
	Version int                `yaml:"version" json:"version"`
	Fields  []FieldDeclaration `yaml:"fields" json:"fields"`
	Pos     token.Pos          `yaml:"-" json:"-"`
}

// FieldDeclaration is one declared field. Type is a kind name ("text",
// "long", "double", "fulltext", "geo", "blob") or a stored type code
// ("txt", "lng", ...); a trailing "?" makes the field optional.
type FieldDeclaration struct {
	Handle   string    `yaml:"handle" json:"handle"`
	Type     string    `yaml:"type" json:"type"`
	Optional bool      `yaml:"optional,omitempty" json:"optional,omitempty"`
	Pos      token.Pos `yaml:"-" json:"-"`
}

func (d Declaration) String() string { return fmt.Sprintf("%s@%d", d.Handle, d.Version) }

var kindNames = map[string]schema.Kind{
	"blob":     schema.Blob,
	"long":     schema.LongInt,
	"double":   schema.DoubleFloat,
	"text":     schema.Text,
	"fulltext": schema.TextFullText,
	"geo":      schema.Geo,
}

// ParseType resolves a declared field type.
func ParseType(name string, optional bool) (schema.FieldType, error) {
	base, suffixed := strings.CutSuffix(strings.TrimSpace(name), "?")
	optional = optional || suffixed
	if k, ok := kindNames[strings.ToLower(base)]; ok {
		return schema.FieldType{Kind: k, Optional: optional}, nil
	}
	t, err := schema.ParseFieldType(base)
	if err != nil {
		return schema.FieldType{}, err
	}
	t.Optional = optional
	return t, nil
}

// Normalize returns d with NFC-normalized handles. Two spellings of the
// same handle must map to the same tables.
func (d Declaration) Normalize() Declaration {
	out := Declaration{Handle: norm.NFC.String(d.Handle), Version: d.Version, Pos: d.Pos}
	for _, f := range d.Fields {
		f.Handle = norm.NFC.String(f.Handle)
		out.Fields = append(out.Fields, f)
	}
	return out
}

// Build creates the schema d declares. Run Validate first for a full
// report; Build stops at the first problem.
func (d Declaration) Build() (*schema.Schema, error) {
	d = d.Normalize()
	if errs := ValidateDeclaration(d); len(errs) > 0 {
		return nil, errs[0]
	}
	s := schema.New(d.Handle, d.Version)
	for _, f := range d.Fields {
		t, err := ParseType(f.Type, f.Optional)
		if err != nil {
			return nil, err
		}
		if _, err := s.AddField(f.Handle, t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CompileDeclaration parses one schema struct. The handle is the struct
// label:
//
//	schema: person: {
//		version: 2
//		fields: {
//			name: "fulltext"
//			age:  "long?"
//			home: {type: "geo", optional: true}
//		}
//	}
func CompileDeclaration(v cue.Value) (Declaration, error) {
	if err := v.Err(); err != nil {
		return Declaration{}, formatCUEError(err)
	}

	d := Declaration{Pos: v.Pos()}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		d.Handle = sels[len(sels)-1].Unquoted()
	}

	versionVal := v.LookupPath(cue.ParsePath("version"))
	if !versionVal.Exists() {
		return Declaration{}, &CompileError{Field: "version", Message: "version is required", Pos: v.Pos()}
	}
	version, err := versionVal.Int64()
	if err != nil {
		return Declaration{}, formatCUEError(err)
	}
	d.Version = int(version)

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return d, nil
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return Declaration{}, formatCUEError(err)
	}
	for iter.Next() {
		f, err := compileField(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return Declaration{}, err
		}
		d.Fields = append(d.Fields, f)
	}
	return d, nil
}

// compileField accepts a type string or a {type, optional} struct.
func compileField(handle string, v cue.Value) (FieldDeclaration, error) {
	f := FieldDeclaration{Handle: handle, Pos: v.Pos()}

	if s, err := v.String(); err == nil {
		f.Type = s
		return f, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return f, &CompileError{
			Field:   "fields." + handle,
			Message: fmt.Sprintf("field must be a type string or a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return f, &CompileError{Field: "fields." + handle + ".type", Message: "type is required", Pos: v.Pos()}
	}
	t, err := typeVal.String()
	if err != nil {
		return f, formatCUEError(err)
	}
	f.Type = t

	if optVal := v.LookupPath(cue.ParsePath("optional")); optVal.Exists() {
		opt, err := optVal.Bool()
		if err != nil {
			return f, formatCUEError(err)
		}
		f.Optional = opt
	}
	return f, nil
}

// CompileSchemas compiles every declaration under the top-level "schema"
// struct of v. With failFast it stops at the first error.
func CompileSchemas(v cue.Value, failFast bool) ([]Declaration, []error) {
	var (
		decls []Declaration
		errs  []error
	)
	root := v.LookupPath(cue.ParsePath("schema"))
	if !root.Exists() {
		return nil, nil
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	for iter.Next() {
		d, err := CompileDeclaration(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if failFast {
				return decls, errs
			}
			continue
		}
		decls = append(decls, d.Normalize())
	}
	return decls, errs
}

// CompileError is a compilation error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
