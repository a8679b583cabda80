package compiler

import (
	"fmt"
	"strings"
	"unicode"
)

// Validation error codes (E100-E199)
const (
	ErrHandleEmpty      = "E101" // schema or field handle is empty
	ErrHandleWhitespace = "E102" // handle has surrounding or control whitespace
	ErrVersionInvalid   = "E103" // version below 1
	ErrInvalidFieldType = "E104" // unknown type name or code
	ErrDuplicateName    = "E105" // duplicate schema or field handle
)

// ValidationError is one problem in a declaration.
type ValidationError struct {
	Schema  string `json:"schema,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	prefix := e.Field
	if e.Schema != "" {
		prefix = e.Schema + "." + e.Field
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, prefix, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, prefix, e.Message)
}

// Validate checks every declaration and the set as a whole. It reports all
// problems instead of stopping at the first.
func Validate(decls []Declaration) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, d := range decls {
		errs = append(errs, ValidateDeclaration(d)...)
		if d.Handle == "" {
			continue
		}
		if seen[d.Handle] {
			errs = append(errs, ValidationError{
				Schema:  d.Handle,
				Field:   "handle",
				Message: fmt.Sprintf("schema %q is declared more than once", d.Handle),
				Code:    ErrDuplicateName,
				Line:    d.Pos.Line(),
			})
		}
		seen[d.Handle] = true
	}
	return errs
}

// ValidateDeclaration checks one declaration.
func ValidateDeclaration(d Declaration) []ValidationError {
	var errs []ValidationError
	add := func(field, code, msg string, line int) {
		errs = append(errs, ValidationError{Schema: d.Handle, Field: field, Message: msg, Code: code, Line: line})
	}

	if msg, code := checkHandle(d.Handle); code != "" {
		add("handle", code, "schema "+msg, d.Pos.Line())
	}
	if d.Version < 1 {
		add("version", ErrVersionInvalid, fmt.Sprintf("version must be at least 1, got %d", d.Version), d.Pos.Line())
	}

	fields := make(map[string]bool)
	for i, f := range d.Fields {
		where := fmt.Sprintf("fields[%d]", i)
		if msg, code := checkHandle(f.Handle); code != "" {
			add(where, code, "field "+msg, f.Pos.Line())
		}
		if fields[f.Handle] {
			add(where, ErrDuplicateName, fmt.Sprintf("duplicate field handle %q", f.Handle), f.Pos.Line())
		}
		fields[f.Handle] = true
		if _, err := ParseType(f.Type, f.Optional); err != nil {
			add(where, ErrInvalidFieldType, fmt.Sprintf("field %q: unknown type %q", f.Handle, f.Type), f.Pos.Line())
		}
	}
	return errs
}

func checkHandle(h string) (string, string) {
	if h == "" {
		return "handle is required", ErrHandleEmpty
	}
	if strings.TrimSpace(h) != h || strings.IndexFunc(h, unicode.IsControl) >= 0 {
		return fmt.Sprintf("handle %q has surrounding whitespace or control characters", h), ErrHandleWhitespace
	}
	return "", ""
}
