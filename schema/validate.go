package schema

import "fmt"

// ValidationError reports a value rejected by a field validator.
type ValidationError struct {
	Schema  string
	Version int
	Field   string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q from schema %q (version %d) has invalid value: %q",
		e.Field, e.Schema, e.Version, fmt.Sprint(e.Value))
}

// Check runs the validator of f, if any, against value.
func (s *Schema) Check(current *FieldMap, f *Field, value any) error {
	v, ok := s.Validator(f)
	if !ok || v(current, value) {
		return nil
	}
	return &ValidationError{Schema: s.handle, Version: s.version, Field: f.handle, Value: value}
}

// CheckAll runs every validator against the values of fm.
func (s *Schema) CheckAll(fm *FieldMap) error {
	for _, f := range s.Fields() {
		if err := s.Check(fm, f, fm.values[f.handle]); err != nil {
			return err
		}
	}
	return nil
}
