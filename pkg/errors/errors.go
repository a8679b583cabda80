// Package errors provides coded errors shared by every graphlite package.
//
// Codes follow the `area.op.reason` convention. The last segment is the
// reason and drives the Is* helpers, so a new code only needs a matching
// suffix to be classified.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreDatabaseFailure     Code = "store.database.failure"
	CodeStoreConstraintConflict  Code = "store.constraint.conflict"
	CodeStoreTransactionFailure  Code = "store.transaction.failure"
	CodeStoreDriverUnsupported   Code = "store.driver.invalid_input"
	CodeStoreLayoutInvalid       Code = "store.layout.invalid"
	CodeStoreValueDecodeInvalid  Code = "store.value.decode.invalid"
	CodeStoreValueEncodeInvalid  Code = "store.value.encode.invalid_input"

	CodeSchemaFieldFrozen        Code = "schema.field.frozen"
	CodeSchemaFieldConflict      Code = "schema.field.conflict"
	CodeSchemaFieldNotFound      Code = "schema.field.not_found"
	CodeSchemaValidatorConflict  Code = "schema.validator.conflict"
	CodeSchemaTypeInvalid        Code = "schema.type.invalid_input"
	CodeSchemaGeoInvalid         Code = "schema.geo.invalid_input"
	CodeSchemaFieldMapInvalid    Code = "schema.fieldmap.invalid_input"

	CodeQueryMatchUnsupported    Code = "query.match.unsupported"
	CodeQueryMatchInvalid        Code = "query.match.invalid"
	CodeQueryFieldNotFound       Code = "query.field.not_found"

	CodeMigrationSchemaConflict  Code = "migration.schema.conflict"
	CodeMigrationSchemaDowngrade Code = "migration.schema.downgrade"
	CodeMigrationStepMissing     Code = "migration.step.missing"
	CodeMigrationStepInvalid     Code = "migration.step.invalid"
	CodeMigrationStepConflict    Code = "migration.step.conflict"
	CodeMigrationRegisterInvalid Code = "migration.register.invalid"
	CodeMigrationNotMigrated     Code = "migration.values.not_migrated"
	CodeMigrationCallbackFailure Code = "migration.callback.failure"

	CodeGraphValidationRejected  Code = "graph.validation.rejected"
	CodeGraphElementConflict     Code = "graph.element.conflict"
	CodeGraphElementNotFound     Code = "graph.element.not_found"
	CodeGraphConnectionInvalid   Code = "graph.connection.invalid"
	CodeGraphSchemaNotFound      Code = "graph.schema.not_found"
	CodeGraphHandleInvalid       Code = "graph.handle.invalid_input"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLIInputInvalid Code = "cli.input.invalid"
	CodeInternalFailure Code = "internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldSchema(handle string, version int) []Attr {
	return []Attr{Field("schema", handle), Field("version", version)}
}

func FieldHandle(value string) Attr {
	return Field("handle", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value"
}

// IsConfiguration reports whether err is a schema or migration setup
// mistake. These are never retried.
func IsConfiguration(err error) bool {
	code := string(CodeOf(err))
	return strings.HasPrefix(code, "migration.") || strings.HasPrefix(code, "schema.") ||
		code == string(CodeQueryMatchUnsupported)
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
