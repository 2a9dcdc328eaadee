package filing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFieldNotFound is returned when a field does not exist on a schema.
var ErrFieldNotFound = errors.New("field not found")

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains every validation error found in one
// construction attempt. Validation never stops at the first offending
// field; callers see the complete list.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "filing validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("filing validation failed: %s: %s", ve.Errors[0].Field, ve.Errors[0].Message)
	}
	parts := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return fmt.Sprintf("filing validation failed (%d errors): %s", len(ve.Errors), strings.Join(parts, "; "))
}

// FieldNames returns the names of all offending fields, in report order.
func (ve *ValidationError) FieldNames() []string {
	names := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		names[i] = fe.Field
	}
	return names
}

// ImmutableError is returned when a Set would change a non-nil value of an
// immutable field.
type ImmutableError struct {
	Field     string
	Current   any
	Attempted any
}

// Error implements the error interface.
func (ie *ImmutableError) Error() string {
	return fmt.Sprintf("field %q is immutable: current value %v, attempted %v", ie.Field, ie.Current, ie.Attempted)
}

// SchemaError reports a schema definition mistake. It is raised when the
// schema is built, so no instance of a broken schema can ever exist.
type SchemaError struct {
	Schema  string
	Field   string
	Message string
}

// Error implements the error interface.
func (se *SchemaError) Error() string {
	if se.Field == "" {
		return fmt.Sprintf("schema %q: %s", se.Schema, se.Message)
	}
	return fmt.Sprintf("schema %q: field %q: %s", se.Schema, se.Field, se.Message)
}
