// Package filing defines the schema and record model for catalog documents.
// A schema is an ordered set of typed field definitions assembled at
// registration time; a Filing is a validated, flat key-value instance of a
// schema with a deterministic content-derived identity.
package filing

import "fmt"

// Kind represents the declared value type of a field.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	KindTime
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "time":
		return KindTime, nil
	default:
		return 0, fmt.Errorf("unknown field kind: %s", s)
	}
}

// Field describes one declared attribute of a schema.
//
// Indexed marks the field for physical-column promotion in the catalog.
// Immutable forbids changing a once-set, non-nil value. Required forbids a
// nil value at construction.
type Field struct {
	Name        string
	Kind        Kind
	Indexed     bool
	Immutable   bool
	Required    bool
	Description string

	// Default is applied when the field is absent at construction.
	// HasDefault distinguishes "no default" from "default of nil"; the
	// latter is rejected for required fields at schema build time.
	Default    any
	HasDefault bool
}

// WithDefault returns a copy of the field with the given default value.
func (f Field) WithDefault(v any) Field {
	f.Default = v
	f.HasDefault = true
	return f
}
