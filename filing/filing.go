package filing

import (
	"fmt"
	"time"
)

// TimeLayout is the canonical textual form of timestamp fields. It is
// fixed-width with a nanosecond fraction so that, for UTC values, textual
// ordering matches chronological ordering in the catalog.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders a timestamp in canonical form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a canonical timestamp string.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Filing is one validated record instance: a flat field-name → value map
// bound to a schema. Values not declared by the schema are carried through
// untyped; this keeps a subtype's extra fields intact when a record is
// reconstructed against the base schema.
type Filing struct {
	schema *Schema
	values map[string]any
}

// New constructs a filing from field values, validating eagerly.
//
// Defaults are applied for absent fields, then every declared field is
// checked: required fields must be present, values must match the declared
// kind, and core string fields reject the empty string. All violations are
// reported together in a single *ValidationError.
//
// If absent, created_at is set to the current time and id to the
// deterministic identity digest of the record (see ComputeID).
func New(schema *Schema, values map[string]any) (*Filing, error) {
	if schema == nil {
		schema = BaseSchema()
	}

	f := &Filing{
		schema: schema,
		values: make(map[string]any, len(values)),
	}

	for _, fd := range schema.Fields() {
		if fd.HasDefault && fd.Default != nil {
			f.values[fd.Name] = fd.Default
		}
	}
	for k, v := range values {
		if v == nil {
			continue
		}
		f.values[k] = v
	}

	if err := f.validate(); err != nil {
		return nil, err
	}

	if _, ok := f.values[FieldCreatedAt]; !ok {
		f.values[FieldCreatedAt] = time.Now()
	}
	if _, ok := f.values[FieldID]; !ok {
		f.values[FieldID] = ComputeID(schema, f.values)
	}

	return f, nil
}

// validate checks every declared field and collects all violations.
// id and created_at may be absent; they are generated after validation.
func (f *Filing) validate() error {
	var errs []FieldError

	for _, fd := range f.schema.Fields() {
		raw, present := f.values[fd.Name]

		if !present {
			if fd.Name == FieldID || fd.Name == FieldCreatedAt {
				continue
			}
			if fd.Required {
				errs = append(errs, FieldError{Field: fd.Name, Message: "required field is missing"})
			}
			continue
		}

		v, ok := normalize(fd.Kind, raw)
		if !ok {
			errs = append(errs, FieldError{
				Field:   fd.Name,
				Message: fmt.Sprintf("expected %s, got %T", fd.Kind, raw),
			})
			continue
		}
		f.values[fd.Name] = v

		if isCoreField(fd.Name) && fd.Kind == KindString && v.(string) == "" {
			errs = append(errs, FieldError{Field: fd.Name, Message: "core field must not be empty"})
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// normalize coerces a raw value into the canonical representation for the
// declared kind: string, bool, int64, float64 or time.Time. Canonical
// timestamp text and sqlite integer booleans are accepted so that the
// construction path is shared with flat-map restoration.
func normalize(k Kind, v any) (any, bool) {
	switch k {
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, true
		case int64:
			return b != 0, true
		}
	case KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), true
		case int64:
			return n, true
		case float64:
			// JSON numbers decode as float64; accept integral values.
			if n == float64(int64(n)) {
				return int64(n), true
			}
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			parsed, err := ParseTime(t)
			if err != nil {
				return nil, false
			}
			return parsed, true
		}
	}
	return nil, false
}

// Schema returns the schema this filing was constructed against.
func (f *Filing) Schema() *Schema {
	return f.schema
}

// Class returns the fully-qualified schema name.
func (f *Filing) Class() string {
	return f.schema.Name()
}

// Get returns the value of the named field, or nil when unset.
func (f *Filing) Get(name string) any {
	return f.values[name]
}

// Set assigns a field value with validation.
//
// A mutable field may always be set. An immutable field may be set when it
// is currently nil, or re-set to its current value (idempotent); any other
// change fails with an *ImmutableError carrying both values.
func (f *Filing) Set(name string, value any) error {
	fd, declared := f.schema.Field(name)
	if !declared {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, name)
	}

	v, ok := normalize(fd.Kind, value)
	if !ok {
		return &ValidationError{Errors: []FieldError{{
			Field:   name,
			Message: fmt.Sprintf("expected %s, got %T", fd.Kind, value),
		}}}
	}

	current, present := f.values[name]
	if fd.Immutable && present && current != nil && !valueEqual(current, v) {
		return &ImmutableError{Field: name, Current: current, Attempted: v}
	}

	f.values[name] = v
	return nil
}

// valueEqual compares two canonical field values. Timestamps compare by
// instant, not by location.
func valueEqual(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	return a == b
}

// Typed accessors for the core fields.

func (f *Filing) ID() string       { s, _ := f.values[FieldID].(string); return s }
func (f *Filing) Source() string   { s, _ := f.values[FieldSource].(string); return s }
func (f *Filing) Checksum() string { s, _ := f.values[FieldChecksum].(string); return s }
func (f *Filing) Name() string     { s, _ := f.values[FieldName].(string); return s }
func (f *Filing) IsZip() bool      { b, _ := f.values[FieldIsZip].(bool); return b }
func (f *Filing) Format() string   { s, _ := f.values[FieldFormat].(string); return s }

// CreatedAt returns the creation timestamp, or the zero time when unset.
func (f *Filing) CreatedAt() time.Time {
	t, _ := f.values[FieldCreatedAt].(time.Time)
	return t
}

// ToMap renders every set field into a flat map, timestamps converted to
// canonical text. The result is safe to serialize.
func (f *Filing) ToMap() map[string]any {
	out := make(map[string]any, len(f.values))
	for k, v := range f.values {
		if t, ok := v.(time.Time); ok {
			out[k] = FormatTime(t)
			continue
		}
		out[k] = v
	}
	return out
}

// FromMap is the inverse of ToMap: it rebuilds a filing from a flat map,
// re-validating through the construction path and converting canonical
// timestamp text back for fields declared as time.
func FromMap(schema *Schema, m map[string]any) (*Filing, error) {
	return New(schema, m)
}

// Equal reports whether two filings have the same concrete schema and
// identical flat field maps.
func (f *Filing) Equal(other *Filing) bool {
	if other == nil {
		return false
	}
	if f.schema.Name() != other.schema.Name() {
		return false
	}
	a, b := f.ToMap(), other.ToMap()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (f *Filing) String() string {
	return fmt.Sprintf("%s(id=%q, source=%q)", f.schema.Name(), f.ID(), f.Source())
}
