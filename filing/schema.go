package filing

import (
	"fmt"
	"sort"
)

// Core field names. Every filing carries these seven fields.
const (
	FieldID        = "id"
	FieldSource    = "source"
	FieldChecksum  = "checksum"
	FieldName      = "name"
	FieldIsZip     = "is_zip"
	FieldFormat    = "format"
	FieldCreatedAt = "created_at"
)

// coreFields returns the seven core field definitions in declaration order.
func coreFields() []Field {
	return []Field{
		{Name: FieldID, Kind: KindString, Indexed: true, Immutable: true, Required: true, Description: "Filing ID"},
		{Name: FieldSource, Kind: KindString, Indexed: true, Immutable: true, Required: true, Description: "Data source"},
		{Name: FieldChecksum, Kind: KindString, Indexed: true, Required: true, Description: "SHA256 checksum"},
		{Name: FieldName, Kind: KindString, Indexed: true, Immutable: true, Required: true, Description: "File name"},
		{Name: FieldIsZip, Kind: KindBool, Indexed: true, Required: true, Description: "ZIP flag"},
		{Name: FieldFormat, Kind: KindString, Indexed: true, Immutable: true, Required: true, Description: "File format"},
		{Name: FieldCreatedAt, Kind: KindTime, Indexed: true, Immutable: true, Required: true, Description: "Created timestamp"},
	}
}

// isCoreField reports whether name is one of the seven core fields.
func isCoreField(name string) bool {
	switch name {
	case FieldID, FieldSource, FieldChecksum, FieldName, FieldIsZip, FieldFormat, FieldCreatedAt:
		return true
	}
	return false
}

// Schema is an ordered, validated set of field definitions for one record
// type. Schemas are immutable once built; subtypes are built by passing the
// parent schema to NewSchema.
type Schema struct {
	name   string
	parent *Schema
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema named name, inheriting every field of parent
// (nil parent for a root schema other than the base; use BaseSchema() as
// the parent for filing subtypes).
//
// Structural rules are enforced here, not at first instantiation:
//   - a required field may not declare a nil default;
//   - re-declaring an inherited field may assign a non-nil default but may
//     not change the field's immutability, kind, or conflict with a default
//     an ancestor already fixed on an immutable field.
func NewSchema(name string, parent *Schema, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, &SchemaError{Schema: name, Message: "schema name must not be empty"}
	}

	s := &Schema{
		name:   name,
		parent: parent,
		index:  make(map[string]int),
	}

	if parent != nil {
		s.fields = make([]Field, len(parent.fields))
		copy(s.fields, parent.fields)
		for i, f := range s.fields {
			s.index[f.Name] = i
		}
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, &SchemaError{Schema: name, Message: "field name must not be empty"}
		}

		if i, exists := s.index[f.Name]; exists {
			merged, err := mergeInherited(name, s.fields[i], f)
			if err != nil {
				return nil, err
			}
			s.fields[i] = merged
			continue
		}

		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	for _, f := range s.fields {
		if f.Required && f.HasDefault && f.Default == nil {
			return nil, &SchemaError{
				Schema:  name,
				Field:   f.Name,
				Message: "required field may not default to nil",
			}
		}
	}

	return s, nil
}

// MustSchema is like NewSchema but panics on error. Use for statically
// declared schemas whose definitions are known to be valid.
func MustSchema(name string, parent *Schema, fields ...Field) *Schema {
	s, err := NewSchema(name, parent, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// mergeInherited applies a subtype's re-declaration of an inherited field.
// Only the default may change, and an immutable field's already-fixed
// default may not be contradicted.
func mergeInherited(schema string, inherited, override Field) (Field, error) {
	if override.Immutable != inherited.Immutable {
		return Field{}, &SchemaError{
			Schema:  schema,
			Field:   inherited.Name,
			Message: "cannot change immutability of an inherited field",
		}
	}
	if override.Kind != inherited.Kind {
		return Field{}, &SchemaError{
			Schema:  schema,
			Field:   inherited.Name,
			Message: fmt.Sprintf("cannot change kind of an inherited field from %s to %s", inherited.Kind, override.Kind),
		}
	}
	if override.HasDefault {
		if inherited.Immutable && inherited.HasDefault && inherited.Default != override.Default {
			return Field{}, &SchemaError{
				Schema:  schema,
				Field:   inherited.Name,
				Message: fmt.Sprintf("default %v conflicts with inherited immutable default %v", override.Default, inherited.Default),
			}
		}
		inherited.Default = override.Default
		inherited.HasDefault = true
	}
	if override.Description != "" {
		inherited.Description = override.Description
	}
	if override.Indexed {
		inherited.Indexed = true
	}
	return inherited, nil
}

// Name returns the fully-qualified schema name. The catalog stores it as
// the record's class tag and the resolver maps it back to the schema.
func (s *Schema) Name() string {
	return s.name
}

// Parent returns the parent schema, or nil for a root schema.
func (s *Schema) Parent() *Schema {
	return s.parent
}

// Fields returns every field in declaration order, inherited fields first.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the definition of the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// IndexedFields returns the names of fields marked for physical-column
// promotion, in declaration order.
func (s *Schema) IndexedFields() []string {
	var names []string
	for _, f := range s.fields {
		if f.Indexed {
			names = append(names, f.Name)
		}
	}
	return names
}

// IdentityFields returns the sorted set of fields that participate in the
// deterministic ID: the core identity fields (source, name, is_zip, format)
// plus every additional declared field. id, checksum and created_at never
// participate.
func (s *Schema) IdentityFields() []string {
	names := []string{FieldSource, FieldName, FieldIsZip, FieldFormat}
	for _, f := range s.fields {
		if !isCoreField(f.Name) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

var baseSchema = MustSchema("filing.Filing", nil, coreFields()...)

// BaseSchema returns the schema shared by every filing: the seven core
// fields and nothing else. It is the fallback type for records whose
// concrete class cannot be resolved.
func BaseSchema() *Schema {
	return baseSchema
}
