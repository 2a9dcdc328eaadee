// Package query provides predicate construction and compilation for
// catalog searches. Predicates are built compositionally from field
// comparisons and boolean combinators, then compiled to parameterized SQL
// against a known set of physical columns: a leaf on a physical column
// emits a direct column comparison, any other leaf emits a json_extract
// path into the row's data column.
package query

import (
	"fmt"
	"strings"
)

// Operator represents a comparison operator.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpLike
	OpIn
	OpNotIn
	OpIsNull
	OpIsNotNull
	OpBetween
)

// String returns the string representation of the operator.
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpLike:
		return "LIKE"
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpBetween:
		return "BETWEEN"
	default:
		return "UNKNOWN"
	}
}

// Columns is the set of physical column names a predicate is compiled
// against.
type Columns map[string]struct{}

// Has reports whether name is a physical column.
func (c Columns) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Expr is a boolean predicate over filing fields.
type Expr interface {
	compile(cols Columns) (string, []any, error)
}

// Compile converts a predicate to a parameterized SQL fragment. A nil
// predicate compiles to an empty fragment (match all). Values are never
// interpolated; parameters are returned left-to-right in placeholder order.
func Compile(e Expr, cols Columns) (string, []any, error) {
	if e == nil {
		return "", nil, nil
	}
	return e.compile(cols)
}

// FieldRef names a field to compare against. Build one with F.
type FieldRef struct {
	name string
}

// F returns a reference to the named field. Whether the comparison hits a
// physical column or a data path is decided at compile time.
func F(name string) FieldRef {
	return FieldRef{name: name}
}

func (f FieldRef) cmp(op Operator, values ...any) Expr {
	return comparison{field: f.name, op: op, values: values}
}

// Eq compares for equality: field = value.
func (f FieldRef) Eq(v any) Expr { return f.cmp(OpEqual, v) }

// Ne compares for inequality: field != value.
func (f FieldRef) Ne(v any) Expr { return f.cmp(OpNotEqual, v) }

// Gt compares: field > value.
func (f FieldRef) Gt(v any) Expr { return f.cmp(OpGreaterThan, v) }

// Ge compares: field >= value.
func (f FieldRef) Ge(v any) Expr { return f.cmp(OpGreaterThanOrEqual, v) }

// Lt compares: field < value.
func (f FieldRef) Lt(v any) Expr { return f.cmp(OpLessThan, v) }

// Le compares: field <= value.
func (f FieldRef) Le(v any) Expr { return f.cmp(OpLessThanOrEqual, v) }

// Contains matches substrings: field LIKE '%value%'. LIKE wildcards in s
// keep their SQL meaning.
func (f FieldRef) Contains(s string) Expr { return f.cmp(OpLike, "%"+s+"%") }

// HasPrefix matches prefixes: field LIKE 'value%'.
func (f FieldRef) HasPrefix(s string) Expr { return f.cmp(OpLike, s+"%") }

// HasSuffix matches suffixes: field LIKE '%value'.
func (f FieldRef) HasSuffix(s string) Expr { return f.cmp(OpLike, "%"+s) }

// In matches membership: field IN (v1, v2, ...).
func (f FieldRef) In(values ...any) Expr { return f.cmp(OpIn, values...) }

// NotIn matches non-membership: field NOT IN (v1, v2, ...).
func (f FieldRef) NotIn(values ...any) Expr { return f.cmp(OpNotIn, values...) }

// IsNull matches unset fields.
func (f FieldRef) IsNull() Expr { return f.cmp(OpIsNull) }

// IsNotNull matches set fields.
func (f FieldRef) IsNotNull() Expr { return f.cmp(OpIsNotNull) }

// Between matches ranges: field BETWEEN lo AND hi.
func (f FieldRef) Between(lo, hi any) Expr { return f.cmp(OpBetween, lo, hi) }

// And combines predicates with AND. An empty conjunction matches all.
func And(exprs ...Expr) Expr {
	return conjunction{connector: "AND", exprs: exprs}
}

// Or combines predicates with OR.
func Or(exprs ...Expr) Expr {
	return conjunction{connector: "OR", exprs: exprs}
}

// Not negates a predicate.
func Not(e Expr) Expr {
	return negation{expr: e}
}

// comparison is a leaf predicate on one field.
type comparison struct {
	field  string
	op     Operator
	values []any
}

func (c comparison) compile(cols Columns) (string, []any, error) {
	ref, err := columnRef(c.field, cols)
	if err != nil {
		return "", nil, err
	}

	switch c.op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual, OpLike:
		if len(c.values) != 1 {
			return "", nil, fmt.Errorf("operator %s requires exactly one value", c.op)
		}
		return fmt.Sprintf("%s %s ?", ref, c.op), c.values, nil

	case OpIn, OpNotIn:
		// Empty sets follow SQL semantics: IN () is always false,
		// NOT IN () always true.
		if len(c.values) == 0 {
			if c.op == OpIn {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.values)), ", ")
		return fmt.Sprintf("%s %s (%s)", ref, c.op, placeholders), c.values, nil

	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", ref, c.op), nil, nil

	case OpBetween:
		if len(c.values) != 2 {
			return "", nil, fmt.Errorf("operator BETWEEN requires [lo, hi] values")
		}
		return fmt.Sprintf("%s BETWEEN ? AND ?", ref), c.values, nil

	default:
		return "", nil, fmt.Errorf("unsupported operator: %v", c.op)
	}
}

// conjunction combines child predicates with AND or OR. Child SQL
// fragments are parenthesized and concatenated; child parameter lists are
// concatenated (never merged), preserving left-to-right binding order.
type conjunction struct {
	connector string
	exprs     []Expr
}

func (c conjunction) compile(cols Columns) (string, []any, error) {
	var parts []string
	var params []any

	for _, e := range c.exprs {
		if e == nil {
			continue
		}
		sql, p, err := e.compile(cols)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, p...)
	}

	if len(parts) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(parts, " "+c.connector+" "), params, nil
}

// negation inverts a predicate.
type negation struct {
	expr Expr
}

func (n negation) compile(cols Columns) (string, []any, error) {
	if n.expr == nil {
		return "1 = 0", nil, nil
	}
	sql, params, err := n.expr.compile(cols)
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", params, nil
}

// columnRef returns the SQL reference for a field: the bare column name
// when physical, a json_extract path into data otherwise. Field names are
// restricted to identifier characters because they are spliced into SQL.
func columnRef(field string, cols Columns) (string, error) {
	if err := ValidateFieldName(field); err != nil {
		return "", err
	}
	if cols.Has(field) {
		return field, nil
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field), nil
}

// ValidateFieldName rejects field names that cannot be safely spliced into
// a SQL statement. Valid names contain only letters, digits and
// underscores and do not start with a digit.
func ValidateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name must not be empty")
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("invalid field name: %q", name)
			}
		default:
			return fmt.Errorf("invalid field name: %q", name)
		}
	}
	return nil
}
