package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fino-data/filingstore/catalog/query"
	"github.com/fino-data/filingstore/filing"
)

// coreColumns is the fixed part of every row, in table order.
var coreColumns = []string{
	filing.FieldID,
	filing.FieldSource,
	filing.FieldChecksum,
	filing.FieldName,
	filing.FieldIsZip,
	filing.FieldFormat,
	filing.FieldCreatedAt,
}

// loadColumns reads the current physical column set from the table.
// Called once at Open; ensureColumns keeps the cache current afterwards.
func (c *Catalog) loadColumns() error {
	rows, err := c.db.Query("PRAGMA table_info(filings)")
	if err != nil {
		return fmt.Errorf("introspect filings table: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	c.columns = cols
	return nil
}

// physicalColumns returns the queryable physical columns (everything
// except the data payload and the class tag).
func (c *Catalog) physicalColumns() query.Columns {
	c.mu.Lock()
	defer c.mu.Unlock()

	cols := make(query.Columns, len(c.columns))
	for name := range c.columns {
		if name == "data" || name == classColumn {
			continue
		}
		cols[name] = struct{}{}
	}
	return cols
}

// ensureColumns promotes every indexed field of the schema that does not
// yet exist as a physical column. Caller holds c.mu.
func (c *Catalog) ensureColumns(s *filing.Schema) error {
	for _, name := range s.IndexedFields() {
		if _, exists := c.columns[name]; exists {
			continue
		}
		fd, _ := s.Field(name)
		if err := c.promoteColumn(name, fd.Kind); err != nil {
			return err
		}
		c.columns[name] = struct{}{}
	}
	return nil
}

// promoteColumn adds one physical column and its secondary index. The
// column name is validated because DDL cannot be parameterized.
func (c *Catalog) promoteColumn(name string, kind filing.Kind) error {
	if err := query.ValidateFieldName(name); err != nil {
		return fmt.Errorf("promote column: %w", err)
	}

	ddl := fmt.Sprintf("ALTER TABLE filings ADD COLUMN %s %s", name, sqlType(kind))
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("add column %q: %w", name, err)
	}

	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_filings_%s ON filings(%s)", name, name)
	if _, err := c.db.Exec(idx); err != nil {
		return fmt.Errorf("index column %q: %w", name, err)
	}

	c.logger.Info("promoted indexed field to physical column",
		zap.String("column", name), zap.String("type", sqlType(kind)))
	return nil
}

// sqlType maps a declared field kind to a SQLite column type. Timestamps
// are stored as canonical text (fixed-width UTC), so their textual order
// is chronological; unrecognized kinds fall back to TEXT.
func sqlType(k filing.Kind) string {
	switch k {
	case filing.KindBool:
		return "BOOLEAN"
	case filing.KindInt:
		return "INTEGER"
	case filing.KindFloat:
		return "REAL"
	case filing.KindString, filing.KindTime:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// orderRef resolves an ORDER BY target: a physical column when one exists
// with that name, otherwise a json path into data.
func (c *Catalog) orderRef(name string) (string, error) {
	if err := query.ValidateFieldName(name); err != nil {
		return "", fmt.Errorf("order by: %w", err)
	}
	if c.physicalColumns().Has(name) {
		return name, nil
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", name), nil
}

// extraIndexed returns the schema's indexed fields that are not core
// columns, in declaration order.
func extraIndexed(s *filing.Schema) []string {
	var names []string
	for _, name := range s.IndexedFields() {
		if !isCoreColumn(name) {
			names = append(names, name)
		}
	}
	return names
}

func isCoreColumn(name string) bool {
	return contains(coreColumns, name)
}

// rowColumns assembles the full column list for an upsert: core columns,
// the given promoted columns, then data and the class tag.
func rowColumns(extra []string) []string {
	cols := make([]string, 0, len(coreColumns)+len(extra)+2)
	cols = append(cols, coreColumns...)
	cols = append(cols, extra...)
	cols = append(cols, "data", classColumn)
	return cols
}

// upsertSQL builds the INSERT OR REPLACE statement for a column list.
// Replace semantics keep exactly one row per id.
func upsertSQL(cols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT OR REPLACE INTO filings (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders)
}

// rowValues renders a record into the upsert column list for its own
// schema's promoted columns.
func (c *Catalog) rowValues(f *filing.Filing, extra []string) ([]string, []any, error) {
	cols := rowColumns(extra)
	_, args, err := c.rowValuesFor(f, extra)
	return cols, args, err
}

// rowValuesFor renders a record against an arbitrary promoted-column set.
// Fields written to physical columns are excluded from data; core fields
// and the class tag are never part of data.
func (c *Catalog) rowValuesFor(f *filing.Filing, extra []string) ([]string, []any, error) {
	flat := f.ToMap()

	physical := func(name string) any {
		v, ok := flat[name]
		if !ok {
			return nil
		}
		delete(flat, name)
		return v
	}

	args := make([]any, 0, len(coreColumns)+len(extra)+2)
	for _, name := range coreColumns {
		args = append(args, physical(name))
	}
	for _, name := range extra {
		args = append(args, physical(name))
	}

	data, err := json.Marshal(flat)
	if err != nil {
		return nil, nil, fmt.Errorf("encode filing data for %q: %w", f.ID(), err)
	}
	args = append(args, string(data), f.Class())

	return rowColumns(extra), args, nil
}
