// Package catalog implements the persistent filing index: one SQLite row
// per record, with indexed fields promoted to physical columns on demand
// and everything else carried in a JSON data column. The catalog does not
// interpret field meaning; it stores, queries and reconstructs.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/fino-data/filingstore/catalog/query"
	"github.com/fino-data/filingstore/filing"
)

// classColumn tags each row with the fully-qualified schema name the
// record was indexed as. It never appears inside data.
const classColumn = "_filing_class"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS filings (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	checksum TEXT NOT NULL,
	name TEXT NOT NULL,
	is_zip BOOLEAN NOT NULL,
	format TEXT NOT NULL,
	created_at TEXT NOT NULL,
	data TEXT NOT NULL,
	_filing_class TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_filings_source ON filings(source);
CREATE INDEX IF NOT EXISTS idx_filings_checksum ON filings(checksum);
CREATE INDEX IF NOT EXISTS idx_filings_name ON filings(name);
CREATE INDEX IF NOT EXISTS idx_filings_is_zip ON filings(is_zip);
CREATE INDEX IF NOT EXISTS idx_filings_format ON filings(format);
CREATE INDEX IF NOT EXISTS idx_filings_created_at ON filings(created_at);
CREATE INDEX IF NOT EXISTS idx_filings_filing_class ON filings(_filing_class);
`

// Catalog is a SQLite-backed filing index. It assumes a single writer
// process; writes are serialized on an internal mutex and the connection
// pool is limited to one connection, so a read issued after a write on the
// same Catalog always observes it.
type Catalog struct {
	db       *sql.DB
	resolver *filing.Resolver
	logger   *zap.Logger

	mu      sync.Mutex
	columns map[string]struct{}
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// Open creates or opens a catalog database at path (":memory:" for an
// in-process ephemeral catalog). The resolver reconstructs concrete record
// types from their class tag; pass filing.NewResolver() when only base
// records are needed.
func Open(path string, resolver *filing.Resolver, opts ...Option) (*Catalog, error) {
	if resolver == nil {
		resolver = filing.NewResolver()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to catalog database: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY and makes write-then-read ordering trivial.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	c := &Catalog{
		db:       db,
		resolver: resolver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.loadColumns(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Resolver returns the resolver used for record reconstruction.
func (c *Catalog) Resolver() *filing.Resolver {
	return c.resolver
}

// Index validates and upserts one record. Indexing an id that already has
// a row replaces the row; rows are never duplicated.
//
// Any field the record's schema marks as indexed is promoted to a physical
// column (with a secondary index) before the write. Column existence is
// monotonic: once promoted, a column is never removed.
func (c *Catalog) Index(ctx context.Context, f *filing.Filing) error {
	if err := checkCore(f); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureColumns(f.Schema()); err != nil {
		return err
	}

	cols, args, err := c.rowValues(f, extraIndexed(f.Schema()))
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, upsertSQL(cols), args...); err != nil {
		return fmt.Errorf("index filing %q: %w", f.ID(), err)
	}

	c.logger.Debug("indexed filing",
		zap.String("id", f.ID()),
		zap.String("class", f.Class()))
	return nil
}

// IndexBatch upserts many records in one transaction. Columns are ensured
// once for every distinct schema present, then all rows are written against
// the unioned column set; a record that lacks a column gets NULL.
func (c *Catalog) IndexBatch(ctx context.Context, fs []*filing.Filing) error {
	if len(fs) == 0 {
		return nil
	}
	for _, f := range fs {
		if err := checkCore(f); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var union []string
	for _, f := range fs {
		s := f.Schema()
		if seen[s.Name()] {
			continue
		}
		seen[s.Name()] = true
		if err := c.ensureColumns(s); err != nil {
			return err
		}
		for _, name := range extraIndexed(s) {
			if !contains(union, name) {
				union = append(union, name)
			}
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch index: %w", err)
	}
	defer tx.Rollback()

	cols := rowColumns(union)
	stmt, err := tx.PrepareContext(ctx, upsertSQL(cols))
	if err != nil {
		return fmt.Errorf("prepare batch upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range fs {
		_, args, err := c.rowValuesFor(f, union)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("index filing %q: %w", f.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch index: %w", err)
	}

	c.logger.Debug("indexed filing batch", zap.Int("count", len(fs)))
	return nil
}

// Get fetches the record stored under id, reconstructed as the concrete
// type it was indexed as; the base type is the fallback when the class tag
// does not resolve. Returns nil without error when absent.
func (c *Catalog) Get(ctx context.Context, id string) (*filing.Filing, error) {
	flat, class, err := c.fetch(ctx, id)
	if err != nil || flat == nil {
		return nil, err
	}
	return c.restore(flat, class)
}

// GetRaw fetches the stored flat field map for id without reconstructing a
// record. Returns nil without error when absent.
func (c *Catalog) GetRaw(ctx context.Context, id string) (map[string]any, error) {
	flat, _, err := c.fetch(ctx, id)
	return flat, err
}

// SearchOptions control result shaping. The zero value means: limit 100,
// no offset, order by created_at descending.
type SearchOptions struct {
	Limit   int
	Offset  int
	OrderBy string
	Desc    bool
}

// Search returns records matching pred (nil matches all), reconstructed
// via the resolver. OrderBy binds to a physical column when one exists
// with that name, otherwise to a json path into data.
func (c *Catalog) Search(ctx context.Context, pred query.Expr, opts SearchOptions) ([]*filing.Filing, error) {
	where, params, err := query.Compile(pred, c.physicalColumns())
	if err != nil {
		return nil, fmt.Errorf("compile search predicate: %w", err)
	}

	orderBy := opts.OrderBy
	desc := opts.Desc
	if orderBy == "" {
		orderBy = filing.FieldCreatedAt
		desc = true
	}
	orderRef, err := c.orderRef(orderBy)
	if err != nil {
		return nil, err
	}
	direction := "ASC"
	if desc {
		direction = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	sqlText := "SELECT * FROM filings"
	if where != "" {
		sqlText += " WHERE " + where
	}
	// id is the deterministic tiebreaker so paging is stable.
	sqlText += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", orderRef, direction)
	params = append(params, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("search filings: %w", err)
	}
	defer rows.Close()

	var results []*filing.Filing
	for rows.Next() {
		flat, class, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		f, err := c.restore(flat, class)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// Count returns the number of rows matching pred (nil matches all).
func (c *Catalog) Count(ctx context.Context, pred query.Expr) (int64, error) {
	where, params, err := query.Compile(pred, c.physicalColumns())
	if err != nil {
		return 0, fmt.Errorf("compile count predicate: %w", err)
	}

	sqlText := "SELECT COUNT(*) FROM filings"
	if where != "" {
		sqlText += " WHERE " + where
	}

	var n int64
	if err := c.db.QueryRowContext(ctx, sqlText, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count filings: %w", err)
	}
	return n, nil
}

// Stats summarizes the catalog contents.
type Stats struct {
	Filings  int64
	Sources  int64
	OldestAt string
	NewestAt string
}

// Stats returns row count, distinct source count and the creation-time
// range. OldestAt/NewestAt are canonical timestamp text, empty when the
// catalog is empty.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var oldest, newest sql.NullString
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT source), MIN(created_at), MAX(created_at) FROM filings",
	).Scan(&s.Filings, &s.Sources, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	s.OldestAt = oldest.String
	s.NewestAt = newest.String
	return s, nil
}

// Clear deletes every row. Promoted columns remain; column existence is
// monotonic.
func (c *Catalog) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, "DELETE FROM filings"); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	return nil
}

// checkCore verifies the core fields an index operation depends on.
func checkCore(f *filing.Filing) error {
	var missing []string
	for _, name := range []string{filing.FieldID, filing.FieldSource, filing.FieldChecksum, filing.FieldName, filing.FieldFormat} {
		if s, _ := f.Get(name).(string); s == "" {
			missing = append(missing, name)
		}
	}
	if f.Get(filing.FieldIsZip) == nil {
		missing = append(missing, filing.FieldIsZip)
	}
	if f.CreatedAt().IsZero() {
		missing = append(missing, filing.FieldCreatedAt)
	}
	if len(missing) > 0 {
		return &RequiredValueError{ID: f.ID(), Fields: missing}
	}
	return nil
}

// restore rebuilds a record from its flat map and class tag, falling back
// to the base schema when the class is not registered.
func (c *Catalog) restore(flat map[string]any, class string) (*filing.Filing, error) {
	schema, ok := c.resolver.Resolve(class)
	if !ok {
		c.logger.Debug("unresolved filing class, falling back to base schema",
			zap.String("class", class))
		schema = filing.BaseSchema()
	}
	f, err := filing.FromMap(schema, flat)
	if err != nil {
		return nil, fmt.Errorf("restore filing as %s: %w", schema.Name(), err)
	}
	return f, nil
}

// fetch reads the row for id into a flat field map plus its class tag.
func (c *Catalog) fetch(ctx context.Context, id string) (map[string]any, string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT * FROM filings WHERE id = ?", id)
	if err != nil {
		return nil, "", fmt.Errorf("get filing %q: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, "", rows.Err()
	}
	flat, class, err := scanRow(rows)
	if err != nil {
		return nil, "", err
	}
	return flat, class, rows.Err()
}

// scanRow reads one result row into a flat field map: the JSON data column
// first, then physical column values on top. data and the class tag never
// leak into the map.
func scanRow(rows *sql.Rows) (map[string]any, string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, "", err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, "", fmt.Errorf("scan filing row: %w", err)
	}

	flat := make(map[string]any)
	var class string
	for i, col := range cols {
		switch col {
		case "data":
			raw, ok := values[i].([]byte)
			if !ok {
				if s, sok := values[i].(string); sok {
					raw = []byte(s)
				}
			}
			if len(raw) > 0 {
				var data map[string]any
				if err := json.Unmarshal(raw, &data); err != nil {
					return nil, "", fmt.Errorf("decode filing data: %w", err)
				}
				for k, v := range data {
					if _, exists := flat[k]; !exists {
						flat[k] = v
					}
				}
			}
		case classColumn:
			class, _ = values[i].(string)
		default:
			if values[i] == nil {
				continue
			}
			if b, ok := values[i].([]byte); ok {
				flat[col] = string(b)
				continue
			}
			flat[col] = values[i]
		}
	}
	return flat, class, nil
}

// contains reports whether names holds name.
func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
