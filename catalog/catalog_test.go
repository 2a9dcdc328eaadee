package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fino-data/filingstore/catalog/query"
	"github.com/fino-data/filingstore/filing"
)

var stockSchema = filing.MustSchema("test.StockFiling", filing.BaseSchema(),
	filing.Field{Name: "ticker", Kind: filing.KindString, Indexed: true},
	filing.Field{Name: "fiscal_year", Kind: filing.KindInt, Indexed: true},
	filing.Field{Name: "notes", Kind: filing.KindString},
)

func openTestCatalog(t *testing.T, resolver *filing.Resolver) *Catalog {
	t.Helper()
	c, err := Open(":memory:", resolver)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func checksumOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func newFiling(t *testing.T, schema *filing.Schema, overrides map[string]any) *filing.Filing {
	t.Helper()
	values := map[string]any{
		filing.FieldSource:   "edinet",
		filing.FieldChecksum: checksumOf("content"),
		filing.FieldName:     "report.xbrl",
		filing.FieldIsZip:    false,
		filing.FieldFormat:   "xbrl",
	}
	for k, v := range overrides {
		values[k] = v
	}
	f, err := filing.New(schema, values)
	require.NoError(t, err)
	return f
}

func TestIndexGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t, nil)

	f := newFiling(t, nil, nil)
	require.NoError(t, c.Index(ctx, f))

	got, err := c.Get(ctx, f.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, f.Equal(got))
	assert.True(t, f.CreatedAt().Equal(got.CreatedAt()))
}

func TestGetAbsent(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t, nil)

	got, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	raw, err := c.GetRaw(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestIndexIsUpsert(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t, nil)

	f := newFiling(t, nil, nil)
	require.NoError(t, c.Index(ctx, f))

	// Same identity, corrected checksum: one row, latest values.
	require.NoError(t, f.Set(filing.FieldChecksum, checksumOf("corrected")))
	require.NoError(t, c.Index(ctx, f))

	n, err := c.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := c.Get(ctx, f.ID())
	require.NoError(t, err)
	assert.Equal(t, checksumOf("corrected"), got.Checksum())
}

func TestIndexRejectsEmptyCoreValues(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t, nil)

	f := newFiling(t, nil, nil)
	require.NoError(t, f.Set(filing.FieldChecksum, ""))

	err := c.Index(ctx, f)
	var rve *RequiredValueError
	require.ErrorAs(t, err, &rve)
	assert.Equal(t, []string{filing.FieldChecksum}, rve.Fields)

	n, err := c.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexedFieldPromotion(t *testing.T) {
	ctx := context.Background()
	resolver := filing.NewResolver()
	require.NoError(t, resolver.Register(stockSchema))
	c := openTestCatalog(t, resolver)

	assert.False(t, c.physicalColumns().Has("ticker"))

	f := newFiling(t, stockSchema, map[string]any{
		"ticker":      "7203",
		"fiscal_year": 2024,
		"notes":       "toyota",
	})
	require.NoError(t, c.Index(ctx, f))

	// Indexed fields become physical columns; undeclared-for-index
	// fields stay in the data payload.
	cols := c.physicalColumns()
	assert.True(t, cols.Has("ticker"))
	assert.True(t, cols.Has("fiscal_year"))
	assert.False(t, cols.Has("notes"))

	got, err := c.Get(ctx, f.ID())
	require.NoError(t, err)
	assert.Equal(t, "7203", got.Get("ticker"))
	assert.Equal(t, int64(2024), got.Get("fiscal_year"))
	assert.Equal(t, "toyota", got.Get("notes"))

	// The promoted column is immediately usable as an ordering target.
	g := newFiling(t, stockSchema, map[string]any{
		"ticker":      "6758",
		"fiscal_year": 2023,
	})
	require.NoError(t, c.Index(ctx, g))

	results, err := c.Search(ctx, nil, SearchOptions{OrderBy: "ticker"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "6758", results[0].Get("ticker"))
	assert.Equal(t, "7203", results[1].Get("ticker"))
}

func TestColumnsSurviveAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/catalog.db"
	resolver := filing.NewResolver()
	require.NoError(t, resolver.Register(stockSchema))

	c, err := Open(path, resolver)
	require.NoError(t, err)
	f := newFiling(t, stockSchema, map[string]any{"ticker": "7203", "fiscal_year": 2024})
	require.NoError(t, c.Index(ctx, f))
	require.NoError(t, c.Close())

	// Promotion is monotonic: a fresh handle sees the column and can
	// query it as physical immediately.
	c, err = Open(path, resolver)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.physicalColumns().Has("ticker"))

	results, err := c.Search(ctx, query.F("ticker").Eq("7203"), SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, f.ID(), results[0].ID())
}

func TestPolymorphicRestore(t *testing.T) {
	ctx := context.Background()
	resolver := filing.NewResolver()
	require.NoError(t, resolver.Register(stockSchema))
	c := openTestCatalog(t, resolver)

	f := newFiling(t, stockSchema, map[string]any{"ticker": "7203"})
	require.NoError(t, c.Index(ctx, f))

	got, err := c.Get(ctx, f.ID())
	require.NoError(t, err)
	assert.Equal(t, "test.StockFiling", got.Class())
	assert.Same(t, stockSchema, got.Schema())
}

func TestRestoreFallsBackToBase(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/catalog.db"

	writer := filing.NewResolver()
	require.NoError(t, writer.Register(stockSchema))
	c, err := Open(path, writer)
	require.NoError(t, err)
	f := newFiling(t, stockSchema, map[string]any{"ticker": "7203", "notes": "toyota"})
	require.NoError(t, c.Index(ctx, f))
	require.NoError(t, c.Close())

	// A reader without the subtype registered still gets the record,
	// base-typed, with every field value preserved.
	c, err = Open(path, filing.NewResolver())
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(ctx, f.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "filing.Filing", got.Class())
	assert.Equal(t, "7203", got.Get("ticker"))
	assert.Equal(t, "toyota", got.Get("notes"))
	assert.Equal(t, f.ID(), got.ID())
}

func TestIndexBatchMixedSchemas(t *testing.T) {
	ctx := context.Background()
	resolver := filing.NewResolver()
	require.NoError(t, resolver.Register(stockSchema))
	c := openTestCatalog(t, resolver)

	fs := []*filing.Filing{
		newFiling(t, nil, map[string]any{filing.FieldName: "plain.pdf", filing.FieldFormat: "pdf"}),
		newFiling(t, stockSchema, map[string]any{"ticker": "7203", "fiscal_year": 2024}),
		newFiling(t, stockSchema, map[string]any{"ticker": "6758", "fiscal_year": 2023}),
	}
	require.NoError(t, c.IndexBatch(ctx, fs))

	n, err := c.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// The base record has NULL in the promoted columns, not a value.
	results, err := c.Search(ctx, query.F("ticker").IsNull(), SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "plain.pdf", results[0].Name())

	require.NoError(t, c.IndexBatch(ctx, nil))
}

func TestSearchOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t, nil)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		f := newFiling(t, nil, map[string]any{
			filing.FieldName:      "report_" + string(rune('a'+i)) + ".xbrl",
			filing.FieldCreatedAt: base.AddDate(0, 0, i),
		})
		require.NoError(t, c.Index(ctx, f))
	}

	// Default order: newest first.
	results, err := c.Search(ctx, nil, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, "report_e.xbrl", results[0].Name())
	assert.Equal(t, "report_a.xbrl", results[4].Name())

	// Explicit ascending order with paging.
	page, err := c.Search(ctx, nil, SearchOptions{OrderBy: filing.FieldName, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "report_c.xbrl", page[0].Name())
	assert.Equal(t, "report_d.xbrl", page[1].Name())
}

func TestSearchPredicates(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t, nil)

	seed := []struct {
		source, name, format string
		zip                  bool
	}{
		{"edinet", "annual_report.xbrl", "xbrl", false},
		{"edinet", "quarterly_report.xbrl", "xbrl", false},
		{"edgar", "10-K.html", "html", false},
		{"edgar", "bundle.zip", "zip", true},
	}
	for _, s := range seed {
		f := newFiling(t, nil, map[string]any{
			filing.FieldSource: s.source,
			filing.FieldName:   s.name,
			filing.FieldFormat: s.format,
			filing.FieldIsZip:  s.zip,
		})
		require.NoError(t, c.Index(ctx, f))
	}

	results, err := c.Search(ctx, query.And(
		query.F(filing.FieldSource).Eq("edinet"),
		query.F(filing.FieldName).Contains("annual"),
	), SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "annual_report.xbrl", results[0].Name())

	n, err := c.Count(ctx, query.F(filing.FieldSource).Eq("edgar"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Count(ctx, query.Not(query.F(filing.FieldIsZip).Eq(true)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStatsAndClear(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t, nil)

	empty, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Filings)
	assert.Empty(t, empty.OldestAt)

	oldest := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	newest := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Index(ctx, newFiling(t, nil, map[string]any{
		filing.FieldCreatedAt: oldest,
	})))
	require.NoError(t, c.Index(ctx, newFiling(t, nil, map[string]any{
		filing.FieldSource:    "edgar",
		filing.FieldName:      "10-K.html",
		filing.FieldFormat:    "html",
		filing.FieldCreatedAt: newest,
	})))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Filings)
	assert.Equal(t, int64(2), stats.Sources)
	assert.Equal(t, filing.FormatTime(oldest), stats.OldestAt)
	assert.Equal(t, filing.FormatTime(newest), stats.NewestAt)

	require.NoError(t, c.Clear(ctx))
	n, err := c.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
