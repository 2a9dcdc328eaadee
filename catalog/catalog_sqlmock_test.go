package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fino-data/filingstore/filing"
)

// mockCatalog wires a Catalog around a sqlmock connection with the fixed
// table columns pre-loaded, skipping Open's bootstrap.
func mockCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cols := map[string]struct{}{"data": {}, classColumn: {}}
	for _, name := range coreColumns {
		cols[name] = struct{}{}
	}
	return &Catalog{
		db:       db,
		resolver: filing.NewResolver(),
		logger:   zap.NewNop(),
		columns:  cols,
	}, mock
}

func TestIndexWriteFailure(t *testing.T) {
	c, mock := mockCatalog(t)
	f := newFiling(t, nil, nil)

	mock.ExpectExec("INSERT OR REPLACE INTO filings").
		WillReturnError(errors.New("disk I/O error"))

	err := c.Index(context.Background(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index filing")
	assert.Contains(t, err.Error(), f.ID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexBatchRollsBackOnFailure(t *testing.T) {
	c, mock := mockCatalog(t)
	a := newFiling(t, nil, nil)
	b := newFiling(t, nil, map[string]any{filing.FieldName: "other.xbrl"})

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT OR REPLACE INTO filings")
	mock.ExpectExec("INSERT OR REPLACE INTO filings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT OR REPLACE INTO filings").
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := c.IndexBatch(context.Background(), []*filing.Filing{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), b.ID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountQueryFailure(t *testing.T) {
	c, mock := mockCatalog(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM filings`).
		WillReturnError(errors.New("database is locked"))

	_, err := c.Count(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count filings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsQueryFailure(t *testing.T) {
	c, mock := mockCatalog(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(errors.New("database is locked"))

	_, err := c.Stats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchScanFailure(t *testing.T) {
	c, mock := mockCatalog(t)

	// A data payload that is not valid JSON poisons reconstruction.
	rows := sqlmock.NewRows([]string{"id", "source", "checksum", "name", "is_zip", "format", "created_at", "data", classColumn}).
		AddRow("abc", "edinet", "fff", "x.xbrl", false, "xbrl", "2024-01-01T00:00:00.000000000Z", "{not json", "filing.Filing")
	mock.ExpectQuery("SELECT \\* FROM filings").WillReturnRows(rows)

	_, err := c.Search(context.Background(), nil, SearchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode filing data")
	assert.NoError(t, mock.ExpectationsWereMet())
}
