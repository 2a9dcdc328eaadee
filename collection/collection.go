// Package collection composes storage, locator and catalog into the
// filing facade: add under checksum and identity invariants, get and
// search with content access.
package collection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fino-data/filingstore/catalog"
	"github.com/fino-data/filingstore/catalog/query"
	"github.com/fino-data/filingstore/filing"
	"github.com/fino-data/filingstore/storage"
)

// DefaultDir is the collection directory used when none is configured.
const DefaultDir = ".filingstore"

// CatalogFile is the catalog database filename inside the collection
// directory.
const CatalogFile = "catalog.db"

// Collection is the filing facade. Storage write and catalog index are two
// separate, non-transactional steps ordered write-then-index: a crash in
// between leaves content without an index entry, recoverable because the
// record id is deterministic.
type Collection struct {
	storage *storage.Local
	catalog *catalog.Catalog
	locator storage.Locator
	logger  *zap.Logger
}

// Options configure a Collection.
type Options struct {
	// Dir is the collection directory used to build the default storage
	// and catalog when they are not supplied. Defaults to DefaultDir.
	Dir string

	// Storage overrides the default local store.
	Storage *storage.Local

	// Catalog overrides the default catalog.
	Catalog *catalog.Catalog

	// Resolver is used by the default catalog; ignored when Catalog is
	// set.
	Resolver *filing.Resolver

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// New creates a collection. With zero options everything lives under
// ./.filingstore: content as files, the catalog as catalog.db.
func New(opts Options) (*Collection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}

	store := opts.Storage
	if store == nil {
		var err error
		store, err = storage.NewLocal(dir, storage.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("default storage: %w", err)
		}
		logger.Info("using default collection directory", zap.String("dir", store.BaseDir()))
	}

	cat := opts.Catalog
	if cat == nil {
		var err error
		cat, err = catalog.Open(
			filepath.Join(store.BaseDir(), CatalogFile),
			opts.Resolver,
			catalog.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("default catalog: %w", err)
		}
	}

	return &Collection{
		storage: store,
		catalog: cat,
		logger:  logger,
	}, nil
}

// Catalog exposes the underlying catalog.
func (c *Collection) Catalog() *catalog.Catalog {
	return c.catalog
}

// Storage exposes the underlying store.
func (c *Collection) Storage() *storage.Local {
	return c.storage
}

// Close closes the catalog connection.
func (c *Collection) Close() error {
	return c.catalog.Close()
}

// Add verifies and stores one filing with its content.
//
// The SHA-256 digest of content must equal the record's checksum field; a
// mismatch fails before any side effect. Content is written at the
// locator-resolved key, overwriting any previous content for the same key
// (idempotent replace). The record is indexed only when the catalog has no
// row for its id yet; a duplicate id skips cataloging with a warning but
// still overwrites storage.
//
// Returns the record and the absolute path written.
func (c *Collection) Add(ctx context.Context, f *filing.Filing, content []byte) (*filing.Filing, string, error) {
	sum := sha256.Sum256(content)
	actual := hex.EncodeToString(sum[:])
	if actual != f.Checksum() {
		return nil, "", &ChecksumMismatchError{ID: f.ID(), Expected: f.Checksum(), Actual: actual}
	}
	if f.ID() == "" {
		return nil, "", ErrMissingID
	}

	key, err := c.locator.Resolve(f)
	if err != nil {
		return nil, "", fmt.Errorf("resolve storage key for %q: %w", f.ID(), err)
	}

	path, err := c.storage.Save(content, key)
	if err != nil {
		return nil, "", fmt.Errorf("store content for %q: %w", f.ID(), err)
	}

	existing, err := c.catalog.GetRaw(ctx, f.ID())
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		c.logger.Warn("filing already cataloged, skipping index",
			zap.String("id", f.ID()),
			zap.String("path", path))
		return f, path, nil
	}

	if err := c.catalog.Index(ctx, f); err != nil {
		return nil, "", err
	}

	c.logger.Info("added filing",
		zap.String("id", f.ID()),
		zap.String("source", f.Source()),
		zap.String("path", path))
	return f, path, nil
}

// Get returns the record, its content and its absolute path. All three are
// zero when the id is not cataloged.
func (c *Collection) Get(ctx context.Context, id string) (*filing.Filing, []byte, string, error) {
	f, err := c.catalog.Get(ctx, id)
	if err != nil || f == nil {
		return nil, nil, "", err
	}

	key, err := c.locator.Resolve(f)
	if err != nil {
		return nil, nil, "", fmt.Errorf("resolve storage key for %q: %w", id, err)
	}
	content, err := c.storage.Load(key)
	if err != nil {
		return nil, nil, "", err
	}
	path, err := c.storage.Path(key)
	if err != nil {
		return nil, nil, "", err
	}
	return f, content, path, nil
}

// GetFiling returns only the reconstructed record, nil when absent.
func (c *Collection) GetFiling(ctx context.Context, id string) (*filing.Filing, error) {
	return c.catalog.Get(ctx, id)
}

// GetContent returns only the stored content, nil when absent.
func (c *Collection) GetContent(ctx context.Context, id string) ([]byte, error) {
	f, err := c.catalog.Get(ctx, id)
	if err != nil || f == nil {
		return nil, err
	}
	key, err := c.locator.Resolve(f)
	if err != nil {
		return nil, err
	}
	return c.storage.Load(key)
}

// GetPath returns the absolute storage path for id, empty when absent.
func (c *Collection) GetPath(ctx context.Context, id string) (string, error) {
	f, err := c.catalog.Get(ctx, id)
	if err != nil || f == nil {
		return "", err
	}
	key, err := c.locator.Resolve(f)
	if err != nil {
		return "", err
	}
	return c.storage.Path(key)
}

// Search delegates to the catalog.
func (c *Collection) Search(ctx context.Context, pred query.Expr, opts catalog.SearchOptions) ([]*filing.Filing, error) {
	return c.catalog.Search(ctx, pred, opts)
}

// Count delegates to the catalog.
func (c *Collection) Count(ctx context.Context, pred query.Expr) (int64, error) {
	return c.catalog.Count(ctx, pred)
}

// Stats delegates to the catalog.
func (c *Collection) Stats(ctx context.Context) (catalog.Stats, error) {
	return c.catalog.Stats(ctx)
}
