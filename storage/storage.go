// Package storage provides a content store confined to a base directory,
// plus the Locator that maps filing metadata to storage keys. Keys are
// relative slash-separated paths; every key is sanitized before it touches
// the filesystem, and no caller-supplied key can escape the base directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PathViolationError reports a storage key rejected by sanitization:
// empty, absolute, containing a parent-directory segment, or resolving
// outside the base directory. These are always fatal, never corrected.
type PathViolationError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *PathViolationError) Error() string {
	return fmt.Sprintf("storage key %q rejected: %s", e.Key, e.Reason)
}

// Local stores content as files under a base directory.
type Local struct {
	baseDir string
	logger  *zap.Logger
}

// Option configures a Local store.
type Option func(*Local)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Local) { s.logger = l }
}

// NewLocal creates a store rooted at baseDir, creating the directory if
// needed.
func NewLocal(baseDir string, opts ...Option) (*Local, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	s := &Local{baseDir: abs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseDir returns the absolute base directory.
func (s *Local) BaseDir() string {
	return s.baseDir
}

// Path resolves a key to its absolute path without touching the
// filesystem. The key is sanitized.
func (s *Local) Path(key string) (string, error) {
	return s.sanitize(key)
}

// Save writes content at key, creating parent directories as needed and
// overwriting any existing file. The write is atomic: content goes to a
// temp file in the target directory first, then renamed into place.
// Returns the absolute path written.
func (s *Local) Save(content []byte, key string) (string, error) {
	abs, err := s.sanitize(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %q: %w", key, err)
	}

	tmp := abs + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", key, err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize %q: %w", key, err)
	}

	s.logger.Debug("saved content",
		zap.String("key", key),
		zap.Int("bytes", len(content)))
	return abs, nil
}

// Load reads the content stored at the given relative path.
func (s *Local) Load(key string) ([]byte, error) {
	abs, err := s.sanitize(key)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return content, nil
}

// Exists reports whether content is stored at key. An invalid key reports
// false.
func (s *Local) Exists(key string) bool {
	abs, err := s.sanitize(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// sanitize validates a storage key and resolves it to an absolute path
// inside the base directory.
func (s *Local) sanitize(key string) (string, error) {
	if key == "" {
		return "", &PathViolationError{Key: key, Reason: "empty key"}
	}
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return "", &PathViolationError{Key: key, Reason: "absolute path"}
	}
	for _, segment := range strings.Split(filepath.ToSlash(key), "/") {
		if segment == ".." {
			return "", &PathViolationError{Key: key, Reason: "parent-directory segment"}
		}
	}

	abs := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if abs != s.baseDir && !strings.HasPrefix(abs, s.baseDir+string(filepath.Separator)) {
		return "", &PathViolationError{Key: key, Reason: "resolves outside base directory"}
	}
	return abs, nil
}
