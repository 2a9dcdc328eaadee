package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save([]byte("hello"), "edinet/abc.xbrl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BaseDir(), "edinet", "abc.xbrl"), path)

	content, err := s.Load("edinet/abc.xbrl")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
	assert.True(t, s.Exists("edinet/abc.xbrl"))
}

func TestSaveCreatesNestedDirectories(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save([]byte("x"), "a/b/c/d.dat")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save([]byte("v1"), "k.dat")
	require.NoError(t, err)
	_, err = s.Save([]byte("v2"), "k.dat")
	require.NoError(t, err)

	content, err := s.Load("k.dat")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), content)

	// No temp files are left behind.
	entries, err := os.ReadDir(s.BaseDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.dat", entries[0].Name())
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load("nope.dat")
	assert.Error(t, err)
	assert.False(t, s.Exists("nope.dat"))
}

func TestKeySanitization(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"absolute", "/etc/passwd"},
		{"parent segment", "../outside.dat"},
		{"nested parent segment", "a/../../outside.dat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pve *PathViolationError

			_, err := s.Save([]byte("x"), tt.key)
			require.ErrorAs(t, err, &pve)
			assert.Equal(t, tt.key, pve.Key)

			_, err = s.Load(tt.key)
			assert.ErrorAs(t, err, &pve)
			_, err = s.Path(tt.key)
			assert.ErrorAs(t, err, &pve)
			assert.False(t, s.Exists(tt.key))
		})
	}
}

func TestPathDoesNotTouchFilesystem(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Path("edinet/future.xbrl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BaseDir(), "edinet", "future.xbrl"), path)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
