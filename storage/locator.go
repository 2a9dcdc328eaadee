package storage

import (
	"errors"
	"fmt"

	"github.com/fino-data/filingstore/filing"
)

// ErrNilFiling is returned when the locator is asked to resolve nothing.
var ErrNilFiling = errors.New("locator: nil filing")

// Placeholder tokens keep the resolved key valid even for degenerate
// records with an empty source or id.
const (
	placeholderSource = "unknown_source"
	placeholderID     = "unknown_id"
	defaultExtension  = ".dat"
)

// Locator maps filing metadata to a storage key. It is a pure function of
// the record's metadata; it never reads content or touches the filesystem.
type Locator struct{}

// Resolve returns the storage key for a filing:
//
//	{source}/{id}{ext}
//
// The extension is ".zip" whenever is_zip is set; is_zip wins over
// format. Otherwise ".{format}" is used when format is non-empty and
// contains only alphanumerics, "-" and "_"; anything else falls back to
// ".dat". Empty source or id are replaced by placeholder tokens.
func (Locator) Resolve(f *filing.Filing) (string, error) {
	if f == nil {
		return "", ErrNilFiling
	}

	source := f.Source()
	if source == "" {
		source = placeholderSource
	}
	id := f.ID()
	if id == "" {
		id = placeholderID
	}

	return fmt.Sprintf("%s/%s%s", source, id, extensionFor(f)), nil
}

func extensionFor(f *filing.Filing) string {
	if f.IsZip() {
		return ".zip"
	}
	if format := f.Format(); format != "" && validFormat(format) {
		return "." + format
	}
	return defaultExtension
}

// validFormat whitelists extension-safe format strings.
func validFormat(format string) bool {
	for _, r := range format {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
