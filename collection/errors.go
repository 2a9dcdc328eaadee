package collection

import (
	"errors"
	"fmt"
)

// ErrMissingID is returned when a record handed to Add has no id.
var ErrMissingID = errors.New("filing id is required")

// ChecksumMismatchError reports content whose SHA-256 digest does not
// match the record's declared checksum. It is always surfaced to the
// caller and never retried.
type ChecksumMismatchError struct {
	ID       string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for filing %q: expected %s, got %s", e.ID, e.Expected, e.Actual)
}
