package catalog

import (
	"fmt"
	"strings"
)

// RequiredValueError reports core fields that were absent or empty when a
// record was handed to Index.
type RequiredValueError struct {
	ID     string
	Fields []string
}

// Error implements the error interface.
func (e *RequiredValueError) Error() string {
	return fmt.Sprintf("cannot index filing %q: required core fields missing or empty: %s",
		e.ID, strings.Join(e.Fields, ", "))
}
