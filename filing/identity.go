package filing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// idLength is the number of hex characters kept from the identity digest.
const idLength = 32

// ComputeID computes the deterministic identity of a record: the first 32
// hex characters of a SHA-256 digest over the schema's sorted identity
// fields, serialized as name=value pairs joined by "|", nil rendered as the
// empty string.
//
// The ID is a pure function of schema plus identity-field values: two
// records of the same schema with identical identity fields always share an
// ID, and a difference in any identity field (indexed or not) changes it.
// id, checksum and created_at never participate.
func ComputeID(schema *Schema, values map[string]any) string {
	names := schema.IdentityFields()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+identityString(values[name]))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:idLength]
}

// identityString renders one identity-field value in a stable textual form.
func identityString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return FormatTime(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
