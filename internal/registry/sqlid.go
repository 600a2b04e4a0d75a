package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/cdcflow/internal/spec"
)

// Dialect is the leading segment of every sql_id.
const Dialect = "oracle"

const family = "cdc"

var sqlIDPattern = regexp.MustCompile(`^` + Dialect + `\.` + family + `\.([a-z0-9_$#]+)\.([0-9]+m)$`)

// SQLID returns the canonical id oracle.cdc.<table_lower>.<range>.
func SQLID(table string, r spec.Range) string {
	return Dialect + "." + family + "." + strings.ToLower(table) + "." + string(r)
}

// ParseSQLID decodes an id into its uppercased table and range segments.
func ParseSQLID(id string) (table string, r spec.Range, err error) {
	m := sqlIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", "", fmt.Errorf("malformed sql_id %q: want %s.%s.<table>.<N>m", id, Dialect, family)
	}
	return strings.ToUpper(m[1]), spec.Range(m[2]), nil
}

// IsSQLIDShaped reports whether key looks like a sql_id.
// The flow projector owns every such key in the lookup service.
func IsSQLIDShaped(key string) bool {
	return sqlIDPattern.MatchString(key)
}
