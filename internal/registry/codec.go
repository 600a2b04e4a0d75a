package registry

import (
	"fmt"
	"slices"

	"github.com/roach88/cdcflow/internal/canonical"
	"github.com/roach88/cdcflow/internal/spec"
)

// Persisted entry field names.
const (
	fieldSQL            = "sql"
	fieldTable          = "table"
	fieldRange          = "range"
	fieldMaxValueColumn = "max_value_column"
)

var entryFields = []string{fieldMaxValueColumn, fieldRange, fieldSQL, fieldTable}

// Marshal emits the registry as canonical JSON: keys sorted, two-space
// indent, LF line endings and a trailing newline.
func Marshal(r *Registry) ([]byte, error) {
	root := make(canonical.Object, len(r.entries))
	for id, e := range r.entries {
		root[id] = canonical.FromStrings(map[string]string{
			fieldSQL:            e.SQL,
			fieldTable:          e.Table,
			fieldRange:          string(e.Range),
			fieldMaxValueColumn: e.MaxValueColumn,
		})
	}
	return canonical.Marshal(root)
}

// Parse reads a persisted registry. Every entry must carry exactly the four
// string fields. sql_id shape is not checked here; the verifier reports it.
func Parse(data []byte) (*Registry, error) {
	v, err := canonical.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	root, ok := v.(canonical.Object)
	if !ok {
		return nil, fmt.Errorf("parse registry: top-level value must be an object")
	}

	reg := New()
	for _, id := range root.SortedKeys() {
		obj, ok := root[id].(canonical.Object)
		if !ok {
			return nil, fmt.Errorf("parse registry: entry %s must be an object", id)
		}
		if keys := obj.SortedKeys(); !slices.Equal(keys, entryFields) {
			return nil, fmt.Errorf("parse registry: entry %s has fields %v, want %v", id, keys, entryFields)
		}
		fields := make(map[string]string, len(entryFields))
		for _, name := range entryFields {
			s, ok := obj.StringField(name)
			if !ok {
				return nil, fmt.Errorf("parse registry: entry %s field %s must be a string", id, name)
			}
			fields[name] = s
		}
		reg.entries[id] = Entry{
			SQL:            fields[fieldSQL],
			Table:          fields[fieldTable],
			Range:          spec.Range(fields[fieldRange]),
			MaxValueColumn: fields[fieldMaxValueColumn],
		}
	}
	return reg, nil
}
