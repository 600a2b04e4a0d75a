package registry

import (
	"fmt"
	"slices"

	"github.com/roach88/cdcflow/internal/spec"
	"github.com/roach88/cdcflow/internal/sqltmpl"
)

// Entry is one rendered query in the registry.
type Entry struct {
	SQL            string
	Table          string // uppercase
	Range          spec.Range
	MaxValueColumn string

	// Source is the spec path that produced the entry. It is not persisted.
	Source string
}

// Registry maps sql_id to Entry.
type Registry struct {
	entries map[string]Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: map[string]Entry{}}
}

// Build renders one entry per range option of s.
func Build(s *spec.Spec) (*Registry, error) {
	reg := New()
	for _, r := range s.Range.Options {
		sql, err := sqltmpl.Render(s, r)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(SQLID(s.Table.Name, r), Entry{
			SQL:            sql,
			Table:          s.TableUpper(),
			Range:          r,
			MaxValueColumn: s.Table.CDCKey,
			Source:         s.Path,
		}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BuildAll renders the union of the registries of specs.
func BuildAll(specs []*spec.Spec) (*Registry, error) {
	reg := New()
	for _, s := range specs {
		part, err := Build(s)
		if err != nil {
			return nil, err
		}
		if err := reg.Merge(part); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Add inserts an entry. An existing id is a ConflictError.
func (r *Registry) Add(id string, e Entry) error {
	if prev, ok := r.entries[id]; ok {
		return &ConflictError{SQLID: id, First: prev.Source, Second: e.Source}
	}
	r.entries[id] = e
	return nil
}

// Merge adds every entry of other, in key order so the reported conflict is
// deterministic.
func (r *Registry) Merge(other *Registry) error {
	for _, id := range other.Keys() {
		if err := r.Add(id, other.entries[id]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Has reports whether id is present.
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Keys returns the ids in lexicographic byte order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Lookup returns the sql_id to SQL mapping projected into the lookup service.
func (r *Registry) Lookup() map[string]string {
	out := make(map[string]string, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.SQL
	}
	return out
}

// ConflictError reports two specs producing the same sql_id.
type ConflictError struct {
	SQLID  string
	First  string
	Second string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("registry conflict on %s: produced by %s and %s", e.SQLID, e.First, e.Second)
}
