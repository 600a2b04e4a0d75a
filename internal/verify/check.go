package verify

import (
	"errors"
	"fmt"

	"github.com/roach88/cdcflow/internal/canonical"
	"github.com/roach88/cdcflow/internal/flow"
	"github.com/roach88/cdcflow/internal/registry"
	"github.com/roach88/cdcflow/internal/spec"
	"github.com/roach88/cdcflow/internal/sqltmpl"
)

// Check runs every check over src and returns the report.
func Check(src *Sources) *Report {
	c := &checker{report: &Report{}, byTable: map[string]*spec.Spec{}}
	c.specs(src)
	reg := c.registry(src)
	doc := c.flow(src)
	if reg != nil && doc != nil {
		c.lookup(reg, doc)
	}
	if doc != nil {
		c.topology(doc)
		c.properties(reg, doc)
	}
	return c.report
}

type checker struct {
	report  *Report
	valid   []*spec.Spec
	byTable map[string]*spec.Spec // keyed by uppercase table name
	partial bool                  // a spec failed to load
}

// specs records spec failures and indexes the valid specs.
func (c *checker) specs(src *Sources) {
	for _, err := range src.SpecErrors {
		c.partial = true
		var serr *spec.Error
		if errors.As(err, &serr) {
			invariant := InvariantSpec
			if serr.Rule == spec.RuleIDField {
				invariant = InvariantIDField
			}
			c.report.add(invariant, serr.Path, "%s", describe(serr))
			continue
		}
		c.report.add(InvariantSpec, "specs", "%v", err)
	}

	for _, s := range src.Specs {
		key := s.TableUpper()
		if prev, ok := c.byTable[key]; ok {
			c.report.add(InvariantSpec, s.Path, "table %s is already specified by %s", key, prev.Path)
			continue
		}
		c.byTable[key] = s
		c.valid = append(c.valid, s)
	}
}

func describe(e *spec.Error) string {
	msg := e.Message
	if e.Pos.IsValid() {
		msg = fmt.Sprintf("line %d: %s", e.Pos.Line(), msg)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Field, e.Rule, msg)
	}
	return fmt.Sprintf("%v: %s", e.Kind, msg)
}

// registry parses the registry and checks coverage, orphans and entries.
func (c *checker) registry(src *Sources) *registry.Registry {
	if src.Registry == nil {
		c.report.add(InvariantCoverage, src.RegistryPath, "registry file does not exist")
		return nil
	}
	reg, err := registry.Parse(src.Registry)
	if err != nil {
		c.report.add(InvariantCoverage, src.RegistryPath, "%v", err)
		return nil
	}

	prescribed := map[string]*spec.Spec{}
	for _, s := range c.valid {
		for _, r := range s.Range.Options {
			id := registry.SQLID(s.Table.Name, r)
			prescribed[id] = s
			if !reg.Has(id) {
				c.report.add(InvariantCoverage, id, "missing from registry (range %s of %s)", r, s.Path)
			}
		}
	}
	for _, id := range reg.Keys() {
		if _, ok := prescribed[id]; !ok && !c.partial {
			c.report.add(InvariantCoverage, id, "registry entry is not prescribed by any spec")
		}
	}

	for _, id := range reg.Keys() {
		entry, _ := reg.Get(id)
		c.entry(id, entry, prescribed[id])
	}
	return reg
}

// entry checks one registry entry. s is the spec prescribing it, if any.
func (c *checker) entry(id string, e registry.Entry, s *spec.Spec) {
	watermark := e.MaxValueColumn
	if s != nil {
		watermark = s.Table.CDCKey
	}
	for _, problem := range sqltmpl.Lint(sqltmpl.Tokenize(e.SQL), watermark) {
		c.report.add(InvariantSQLShape, id, "%s", problem)
	}

	table, r, err := registry.ParseSQLID(id)
	if err != nil {
		c.report.add(InvariantSQLID, id, "%v", err)
	} else {
		if e.Table != table {
			c.report.add(InvariantSQLID, id, "table %q does not match sql_id segment %q", e.Table, table)
		}
		if e.Range != r {
			c.report.add(InvariantSQLID, id, "range %q does not match sql_id segment %q", e.Range, r)
		}
	}

	if s == nil {
		return
	}
	if e.MaxValueColumn != s.Table.CDCKey {
		c.report.add(InvariantSQLID, id, "max_value_column %q does not match cdc_key %q of %s", e.MaxValueColumn, s.Table.CDCKey, s.Path)
	}
	if want, err := sqltmpl.Render(s, r); err == nil && want != e.SQL {
		c.report.add(InvariantCoverage, id, "sql is stale relative to %s; recompile", s.Path)
	}
}

// flow parses the flow document.
func (c *checker) flow(src *Sources) *flow.Document {
	if src.Flow == nil {
		c.report.add(InvariantTopology, src.FlowPath, "flow file does not exist")
		return nil
	}
	doc, err := flow.Parse(src.Flow)
	if err != nil {
		c.report.add(InvariantTopology, src.FlowPath, "%v", err)
		return nil
	}
	return doc
}

// lookup checks that the lookup service mirrors the registry and the init
// binding resolves.
func (c *checker) lookup(reg *registry.Registry, doc *flow.Document) {
	props, ok := doc.LookupProperties()
	if !ok {
		c.report.add(InvariantLookup, flow.LookupService, "lookup service or its properties are missing")
		props = canonical.Object{}
	}

	for _, id := range reg.Keys() {
		entry, _ := reg.Get(id)
		got, ok := props.StringField(id)
		switch {
		case !ok:
			c.report.add(InvariantLookup, id, "missing from %s", flow.LookupService)
		case got != entry.SQL:
			c.report.add(InvariantLookup, id, "%s SQL differs from registry", flow.LookupService)
		}
	}
	for _, key := range props.SortedKeys() {
		if registry.IsSQLIDShaped(key) && !reg.Has(key) {
			c.report.add(InvariantLookup, key, "%s key is not in the registry", flow.LookupService)
		}
	}

	if binding, ok := doc.Binding(); !ok || !reg.Has(binding) {
		c.report.add(InvariantLookup, flow.InitProcessor, "sql_id %q does not resolve in the registry", binding)
	}
}

func (c *checker) topology(doc *flow.Document) {
	for _, problem := range doc.TopologyProblems() {
		c.report.add(InvariantTopology, "flow", "%s", problem)
	}
}

// properties checks the query watermark against the bound table and the sink
// operation.
func (c *checker) properties(reg *registry.Registry, doc *flow.Document) {
	if want, ok := c.boundWatermark(reg, doc); ok {
		got, _ := doc.ProcessorProperty(flow.QueryProcessor, flow.PropMaxValueColumn)
		if got != want {
			c.report.add(InvariantWatermark, flow.QueryProcessor, "%s is %q, want %q", flow.PropMaxValueColumn, got, want)
		}
	}

	got, _ := doc.ProcessorProperty(flow.SinkProcessor, flow.PropIndexOperation)
	if got != flow.IndexOperationUpsert {
		c.report.add(InvariantUpsert, flow.SinkProcessor, "%s is %q, want %q", flow.PropIndexOperation, got, flow.IndexOperationUpsert)
	}
}

// boundWatermark returns the cdc_key of the table the init processor is bound
// to. It prefers the spec and falls back to the registry entry.
func (c *checker) boundWatermark(reg *registry.Registry, doc *flow.Document) (string, bool) {
	binding, ok := doc.Binding()
	if !ok {
		return "", false
	}
	if table, _, err := registry.ParseSQLID(binding); err == nil {
		if s, ok := c.byTable[table]; ok {
			return s.Table.CDCKey, true
		}
	}
	if reg != nil {
		if e, ok := reg.Get(binding); ok {
			return e.MaxValueColumn, true
		}
	}
	return "", false
}
