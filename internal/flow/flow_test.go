package flow

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdcflow/internal/canonical"
	"github.com/roach88/cdcflow/internal/registry"
	"github.com/roach88/cdcflow/internal/spec"
	"github.com/roach88/cdcflow/internal/testutil"
)

func myTableRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Build(&spec.Spec{
		Path: "specs/my_table.yaml",
		Table: spec.Table{
			Name:       "MY_TABLE",
			Schema:     "APP",
			PrimaryKey: "ID",
			CDCKey:     "UPDATED_AT",
		},
		Range: spec.RangeOptions{Options: []spec.Range{"5m", "15m", "60m"}},
	})
	require.NoError(t, err)
	return reg
}

func project(t *testing.T, doc *Document, opts Options) *Result {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = myTableRegistry(t)
	}
	if opts.Preferred == "" {
		opts.Preferred = "oracle.cdc.my_table.5m"
	}
	if opts.Logger == nil {
		opts.Logger = testutil.NewTestLogger(t)
	}
	res, err := Project(doc, opts)
	require.NoError(t, err)
	return res
}

func removeElement(doc *Document, region, id string) {
	arr := doc.root[region].(canonical.Array)
	kept := canonical.Array{}
	for _, elem := range arr {
		if got, _ := elem.(canonical.Object).StringField(fieldID); got != id {
			kept = append(kept, elem)
		}
	}
	doc.root[region] = kept
}

func kinds(repairs []Repair) []string {
	out := make([]string, len(repairs))
	for i, r := range repairs {
		out[i] = r.Kind
	}
	return out
}

func TestTemplateIsCanonical(t *testing.T) {
	assert.Equal(t, string(templateJSON), string(TemplateBytes()))
	assert.Empty(t, Template().TopologyProblems())
}

func TestProjectTemplate(t *testing.T) {
	res := project(t, Template(), Options{})
	doc := res.Document

	props, ok := doc.LookupProperties()
	require.True(t, ok)
	reg := myTableRegistry(t)
	for _, id := range reg.Keys() {
		entry, _ := reg.Get(id)
		got, ok := props.StringField(id)
		require.True(t, ok, id)
		assert.Equal(t, entry.SQL, got)
	}

	binding, _ := doc.Binding()
	assert.Equal(t, "oracle.cdc.my_table.5m", binding)
	assert.Equal(t, binding, res.Binding)

	maxCol, _ := doc.ProcessorProperty(QueryProcessor, PropMaxValueColumn)
	assert.Equal(t, "UPDATED_AT", maxCol)
	op, _ := doc.ProcessorProperty(SinkProcessor, PropIndexOperation)
	assert.Equal(t, "upsert", op)

	assert.Equal(t, []string{
		RepairMissingKey, RepairMissingKey, RepairMissingKey,
		RepairBinding,
		RepairEnforced,
	}, kinds(res.Repairs))
}

func TestProjectIsIdempotent(t *testing.T) {
	first := project(t, Template(), Options{})
	firstBytes, err := first.Document.Bytes()
	require.NoError(t, err)

	reparsed, err := Parse(firstBytes)
	require.NoError(t, err)
	second := project(t, reparsed, Options{})
	secondBytes, err := second.Document.Bytes()
	require.NoError(t, err)

	assert.Empty(t, second.Repairs)
	assert.Equal(t, string(firstBytes), string(secondBytes))
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	doc := Template()
	before, err := doc.Bytes()
	require.NoError(t, err)

	project(t, doc, Options{})

	after, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestProjectRemovesStaleKeys(t *testing.T) {
	doc := Template()
	props, _ := doc.LookupProperties()
	props["oracle.cdc.retired_table.5m"] = canonical.String("SELECT 1")
	props["oracle.cdc.my_table.5m"] = canonical.String("SELECT stale")
	props["Cache Size"] = canonical.String("100")

	res := project(t, doc, Options{})

	got, _ := res.Document.LookupProperties()
	assert.NotContains(t, got, "oracle.cdc.retired_table.5m")
	assert.Contains(t, got, "Cache Size")
	sql, _ := got.StringField("oracle.cdc.my_table.5m")
	assert.Contains(t, sql, "ORDER BY UPDATED_AT")

	assert.Contains(t, res.Repairs, Repair{
		Kind:    RepairStaleKey,
		Subject: "oracle.cdc.retired_table.5m",
		Detail:  "removed from sql-lookup-service",
	})
	assert.Contains(t, kinds(res.Repairs), RepairSQL)
}

func TestProjectPreservesUnrelatedProperties(t *testing.T) {
	res := project(t, Template(), Options{})

	query, _ := res.Document.ProcessorProperty(QueryProcessor, "Custom Query")
	assert.Equal(t, "${sql}", query)
	id, _ := res.Document.ProcessorProperty(SinkProcessor, "Identifier Record Path")
	assert.Equal(t, "/#{es.id_field}", id)
	name, _ := res.Document.root.StringField("name")
	assert.Equal(t, "oracle_cdc_flow", name)
}

func TestProjectBindingPrecedence(t *testing.T) {
	bound := func(doc *Document, id string) *Document {
		proc, _ := doc.Processor(InitProcessor)
		props, _ := properties(proc)
		props[PropSQLID] = canonical.String(id)
		return doc
	}

	tests := []struct {
		name    string
		current string
		pinned  string
		want    string
	}{
		{"unbound uses preferred", "", "", "oracle.cdc.my_table.5m"},
		{"valid binding kept", "oracle.cdc.my_table.15m", "", "oracle.cdc.my_table.15m"},
		{"stale binding replaced", "oracle.cdc.retired_table.5m", "", "oracle.cdc.my_table.5m"},
		{"pinned wins", "oracle.cdc.my_table.15m", "oracle.cdc.my_table.60m", "oracle.cdc.my_table.60m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := project(t, bound(Template(), tt.current), Options{Pinned: tt.pinned})
			assert.Equal(t, tt.want, res.Binding)
			got, _ := res.Document.Binding()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectWatermarkFollowsBinding(t *testing.T) {
	reg := myTableRegistry(t)
	orders, err := registry.Build(&spec.Spec{
		Path:  "specs/orders.yaml",
		Table: spec.Table{Name: "ORDERS", Schema: "SALES", PrimaryKey: "ORDER_ID", CDCKey: "MODIFIED_AT"},
		Range: spec.RangeOptions{Options: []spec.Range{"10m"}},
	})
	require.NoError(t, err)
	require.NoError(t, reg.Merge(orders))

	res := project(t, Template(), Options{Registry: reg, Preferred: "oracle.cdc.orders.10m"})
	maxCol, _ := res.Document.ProcessorProperty(QueryProcessor, PropMaxValueColumn)
	assert.Equal(t, "MODIFIED_AT", maxCol)
}

func TestProjectEnforcesUpsert(t *testing.T) {
	doc := Template()
	proc, _ := doc.Processor(SinkProcessor)
	props, _ := properties(proc)
	props[PropIndexOperation] = canonical.String("index")

	res := project(t, doc, Options{})
	op, _ := res.Document.ProcessorProperty(SinkProcessor, PropIndexOperation)
	assert.Equal(t, "upsert", op)
	assert.Contains(t, res.Repairs, Repair{
		Kind:    RepairEnforced,
		Subject: SinkProcessor,
		Detail:  "Index Operation set to upsert",
	})
}

func TestProjectCreatesMissingProperties(t *testing.T) {
	doc := Template()
	proc, _ := doc.Processor(QueryProcessor)
	delete(proc, fieldProperties)

	res := project(t, doc, Options{})
	maxCol, _ := res.Document.ProcessorProperty(QueryProcessor, PropMaxValueColumn)
	assert.Equal(t, "UPDATED_AT", maxCol)
	assert.Contains(t, res.Repairs, Repair{Kind: RepairProperty, Subject: QueryProcessor, Detail: "properties created"})
}

func TestProjectFillsAbsentRegions(t *testing.T) {
	doc := Template()
	delete(doc.root, RegionProcessors)
	doc.root[RegionConnections] = canonical.Array{}

	res := project(t, doc, Options{})
	assert.Empty(t, res.Document.TopologyProblems())
	assert.Contains(t, res.Repairs, Repair{Kind: RepairTemplate, Subject: RegionProcessors, Detail: "region emitted from canonical template"})
	assert.Contains(t, res.Repairs, Repair{Kind: RepairTemplate, Subject: RegionConnections, Detail: "region emitted from canonical template"})
}

func TestProjectAddsLookupService(t *testing.T) {
	doc := Template()
	removeElement(doc, RegionServices, LookupService)

	res := project(t, doc, Options{})
	_, ok := res.Document.LookupProperties()
	assert.True(t, ok)
	assert.Equal(t, RepairService, res.Repairs[0].Kind)
}

func TestProjectStructuralDrift(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *Document)
		detail string
	}{
		{
			name:   "missing lookup-attribute",
			mutate: func(doc *Document) { removeElement(doc, RegionProcessors, LookupProcessor) },
			detail: `missing processor "lookup-attribute"`,
		},
		{
			name: "foreign processor",
			mutate: func(doc *Document) {
				arr := doc.root[RegionProcessors].(canonical.Array)
				doc.root[RegionProcessors] = append(arr, canonical.Object{fieldID: canonical.String("log-attribute")})
			},
			detail: `foreign processor "log-attribute"`,
		},
		{
			name:   "missing dbcp",
			mutate: func(doc *Document) { removeElement(doc, RegionServices, DBCPService) },
			detail: `missing controller service "oracle-dbcp"`,
		},
		{
			name: "rewired connection",
			mutate: func(doc *Document) {
				conn := doc.root[RegionConnections].(canonical.Array)[0].(canonical.Object)
				conn[fieldDest] = canonical.String(LookupProcessor)
			},
			detail: "unexpected connection generate-flowfile -> lookup-attribute",
		},
		{
			name: "duplicate connection",
			mutate: func(doc *Document) {
				arr := doc.root[RegionConnections].(canonical.Array)
				doc.root[RegionConnections] = append(arr, canonical.Clone(arr[0]))
			},
			detail: "duplicate connection generate-flowfile -> update-attribute-init",
		},
		{
			name:   "region not an array",
			mutate: func(doc *Document) { doc.root[RegionProcessors] = canonical.Object{} },
			detail: "processors region must be an array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Template()
			tt.mutate(doc)

			_, err := Project(doc, Options{Registry: myTableRegistry(t)})
			require.Error(t, err)
			var drift *DriftError
			require.True(t, errors.As(err, &drift))
			assert.Contains(t, drift.Detail, tt.detail)
			assert.Contains(t, doc.TopologyProblems(), tt.detail)
		})
	}
}

func TestProjectEmptyRegistry(t *testing.T) {
	_, err := Project(Template(), Options{Registry: registry.New()})
	assert.ErrorIs(t, err, ErrEmptyRegistry)
}

func TestProjectLogsRepairs(t *testing.T) {
	logger, rec := testutil.NewRecordingLogger()
	res := project(t, Template(), Options{Logger: logger})

	logged := rec.Attrs("flow repaired")
	require.Len(t, logged, len(res.Repairs))
	assert.Equal(t, map[string]string{
		"kind":    RepairBinding,
		"subject": InitProcessor,
		"detail":  "sql_id bound to oracle.cdc.my_table.5m",
	}, logged[3])
	assert.Len(t, rec.Messages(slog.LevelInfo), len(res.Repairs))
}

func TestParseRejectsNonObjects(t *testing.T) {
	for _, data := range []string{"", "[]", "{", `{"a": 1} x`} {
		_, err := Parse([]byte(data))
		var drift *DriftError
		assert.True(t, errors.As(err, &drift), "%q", data)
	}
}

func TestTopologyProblemsMissingRegion(t *testing.T) {
	doc := Template()
	delete(doc.root, RegionConnections)
	assert.Equal(t, []string{"connections region is missing"}, doc.TopologyProblems())
}
