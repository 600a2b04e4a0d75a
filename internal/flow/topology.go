package flow

import (
	"fmt"
	"slices"

	"github.com/roach88/cdcflow/internal/canonical"
)

// Processor ids of the canonical chain, in flow order.
const (
	GenerateProcessor = "generate-flowfile"
	InitProcessor     = "update-attribute-init"
	LookupProcessor   = "lookup-attribute"
	RangeProcessor    = "update-attribute-range"
	QueryProcessor    = "query-database-table-record"
	SinkProcessor     = "put-elasticsearch-record"
)

// Controller service ids.
const (
	LookupService   = "sql-lookup-service"
	DBCPService     = "oracle-dbcp"
	ESClientService = "elasticsearch-client"
	ReaderService   = "json-record-reader"
	WriterService   = "json-record-writer"
)

// Properties enforced by the projector.
const (
	PropSQLID          = "sql_id"
	PropMaxValueColumn = "Maximum-value Columns"
	PropIndexOperation = "Index Operation"

	IndexOperationUpsert = "upsert"
)

// Processors is the canonical processor chain.
var Processors = []string{
	GenerateProcessor,
	InitProcessor,
	LookupProcessor,
	RangeProcessor,
	QueryProcessor,
	SinkProcessor,
}

// Edge is a directed connection between two processors.
type Edge struct {
	Source      string
	Destination string
}

func (e Edge) String() string {
	return e.Source + " -> " + e.Destination
}

// Edges is the canonical connection set.
var Edges = []Edge{
	{GenerateProcessor, InitProcessor},
	{InitProcessor, LookupProcessor},
	{LookupProcessor, RangeProcessor},
	{RangeProcessor, QueryProcessor},
	{QueryProcessor, SinkProcessor},
}

// RequiredServices must be present and are never created by the projector.
var RequiredServices = []string{DBCPService, ESClientService, ReaderService, WriterService}

type regionState int

const (
	regionAbsent    regionState = iota // missing or empty
	regionPresent                      // non-empty array
	regionMalformed                    // not an array
)

func (d *Document) region(name string) (canonical.Array, regionState) {
	v, ok := d.root[name]
	if !ok {
		return nil, regionAbsent
	}
	arr, ok := v.(canonical.Array)
	if !ok {
		return nil, regionMalformed
	}
	if len(arr) == 0 {
		return nil, regionAbsent
	}
	return arr, regionPresent
}

// elementIDs returns the id of each element. Elements that are not objects
// or lack a string id are reported as problems.
func elementIDs(region string, arr canonical.Array) (ids []string, problems []string) {
	seen := map[string]bool{}
	for i, elem := range arr {
		obj, ok := elem.(canonical.Object)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s[%d] is not an object", region, i))
			continue
		}
		id, ok := obj.StringField(fieldID)
		if !ok || id == "" {
			problems = append(problems, fmt.Sprintf("%s[%d] has no id", region, i))
			continue
		}
		if seen[id] {
			problems = append(problems, fmt.Sprintf("duplicate %s id %q", region, id))
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, problems
}

func processorProblems(arr canonical.Array) []string {
	ids, problems := elementIDs(RegionProcessors, arr)
	for _, id := range ids {
		if !slices.Contains(Processors, id) {
			problems = append(problems, fmt.Sprintf("foreign processor %q", id))
		}
	}
	for _, id := range Processors {
		if !slices.Contains(ids, id) {
			problems = append(problems, fmt.Sprintf("missing processor %q", id))
		}
	}
	return problems
}

func connectionProblems(arr canonical.Array) []string {
	var problems []string
	seen := map[Edge]bool{}
	for i, elem := range arr {
		obj, ok := elem.(canonical.Object)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s[%d] is not an object", RegionConnections, i))
			continue
		}
		src, okSrc := obj.StringField(fieldSource)
		dst, okDst := obj.StringField(fieldDest)
		if !okSrc || !okDst {
			problems = append(problems, fmt.Sprintf("%s[%d] needs string source and destination", RegionConnections, i))
			continue
		}
		e := Edge{src, dst}
		switch {
		case seen[e]:
			problems = append(problems, fmt.Sprintf("duplicate connection %s", e))
		case !slices.Contains(Edges, e):
			problems = append(problems, fmt.Sprintf("unexpected connection %s", e))
		}
		seen[e] = true
	}
	for _, e := range Edges {
		if !seen[e] {
			problems = append(problems, fmt.Sprintf("missing connection %s", e))
		}
	}
	return problems
}

// serviceProblems checks the services region. Foreign services are allowed.
// The lookup service is checked only when requireLookup is set, since the
// projector can add it.
func serviceProblems(arr canonical.Array, requireLookup bool) []string {
	ids, problems := elementIDs(RegionServices, arr)
	required := RequiredServices
	if requireLookup {
		required = append([]string{LookupService}, RequiredServices...)
	}
	for _, id := range required {
		if !slices.Contains(ids, id) {
			problems = append(problems, fmt.Sprintf("missing controller service %q", id))
		}
	}
	return problems
}

// TopologyProblems reports every deviation of the document from the canonical
// services, processors and connections without changing it.
func (d *Document) TopologyProblems() []string {
	var problems []string
	checks := []struct {
		region string
		check  func(canonical.Array) []string
	}{
		{RegionServices, func(arr canonical.Array) []string { return serviceProblems(arr, true) }},
		{RegionProcessors, processorProblems},
		{RegionConnections, connectionProblems},
	}
	for _, c := range checks {
		arr, state := d.region(c.region)
		switch state {
		case regionAbsent:
			problems = append(problems, fmt.Sprintf("%s region is missing", c.region))
		case regionMalformed:
			problems = append(problems, fmt.Sprintf("%s region must be an array", c.region))
		default:
			problems = append(problems, c.check(arr)...)
		}
	}
	return problems
}
