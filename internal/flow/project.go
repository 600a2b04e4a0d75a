package flow

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/cdcflow/internal/canonical"
	"github.com/roach88/cdcflow/internal/registry"
)

// Repair kinds.
const (
	RepairTemplate   = "template"       // region or document emitted from the canonical template
	RepairService    = "service"        // lookup service added
	RepairProperty   = "property"       // missing properties object created
	RepairStaleKey   = "stale-sql-id"   // lookup key no longer in the registry
	RepairMissingKey = "missing-sql-id" // registry key added to the lookup service
	RepairSQL        = "sql"            // lookup value overwritten with registry SQL
	RepairBinding    = "binding"        // init processor rebound
	RepairEnforced   = "enforced"       // enforced processor property overwritten
)

// Repair is one auto-fixed piece of drift.
type Repair struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

// LogRepair emits the standard record for r.
func LogRepair(logger *slog.Logger, r Repair) {
	logger.Info("flow repaired", "kind", r.Kind, "subject", r.Subject, "detail", r.Detail)
}

// DriftError reports structural drift the projector cannot repair.
type DriftError struct {
	Detail string
}

func (e *DriftError) Error() string {
	return "flow structural drift: " + e.Detail
}

// ErrEmptyRegistry is returned when there is nothing to project.
var ErrEmptyRegistry = errors.New("flow: registry is empty")

// Options configures a projection.
type Options struct {
	Registry *registry.Registry

	// Pinned is the sql_id the primary spec pins as its default binding.
	// It always wins when present in the registry.
	Pinned string

	// Preferred is the binding used when the current one is invalid,
	// normally the primary spec's smallest range.
	Preferred string

	Logger *slog.Logger
}

// Result is the projected document and the repairs applied to reach it.
type Result struct {
	Document *Document
	Repairs  []Repair
	Binding  string
}

// Project returns a copy of doc satisfying the lookup, binding, watermark,
// upsert and topology invariants for opts.Registry. doc is not modified.
func Project(doc *Document, opts Options) (*Result, error) {
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, ErrEmptyRegistry
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &projector{doc: doc.Clone(), opts: opts}
	if err := p.topology(); err != nil {
		return nil, err
	}
	p.syncLookup()
	binding := p.bind()

	entry, _ := opts.Registry.Get(binding)
	p.enforce(QueryProcessor, PropMaxValueColumn, entry.MaxValueColumn)
	p.enforce(SinkProcessor, PropIndexOperation, IndexOperationUpsert)

	for _, r := range p.repairs {
		LogRepair(logger, r)
	}
	return &Result{Document: p.doc, Repairs: p.repairs, Binding: binding}, nil
}

type projector struct {
	doc     *Document
	opts    Options
	repairs []Repair
}

func (p *projector) repair(kind, subject, format string, args ...any) {
	p.repairs = append(p.repairs, Repair{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}

// topology fills absent regions from the template and rejects everything
// else that deviates from the canonical shape.
func (p *projector) topology() error {
	tmpl := Template()
	var problems []string

	for _, name := range []string{RegionServices, RegionProcessors, RegionConnections} {
		arr, state := p.doc.region(name)
		switch state {
		case regionMalformed:
			problems = append(problems, fmt.Sprintf("%s region must be an array", name))
			continue
		case regionAbsent:
			p.doc.root[name] = canonical.Clone(tmpl.root[name])
			p.repair(RepairTemplate, name, "region emitted from canonical template")
			continue
		}

		switch name {
		case RegionServices:
			problems = append(problems, serviceProblems(arr, false)...)
		case RegionProcessors:
			problems = append(problems, processorProblems(arr)...)
		case RegionConnections:
			problems = append(problems, connectionProblems(arr)...)
		}
	}
	if len(problems) > 0 {
		return &DriftError{Detail: strings.Join(problems, "; ")}
	}

	if _, ok := p.doc.Service(LookupService); !ok {
		svc, _ := tmpl.Service(LookupService)
		p.doc.root[RegionServices] = append(p.doc.root[RegionServices].(canonical.Array), svc)
		p.repair(RepairService, LookupService, "controller service added from canonical template")
	}
	return nil
}

// syncLookup makes the sql_id-shaped lookup properties equal the registry.
// Other properties are kept.
func (p *projector) syncLookup() {
	svc, _ := p.doc.Service(LookupService)
	props, created := properties(svc)
	if created {
		p.repair(RepairProperty, LookupService, "properties created")
	}

	for _, key := range props.SortedKeys() {
		if registry.IsSQLIDShaped(key) && !p.opts.Registry.Has(key) {
			delete(props, key)
			p.repair(RepairStaleKey, key, "removed from %s", LookupService)
		}
	}
	for _, id := range p.opts.Registry.Keys() {
		entry, _ := p.opts.Registry.Get(id)
		cur, exists := props[id]
		switch {
		case !exists:
			p.repair(RepairMissingKey, id, "added to %s", LookupService)
		case !canonical.Equal(cur, canonical.String(entry.SQL)):
			p.repair(RepairSQL, id, "SQL replaced with registry text")
		default:
			continue
		}
		props[id] = canonical.String(entry.SQL)
	}
}

// bind resolves the init processor binding: pinned, then current, then
// preferred, then the first registry key.
func (p *projector) bind() string {
	reg := p.opts.Registry
	current, _ := p.doc.Binding()

	var want string
	switch {
	case p.opts.Pinned != "" && reg.Has(p.opts.Pinned):
		want = p.opts.Pinned
	case reg.Has(current):
		want = current
	case p.opts.Preferred != "" && reg.Has(p.opts.Preferred):
		want = p.opts.Preferred
	default:
		want = reg.Keys()[0]
	}

	if want != current {
		p.setProperty(InitProcessor, PropSQLID, want)
		if current == "" {
			p.repair(RepairBinding, InitProcessor, "sql_id bound to %s", want)
		} else {
			p.repair(RepairBinding, InitProcessor, "sql_id changed from %s to %s", current, want)
		}
	}
	return want
}

// enforce sets one processor property, leaving the others alone.
func (p *projector) enforce(processor, key, want string) {
	if cur, ok := p.doc.ProcessorProperty(processor, key); ok && cur == want {
		return
	}
	p.setProperty(processor, key, want)
	p.repair(RepairEnforced, processor, "%s set to %s", key, want)
}

func (p *projector) setProperty(processor, key, value string) {
	proc, _ := p.doc.Processor(processor)
	props, created := properties(proc)
	if created {
		p.repair(RepairProperty, processor, "properties created")
	}
	props[key] = canonical.String(value)
}
