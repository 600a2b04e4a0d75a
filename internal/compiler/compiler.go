package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/cdcflow/internal/artifact"
	"github.com/roach88/cdcflow/internal/flow"
	"github.com/roach88/cdcflow/internal/registry"
	"github.com/roach88/cdcflow/internal/spec"
	"github.com/roach88/cdcflow/internal/store"
	"github.com/roach88/cdcflow/internal/verify"
)

var verifyCheck = verify.Check

// Options configures one compile.
type Options struct {
	// SpecPath is the primary spec file, or a directory to compile all of
	// its specs without a primary.
	SpecPath string

	// SpecsDir holds every spec that contributes to the shared registry.
	// It is SpecPath itself when SpecPath is a directory.
	SpecsDir string

	RegistryPath string
	FlowPath     string

	// DryRun runs every step and verifies the in-memory artifacts, but
	// writes nothing.
	DryRun bool

	Logger  *slog.Logger
	Journal *store.Store // nil disables journaling

	Now func() time.Time // defaults to time.Now
}

// Result describes a successful compile.
type Result struct {
	Primary *spec.Spec // nil for a directory compile
	Specs   []*spec.Spec

	Registry      *registry.Registry
	RegistryBytes []byte
	FlowBytes     []byte

	// Previous artifact content, nil when the file did not exist.
	PreviousRegistry []byte
	PreviousFlow     []byte

	Repairs []flow.Repair
	Binding string
	Changed []string // paths rewritten on disk
	Report  *verify.Report
	RunID   string // journal run id, empty when not journaled

	Duration time.Duration
}

// Compile runs the pipeline. Errors carry their component's type:
// *spec.Error, *sqltmpl.RenderError, *registry.ConflictError,
// *flow.DriftError, *artifact.WriteError or *verify.ViolationError.
func Compile(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	res := &Result{}
	var err error
	res.Primary, res.Specs, err = loadSpecs(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("specs loaded", "count", len(res.Specs))

	res.Registry, err = registry.BuildAll(res.Specs)
	if err != nil {
		return nil, err
	}
	if res.RegistryBytes, err = registry.Marshal(res.Registry); err != nil {
		return nil, fmt.Errorf("marshal registry: %w", err)
	}

	if res.PreviousRegistry, err = readOptional(opts.RegistryPath); err != nil {
		return nil, err
	}
	if res.PreviousFlow, err = readOptional(opts.FlowPath); err != nil {
		return nil, err
	}

	doc, seeded, err := startingFlow(opts.FlowPath, res.PreviousFlow)
	if err != nil {
		return nil, err
	}
	for _, r := range seeded {
		flow.LogRepair(logger, r)
	}

	pinned, preferred := bindingPolicy(res.Primary, res.Specs)
	projected, err := flow.Project(doc, flow.Options{
		Registry:  res.Registry,
		Pinned:    pinned,
		Preferred: preferred,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	res.Repairs = append(seeded, projected.Repairs...)
	res.Binding = projected.Binding
	if res.FlowBytes, err = projected.Document.Bytes(); err != nil {
		return nil, fmt.Errorf("marshal flow: %w", err)
	}

	src := &verify.Sources{
		Specs:        res.Specs,
		RegistryPath: opts.RegistryPath,
		FlowPath:     opts.FlowPath,
	}
	if opts.DryRun {
		src.Registry, src.Flow = res.RegistryBytes, res.FlowBytes
	} else {
		res.Changed, err = artifact.WriteAll(ctx, logger,
			artifact.File{Path: opts.RegistryPath, Data: res.RegistryBytes},
			artifact.File{Path: opts.FlowPath, Data: res.FlowBytes},
		)
		if err != nil {
			return nil, err
		}
		// Re-read from disk so serializer or write bugs surface here.
		if src.Registry, err = readOptional(opts.RegistryPath); err != nil {
			return nil, err
		}
		if src.Flow, err = readOptional(opts.FlowPath); err != nil {
			return nil, err
		}
	}

	res.Report = verifyCheck(src)
	if err := res.Report.Err(); err != nil {
		return nil, err
	}
	res.Duration = now().Sub(start)

	if !opts.DryRun && opts.Journal != nil {
		if err := journal(ctx, opts, res, now()); err != nil {
			return nil, err
		}
	}

	logger.Info("compile complete",
		"entries", res.Registry.Len(),
		"repairs", len(res.Repairs),
		"changed", len(res.Changed),
		"dry_run", opts.DryRun,
	)
	return res, nil
}

// loadSpecs loads the primary spec (if SpecPath is a file) and every spec in
// the specs directory. The primary is included exactly once even when it
// lives outside SpecsDir.
func loadSpecs(opts Options) (*spec.Spec, []*spec.Spec, error) {
	info, err := os.Stat(opts.SpecPath)
	if err != nil {
		return nil, nil, &spec.Error{Kind: spec.ErrNotFound, Path: opts.SpecPath, Message: "no such file or directory"}
	}

	if info.IsDir() {
		specs, err := spec.LoadDir(opts.SpecPath)
		if err != nil {
			return nil, nil, err
		}
		if len(specs) == 0 {
			return nil, nil, &spec.Error{Kind: spec.ErrNotFound, Path: opts.SpecPath, Message: "directory contains no specs"}
		}
		return nil, specs, nil
	}

	primary, err := spec.Load(opts.SpecPath)
	if err != nil {
		return nil, nil, err
	}

	paths, err := spec.Discover(opts.SpecsDir)
	if errors.Is(err, spec.ErrNotFound) {
		return primary, []*spec.Spec{primary}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	primaryAbs, _ := filepath.Abs(opts.SpecPath)
	specs := []*spec.Spec{primary}
	for _, p := range paths {
		if abs, _ := filepath.Abs(p); abs == primaryAbs {
			continue
		}
		s, err := spec.Load(p)
		if err != nil {
			return nil, nil, err
		}
		specs = append(specs, s)
	}
	return primary, specs, nil
}

// startingFlow parses the existing flow, or seeds the canonical template when
// the file does not exist.
func startingFlow(path string, data []byte) (*flow.Document, []flow.Repair, error) {
	if data == nil {
		return flow.Template(), []flow.Repair{{
			Kind:    flow.RepairTemplate,
			Subject: path,
			Detail:  "flow file missing; starting from canonical template",
		}}, nil
	}
	doc, err := flow.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}

// bindingPolicy returns the pinned and preferred init bindings.
// Without a primary spec the first spec's smallest range is preferred.
func bindingPolicy(primary *spec.Spec, specs []*spec.Spec) (pinned, preferred string) {
	target := primary
	if target == nil {
		target = specs[0]
	} else if primary.Range.Default != "" {
		pinned = registry.SQLID(primary.Table.Name, primary.Range.Default)
	}
	return pinned, registry.SQLID(target.Table.Name, target.SmallestRange())
}

func journal(ctx context.Context, opts Options, res *Result, at time.Time) error {
	tables := make([]string, len(res.Specs))
	for i, s := range res.Specs {
		tables[i] = s.TableUpper()
	}
	c := &store.Compile{
		SpecPath:       opts.SpecPath,
		Tables:         tables,
		RegistrySHA256: store.Digest(store.DomainRegistry, res.RegistryBytes),
		FlowSHA256:     store.Digest(store.DomainFlow, res.FlowBytes),
		EntryCount:     res.Registry.Len(),
		RepairCount:    len(res.Repairs),
		CompiledAt:     at,
	}
	if err := opts.Journal.Record(ctx, c); err != nil {
		return err
	}
	res.RunID = c.RunID
	return nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
