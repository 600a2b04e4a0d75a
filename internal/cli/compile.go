package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/cdcflow/internal/compiler"
	"github.com/roach88/cdcflow/internal/flow"
	"github.com/roach88/cdcflow/internal/metrics"
	"github.com/roach88/cdcflow/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	DryRun bool
	Diff   bool
}

// CompileSummary is the JSON payload of a successful compile.
type CompileSummary struct {
	Specs    []string      `json:"specs"`
	Entries  []string      `json:"entries"`
	Binding  string        `json:"binding"`
	Repairs  []flow.Repair `json:"repairs"`
	Changed  []string      `json:"changed"`
	DryRun   bool          `json:"dry_run"`
	RunID    string        `json:"run_id,omitempty"`
	Diff     []string      `json:"diff,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <spec-path>",
		Short: "Compile specs into the SQL registry and sync the flow",
		Long: `Compile renders the SQL registry from every spec in the specs directory,
projects it into the flow document and writes both artifacts atomically.
The named spec is the primary spec: it decides the init processor binding.
A directory compiles all of its specs.

Exit codes: 0 ok, 1 unexpected, 2 spec error, 3 flow structural drift,
4 registry conflict, 5 invariant violation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run every step but write nothing")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "print a unified diff of the artifacts")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, specPath string, cmd *cobra.Command) (err error) {
	formatter := opts.formatter(cmd)
	cfg := opts.Config

	var res *compiler.Result
	defer func() {
		opts.exportMetrics("compile", err, func(rec *metrics.Recorder) {
			if res != nil {
				rec.ObserveCompile(res.Registry.Len(), len(res.Repairs), res.Duration)
				rec.ObserveViolations(len(res.Report.Violations))
			}
		})
	}()

	copts := compiler.Options{
		SpecPath:     specPath,
		SpecsDir:     cfg.SpecsDir,
		RegistryPath: cfg.Registry,
		FlowPath:     cfg.Flow,
		DryRun:       opts.DryRun,
		Logger:       opts.Logger,
		Now:          opts.Now,
	}
	if cfg.Journal != "" && !opts.DryRun {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal), 0o755); err != nil {
			return fail(formatter, fmt.Errorf("failed to create journal directory: %w", err))
		}
		j, err := store.Open(cfg.Journal)
		if err != nil {
			return fail(formatter, err)
		}
		defer j.Close()
		copts.Journal = j
	}

	formatter.VerboseLog("Compiling %s (specs: %s)", specPath, cfg.SpecsDir)
	res, err = compiler.Compile(ctx, copts)
	if err != nil {
		return fail(formatter, err)
	}

	summary := CompileSummary{
		Entries:  res.Registry.Keys(),
		Binding:  res.Binding,
		Repairs:  res.Repairs,
		Changed:  res.Changed,
		DryRun:   opts.DryRun,
		RunID:    res.RunID,
		Warnings: res.Report.Warnings,
	}
	for _, s := range res.Specs {
		summary.Specs = append(summary.Specs, s.Path)
	}
	if summary.Repairs == nil {
		summary.Repairs = []flow.Repair{}
	}
	if summary.Changed == nil {
		summary.Changed = []string{}
	}
	if opts.Diff {
		if summary.Diff, err = res.Diffs(cfg.Registry, cfg.Flow); err != nil {
			return fail(formatter, err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	return printCompile(formatter, &summary)
}

func printCompile(f *OutputFormatter, s *CompileSummary) error {
	fmt.Fprintf(f.Writer, "✓ Compiled %d registry entries from %d spec(s)\n", len(s.Entries), len(s.Specs))
	fmt.Fprintf(f.Writer, "  binding: %s\n", s.Binding)

	if len(s.Repairs) > 0 {
		fmt.Fprintf(f.Writer, "\nRepairs (%d):\n", len(s.Repairs))
		rows := make([]table.Row, len(s.Repairs))
		for i, r := range s.Repairs {
			rows[i] = table.Row{r.Kind, r.Subject, r.Detail}
		}
		f.Table(table.Row{"Kind", "Subject", "Detail"}, rows)
	}

	fmt.Fprintln(f.Writer)
	switch {
	case s.DryRun:
		fmt.Fprintln(f.Writer, "Dry run: nothing written")
	case len(s.Changed) == 0:
		fmt.Fprintln(f.Writer, "Artifacts unchanged")
	default:
		for _, p := range s.Changed {
			fmt.Fprintf(f.Writer, "Wrote %s\n", p)
		}
	}
	for _, d := range s.Diff {
		fmt.Fprintln(f.Writer)
		fmt.Fprint(f.Writer, d)
	}
	return nil
}
