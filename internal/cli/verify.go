package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/cdcflow/internal/metrics"
	"github.com/roach88/cdcflow/internal/store"
	"github.com/roach88/cdcflow/internal/verify"
)

// VerifySummary is the JSON payload of a passing verify.
type VerifySummary struct {
	Specs    int      `json:"specs"`
	Registry string   `json:"registry"`
	Flow     string   `json:"flow"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check specs, registry and flow against the CDC invariants",
		Long: `Verify reads every spec, the SQL registry and the flow document from disk
and checks that they agree: coverage, SQL shape, lookup sync, topology,
watermark and upsert properties. It never writes.

Exit codes: 0 all invariants hold, 5 at least one violation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runVerify(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (err error) {
	formatter := opts.formatter(cmd)
	cfg := opts.Config

	var report *verify.Report
	defer func() {
		opts.exportMetrics("verify", err, func(rec *metrics.Recorder) {
			if report != nil {
				rec.ObserveViolations(len(report.Violations))
			}
		})
	}()

	src, err := verify.ReadSources(cfg.SpecsDir, cfg.Registry, cfg.Flow)
	if err != nil {
		return fail(formatter, err)
	}
	report = verify.Check(src)

	if cfg.Journal != "" {
		if err := journalWarnings(ctx, cfg.Journal, src, report); err != nil {
			opts.Logger.Warn("journal unavailable", "path", cfg.Journal, "error", err)
		}
	}
	for _, v := range report.Violations {
		opts.Logger.Debug("invariant violated", "invariant", v.Invariant, "subject", v.Subject)
	}

	if err := report.Err(); err != nil {
		if formatter.Format != "json" {
			printViolations(formatter, report)
		}
		return fail(formatter, err)
	}

	summary := VerifySummary{
		Specs:    len(src.Specs),
		Registry: cfg.Registry,
		Flow:     cfg.Flow,
		Warnings: report.Warnings,
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ All invariants hold (%d spec(s))\n", summary.Specs)
	printWarnings(formatter, report.Warnings)
	return nil
}

// journalWarnings warns when an artifact on disk is not the one the last
// journaled compile wrote. A missing journal is not an error.
func journalWarnings(ctx context.Context, path string, src *verify.Sources, report *verify.Report) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	j, err := store.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	last, err := j.Latest(ctx)
	if errors.Is(err, store.ErrNoCompiles) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, a := range []struct {
		path, domain, want string
		data               []byte
	}{
		{src.RegistryPath, store.DomainRegistry, last.RegistrySHA256, src.Registry},
		{src.FlowPath, store.DomainFlow, last.FlowSHA256, src.Flow},
	} {
		if a.data == nil {
			continue
		}
		if store.Digest(a.domain, a.data) != a.want {
			report.Warn("%s changed since compile %s at %s", a.path, last.RunID, last.CompiledAt.Format(time.RFC3339))
		}
	}
	return nil
}

func printViolations(f *OutputFormatter, report *verify.Report) {
	fmt.Fprintf(f.Writer, "✗ %d invariant violation(s)\n\n", len(report.Violations))
	rows := make([]table.Row, len(report.Violations))
	for i, v := range report.Violations {
		rows[i] = table.Row{v.Label(), v.Subject, v.Message}
	}
	f.Table(table.Row{"Invariant", "Subject", "Message"}, rows)
	printWarnings(f, report.Warnings)
	fmt.Fprintln(f.Writer)
}

func printWarnings(f *OutputFormatter, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(f.Writer, "warning: %s\n", w)
	}
}
