package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cdcflow/internal/config"
	"github.com/roach88/cdcflow/internal/metrics"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Resolved in PersistentPreRunE.
	Config *config.Config
	Logger *slog.Logger

	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cdcflow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Now: time.Now}

	cmd := &cobra.Command{
		Use:   "cdcflow",
		Short: "cdcflow - CDC spec compiler and flow synchronizer",
		Long: `Compile per-table CDC specs into a SQL registry and keep the dataflow
document in sync with it.

The registry and flow are generated artifacts: compile re-emits both in
full, and verify checks that spec, registry and flow agree.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				err := fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				opts.Format = "text"
				_ = opts.formatter(cmd).Error(ErrCodeUsage, err.Error(), nil)
				return WrapExitError(ExitFailure, ErrCodeUsage, err)
			}
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				_ = opts.formatter(cmd).Error(ErrCodeConfig, err.Error(), nil)
				return WrapExitError(ExitFailure, ErrCodeConfig, err)
			}
			opts.Config = cfg
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose, opts.Format)
			if cfg.File != "" {
				opts.Logger.Debug("config loaded", "file", cfg.File)
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default: ./cdcflow.yaml)")
	pf.String("specs-dir", "", "specs directory (default: "+config.DefaultSpecsDir+")")
	pf.String("registry", "", "SQL registry file (default: "+config.DefaultRegistry+")")
	pf.String("flow", "", "flow document (default: "+config.DefaultFlow+")")
	pf.String("journal", "", "compile journal database (disabled when empty)")
	pf.String("metrics-file", "", "Prometheus text file to export gauges to")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return ValidFormats, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewInitFlowCommand(opts))
	cmd.AddCommand(NewSinkSmokeCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// newLogger writes diagnostics to w. JSON output gets JSON records so both
// streams stay machine-readable.
func newLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// exportMetrics records the outcome of command into the configured metrics
// file. Export failures are logged, never returned: they must not change the
// command's exit code.
func (o *RootOptions) exportMetrics(command string, runErr error, observe func(*metrics.Recorder)) {
	if o.Config == nil || o.Config.MetricsFile == "" {
		return
	}
	rec := metrics.NewRecorder()
	if observe != nil {
		observe(rec)
	}
	rec.SetSuccess(command, runErr == nil)
	if err := rec.WriteTextfile(o.Config.MetricsFile); err != nil {
		o.Logger.Warn("metrics export failed", "path", o.Config.MetricsFile, "error", err)
	}
}
