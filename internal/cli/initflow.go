package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cdcflow/internal/artifact"
	"github.com/roach88/cdcflow/internal/flow"
)

// NewInitFlowCommand creates the init-flow command.
func NewInitFlowCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-flow",
		Short: "Write the canonical flow template",
		Long: `Init-flow writes the canonical six-processor flow document with an empty
lookup service. The next compile fills it from the registry. An existing
flow is only replaced with --force.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitFlow(cmd.Context(), rootOpts, force, cmd)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing flow document")

	return cmd
}

func runInitFlow(ctx context.Context, opts *RootOptions, force bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	path := opts.Config.Flow

	_, err := os.Stat(path)
	switch {
	case err == nil && !force:
		msg := fmt.Sprintf("flow %s already exists (use --force to overwrite)", path)
		_ = formatter.Error(ErrCodeFlowExists, msg, nil)
		return NewExitError(ExitFailure, msg)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fail(formatter, err)
	}

	changed, err := artifact.Write(ctx, opts.Logger, artifact.File{Path: path, Data: flow.TemplateBytes()})
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"flow": path, "changed": changed})
	}
	if changed {
		fmt.Fprintf(formatter.Writer, "Wrote canonical flow template to %s\n", path)
	} else {
		fmt.Fprintf(formatter.Writer, "%s already matches the canonical template\n", path)
	}
	return nil
}
