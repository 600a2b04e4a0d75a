package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cdcflow/internal/registry"
	"github.com/roach88/cdcflow/internal/spec"
)

// RenderedQuery is one rendered registry entry.
type RenderedQuery struct {
	SQLID string `json:"sql_id"`
	SQL   string `json:"sql"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	var rangeFlag string

	cmd := &cobra.Command{
		Use:   "render <spec-path>",
		Short: "Print the SQL rendered for a spec",
		Long: `Render prints the SQL of every range window of a spec, or of one window
with --range. Nothing is read besides the spec and nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, args[0], spec.Range(rangeFlag), cmd)
		},
	}

	cmd.Flags().StringVar(&rangeFlag, "range", "", "render only this range window (e.g. 5m)")

	return cmd
}

func runRender(opts *RootOptions, specPath string, r spec.Range, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := spec.Load(specPath)
	if err != nil {
		return fail(formatter, err)
	}
	if r != "" && !slices.Contains(s.Range.Options, r) {
		msg := fmt.Sprintf("range %q is not one of %v in %s", r, s.Range.Options, specPath)
		_ = formatter.Error(ErrCodeUsage, msg, nil)
		return NewExitError(ExitFailure, msg)
	}

	reg, err := registry.Build(s)
	if err != nil {
		return fail(formatter, err)
	}

	var out []RenderedQuery
	for _, id := range reg.Keys() {
		e, _ := reg.Get(id)
		if r != "" && e.Range != r {
			continue
		}
		out = append(out, RenderedQuery{SQLID: id, SQL: e.SQL})
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	for i, q := range out {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		fmt.Fprintf(formatter.Writer, "-- %s\n%s\n", q.SQLID, q.SQL)
	}
	return nil
}
