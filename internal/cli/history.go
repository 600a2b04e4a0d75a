package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/cdcflow/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List journaled compiles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), rootOpts, limit, cmd)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of most recent compiles to show")

	return cmd
}

func runHistory(ctx context.Context, opts *RootOptions, limit int, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Config.Journal == "" {
		if formatter.Format == "json" {
			return formatter.Success([]*store.Compile{})
		}
		fmt.Fprintln(formatter.Writer, "No journal configured: set journal in cdcflow.yaml or pass --journal")
		return nil
	}

	j, err := store.Open(opts.Config.Journal)
	if err != nil {
		return fail(formatter, err)
	}
	defer j.Close()

	compiles, err := j.History(ctx, limit)
	if err != nil {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		if compiles == nil {
			compiles = []*store.Compile{}
		}
		return formatter.Success(compiles)
	}
	if len(compiles) == 0 {
		fmt.Fprintln(formatter.Writer, "No compiles journaled")
		return nil
	}
	rows := make([]table.Row, len(compiles))
	for i, c := range compiles {
		rows[i] = table.Row{
			c.Seq,
			c.CompiledAt.UTC().Format(time.RFC3339),
			c.SpecPath,
			c.EntryCount,
			c.RepairCount,
			c.RegistrySHA256[:12],
		}
	}
	formatter.Table(table.Row{"#", "Compiled", "Spec", "Entries", "Repairs", "Registry"}, rows)
	return nil
}
