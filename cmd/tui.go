package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"pagedtable/internal/grid"
	"pagedtable/logging"
	"pagedtable/tui"
)

func newTUICommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Args:    cobra.NoArgs,
		Aliases: []string{"term"},
		Short:   "Browse the table in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if rt.cfg.Logger.Output != "file" {
				// the alternate screen owns the terminal
				logging.StandardLogger().SetOutput(io.Discard)
			}
			opened, err := openSource(ctx, rt.cfg, rt.log)
			if err != nil {
				return err
			}
			g, err := grid.New(opened.src, opened.columns, tui.GridConfig(rt.cfg.GridConfig()), rt.log)
			if err != nil {
				return err
			}
			defer g.Close()
			return tui.Run(ctx, g, opened.name)
		},
	}
}
