package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"pagedtable/config"
	"pagedtable/windows"
)

func newGUICommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Args:  cobra.NoArgs,
		Short: "Open the desktop grid (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGUI(cmd.Context(), rt)
		},
	}
}

// runGUI opens the configured source in the desktop window. A
// deltasharing source without a table only fills the share tree.
func runGUI(ctx context.Context, rt *runtime) error {
	mw := windows.NewMainWindow(ctx, rt.cfg, rt.log)

	if rt.cfg.Source.Kind == config.SourceDeltaSharing {
		mw.LoadProfile(rt.cfg.Source.Profile)
	}
	opened, err := openSource(ctx, rt.cfg, rt.log)
	switch {
	case errors.Is(err, errNoTable):
	case err != nil:
		return err
	default:
		if err := mw.OpenSource(opened.name, opened.src, opened.columns); err != nil {
			return err
		}
	}

	mw.ShowAndRun()
	return nil
}
