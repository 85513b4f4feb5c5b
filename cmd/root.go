// Package cmd holds the pagedtable command line.
package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pagedtable/config"
	"pagedtable/logging"
)

// runtime is what every command needs after the persistent pre-run.
type runtime struct {
	v        *viper.Viper
	cfg      *config.Config
	log      *logrus.Entry
	closeLog func()
}

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"source":    "source.kind",
	"file":      "source.file",
	"profile":   "source.profile",
	"table":     "source.table",
	"rows":      "source.rows",
	"chaos":     "source.chaos",
	"latency":   "source.latency",
	"fetch":     "table.fetch_size",
	"log-level": "logger.level",
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rt := &runtime{v: config.New()}
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "pagedtable",
		Short:        "Browse large tables one page at a time",
		Long:         `Open a generated, file or Delta Sharing table in a virtualized grid that fetches rows page by page as you scroll.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(configPath)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			rt.teardown()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGUI(cmd.Context(), rt)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "config file (default ./pagedtable.yaml or $HOME/.pagedtable/pagedtable.yaml)")
	f.String("source", "", "data source: dummy, file or deltasharing (inferred from --file / --profile)")
	f.String("file", "", "CSV, TSV, Parquet or JSON file to open")
	f.String("profile", "", "Delta Sharing profile file")
	f.String("table", "", "shared table as share.schema.table")
	f.Int("rows", 1000, "rows generated by the dummy source")
	f.Float64("chaos", 0, "probability that a dummy page fetch fails")
	f.Duration("latency", 0, "simulated latency of each dummy page fetch")
	f.Int("fetch", 100, "rows per page")
	f.String("log-level", "info", "log level: trace, debug, info, warn or error")
	for name, key := range flagKeys {
		_ = rt.v.BindPFlag(key, f.Lookup(name))
	}

	rootCmd.AddCommand(
		newGUICommand(rt),
		newTUICommand(rt),
		newExportCommand(rt),
	)
	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (rt *runtime) setup(configPath string) error {
	cfg, err := config.LoadConfig(rt.v, configPath)
	if err != nil {
		return err
	}
	if inferSourceKind(rt.v, cfg) {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	closeLog, err := logging.Init(cfg.Logger)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.closeLog = closeLog
	rt.log = logging.Component("cmd")
	rt.log.WithFields(logrus.Fields{
		"source": cfg.Source.Kind,
		"config": rt.v.ConfigFileUsed(),
	}).Debug("configuration loaded")
	return nil
}

func (rt *runtime) teardown() {
	if rt.closeLog != nil {
		rt.closeLog()
	}
}

// inferSourceKind picks the file or deltasharing source when only its
// location was given. It reports whether cfg changed.
func inferSourceKind(v *viper.Viper, cfg *config.Config) bool {
	if v.IsSet("source.kind") {
		return false
	}
	switch {
	case cfg.Source.File != "":
		cfg.Source.Kind = config.SourceFile
	case cfg.Source.Profile != "":
		cfg.Source.Kind = config.SourceDeltaSharing
	default:
		return false
	}
	return true
}
