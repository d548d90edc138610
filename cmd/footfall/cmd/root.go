// v0
// cmd/footfall/cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/config"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/logging"
)

type rootOptions struct {
	configPath string
	logFile    string
	logLevel   string
}

// runFlags are the per-command overrides layered on top of the loaded config.
type runFlags struct {
	start       string
	end         string
	granularity time.Duration
	anchors     int
	seed        uint64
}

// NewRootCmd assembles the footfall command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "footfall",
		Short:         "Synthetic venue time-series generator",
		Long:          `Generates footfall, free-seat, dwell-time and event series with diurnal, seasonal, holiday and anomaly effects.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "properties or YAML file (default $"+config.PropertiesEnv+")")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "log file path (overrides log.file)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")

	root.AddCommand(newGenerateCmd(opts), newWindowsCmd(opts), newServeCmd(opts))
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load resolves the config and opens the logger; console receives the log
// lines that would otherwise go to stdout.
func (o *rootOptions) load(console io.Writer) (config.Config, *logging.DualLogger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, logging.NewWithConsole(console, cfg.Log.File, cfg.Log.Level), nil
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.start, "start", "", "range start, YYYY-MM-DD or RFC3339")
	cmd.Flags().StringVar(&f.end, "end", "", "range end, YYYY-MM-DD or RFC3339")
	cmd.Flags().DurationVar(&f.granularity, "granularity", 0, "sampling step")
	cmd.Flags().IntVar(&f.anchors, "anchors", 0, "anomaly anchors; n anchors give n-1 windows")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "anchor seed")
}

// apply overwrites only the flags the user actually set.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("start") {
		t, err := config.ParseTime(f.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		cfg.Run.Start = t
	}
	if cmd.Flags().Changed("end") {
		t, err := config.ParseTime(f.end)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		cfg.Run.End = t
	}
	if cmd.Flags().Changed("granularity") {
		cfg.Run.Granularity = f.granularity
	}
	if cmd.Flags().Changed("anchors") {
		cfg.Run.Anchors = f.anchors
	}
	if cmd.Flags().Changed("seed") {
		cfg.Run.AnchorSeed = f.seed
	}
	return cfg.Validate()
}
