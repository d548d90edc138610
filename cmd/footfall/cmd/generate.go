// v0
// cmd/footfall/cmd/generate.go
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/metrics"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/sink"
)

type generateOptions struct {
	run      runFlags
	metrics  []string
	dryRun   bool
	printOut bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the configured series and persist them to the enabled sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	addRunFlags(cmd, &opts.run)
	cmd.Flags().StringSliceVar(&opts.metrics, "metric", nil, "only generate these metrics (repeatable)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "skip the sinks")
	cmd.Flags().BoolVar(&opts.printOut, "print", false, "write every result as JSON to stdout")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	// --print owns stdout for JSON lines
	console := io.Writer(os.Stdout)
	if opts.printOut {
		console = cmd.ErrOrStderr()
	}
	cfg, logger, err := root.load(console)
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger
	if err := opts.run.apply(cmd, &cfg); err != nil {
		log.Error("config error", "err", err)
		return err
	}

	ctx := cmd.Context()
	reqs, err := cfg.Requests(ctx)
	if err != nil {
		return err
	}
	reqs, err = selectMetrics(reqs, opts.metrics)
	if err != nil {
		return err
	}

	m := metrics.New()
	runner := generator.NewRunner(log, m)
	var sinks *sink.Multi
	if !opts.dryRun {
		if sinks, err = sink.Build(ctx, cfg.Sinks, log, m); err != nil {
			return err
		}
		defer sinks.Close()
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	if !opts.printOut {
		fmt.Fprintln(w, "RUN\tMETRIC\tUSE CASE\tRECORDS\tWINDOWS")
	}
	for _, req := range reqs {
		res, err := runner.Run(ctx, req)
		if err != nil {
			return fmt.Errorf("metric %s: %w", req.Metric, err)
		}
		if sinks != nil {
			if err := sinks.Write(ctx, sink.FromResult(res, "", cfg.Run.Update)); err != nil {
				log.Error("persist failed", slog.String("metric", res.Metric), slog.Any("err", err))
				return err
			}
		}
		if opts.printOut {
			if err := json.NewEncoder(out).Encode(res); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", res.RunID, res.Metric, res.UseCase, res.Len(), res.Windows)
	}
	return w.Flush()
}

func selectMetrics(reqs []generator.Request, names []string) ([]generator.Request, error) {
	if len(names) == 0 {
		return reqs, nil
	}
	var out []generator.Request
	for _, name := range names {
		found := false
		for _, req := range reqs {
			if strings.EqualFold(req.Metric, name) {
				out = append(out, req)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("metric %q is not configured", name)
		}
	}
	return out, nil
}
