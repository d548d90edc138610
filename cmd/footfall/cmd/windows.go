// v0
// cmd/footfall/cmd/windows.go
package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/calendar"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
)

type windowRow struct {
	Start      time.Time `json:"start" yaml:"start"`
	End        time.Time `json:"end" yaml:"end"`
	Peak       time.Time `json:"peak" yaml:"peak"`
	Empty      bool      `json:"empty" yaml:"empty"`
	Timestamps int       `json:"timestamps" yaml:"timestamps"`
}

func newWindowsCmd(root *rootOptions) *cobra.Command {
	var (
		run    runFlags
		format string
		tail   bool
	)
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Preview the anomaly windows for the configured range",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logger.Close()
			if err := run.apply(cmd, &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("tail") {
				cfg.Run.IncludeTail = tail
			}
			// placement ignores holidays
			req := cfg.Request(cfg.Metrics[0], calendar.HolidaySet{})
			ws, err := generator.Windows(req)
			if err != nil {
				return err
			}
			rows := make([]windowRow, 0, len(ws))
			for _, w := range ws {
				rows = append(rows, windowRow{Start: w.Start, End: w.End, Peak: w.Peak(), Empty: w.Empty(), Timestamps: w.Timestamps.Len()})
			}
			return printWindows(cmd, format, rows)
		},
	}
	addRunFlags(cmd, &run)
	cmd.Flags().StringVar(&format, "format", "table", "table, json or yaml")
	cmd.Flags().BoolVar(&tail, "tail", false, "close a window after the last anchor")
	return cmd
}

func printWindows(cmd *cobra.Command, format string, rows []windowRow) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(rows)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "START\tEND\tPEAK\tTIMESTAMPS")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
				r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), r.Peak.Format(time.RFC3339), r.Timestamps)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
