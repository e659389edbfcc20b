package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows queue and worker statistics of a running resize service",
	RunE: func(_ *cobra.Command, _ []string) error {
		stats, err := newClient().Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to retrieve stats: %w", err)
		}

		switch statsFormat {
		case "json":
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(stats)
		case "yaml":
			encoder := yaml.NewEncoder(os.Stdout)
			encoder.SetIndent(2)
			defer encoder.Close()
			return encoder.Encode(stats)
		case "table":
		default:
			return fmt.Errorf("unknown output format %q (table, json, yaml)", statsFormat)
		}

		state := "idle"
		switch {
		case !stats.Running:
			state = "stopped"
		case stats.Busy:
			state = "busy"
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "WORKER\tQUEUE\tENQUEUED\tCOMPLETED\tFAILED\tPANICS\tABANDONED\tLAST JOB")
		fmt.Fprintf(w, "%s\t%d/%d\t%d\t%d\t%d\t%d\t%d\t%dms\n",
			state,
			stats.QueueLength, stats.QueueCapacity,
			stats.Enqueued,
			stats.Completed,
			stats.Failed,
			stats.Panics,
			stats.Abandoned,
			stats.LastDurationMillis,
		)
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statsCmd.Flags().StringVarP(&statsFormat, "output", "o", "table", "Output format: table, json or yaml")
	rootCmd.AddCommand(statsCmd)
}
