package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aiagents-directory/directory-cli/internal/monitoring"
)

var statusHours int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline queue depths and outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		collector := monitoring.NewCollector(st)
		var snap *monitoring.MetricsSnapshot
		if statusHours > 0 {
			snap, err = collector.CollectWindow(ctx, time.Duration(statusHours)*time.Hour)
		} else {
			snap, err = collector.Collect(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "collect status")
		}

		return printJSON(snap)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusHours, "hours", 0, "include throughput for the last N hours")
	rootCmd.AddCommand(statusCmd)
}
