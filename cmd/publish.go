package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aiagents-directory/directory-cli/internal/publish"
)

var (
	publishLimit  int
	publishDryRun bool
	rejectLimit   int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish approved submissions to the directory",
	Long:  "Creates directory entries for approved submissions. Identities that became live since approval are discarded as duplicates; re-running after a partial failure is safe.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := publish.NewPublisher(st).PublishBatch(ctx, publishLimit, publishDryRun)
		if err != nil {
			return eris.Wrap(err, "publish batch")
		}

		return printJSON(summary)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Discard rejected submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := publish.NewPublisher(st).RejectBatch(ctx, rejectLimit)
		if err != nil {
			return eris.Wrap(err, "reject batch")
		}

		return printJSON(summary)
	},
}

func init() {
	publishCmd.Flags().IntVar(&publishLimit, "limit", 100, "maximum submissions per sweep")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "list what would be published without writing")
	rejectCmd.Flags().IntVar(&rejectLimit, "limit", 100, "maximum submissions per sweep")
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(rejectCmd)
}
