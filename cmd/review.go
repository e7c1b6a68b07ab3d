package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aiagents-directory/directory-cli/internal/review"
	"github.com/aiagents-directory/directory-cli/pkg/anthropic"
)

var (
	reviewLimit   int
	reviewNoBatch bool
	reviewApply   bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review enriched submissions with Claude",
	Long:  "Claims enriched submissions, classifies each with the fast model (batched above the small-batch threshold), escalates borderline verdicts to the stronger model, and auto-applies confident decisions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("anthropic", "review"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		aiCfg := cfg.Anthropic
		if reviewNoBatch {
			aiCfg.NoBatch = true
		}

		reviewCfg := cfg.Review
		if cmd.Flags().Changed("auto-apply") {
			reviewCfg.AutoApply = reviewApply
		}

		w := review.NewWorker(st, anthropic.NewClient(aiCfg.Key), aiCfg, reviewCfg)
		summary, err := w.Run(ctx, reviewLimit)
		if err != nil {
			return eris.Wrap(err, "review run")
		}

		return printJSON(summary)
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 50, "maximum submissions to claim")
	reviewCmd.Flags().BoolVar(&reviewNoBatch, "no-batch", false, "force direct messages instead of the Batches API")
	reviewCmd.Flags().BoolVar(&reviewApply, "auto-apply", true, "apply confident verdicts; with =false every verdict parks at reviewed")
	rootCmd.AddCommand(reviewCmd)
}
