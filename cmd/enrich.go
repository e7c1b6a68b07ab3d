package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aiagents-directory/directory-cli/internal/enrich"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich claimed submissions with scraped content and assets",
	Long:  "Claims discovered submissions (and retry-eligible failures), scrapes each product page, resolves aggregator listings to the underlying product, and stores logos and screenshots.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("firecrawl"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		as, err := initAssets()
		if err != nil {
			return eris.Wrap(err, "init assets store")
		}

		w := enrich.NewWorker(st, initExtractChain(initFirecrawl()), as, cfg.Enrich)
		summary, err := w.Run(ctx, enrichLimit)
		if err != nil {
			return eris.Wrap(err, "enrich run")
		}

		return printJSON(summary)
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 50, "maximum submissions to claim")
	rootCmd.AddCommand(enrichCmd)
}
