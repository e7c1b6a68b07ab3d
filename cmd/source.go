package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aiagents-directory/directory-cli/internal/enrich"
	"github.com/aiagents-directory/directory-cli/internal/filter"
	"github.com/aiagents-directory/directory-cli/internal/sourcing"
)

var (
	sourceSet        string
	sourceQueries    []string
	sourceTBS        string
	sourceLimit      int
	sourceAutoEnrich bool
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Discover candidate agents from SERP queries",
	Long:  "Runs the day's query set (or a named one) against Firecrawl Search, normalizes and filters results, and creates submissions for new identities.",
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

		var qf *sourcing.QueryFile
		setName := sourceSet
		if len(sourceQueries) > 0 {
			qf = &sourcing.QueryFile{Sets: map[string][]string{"adhoc": sourceQueries}}
			setName = "adhoc"
		} else {
			qf, err = sourcing.LoadQueries(cfg.Sourcing.QueriesFile)
			if err != nil {
				return eris.Wrap(err, "load queries")
			}
		}

		srcCfg := cfg.Sourcing
		if sourceTBS != "" {
			srcCfg.Recency = sourceTBS
		}
		if sourceLimit > 0 {
			srcCfg.ResultsPerQuery = sourceLimit
		}

		fc := initFirecrawl()
		runner := sourcing.NewRunner(st, fc, filter.NewChain(cfg.Filter), srcCfg)
		summary, err := runner.Run(ctx, qf, setName)
		if err != nil {
			return eris.Wrap(err, "sourcing run")
		}
		if err := printJSON(summary); err != nil {
			return err
		}

		if sourceAutoEnrich && summary.Created > 0 {
			as, err := initAssets()
			if err != nil {
				return err
			}
			w := enrich.NewWorker(st, initExtractChain(fc), as, cfg.Enrich)
			enrichSummary, err := w.Run(ctx, summary.Created)
			if err != nil {
				return eris.Wrap(err, "auto-enrich run")
			}
			return printJSON(enrichSummary)
		}
		return nil
	},
}

func init() {
	sourceCmd.Flags().StringVar(&sourceSet, "set", "", `query set to run ("all" runs every set; default rotates daily)`)
	sourceCmd.Flags().StringArrayVar(&sourceQueries, "query", nil, "ad-hoc query to run instead of the configured sets (repeatable)")
	sourceCmd.Flags().StringVar(&sourceTBS, "tbs", "", `search recency filter (e.g. "qdr:w"), overrides config`)
	sourceCmd.Flags().IntVar(&sourceLimit, "limit", 0, "results per query (default from config)")
	sourceCmd.Flags().BoolVar(&sourceAutoEnrich, "auto-enrich", false, "run an enrichment pass over submissions created by this run")
	rootCmd.AddCommand(sourceCmd)
}
