package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/publish"
)

var overrideNote string

var overrideCmd = &cobra.Command{
	Use:   "override <submission-id> <approve|reject>",
	Short: "Resolve a submission waiting for manual review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, decision := args[0], model.Decision(args[1])

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sub, err := publish.NewPublisher(st).Override(ctx, id, decision, overrideNote)
		if err != nil {
			return eris.Wrap(err, "override")
		}

		return printJSON(sub)
	},
}

func init() {
	overrideCmd.Flags().StringVar(&overrideNote, "note", "", "reason recorded alongside the override")
	rootCmd.AddCommand(overrideCmd)
}
