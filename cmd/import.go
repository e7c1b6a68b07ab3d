package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aiagents-directory/directory-cli/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import <agents.json>",
	Short: "Seed the directory from an existing export",
	Long:  "Imports a JSON array of published agents so the dedup index covers entries that predate this pipeline. Identity keys already present are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var agents []model.PublishedAgent
		if err := json.Unmarshal(data, &agents); err != nil {
			return eris.Wrap(err, "parse agents export")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		imported, err := st.ImportAgents(ctx, agents)
		if err != nil {
			return eris.Wrap(err, "import agents")
		}

		zap.L().Info("import complete",
			zap.Int("in_file", len(agents)),
			zap.Int("imported", imported),
			zap.Int("skipped", len(agents)-imported),
		)
		return printJSON(map[string]int{"imported": imported, "skipped": len(agents) - imported})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
