package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Subham15-Dutta/roadresq/internal/db"
	"github.com/Subham15-Dutta/roadresq/internal/nlu"
)

var trainType string

var trainCmd = &cobra.Command{
	Use:   "train <phrase>",
	Short: "Train a custom phrase to classify as an incident type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		t := nlu.IntentType(trainType)
		if !nlu.ValidIntent(t) {
			return fmt.Errorf("unknown incident type %q: must be one of medical, breakdown, theft, fire, other", trainType)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "roadresq.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		rules := nlu.NewRuleStore(database)
		if err := rules.Save(cmd.Context(), nlu.Rule{Phrase: args[0], Intent: t}); err != nil {
			return fmt.Errorf("saving rule: %w", err)
		}

		fmt.Printf("Trained: %q -> %s\n", args[0], t)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainType, "type", "", "Target incident type (required)")
	trainCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(trainCmd)
}
