package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Subham15-Dutta/roadresq/internal/db"
	"github.com/Subham15-Dutta/roadresq/internal/incident"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all incidents in creation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "roadresq.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store, err := incident.NewStore(database)
		if err != nil {
			return fmt.Errorf("creating incident store: %w", err)
		}

		incidents, err := store.ExportAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("exporting incidents: %w", err)
		}
		if incidents == nil {
			incidents = []incident.Incident{}
		}

		var data []byte
		switch exportFormat {
		case "json":
			data, err = json.MarshalIndent(incidents, "", "  ")
		case "yaml":
			data, err = yaml.Marshal(incidents)
		default:
			return fmt.Errorf("unknown format %q: must be json or yaml", exportFormat)
		}
		if err != nil {
			return fmt.Errorf("encoding incidents: %w", err)
		}

		if exportOut == "" || exportOut == "-" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", exportOut, err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d incident(s) to %s\n", len(incidents), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json or yaml")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
