package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Subham15-Dutta/roadresq/internal/config"
	"github.com/Subham15-Dutta/roadresq/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "roadresq",
	Short: "Conversational roadside emergency intake and dispatch tracking",
	Long: `RoadResQ turns spoken or typed reports into structured emergency
incidents. A dialog engine collects the incident type, location, and the
number of people involved, and tracks each record through its resolution
lifecycle.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".roadresq.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the application logger from config and the verbose flag.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	return logging.NewLogger(level)
}

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
