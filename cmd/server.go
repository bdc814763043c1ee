package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Subham15-Dutta/roadresq/internal/db"
	"github.com/Subham15-Dutta/roadresq/internal/dialog"
	"github.com/Subham15-Dutta/roadresq/internal/geo"
	"github.com/Subham15-Dutta/roadresq/internal/incident"
	"github.com/Subham15-Dutta/roadresq/internal/logging"
	"github.com/Subham15-Dutta/roadresq/internal/nlu"
	"github.com/Subham15-Dutta/roadresq/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the intake and dashboard server",
	Long:  `Starts the roadresq server with the dashboard REST API, Prometheus metrics, and the live intake WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if serverPort != 0 {
			cfg.Port = serverPort
		}
		logger := newLogger(cfg)

		// Open database.
		dbPath := filepath.Join(cfg.DataDir, "roadresq.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// Incident store.
		store, err := incident.NewStore(database)
		if err != nil {
			return fmt.Errorf("creating incident store: %w", err)
		}

		// Classifier, replaying persisted training.
		classifier := nlu.NewClassifier()
		ruleStore := nlu.NewRuleStore(database)
		rules, err := ruleStore.LoadAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading trained rules: %w", err)
		}
		for _, r := range rules {
			classifier.AddCustomIntent(r.Phrase, r.Intent)
		}
		logger.Info("classifier ready", "trained_rules", len(rules))

		// Geocoder.
		var geocoder dialog.Geocoder
		if cfg.Geocoder.Enabled {
			geocoder = geo.NewClient(
				cfg.Geocoder.BaseURL,
				cfg.Geocoder.UserAgent,
				time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second,
			)
		}

		// Create the server and register feature routes.
		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.CORS.AllowAll,
		}, database, logger)

		r := srv.Router()
		incident.RegisterRoutes(r, store)
		nlu.RegisterRoutes(r, classifier, ruleStore)
		server.RegisterIntakeRoutes(r, server.IntakeDeps{
			Store:      store,
			Classifier: classifier,
			Rules:      ruleStore,
			Geocoder:   geocoder,
			Logger:     logging.WithComponent(logger, "intake"),
			Greeting:   cfg.Greeting,
		})

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		logger.Info("roadresq starting",
			"version", Version,
			"port", cfg.Port,
			"database", dbPath,
			"geocoder_enabled", cfg.Geocoder.Enabled,
		)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
