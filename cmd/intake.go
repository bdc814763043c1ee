package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Subham15-Dutta/roadresq/internal/db"
	"github.com/Subham15-Dutta/roadresq/internal/dialog"
	"github.com/Subham15-Dutta/roadresq/internal/geo"
	"github.com/Subham15-Dutta/roadresq/internal/incident"
	"github.com/Subham15-Dutta/roadresq/internal/nlu"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Run an interactive intake session in the terminal",
	Long: `Starts a typed intake conversation against the local incident
database. Slash commands: /quick <type>, /submit, /reset, /train <phrase> => <type>, /exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := newLogger(cfg)

		database, err := db.Open(filepath.Join(cfg.DataDir, "roadresq.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store, err := incident.NewStore(database)
		if err != nil {
			return fmt.Errorf("creating incident store: %w", err)
		}

		classifier := nlu.NewClassifier()
		ruleStore := nlu.NewRuleStore(database)
		rules, err := ruleStore.LoadAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading trained rules: %w", err)
		}
		for _, r := range rules {
			classifier.AddCustomIntent(r.Phrase, r.Intent)
		}

		var geocoder dialog.Geocoder
		if cfg.Geocoder.Enabled {
			geocoder = geo.NewClient(
				cfg.Geocoder.BaseURL,
				cfg.Geocoder.UserAgent,
				time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second,
			)
		}

		m := dialog.NewManager(dialog.Options{
			Classifier: classifier,
			Store:      store,
			Sink:       &consoleSink{},
			Geocoder:   geocoder,
			Logger:     logger,
			Greeting:   cfg.Greeting,
		})

		ctx := cmd.Context()
		if err := m.Start(ctx); err != nil {
			return err
		}

		for {
			prompt := promptui.Prompt{Label: "You"}
			line, err := prompt.Run()
			if err != nil {
				// Interrupt or EOF ends the session.
				fmt.Println("Session ended.")
				return nil
			}
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "/") {
				done, err := runIntakeCommand(ctx, m, classifier, ruleStore, line)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
				}
				if done {
					return nil
				}
				continue
			}

			if err := m.OnTranscript(ctx, line, true); err != nil {
				fmt.Printf("Error: %v\n", err)
			}

			if m.State() == dialog.StateComplete {
				fmt.Println("Report complete. Run roadresq intake again to file another.")
				return nil
			}
		}
	},
}

// runIntakeCommand handles the slash commands of the intake loop. The first
// return value is true when the session should end.
func runIntakeCommand(ctx context.Context, m *dialog.Manager, classifier *nlu.Classifier, ruleStore *nlu.RuleStore, line string) (bool, error) {
	cmdWord, rest, _ := strings.Cut(line, " ")
	switch cmdWord {
	case "/exit", "/quit":
		return true, nil
	case "/submit":
		if err := m.SubmitNow(ctx); err != nil {
			return false, err
		}
		return m.State() == dialog.StateComplete, nil
	case "/reset":
		m.Reset()
		if err := m.Start(ctx); err != nil {
			return false, err
		}
		return false, nil
	case "/quick":
		t := nlu.IntentType(strings.TrimSpace(rest))
		if !nlu.ValidIntent(t) {
			return false, fmt.Errorf("unknown incident type %q", rest)
		}
		return false, m.QuickType(t)
	case "/train":
		phrase, target, found := strings.Cut(rest, "=>")
		if !found {
			return false, fmt.Errorf("usage: /train <phrase> => <type>")
		}
		phrase = strings.TrimSpace(phrase)
		t := nlu.IntentType(strings.TrimSpace(target))
		if phrase == "" || !nlu.ValidIntent(t) {
			return false, fmt.Errorf("usage: /train <phrase> => <type>")
		}
		classifier.AddCustomIntent(phrase, t)
		if err := ruleStore.Save(ctx, nlu.Rule{Phrase: phrase, Intent: t}); err != nil {
			return false, err
		}
		fmt.Printf("Trained: %q -> %s\n", phrase, t)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", cmdWord)
	}
}

// consoleSink renders dialog output on the terminal.
type consoleSink struct{}

func (consoleSink) Say(text string) {
	fmt.Printf("Operator: %s\n", text)
}

func (consoleSink) StateChanged(s dialog.State) {}

func (consoleSink) IncidentCreated(inc *incident.Incident) {
	fmt.Printf("\n  Incident %s\n", inc.ID)
	fmt.Printf("  Type:     %s\n", inc.Type)
	if inc.SubService != "" {
		fmt.Printf("  Service:  %s\n", inc.SubService)
	}
	fmt.Printf("  Location: %s\n", inc.Location)
	if inc.Coordinates != nil {
		fmt.Printf("  Coords:   %.4f, %.4f\n", inc.Coordinates.Lat, inc.Coordinates.Lng)
	}
	fmt.Printf("  People:   %d\n", inc.PeopleCount)
	fmt.Printf("  Status:   %s\n\n", inc.Status)
}

func init() {
	rootCmd.AddCommand(intakeCmd)
}
