package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Subham15-Dutta/roadresq/internal/dialog"
	"github.com/Subham15-Dutta/roadresq/internal/geo"
	"github.com/Subham15-Dutta/roadresq/internal/incident"
	"github.com/Subham15-Dutta/roadresq/internal/nlu"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// IntakeDeps bundles everything a live intake session needs.
type IntakeDeps struct {
	Store      *incident.Store
	Classifier *nlu.Classifier
	Rules      *nlu.RuleStore // optional; nil disables training persistence
	Geocoder   dialog.Geocoder
	Logger     *slog.Logger
	Greeting   string
}

// RegisterIntakeRoutes mounts the live intake WebSocket. Each connection
// gets its own dialog session; the connection is the transcript source and
// the rendering sink at once.
func RegisterIntakeRoutes(r chi.Router, deps IntakeDeps) {
	r.Get("/ws/intake", handleIntake(deps))
}

// intakeRequest is the incoming WebSocket message format.
type intakeRequest struct {
	Type         string  `json:"type"` // start|transcript|quick_type|submit_now|reset|geo|train
	Text         string  `json:"text,omitempty"`
	Typed        bool    `json:"typed,omitempty"`
	IncidentType string  `json:"incident_type,omitempty"`
	Phrase       string  `json:"phrase,omitempty"`
	Lat          float64 `json:"lat,omitempty"`
	Lng          float64 `json:"lng,omitempty"`
}

// intakeResponse is the outgoing WebSocket message format.
type intakeResponse struct {
	Type     string             `json:"type"` // prompt|state|incident|trained|error
	Text     string             `json:"text,omitempty"`
	State    string             `json:"state,omitempty"`
	Incident *incident.Incident `json:"incident,omitempty"`
}

// wsSink renders dialog output onto a WebSocket connection. Writes are
// serialized: prompts can arrive from the turn in progress and from the
// geocoding goroutine at once.
type wsSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *slog.Logger
}

func (s *wsSink) send(resp intakeResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write failed", "error", err)
	}
}

func (s *wsSink) Say(text string) {
	s.send(intakeResponse{Type: "prompt", Text: text})
}

func (s *wsSink) StateChanged(state dialog.State) {
	s.send(intakeResponse{Type: "state", State: string(state)})
}

func (s *wsSink) IncidentCreated(inc *incident.Incident) {
	s.send(intakeResponse{Type: "incident", Incident: inc})
}

func handleIntake(deps IntakeDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			deps.Logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		// The session outlives the upgrade request; its deadline (and the
		// router's timeout middleware) must not cancel mid-call work.
		ctx := context.Background()

		sink := &wsSink{conn: conn, logger: deps.Logger}
		m := dialog.NewManager(dialog.Options{
			Classifier: deps.Classifier,
			Store:      deps.Store,
			Sink:       sink,
			Geocoder:   deps.Geocoder,
			Logger:     deps.Logger,
			Greeting:   deps.Greeting,
		})

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					deps.Logger.Warn("websocket read failed", "error", err)
				}
				return
			}

			var req intakeRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				sink.send(intakeResponse{Type: "error", Text: "invalid message format"})
				continue
			}

			if err := dispatch(ctx, m, deps, sink, req); err != nil {
				sink.send(intakeResponse{Type: "error", Text: err.Error()})
			}
		}
	}
}

func dispatch(ctx context.Context, m *dialog.Manager, deps IntakeDeps, sink *wsSink, req intakeRequest) error {
	switch req.Type {
	case "start":
		return m.Start(ctx)
	case "transcript":
		return m.OnTranscript(ctx, req.Text, req.Typed)
	case "quick_type":
		t := nlu.IntentType(req.IncidentType)
		if !nlu.ValidIntent(t) {
			sink.send(intakeResponse{Type: "error", Text: "unknown incident type: " + req.IncidentType})
			return nil
		}
		// Mirror the quick-action buttons: a dead session restarts first.
		if s := m.State(); s == dialog.StateGreet || s == dialog.StateComplete {
			if err := m.Start(ctx); err != nil {
				return err
			}
		}
		return m.QuickType(t)
	case "submit_now":
		return m.SubmitNow(ctx)
	case "reset":
		m.Reset()
		return nil
	case "geo":
		return m.SetLocationFromGeo(m.DraftToken(), geo.Coordinates{Lat: req.Lat, Lng: req.Lng})
	case "train":
		t := nlu.IntentType(req.IncidentType)
		if req.Phrase == "" || !nlu.ValidIntent(t) {
			sink.send(intakeResponse{Type: "error", Text: "train needs a phrase and a valid incident type"})
			return nil
		}
		deps.Classifier.AddCustomIntent(req.Phrase, t)
		if deps.Rules != nil {
			if err := deps.Rules.Save(ctx, nlu.Rule{Phrase: req.Phrase, Intent: t}); err != nil {
				return err
			}
		}
		sink.send(intakeResponse{Type: "trained", Text: "Trained: \"" + req.Phrase + "\" -> " + req.IncidentType})
		return nil
	default:
		sink.send(intakeResponse{Type: "error", Text: "unknown message type: " + req.Type})
		return nil
	}
}
