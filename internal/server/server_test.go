package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Subham15-Dutta/roadresq/internal/db"
	"github.com/Subham15-Dutta/roadresq/internal/incident"
	"github.com/Subham15-Dutta/roadresq/internal/nlu"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *incident.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := incident.NewStore(database)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	srv := New(Config{Port: 0}, database, discardLogger())
	return srv, store
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

// dialIntake connects a websocket client to the intake endpoint of a test
// server.
func dialIntake(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/intake"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendIntake(t *testing.T, conn *websocket.Conn, req intakeRequest) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("sending %+v: %v", req, err)
	}
}

// readUntil reads responses until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) intakeResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q response: %v", wantType, err)
		}
		var resp intakeResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			t.Fatalf("decoding %s: %v", msg, err)
		}
		if resp.Type == wantType {
			return resp
		}
	}
}

func TestIntakeSession(t *testing.T) {
	srv, store := newTestServer(t)
	RegisterIntakeRoutes(srv.Router(), IntakeDeps{
		Store:      store,
		Classifier: nlu.NewClassifier(),
		Logger:     discardLogger(),
		Greeting:   "Test line, state your emergency.",
	})

	conn := dialIntake(t, srv)

	sendIntake(t, conn, intakeRequest{Type: "start"})
	if resp := readUntil(t, conn, "state"); resp.State != "COLLECTING_TYPE" {
		t.Fatalf("state after start = %s", resp.State)
	}
	if resp := readUntil(t, conn, "prompt"); resp.Text != "Test line, state your emergency." {
		t.Errorf("greeting = %q", resp.Text)
	}

	sendIntake(t, conn, intakeRequest{Type: "transcript", Text: "my car broke down", Typed: true})
	if resp := readUntil(t, conn, "state"); resp.State != "COLLECTING_LOCATION" {
		t.Fatalf("state after type = %s", resp.State)
	}

	sendIntake(t, conn, intakeRequest{Type: "transcript", Text: "exit 12 on the interstate", Typed: true})
	if resp := readUntil(t, conn, "state"); resp.State != "COLLECTING_PEOPLE" {
		t.Fatalf("state after location = %s", resp.State)
	}

	sendIntake(t, conn, intakeRequest{Type: "submit_now"})
	resp := readUntil(t, conn, "incident")
	if resp.Incident == nil {
		t.Fatal("incident response missing payload")
	}
	if resp.Incident.Type != "breakdown" {
		t.Errorf("incident type = %s, want breakdown", resp.Incident.Type)
	}
	if resp.Incident.Location != "exit 12 on the interstate" {
		t.Errorf("incident location = %q", resp.Incident.Location)
	}
	if resp.Incident.PeopleCount != 1 {
		t.Errorf("people count = %d, want 1", resp.Incident.PeopleCount)
	}
}

func TestIntakeQuickTypeAutoStarts(t *testing.T) {
	srv, store := newTestServer(t)
	RegisterIntakeRoutes(srv.Router(), IntakeDeps{
		Store:      store,
		Classifier: nlu.NewClassifier(),
		Logger:     discardLogger(),
	})

	conn := dialIntake(t, srv)

	// No explicit start: the quick-type button implies one.
	sendIntake(t, conn, intakeRequest{Type: "quick_type", IncidentType: "fire"})
	if resp := readUntil(t, conn, "state"); resp.State != "COLLECTING_TYPE" {
		t.Fatalf("first state = %s, want COLLECTING_TYPE", resp.State)
	}
	if resp := readUntil(t, conn, "state"); resp.State != "COLLECTING_LOCATION" {
		t.Fatalf("second state = %s, want COLLECTING_LOCATION", resp.State)
	}
}

func TestIntakeGeoMessage(t *testing.T) {
	srv, store := newTestServer(t)
	RegisterIntakeRoutes(srv.Router(), IntakeDeps{
		Store:      store,
		Classifier: nlu.NewClassifier(),
		Logger:     discardLogger(),
	})

	conn := dialIntake(t, srv)

	sendIntake(t, conn, intakeRequest{Type: "start"})
	readUntil(t, conn, "state")

	// The browser's use-my-location button delivers device coordinates.
	sendIntake(t, conn, intakeRequest{Type: "geo", Lat: 12.34, Lng: 56.78})
	sendIntake(t, conn, intakeRequest{Type: "submit_now"})

	resp := readUntil(t, conn, "incident")
	if resp.Incident == nil || resp.Incident.Coordinates == nil {
		t.Fatalf("incident missing coordinates: %+v", resp.Incident)
	}
	if resp.Incident.Coordinates.Lat != 12.34 || resp.Incident.Coordinates.Lng != 56.78 {
		t.Errorf("coordinates = %+v", resp.Incident.Coordinates)
	}
	if resp.Incident.Location != "Near 12.3400, 56.7800" {
		t.Errorf("location = %q, want the derived label", resp.Incident.Location)
	}
}

func TestIntakeRejectsUnknownTypes(t *testing.T) {
	srv, store := newTestServer(t)
	RegisterIntakeRoutes(srv.Router(), IntakeDeps{
		Store:      store,
		Classifier: nlu.NewClassifier(),
		Logger:     discardLogger(),
	})

	conn := dialIntake(t, srv)

	sendIntake(t, conn, intakeRequest{Type: "quick_type", IncidentType: "meteor"})
	resp := readUntil(t, conn, "error")
	if !strings.Contains(resp.Text, "meteor") {
		t.Errorf("error text = %q", resp.Text)
	}

	sendIntake(t, conn, intakeRequest{Type: "frobnicate"})
	resp = readUntil(t, conn, "error")
	if !strings.Contains(resp.Text, "unknown message type") {
		t.Errorf("error text = %q", resp.Text)
	}
}

func TestIntakeTrain(t *testing.T) {
	srv, store := newTestServer(t)
	classifier := nlu.NewClassifier()
	RegisterIntakeRoutes(srv.Router(), IntakeDeps{
		Store:      store,
		Classifier: classifier,
		Logger:     discardLogger(),
	})

	conn := dialIntake(t, srv)

	sendIntake(t, conn, intakeRequest{Type: "train", Phrase: "carjacked", IncidentType: "theft"})
	resp := readUntil(t, conn, "trained")
	if !strings.Contains(resp.Text, "carjacked") {
		t.Errorf("trained text = %q", resp.Text)
	}

	intent, ok := classifier.Classify("I got carjacked")
	if !ok || intent.Type != nlu.IntentTheft {
		t.Errorf("trained phrase not classifying: %v ok=%v", intent, ok)
	}
}
