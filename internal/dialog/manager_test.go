package dialog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Subham15-Dutta/roadresq/internal/db"
	"github.com/Subham15-Dutta/roadresq/internal/geo"
	"github.com/Subham15-Dutta/roadresq/internal/incident"
	"github.com/Subham15-Dutta/roadresq/internal/nlu"
)

// recordingSink captures everything the dialog emits. Async enrichment can
// call Say from other goroutines, so access is serialized.
type recordingSink struct {
	mu        sync.Mutex
	says      []string
	states    []State
	incidents []*incident.Incident
}

func (s *recordingSink) Say(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.says = append(s.says, text)
}

func (s *recordingSink) StateChanged(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *recordingSink) IncidentCreated(inc *incident.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append(s.incidents, inc)
}

func (s *recordingSink) created() []*incident.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*incident.Incident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

func (s *recordingSink) saidContaining(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, say := range s.says {
		if strings.Contains(say, substr) {
			return true
		}
	}
	return false
}

type fakeGeocoder struct {
	coords geo.Coordinates
	err    error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, location string) (geo.Coordinates, error) {
	return f.coords, f.err
}

func newTestManager(t *testing.T, geocoder Geocoder) (*Manager, *recordingSink) {
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

	sink := &recordingSink{}
	m := NewManager(Options{
		Classifier: nlu.NewClassifier(),
		Store:      store,
		Sink:       sink,
		Geocoder:   geocoder,
	})
	return m, sink
}

func say(t *testing.T, m *Manager, text string) {
	t.Helper()
	if err := m.OnTranscript(context.Background(), text, true); err != nil {
		t.Fatalf("OnTranscript(%q): %v", text, err)
	}
}

func (m *Manager) draftSnapshot() incident.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

func TestNominalFlow(t *testing.T) {
	m, sink := newTestManager(t, nil)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if m.State() != StateCollectingType {
		t.Fatalf("state after start = %s", m.State())
	}

	say(t, m, "someone is bleeding")
	if m.State() != StateCollectingLocation {
		t.Fatalf("state after type = %s", m.State())
	}

	say(t, m, "123 Main Street")
	if m.State() != StateCollectingPeople {
		t.Fatalf("state after location = %s", m.State())
	}

	say(t, m, "2 people")
	if m.State() != StateConfirming {
		t.Fatalf("state after people = %s", m.State())
	}

	say(t, m, "yes")
	if m.State() != StateComplete {
		t.Fatalf("state after confirm = %s", m.State())
	}

	created := sink.created()
	if len(created) != 1 {
		t.Fatalf("created %d incidents, want 1", len(created))
	}
	inc := created[0]
	if inc.Type != "medical" {
		t.Errorf("type = %s, want medical", inc.Type)
	}
	if inc.Location != "123 Main Street" {
		t.Errorf("location = %q", inc.Location)
	}
	if inc.PeopleCount != 2 {
		t.Errorf("people count = %d, want 2", inc.PeopleCount)
	}
	if inc.Status != incident.StatusNew {
		t.Errorf("status = %s, want %s", inc.Status, incident.StatusNew)
	}
	if inc.CallerID == "" {
		t.Error("caller id not assigned")
	}
}

func TestUnrecognizedInputsReprompt(t *testing.T) {
	m, sink := newTestManager(t, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	say(t, m, "good morning to you")
	if m.State() != StateCollectingType {
		t.Errorf("unclassified utterance advanced the state to %s", m.State())
	}
	if !sink.saidContaining(promptTypeMenu) {
		t.Error("expected the type menu reprompt")
	}

	say(t, m, "flat tire")
	say(t, m, "okay") // filler is never a location
	if m.State() != StateCollectingLocation {
		t.Errorf("filler utterance advanced the state to %s", m.State())
	}

	say(t, m, "mile marker 20")
	say(t, m, "no idea how many")
	if m.State() != StateCollectingPeople {
		t.Errorf("unparsed count advanced the state to %s", m.State())
	}
}

func TestEmptyUtteranceIgnored(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	say(t, m, "   ")
	if m.State() != StateCollectingType {
		t.Errorf("blank utterance changed state to %s", m.State())
	}
}

func TestOnTranscriptBeforeStart(t *testing.T) {
	m, _ := newTestManager(t, nil)
	err := m.OnTranscript(context.Background(), "help", true)
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("err = %v, want ErrNotStarted", err)
	}
}

func TestNegativeConfirmKeepsOtherSlots(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	say(t, m, "my car broke down")
	say(t, m, "Highway 61")
	say(t, m, "just me")
	say(t, m, "no, that's wrong")

	if m.State() != StateCollectingType {
		t.Fatalf("state after rejection = %s, want %s", m.State(), StateCollectingType)
	}
	d := m.draftSnapshot()
	if d.Type != "" {
		t.Errorf("type not cleared: %q", d.Type)
	}
	if d.Location != "Highway 61" {
		t.Errorf("location lost on rejection: %q", d.Location)
	}
	if d.PeopleCount != 1 {
		t.Errorf("people count lost on rejection: %d", d.PeopleCount)
	}
}

func TestSubmitNowDefaults(t *testing.T) {
	m, sink := newTestManager(t, nil)
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := m.SubmitNow(ctx); err != nil {
		t.Fatalf("SubmitNow: %v", err)
	}
	created := sink.created()
	if len(created) != 1 {
		t.Fatalf("created %d incidents, want 1", len(created))
	}
	inc := created[0]
	if inc.Type != "other" || inc.Location != "Unknown" || inc.PeopleCount != 1 {
		t.Errorf("defaults wrong: type=%s location=%s people=%d", inc.Type, inc.Location, inc.PeopleCount)
	}

	// Completed calls can't be re-submitted.
	if err := m.SubmitNow(ctx); !errors.Is(err, ErrSessionInactive) {
		t.Errorf("SubmitNow at COMPLETE: err = %v, want ErrSessionInactive", err)
	}
}

func TestQuickType(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	if err := m.QuickType(nlu.IntentBreakdown); !errors.Is(err, ErrNotStarted) {
		t.Errorf("before start: err = %v, want ErrNotStarted", err)
	}

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.QuickType(nlu.IntentBreakdown); err != nil {
		t.Fatalf("QuickType: %v", err)
	}
	if m.State() != StateCollectingLocation {
		t.Errorf("state = %s, want %s", m.State(), StateCollectingLocation)
	}
	if d := m.draftSnapshot(); d.Type != "breakdown" {
		t.Errorf("draft type = %q", d.Type)
	}

	if err := m.SubmitNow(ctx); err != nil {
		t.Fatalf("SubmitNow: %v", err)
	}
	if err := m.QuickType(nlu.IntentFire); !errors.Is(err, ErrSessionInactive) {
		t.Errorf("at COMPLETE: err = %v, want ErrSessionInactive", err)
	}
}

func TestGeocodeEnrichesDraft(t *testing.T) {
	coords := geo.Coordinates{Lat: 40.7128, Lng: -74.006}
	m, _ := newTestManager(t, &fakeGeocoder{coords: coords})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	say(t, m, "fire")
	say(t, m, "123 Main Street")

	// The turn already advanced; coordinates attach in the background.
	if m.State() != StateCollectingPeople {
		t.Fatalf("state = %s, want %s", m.State(), StateCollectingPeople)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		d := m.draftSnapshot()
		if d.Coordinates != nil {
			if d.Coordinates.Lat != coords.Lat || d.Coordinates.Lng != coords.Lng {
				t.Errorf("coordinates = %+v, want %+v", d.Coordinates, coords)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("coordinates never attached to the draft")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGeocodeFailureNotifiesCaller(t *testing.T) {
	m, sink := newTestManager(t, &fakeGeocoder{err: errors.New("service down")})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	say(t, m, "fire")
	say(t, m, "Highway 61")

	deadline := time.Now().Add(2 * time.Second)
	for !sink.saidContaining(msgGeoFailed) {
		if time.Now().After(deadline) {
			t.Fatal("caller was never told geocoding failed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if d := m.draftSnapshot(); d.Coordinates != nil {
		t.Errorf("failed geocode attached coordinates: %+v", d.Coordinates)
	}
}

func TestStaleLocationResultDropped(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	say(t, m, "theft")

	token := m.DraftToken()
	m.Reset()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}

	// The token belongs to the discarded draft; the result must not leak
	// into the new one.
	if err := m.SetLocationFromGeo(token, geo.Coordinates{Lat: 1, Lng: 2}); err != nil {
		t.Fatalf("SetLocationFromGeo: %v", err)
	}
	if d := m.draftSnapshot(); d.Coordinates != nil {
		t.Errorf("stale coordinates applied: %+v", d.Coordinates)
	}
}

func TestSetLocationFromGeoFillsMissingLocation(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	coords := geo.Coordinates{Lat: 48.8584, Lng: 2.2945}
	if err := m.SetLocationFromGeo(m.DraftToken(), coords); err != nil {
		t.Fatalf("SetLocationFromGeo: %v", err)
	}
	d := m.draftSnapshot()
	if d.Coordinates == nil {
		t.Fatal("coordinates not applied")
	}
	if d.Location != coords.Label() {
		t.Errorf("location = %q, want derived label %q", d.Location, coords.Label())
	}
}

// mappingGeocoder resolves only the locations it was seeded with.
type mappingGeocoder struct {
	coords map[string]geo.Coordinates
}

func (f *mappingGeocoder) Geocode(ctx context.Context, location string) (geo.Coordinates, error) {
	c, ok := f.coords[location]
	if !ok {
		return geo.Coordinates{}, geo.ErrNoResult
	}
	return c, nil
}

// waitForCoordinates polls until the draft carries the wanted coordinates.
func waitForCoordinates(t *testing.T, m *Manager, want geo.Coordinates) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if d := m.draftSnapshot(); d.Coordinates != nil && *d.Coordinates == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("draft never reached coordinates %+v: %+v", want, m.draftSnapshot().Coordinates)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCorrectedLocationRefreshesCoordinates(t *testing.T) {
	oldCoords := geo.Coordinates{Lat: 40, Lng: -74}
	newCoords := geo.Coordinates{Lat: 51.5, Lng: -0.12}
	m, sink := newTestManager(t, &mappingGeocoder{coords: map[string]geo.Coordinates{
		"123 Main Street": oldCoords,
		"456 Oak Avenue":  newCoords,
	}})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	say(t, m, "fire")
	say(t, m, "123 Main Street")
	waitForCoordinates(t, m, oldCoords)
	say(t, m, "2 people")

	// The caller rejects the summary and corrects the address. The old
	// coordinates must not survive onto the new location.
	say(t, m, "no")
	say(t, m, "fire")
	say(t, m, "456 Oak Avenue")
	waitForCoordinates(t, m, newCoords)

	say(t, m, "2 people")
	say(t, m, "yes")

	created := sink.created()
	if len(created) != 1 {
		t.Fatalf("created %d incidents, want 1", len(created))
	}
	inc := created[0]
	if inc.Location != "456 Oak Avenue" {
		t.Errorf("location = %q, want 456 Oak Avenue", inc.Location)
	}
	if inc.Coordinates == nil || *inc.Coordinates != newCoords {
		t.Errorf("coordinates = %+v, want %+v", inc.Coordinates, newCoords)
	}
}

func TestResetInvalidatesAndRestarts(t *testing.T) {
	m, sink := newTestManager(t, nil)
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	say(t, m, "fire")
	firstCaller := m.draftSnapshot().CallerID

	m.Reset()
	if m.State() != StateGreet {
		t.Fatalf("state after reset = %s, want %s", m.State(), StateGreet)
	}
	d := m.draftSnapshot()
	if d.Type != "" {
		t.Errorf("draft survived reset: %+v", d)
	}
	if d.CallerID == firstCaller {
		t.Error("caller id not reissued after reset")
	}

	// At GREET an utterance is acknowledged but nothing is collected.
	say(t, m, "fire")
	if m.State() != StateGreet {
		t.Errorf("utterance at GREET advanced state to %s", m.State())
	}
	if len(sink.created()) != 0 {
		t.Error("no incident should exist yet")
	}
}

func TestAffirmativeNegativeDetection(t *testing.T) {
	tests := []struct {
		utterance string
		yes, no   bool
	}{
		{"yes", true, false},
		{"Yeah, that's right.", true, false},
		{"ok", true, false},
		{"no", false, true},
		{"nope, change it", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := isAffirmative(tt.utterance); got != tt.yes {
			t.Errorf("isAffirmative(%q) = %v, want %v", tt.utterance, got, tt.yes)
		}
		if got := isNegative(tt.utterance); got != tt.no {
			t.Errorf("isNegative(%q) = %v, want %v", tt.utterance, got, tt.no)
		}
	}
}
