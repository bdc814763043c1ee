// Package dialog implements the conversational state machine that turns a
// sequence of caller utterances into a finished incident record. One turn is
// processed to completion at a time; asynchronous enrichment (geocoding,
// device geolocation) merges into the live draft only while its version
// token is still current.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Subham15-Dutta/roadresq/internal/geo"
	"github.com/Subham15-Dutta/roadresq/internal/incident"
	"github.com/Subham15-Dutta/roadresq/internal/metrics"
	"github.com/Subham15-Dutta/roadresq/internal/nlu"
)

var (
	// ErrNotStarted is returned when a turn-advancing operation is invoked
	// before Start has ever run. This is a caller contract violation.
	ErrNotStarted = errors.New("dialog: session not started")
	// ErrSessionInactive is returned for operations that require an active
	// draft while the machine is at GREET or COMPLETE.
	ErrSessionInactive = errors.New("dialog: no active call")
)

// Geocoder resolves a free-text location to coordinates. Resolution is slow
// and may fail; the dialog never blocks a turn on it.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (geo.Coordinates, error)
}

// Sink receives everything the dialog wants the caller (and the UI) to see.
type Sink interface {
	// Say delivers a prompt or response to display and/or speak.
	Say(text string)
	// StateChanged reports a transition of the state machine.
	StateChanged(s State)
	// IncidentCreated reports a finalized incident.
	IncidentCreated(inc *incident.Incident)
}

// Options configures a Manager.
type Options struct {
	Classifier *nlu.Classifier
	Store      *incident.Store
	Sink       Sink
	Geocoder   Geocoder // optional; locations stay uncoded without it
	Logger     *slog.Logger
	Greeting   string // optional override of DefaultGreeting
}

// Manager drives one intake conversation. All exported methods are safe for
// concurrent use; a turn runs to completion under the lock before the next
// external event is accepted.
type Manager struct {
	classifier *nlu.Classifier
	store      *incident.Store
	sink       Sink
	geocoder   Geocoder
	logger     *slog.Logger
	greeting   string

	mu      sync.Mutex
	started bool
	state   State
	draft   incident.Draft
	version uint64
}

// NewManager creates a dialog manager. Nothing happens until Start.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	greeting := opts.Greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}
	return &Manager{
		classifier: opts.Classifier,
		store:      opts.Store,
		sink:       opts.Sink,
		geocoder:   opts.Geocoder,
		logger:     logger,
		greeting:   greeting,
		state:      StateGreet,
	}
}

// State returns the current dialog state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// DraftToken returns the identity token of the live draft. Async callbacks
// capture it before going off-thread; SetLocationFromGeo drops results whose
// token no longer matches.
func (m *Manager) DraftToken() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Start begins a new call: the draft is cleared, the greeting is delivered,
// and the machine advances to COLLECTING_TYPE. Calling Start mid-call
// restarts from scratch; losing the old draft is intentional. Start returns
// once the greeting has been handed to the sink, so callers can feed the
// next utterance immediately after.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = true
	m.version++
	m.draft = incident.Draft{CallerID: newCallerID()}
	m.setState(StateCollectingType)
	m.logger.Info("call started", "caller_id", m.draft.CallerID)
	m.sink.Say(m.greeting)
	return nil
}

// Reset forces the machine back to GREET and discards the current draft.
// In-flight enrichment for the discarded draft is invalidated.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.version++
	m.draft = incident.Draft{CallerID: newCallerID()}
	m.setState(StateGreet)
	m.logger.Info("call reset")
}

// OnTranscript is the primary driver: it interprets one utterance against
// the current state. typed marks utterances entered by keyboard rather than
// voice; voice input gets a spoken-back confirmation.
func (m *Manager) OnTranscript(ctx context.Context, text string, typed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}

	utterance := strings.TrimSpace(text)
	if utterance == "" {
		// Stray event, not a turn.
		return nil
	}

	metrics.TurnsProcessed.WithLabelValues(string(m.state)).Inc()

	if !typed {
		m.sink.Say(fmt.Sprintf("I heard: %q", utterance))
	}

	switch m.state {
	case StateGreet:
		m.sink.Say(promptAfterReset)
	case StateCollectingType:
		m.collectType(utterance)
	case StateCollectingLocation:
		m.collectLocation(utterance)
	case StateCollectingPeople:
		m.collectPeople(utterance)
	case StateConfirming:
		m.confirm(ctx, utterance)
	case StateComplete:
		m.sink.Say(promptInactive)
	}
	return nil
}

func (m *Manager) collectType(utterance string) {
	intent, ok := m.classifier.Classify(utterance)
	if !ok {
		metrics.UnclassifiedUtterances.Inc()
		m.sink.Say(promptTypeMenu)
		return
	}
	m.draft.Type = string(intent.Type)
	m.draft.SubService = intent.SubService
	m.setState(StateCollectingLocation)
	m.sink.Say(promptLocation)
}

func (m *Manager) collectLocation(utterance string) {
	loc := nlu.ExtractLocation(utterance, true)
	if loc == "" {
		m.sink.Say(promptLocationRe)
		return
	}
	if loc != m.draft.Location {
		// Coordinates resolved for a previous location no longer apply.
		m.draft.Coordinates = nil
	}
	m.draft.Location = loc

	// Advance optimistically; coordinates attach whenever geocoding
	// resolves, even if later states have been entered by then.
	m.setState(StateCollectingPeople)
	m.sink.Say(promptPeople)

	if m.geocoder != nil {
		go m.resolveLocation(m.version, loc)
	}
}

func (m *Manager) collectPeople(utterance string) {
	n := nlu.ExtractPeopleCount(utterance)
	if n < 1 {
		m.sink.Say(promptPeopleRe)
		return
	}
	m.draft.PeopleCount = n
	m.setState(StateConfirming)
	m.sink.Say(confirmSummary(m.draft))
}

func (m *Manager) confirm(ctx context.Context, utterance string) {
	switch {
	case isAffirmative(utterance):
		m.finalize(ctx)
	case isNegative(utterance):
		// Keep everything collected so far except the type.
		m.draft.Type = ""
		m.draft.SubService = ""
		m.setState(StateCollectingType)
		m.sink.Say(promptCorrectType)
	default:
		m.sink.Say(promptConfirmRe)
	}
}

// QuickType bypasses classification: the draft type is set directly and the
// machine jumps to COLLECTING_LOCATION. Callers at GREET or COMPLETE must
// run Start first.
func (m *Manager) QuickType(t nlu.IntentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if m.state == StateGreet || m.state == StateComplete {
		return ErrSessionInactive
	}
	m.draft.Type = string(t)
	m.draft.SubService = ""
	m.setState(StateCollectingLocation)
	m.sink.Say(promptLocation)
	return nil
}

// SubmitNow force-completes the current draft: missing slots fall back to
// type "other", location "Unknown" and one person. The escape hatch for
// impatient or constrained callers; it cannot fail once Start has run.
func (m *Manager) SubmitNow(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if m.state == StateComplete {
		return ErrSessionInactive
	}

	if m.draft.Type == "" {
		m.draft.Type = string(nlu.IntentOther)
	}
	if m.draft.Location == "" {
		m.draft.Location = "Unknown"
	}
	if m.draft.PeopleCount < 1 {
		m.draft.PeopleCount = 1
	}
	m.finalize(ctx)
	return nil
}

// finalize promotes the draft to an incident. Caller holds the lock.
func (m *Manager) finalize(ctx context.Context) {
	inc, err := m.store.Create(ctx, m.draft)
	if err != nil {
		m.logger.Error("failed to create incident", "error", err)
		m.sink.Say("Something went wrong saving your report. Please try again.")
		return
	}

	metrics.IncidentsCreated.WithLabelValues(inc.Type).Inc()
	m.logger.Info("incident created",
		"incident_id", inc.ID,
		"type", inc.Type,
		"location", inc.Location,
		"people_count", inc.PeopleCount,
	)

	// Invalidate in-flight enrichment; the record is sealed.
	m.version++
	m.setState(StateComplete)
	m.sink.IncidentCreated(inc)
	m.sink.Say(completedMessage(inc.ID))
}

// SetLocationFromGeo applies externally resolved coordinates to the draft
// identified by token. A side-channel enrichment: it never advances state.
// Stale tokens (minted before a Start or Reset) are detected and dropped.
func (m *Manager) SetLocationFromGeo(token uint64, coords geo.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token != m.version {
		m.logger.Debug("dropping stale location result", "token", token, "current", m.version)
		return nil
	}
	if m.state == StateGreet || m.state == StateComplete {
		return ErrSessionInactive
	}

	m.draft.Coordinates = &coords
	if m.draft.Location == "" {
		m.draft.Location = coords.Label()
	}
	m.logger.Debug("draft location enriched", "lat", coords.Lat, "lng", coords.Lng)
	return nil
}

// resolveLocation geocodes the location text in the background and attaches
// the result to the draft the token identifies.
func (m *Manager) resolveLocation(token uint64, location string) {
	coords, err := m.geocoder.Geocode(context.Background(), location)
	if err != nil {
		metrics.GeoFailures.Inc()
		m.logger.Warn("geocoding failed", "location", location, "error", err)
		m.sink.Say(msgGeoFailed)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.version {
		m.logger.Debug("dropping stale geocode result", "location", location)
		return
	}
	if m.draft.Location != location {
		// The caller has corrected the location since this lookup began.
		m.logger.Debug("dropping geocode result for replaced location", "location", location)
		return
	}
	if m.draft.Coordinates == nil {
		m.draft.Coordinates = &coords
	}
}

// setState transitions the machine and notifies the sink. Caller holds the
// lock.
func (m *Manager) setState(s State) {
	m.state = s
	m.sink.StateChanged(s)
}

func newCallerID() string {
	return "caller-" + uuid.NewString()[:8]
}

var affirmativeWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "correct": true,
	"right": true, "confirm": true, "confirmed": true, "sure": true,
	"ok": true, "okay": true, "affirmative": true,
}

var negativeWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "wrong": true, "incorrect": true,
	"change": true, "restart": true,
}

func isAffirmative(utterance string) bool {
	return containsWord(utterance, affirmativeWords)
}

func isNegative(utterance string) bool {
	return containsWord(utterance, negativeWords)
}

func containsWord(utterance string, words map[string]bool) bool {
	for _, w := range strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !('a' <= r && r <= 'z') && r != '\''
	}) {
		if words[w] {
			return true
		}
	}
	return false
}
