// Package nlu interprets caller utterances: it classifies them into incident
// intents and extracts location and people-count slots. Classification is
// keyword and substring based; runtime-trained phrases take precedence over
// the built-in table.
package nlu

import (
	"strings"
	"sync"
)

// IntentType identifies an incident category.
type IntentType string

const (
	IntentMedical   IntentType = "medical"
	IntentBreakdown IntentType = "breakdown"
	IntentTheft     IntentType = "theft"
	IntentFire      IntentType = "fire"
	IntentOther     IntentType = "other"
)

// validIntents is the closed set of recognized intent types.
var validIntents = map[IntentType]bool{
	IntentMedical:   true,
	IntentBreakdown: true,
	IntentTheft:     true,
	IntentFire:      true,
	IntentOther:     true,
}

// ValidIntent reports whether t is a recognized intent type.
func ValidIntent(t IntentType) bool { return validIntents[t] }

// Intent is a classified incident category with an optional sub-service
// refinement (e.g. breakdown / flat tire).
type Intent struct {
	Type       IntentType `json:"type"`
	SubService string     `json:"sub_service,omitempty"`
}

// builtinRule associates a keyword with an intent. Declaration order is the
// tie-break priority when an utterance matches several keywords.
type builtinRule struct {
	keyword    string
	intent     IntentType
	subService string
}

var builtinRules = []builtinRule{
	// Medical
	{"medical", IntentMedical, ""},
	{"hurt", IntentMedical, ""},
	{"bleeding", IntentMedical, ""},
	{"injured", IntentMedical, ""},
	{"injury", IntentMedical, ""},
	{"unconscious", IntentMedical, ""},
	{"not breathing", IntentMedical, ""},
	{"heart attack", IntentMedical, ""},
	{"chest pain", IntentMedical, ""},
	{"ambulance", IntentMedical, "ambulance"},
	{"accident", IntentMedical, ""},
	{"crash", IntentMedical, ""},
	{"collision", IntentMedical, ""},

	// Fire
	{"fire", IntentFire, ""},
	{"smoke", IntentFire, ""},
	{"burning", IntentFire, ""},
	{"flames", IntentFire, ""},

	// Theft
	{"theft", IntentTheft, ""},
	{"stolen", IntentTheft, ""},
	{"robbed", IntentTheft, ""},
	{"robbery", IntentTheft, ""},
	{"break-in", IntentTheft, ""},
	{"break in", IntentTheft, ""},
	{"burglar", IntentTheft, ""},
	{"snatched", IntentTheft, ""},

	// Breakdown
	{"breakdown", IntentBreakdown, ""},
	{"flat tire", IntentBreakdown, "flat tire"},
	{"flat tyre", IntentBreakdown, "flat tire"},
	{"puncture", IntentBreakdown, "flat tire"},
	{"broke down", IntentBreakdown, ""},
	{"broken down", IntentBreakdown, ""},
	{"stalled", IntentBreakdown, ""},
	{"won't start", IntentBreakdown, "battery"},
	{"wont start", IntentBreakdown, "battery"},
	{"dead battery", IntentBreakdown, "battery"},
	{"out of gas", IntentBreakdown, "fuel delivery"},
	{"out of fuel", IntentBreakdown, "fuel delivery"},
	{"tow", IntentBreakdown, "towing"},
	{"overheating", IntentBreakdown, "engine"},
	{"engine", IntentBreakdown, "engine"},

	// Other
	{"other", IntentOther, ""},
	{"something else", IntentOther, ""},
}

// Rule is a runtime-trained phrase -> intent mapping.
type Rule struct {
	Phrase string     `json:"phrase"`
	Intent IntentType `json:"type"`
}

// Classifier maps utterances to intents. Custom rules are checked before the
// built-in keyword table; among custom rules the most recently added wins.
type Classifier struct {
	mu     sync.RWMutex
	custom []Rule
}

// NewClassifier creates a classifier with only the built-in keyword table.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify maps an utterance to an intent. The second return value is false
// when no rule matches.
func (c *Classifier) Classify(utterance string) (Intent, bool) {
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return Intent{}, false
	}

	c.mu.RLock()
	// Newest custom rule wins on overlap.
	for i := len(c.custom) - 1; i >= 0; i-- {
		if strings.Contains(text, c.custom[i].Phrase) {
			intent := Intent{Type: c.custom[i].Intent}
			c.mu.RUnlock()
			return intent, true
		}
	}
	c.mu.RUnlock()

	for _, r := range builtinRules {
		if strings.Contains(text, r.keyword) {
			return Intent{Type: r.intent, SubService: r.subService}, true
		}
	}

	return Intent{}, false
}

// AddCustomIntent trains a phrase to classify as the given intent type.
// Re-training an existing phrase overwrites its target and refreshes its
// recency, so the correction wins over anything trained in between.
func (c *Classifier) AddCustomIntent(phrase string, t IntentType) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.custom {
		if r.Phrase == p {
			c.custom = append(c.custom[:i], c.custom[i+1:]...)
			break
		}
	}
	c.custom = append(c.custom, Rule{Phrase: p, Intent: t})
}

// CustomRules returns the trained rules in training order (oldest first).
func (c *Classifier) CustomRules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Rule, len(c.custom))
	copy(out, c.custom)
	return out
}
