package dialog

import (
	"fmt"
	"strings"

	"github.com/Subham15-Dutta/roadresq/internal/incident"
)

// DefaultGreeting opens every call unless overridden by configuration.
const DefaultGreeting = "RoadResQ assistance line. What's your emergency?"

const (
	promptTypeMenu    = "Sorry, I didn't catch that. Is it medical, a breakdown, theft, or a fire?"
	promptLocation    = "Got it. Where are you located?"
	promptLocationRe  = "I still need your location. A street address, highway, or landmark works."
	promptPeople      = "How many people are involved?"
	promptPeopleRe    = "Please give me a number of people, for example 2, or say 'just me'."
	promptConfirmRe   = "Please answer yes to submit the report, or no to correct it."
	promptCorrectType = "Okay, let's correct that. What type of incident is it?"
	promptInactive    = "This call has ended. Start a new call to report another incident."
	promptAfterReset  = "The call was reset. Start again when you're ready."
	msgGeoFailed      = "I couldn't pin your location on the map, but we'll continue without it."
)

// confirmSummary presents the collected draft for the caller to confirm.
func confirmSummary(d incident.Draft) string {
	var b strings.Builder
	b.WriteString("Let me confirm: ")
	b.WriteString(d.Type)
	if d.SubService != "" {
		fmt.Fprintf(&b, " (%s)", d.SubService)
	}
	fmt.Fprintf(&b, " at %s, ", d.Location)
	if d.PeopleCount == 1 {
		b.WriteString("1 person involved")
	} else {
		fmt.Fprintf(&b, "%d people involved", d.PeopleCount)
	}
	b.WriteString(". Is that correct?")
	return b.String()
}

// completedMessage closes out a finished report.
func completedMessage(id string) string {
	return fmt.Sprintf("Help is on the way. Your incident is logged as %s.", id)
}
