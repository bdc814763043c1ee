package nlu

import (
	"regexp"
	"strings"
)

// fillerUtterances are purely conversational and never carry a location.
var fillerUtterances = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "no": true, "nope": true,
	"ok": true, "okay": true, "sure": true, "fine": true,
	"thanks": true, "thank you": true, "hello": true, "hi": true,
	"um": true, "uh": true, "hmm": true,
}

// locationPrefixes are leading filler words stripped before inspecting the
// phrase. Longer prefixes are listed first so they win over their own
// suffixes.
var locationPrefixes = []string{
	"i am at ", "i'm at ", "im at ", "we are at ", "we're at ",
	"i am on ", "i'm on ", "im on ", "we are on ", "we're on ",
	"i am near ", "i'm near ", "im near ",
	"at the ", "on the ", "near the ", "by the ",
	"at ", "on ", "near ", "by ",
}

// roadTokenPattern matches words that suggest a phrase is road or highway
// related.
var roadTokenPattern = regexp.MustCompile(`(?i)\b(highway|hwy|freeway|motorway|interstate|route|road|rd|street|st|avenue|ave|boulevard|blvd|lane|ln|drive|dr|exit|mile marker|junction|bridge|tunnel|intersection|parking lot|rest stop|gas station)\b`)

// numberStreetPattern matches "123 Main", i.e. a street number followed by a
// name.
var numberStreetPattern = regexp.MustCompile(`^\d+\s+\S+`)

// highwayCodePattern matches compact highway designations such as "I-95",
// "A1" or "M25".
var highwayCodePattern = regexp.MustCompile(`(?i)\b(i-\d+|[amb]\d{1,3}|us-?\d+|sr-?\d+)\b`)

// ExtractLocation pulls a location phrase out of an utterance, stripping
// filler prefixes. explicit marks that the dialog just asked for a location,
// in which case any residual phrase is accepted. Returns "" when nothing
// location-like is found.
func ExtractLocation(utterance string, explicit bool) string {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return ""
	}

	lower := strings.ToLower(text)
	if fillerUtterances[strings.Trim(lower, ".!?")] {
		return ""
	}

	for _, p := range locationPrefixes {
		if strings.HasPrefix(lower, p) {
			text = strings.TrimSpace(text[len(p):])
			lower = strings.ToLower(text)
			break
		}
	}
	if text == "" {
		return ""
	}

	if roadTokenPattern.MatchString(text) {
		return text
	}
	if numberStreetPattern.MatchString(text) || highwayCodePattern.MatchString(text) {
		return text
	}
	if explicit {
		return text
	}
	return ""
}
