package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

var digitPattern = regexp.MustCompile(`\d+`)

// numberWords maps spelled-out counts to values.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"couple": 2, "few": 3,
}

// singlePersonPhrases affirm that only the caller is involved.
var singlePersonPhrases = []string{
	"just me", "only me", "alone", "by myself", "myself", "nobody else",
	"no one else",
}

// ExtractPeopleCount finds the number of people mentioned in an utterance.
// The first explicit digit sequence or number word wins; phrases affirming a
// single person yield 1. Returns 0 when no valid count is found (zero and
// negative counts are invalid).
func ExtractPeopleCount(utterance string) int {
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return 0
	}

	if m := digitPattern.FindString(text); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil && n > 0 {
			return n
		}
		return 0
	}

	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		if n, ok := numberWords[word]; ok {
			return n
		}
	}

	for _, p := range singlePersonPhrases {
		if strings.Contains(text, p) {
			return 1
		}
	}

	return 0
}
