package textutil

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ContainmentFloor is the minimum score granted when one normalized string
// contains the other.
const ContainmentFloor = 0.85

// SequenceRatio returns the Ratcliff/Obershelp similarity of a and b computed
// over characters: 2*M/T where M is the number of matched characters and T the
// combined length. Two empty strings are identical (1.0).
func SequenceRatio(a, b string) float64 {
	matcher := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return matcher.Ratio()
}

// MatchScore compares two already-normalized strings. The score is the
// sequence ratio, raised to floor when either string contains the other.
// Empty input never matches.
func MatchScore(a, b string, floor float64) float64 {
	if a == "" || b == "" {
		return 0
	}
	score := SequenceRatio(a, b)
	if score < floor && (strings.Contains(a, b) || strings.Contains(b, a)) {
		score = floor
	}
	return score
}

func splitRunes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}
