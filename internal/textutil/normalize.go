package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// annotationPattern matches one bracketed span on a single line, shortest first.
var annotationPattern = regexp.MustCompile(`\[[^\]\n]*\]`)

var lowerCaser = cases.Lower(language.Und)

// NormalizeForMatch folds text into the form used for similarity scoring:
// NFC, lowercase, bracketed annotations removed, punctuation removed,
// whitespace collapsed. The result is never shown to users.
func NormalizeForMatch(text string) string {
	if text == "" {
		return ""
	}
	folded := lowerCaser.String(norm.NFC.String(text))
	folded = annotationPattern.ReplaceAllString(folded, "")

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
