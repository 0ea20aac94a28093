package lyrics

import (
	"regexp"
	"strings"
)

// sectionHeader matches a leading "[Chorus]"-style tag on a lyric line.
var sectionHeader = regexp.MustCompile(`^\[[^\]]*\]\s*`)

// Lyric is the canonical, human-approved text of a song, one verse per line
// in performance order.
type Lyric struct {
	// Lines are the display lines exactly as written.
	Lines []string
	// MatchLines are Lines without leading section headers; they are what
	// transcribed text is compared against and what subtitles show.
	MatchLines []string
}

// Parse splits text into trimmed, non-empty lines.
func Parse(text string) Lyric {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	l := Lyric{
		Lines:      make([]string, 0, len(raw)),
		MatchLines: make([]string, 0, len(raw)),
	}
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.Lines = append(l.Lines, line)
		l.MatchLines = append(l.MatchLines, sectionHeader.ReplaceAllString(line, ""))
	}
	return l
}

// Len returns the number of lines.
func (l Lyric) Len() int { return len(l.Lines) }

// Empty reports whether the lyric has no lines.
func (l Lyric) Empty() bool { return len(l.Lines) == 0 }

// String joins the display lines with newlines.
func (l Lyric) String() string { return strings.Join(l.Lines, "\n") }
