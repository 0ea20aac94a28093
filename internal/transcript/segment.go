package transcript

import (
	"regexp"
	"strings"

	"ariacut/internal/timeline"
)

// Markers are the inline annotations a transcription provider may attach to
// a segment. They are parsed once at ingestion.
type Markers struct {
	// Unidentified marks sung text the provider could not place in the lyric.
	Unidentified bool `json:"unidentified,omitempty"`
	// Repetition marks text sung again that is written only once in the lyric.
	Repetition bool `json:"repetition,omitempty"`
	// Uncertain marks words the provider was unsure about.
	Uncertain bool `json:"uncertain,omitempty"`
}

// Segment is one unit of transcribed speech from either transcription source.
type Segment struct {
	Index   int
	Start   float64
	End     float64
	Text    string
	RawText string
	Markers Markers
}

var (
	unidentifiedTag = regexp.MustCompile(`(?i)\[\s*(?:unidentified|texto\s+n[ãa]o\s+identificado)[^\]]*\]?`)
	repetitionTag   = regexp.MustCompile(`(?i)\[\s*(?:repeat|repetition|repeti[çc][ãa]o)\s*\]`)
	uncertainTag    = regexp.MustCompile(`\[\s*\?\s*\]`)
)

// ParseMarkers splits raw provider text into marker flags and the text with
// repetition and uncertainty tags removed. Text flagged unidentified is
// returned unchanged apart from whitespace.
func ParseMarkers(raw string) (string, Markers) {
	var m Markers
	text := strings.TrimSpace(raw)
	if unidentifiedTag.MatchString(text) {
		m.Unidentified = true
		return text, m
	}
	if repetitionTag.MatchString(text) {
		m.Repetition = true
		text = repetitionTag.ReplaceAllString(text, " ")
	}
	if uncertainTag.MatchString(text) {
		m.Uncertain = true
		text = uncertainTag.ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " "), m
}

// NewSegment builds a segment from provider text, parsing its markers.
func NewSegment(index int, start, end float64, raw string) Segment {
	text, markers := ParseMarkers(raw)
	return Segment{Index: index, Start: start, End: end, Text: text, RawText: raw, Markers: markers}
}

// Timing implements timeline.Spanned.
func (s Segment) Timing() timeline.Span { return timeline.Span{Start: s.Start, End: s.End} }

// WithTiming implements timeline.Spanned.
func (s Segment) WithTiming(span timeline.Span) Segment {
	s.Start, s.End = span.Start, span.End
	return s
}

// Reindex numbers segs 1..N in their current order.
func Reindex(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	for i, seg := range segs {
		seg.Index = i + 1
		out[i] = seg
	}
	return out
}
