package alignment

import "ariacut/internal/timeline"

// Flag is the per-segment quality tier.
type Flag string

const (
	// FlagHigh marks a segment whose text is confidently a lyric line.
	FlagHigh Flag = "high"
	// FlagMedium marks a plausible match that deserves a glance.
	FlagMedium Flag = "medium"
	// FlagLow marks a segment that kept its transcribed text.
	FlagLow Flag = "low"
	// FlagUnrecognized marks text the provider could not place in the lyric.
	FlagUnrecognized Flag = "unrecognized"
	// FlagExtra marks blind-transcription text never claimed by the lyric.
	FlagExtra Flag = "extra"
)

// TimingSource records which input supplied a segment's timestamps.
type TimingSource string

const (
	TimingDirect       TimingSource = "direct"
	TimingAnchored     TimingSource = "anchored"
	TimingInterpolated TimingSource = "interpolated"
	TimingFallback     TimingSource = "fallback"
)

// Route is the overall quality tier of an alignment.
type Route string

const (
	RouteA Route = "A"
	RouteB Route = "B"
	RouteC Route = "C"
)

func (r Route) rank() int {
	switch r {
	case RouteA:
		return 0
	case RouteB:
		return 1
	default:
		return 2
	}
}

// Better reports whether r is a stronger tier than other.
func (r Route) Better(other Route) bool { return r.rank() < other.rank() }

// Segment is a transcribed segment resolved against the lyric.
type Segment struct {
	Index int
	Start float64
	End   float64
	// Text is the transcription with markers removed; RawText is what the
	// provider returned.
	Text    string
	RawText string
	// FinalText is what subtitles show.
	FinalText  string
	Flag       Flag
	Confidence float64
	Repetition bool
	Uncertain  bool
	// Transcribed keeps the provider text when a MEDIUM match replaced it.
	Transcribed string
	// Candidate keeps the best lyric match a LOW segment did not adopt.
	Candidate string
	// LineIndex is the first matched lyric line, -1 when none; LineSpan is
	// 2 when the match covered two consecutive lines.
	LineIndex    int
	LineSpan     int
	TimingSource TimingSource
	// AnchorScore is the combined merge score of the claimed blind segment.
	AnchorScore float64
}

// Timing implements timeline.Spanned.
func (s Segment) Timing() timeline.Span { return timeline.Span{Start: s.Start, End: s.End} }

// WithTiming implements timeline.Spanned.
func (s Segment) WithTiming(span timeline.Span) Segment {
	s.Start, s.End = span.Start, span.End
	return s
}

var _ timeline.Spanned[Segment] = Segment{}

// Reviewable reports whether a human should look at the segment.
func (s Segment) Reviewable() bool {
	return s.Flag != FlagHigh
}

// Counts tallies segments per flag.
type Counts struct {
	High         int `json:"high"`
	Medium       int `json:"medium"`
	Low          int `json:"low"`
	Unrecognized int `json:"unrecognized"`
	Extra        int `json:"extra"`
}

// Total returns the number of counted segments.
func (c Counts) Total() int {
	return c.High + c.Medium + c.Low + c.Unrecognized + c.Extra
}

func (c *Counts) add(f Flag) {
	switch f {
	case FlagHigh:
		c.High++
	case FlagMedium:
		c.Medium++
	case FlagLow:
		c.Low++
	case FlagUnrecognized:
		c.Unrecognized++
	case FlagExtra:
		c.Extra++
	}
}

// Result is the outcome of aligning one transcription (or merging two).
type Result struct {
	Segments       []Segment `json:"segments"`
	MeanConfidence float64   `json:"mean_confidence"`
	Counts         Counts    `json:"counts"`
	Route          Route     `json:"route"`
	// Merged is set when the timing came from the cross-source merge.
	Merged bool `json:"merged"`
}
