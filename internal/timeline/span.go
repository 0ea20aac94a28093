package timeline

import (
	"ariacut/internal/timecode"
)

// Span is a closed-open interval of seconds on the source timeline.
type Span struct {
	Start float64
	End   float64
}

// Duration returns End - Start.
func (s Span) Duration() float64 { return s.End - s.Start }

// Overlaps reports whether s intersects [start, end).
func (s Span) Overlaps(start, end float64) bool {
	return s.End > start && s.Start < end
}

// String renders the span in canonical timestamp form.
func (s Span) String() string {
	return timecode.Format(s.Start) + " --> " + timecode.Format(s.End)
}

// Spanned is implemented by every segment type the sanitizer and window
// helpers operate on. WithTiming returns a copy carrying the new span.
type Spanned[T any] interface {
	Timing() Span
	WithTiming(Span) T
}
