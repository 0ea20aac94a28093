package timeline

import (
	"math"
	"sort"

	"ariacut/internal/timecode"
)

const (
	// MinDuration is the length given to a segment whose end does not follow its start.
	MinDuration = 2.0
	// OverlapGap is the breathing room left between a trimmed segment and its successor.
	OverlapGap = 0.05
)

// Sanitize returns a copy of segs satisfying the timeline invariants:
// ordered by start, every timestamp on the millisecond grid inside [0, 24h],
// start < end, and end[i] <= start[i+1]. Overlaps are resolved by trimming
// the earlier segment to OverlapGap before its successor; when that would
// empty it the two are made to touch, and segments sharing a start are pushed
// back to begin where the previous one ends. Segments stuck at the 24h bound
// are stacked backwards from it. Sanitize is idempotent.
func Sanitize[T Spanned[T]](segs []T) []T {
	if len(segs) == 0 {
		return []T{}
	}
	spans := make([]Span, len(segs))
	order := make([]int, len(segs))
	for i, seg := range segs {
		spans[i] = withMinDuration(canonical(seg.Timing()))
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return spans[order[a]].Start < spans[order[b]].Start
	})

	sorted := make([]Span, len(order))
	for i, idx := range order {
		sorted[i] = spans[idx]
	}
	for i := 0; i < len(sorted)-1; i++ {
		cur, next := &sorted[i], &sorted[i+1]
		if cur.End <= next.Start {
			continue
		}
		switch trimmed := timecode.Canonical(next.Start - OverlapGap); {
		case trimmed > cur.Start:
			cur.End = trimmed
		case next.Start > cur.Start:
			cur.End = next.Start
		default:
			next.Start = cur.End
			*next = withMinDuration(*next)
		}
	}
	// Segments pinned at the 24h ceiling cannot move later; pull their
	// predecessors back instead.
	for i := len(sorted) - 2; i >= 0; i-- {
		cur, next := &sorted[i], &sorted[i+1]
		if cur.End <= next.Start {
			continue
		}
		cur.End = next.Start
		if cur.Start >= cur.End {
			cur.Start = math.Max(0, timecode.Canonical(cur.End-MinDuration))
		}
	}

	out := make([]T, len(order))
	for i, idx := range order {
		out[i] = segs[idx].WithTiming(sorted[i])
	}
	return out
}

// EnsureTrailingDuration extends the final segment to last at least min
// seconds. It applies when nothing later bounds the final segment, such as
// subtitle rendering at the end of a cut.
func EnsureTrailingDuration[T Spanned[T]](segs []T, min float64) []T {
	out := append([]T(nil), segs...)
	if len(out) == 0 {
		return out
	}
	last := out[len(out)-1]
	span := last.Timing()
	if span.Duration() < min {
		span.End = timecode.Canonical(span.Start + min)
		out[len(out)-1] = last.WithTiming(span)
	}
	return out
}

func canonical(s Span) Span {
	return Span{Start: timecode.Canonical(s.Start), End: timecode.Canonical(s.End)}
}

func withMinDuration(s Span) Span {
	if s.End > s.Start {
		return s
	}
	s.End = timecode.Canonical(s.Start + MinDuration)
	if s.End <= s.Start {
		// Pinned at the 24h ceiling.
		s.Start = timecode.Canonical(s.End - MinDuration)
	}
	return s
}
