package timeline

import (
	"log/slog"
	"math"

	"ariacut/internal/logging"
	"ariacut/internal/timecode"
)

// DefaultSpan is the window length used when the derived bounds are unusable.
const DefaultSpan = 120.0

// Window is the sub-interval of the source timeline exported as the final clip.
type Window struct {
	Start float64 `json:"start_sec"`
	End   float64 `json:"end_sec"`
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 { return w.End - w.Start }

// IsZero reports whether the window selects nothing.
func (w Window) IsZero() bool { return w.Start == 0 && w.End == 0 }

// Overrides carries operator-supplied window bounds. Nil fields are derived
// from the segments.
type Overrides struct {
	Start *float64
	End   *float64
	// FallbackSpan replaces DefaultSpan when positive.
	FallbackSpan float64
}

func (o Overrides) span() float64 {
	if o.FallbackSpan > 0 {
		return o.FallbackSpan
	}
	return DefaultSpan
}

// DeriveWindow computes the cut window from the first and last segment,
// replacing either bound with its override. A window with no positive
// duration falls back to the fallback span from its start and logs a
// warning. With no segments and no start override the zero window is returned.
func DeriveWindow[T Spanned[T]](segs []T, overrides Overrides, logger *slog.Logger) Window {
	if len(segs) == 0 && overrides.Start == nil {
		return Window{}
	}
	var w Window
	if len(segs) > 0 {
		w.Start = segs[0].Timing().Start
		w.End = segs[len(segs)-1].Timing().End
	}
	if overrides.Start != nil {
		w.Start = *overrides.Start
	}
	if overrides.End != nil {
		w.End = *overrides.End
	}
	w.Start = timecode.Canonical(w.Start)
	w.End = timecode.Canonical(w.End)

	if w.End <= w.Start {
		logging.WarnWithContext(logger, "cut window has no duration; using default span", "window_fallback",
			logging.String("start", timecode.Format(w.Start)),
			logging.String("end", timecode.Format(w.End)),
			logging.Float64("default_span_seconds", overrides.span()),
			logging.String(logging.FieldImpact, "clip length may not match the intended excerpt"),
			logging.String(logging.FieldErrorHint, "check overlay timestamps or cut overrides"),
		)
		w.End = timecode.Canonical(w.Start + overrides.span())
	}
	return w
}

// Reindex rebases segs so that windowStart becomes zero. Timestamps that
// would go negative are floored at zero and the result is sanitized.
func Reindex[T Spanned[T]](segs []T, windowStart float64) []T {
	shifted := make([]T, len(segs))
	for i, seg := range segs {
		span := seg.Timing()
		shifted[i] = seg.WithTiming(Span{
			Start: math.Max(0, span.Start-windowStart),
			End:   math.Max(0, span.End-windowStart),
		})
	}
	return Sanitize(shifted)
}

// Crop keeps the segments overlapping [w.Start, w.End), clips them to the
// window, rebases them to the window start and sanitizes the result.
func Crop[T Spanned[T]](segs []T, w Window) []T {
	kept := make([]T, 0, len(segs))
	for _, seg := range segs {
		span := seg.Timing()
		if !span.Overlaps(w.Start, w.End) {
			continue
		}
		kept = append(kept, seg.WithTiming(Span{
			Start: math.Max(span.Start, w.Start) - w.Start,
			End:   math.Min(span.End, w.End) - w.Start,
		}))
	}
	return Sanitize(kept)
}
