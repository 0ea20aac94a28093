package alignment

import (
	"log/slog"
	"math"

	"ariacut/internal/logging"
	"ariacut/internal/timeline"
	"ariacut/internal/transcript"
)

// Aligner maps transcriptions onto lyric lines. It holds only configuration
// and is safe for concurrent use.
type Aligner struct {
	thresholds Thresholds
	logger     *slog.Logger
}

// New constructs an aligner with default thresholds.
func New(opts ...Option) *Aligner {
	a := &Aligner{thresholds: DefaultThresholds(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Thresholds returns the tuning in effect.
func (a *Aligner) Thresholds() Thresholds { return a.thresholds }

// Align resolves each segment of a single transcription against lines.
// It never fails: segments that cannot be matched degrade to LOW, and
// segments carrying the unidentified marker become UNRECOGNIZED.
func (a *Aligner) Align(lines []string, segs []transcript.Segment) Result {
	idx := newLineIndex(lines)
	out := make([]Segment, 0, len(segs))
	for _, seg := range segs {
		aligned := a.resolve(seg, idx)
		aligned.TimingSource = TimingDirect
		out = append(out, aligned)
	}
	res := a.finish(out)
	a.logger.Info("alignment finished",
		logging.String("route", string(res.Route)),
		logging.Float64("mean_confidence", res.MeanConfidence),
		logging.Int("segments", len(res.Segments)),
		logging.Int("low", res.Counts.Low),
		logging.Int("unrecognized", res.Counts.Unrecognized),
	)
	return res
}

// resolve picks the final text and line-match flag for one segment.
func (a *Aligner) resolve(seg transcript.Segment, idx *lineIndex) Segment {
	out := Segment{
		Index:      seg.Index,
		Start:      seg.Start,
		End:        seg.End,
		Text:       seg.Text,
		RawText:    seg.RawText,
		Repetition: seg.Markers.Repetition,
		Uncertain:  seg.Markers.Uncertain,
		LineIndex:  -1,
	}
	if seg.Markers.Unidentified {
		out.Flag = FlagUnrecognized
		out.FinalText = seg.RawText
		return out
	}

	m := idx.best(seg.Text, a.thresholds.Containment)
	out.Confidence = m.Score
	out.LineIndex = m.Index
	out.LineSpan = m.Span
	switch {
	case m.Index >= 0 && m.Score >= a.thresholds.High:
		out.Flag = FlagHigh
		out.FinalText = m.Text
	case m.Index >= 0 && m.Score >= a.thresholds.Medium:
		out.Flag = FlagMedium
		out.FinalText = m.Text
		out.Transcribed = seg.RawText
	default:
		out.Flag = FlagLow
		out.FinalText = seg.Text
		out.Candidate = m.Text
	}
	return out
}

// finish sanitizes and numbers the segments and computes the aggregates.
func (a *Aligner) finish(segs []Segment) Result {
	segs = timeline.Sanitize(segs)
	for i := range segs {
		segs[i].Index = i + 1
	}
	return a.summarize(segs)
}

func (a *Aligner) summarize(segs []Segment) Result {
	res := Result{Segments: segs}
	var sum float64
	scored, considered := 0, 0
	for _, seg := range segs {
		res.Counts.add(seg.Flag)
		if seg.Flag == FlagExtra {
			continue
		}
		considered++
		if seg.Flag == FlagUnrecognized {
			continue
		}
		sum += seg.Confidence
		scored++
	}
	mean := 0.0
	if scored > 0 {
		mean = sum / float64(scored)
	}
	res.MeanConfidence = math.Round(mean*1000) / 1000
	res.Route = a.route(mean, res.Counts.Low, considered)
	return res
}

func (a *Aligner) route(mean float64, low, total int) Route {
	t := a.thresholds
	if mean >= t.RouteAMean && low == 0 {
		return RouteA
	}
	lowOK := total == 0 || float64(low)/float64(total) < t.RouteBMaxLowFraction
	if mean >= t.RouteBMean && lowOK {
		return RouteB
	}
	return RouteC
}
