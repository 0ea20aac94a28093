package alignment

import (
	"math"
	"sort"

	"ariacut/internal/logging"
	"ariacut/internal/textutil"
	"ariacut/internal/transcript"
)

type blindEntry struct {
	seg        transcript.Segment
	normalized string
	claimed    bool
}

// Merge reconciles a guided transcription (trusted text, loose timing) with
// a blind one (loose text, trusted timing). Every guided segment searches
// all unclaimed blind segments for the best combined text and start-time
// score; a score at or above the anchor threshold claims that blind segment
// for good and adopts its timing. Unanchored guided segments keep their own
// timing and are flagged LOW. Blind segments nobody claimed are appended as
// EXTRA for review. Final text is resolved against lines as in Align.
func (a *Aligner) Merge(blind, guided []transcript.Segment, lines []string) Result {
	t := a.thresholds
	idx := newLineIndex(lines)

	pool := make([]blindEntry, len(blind))
	for i, seg := range sortedByStart(blind) {
		pool[i] = blindEntry{seg: seg, normalized: textutil.NormalizeForMatch(seg.Text)}
	}

	ordered := sortedByStart(guided)
	out := make([]Segment, 0, len(ordered)+len(pool))
	anchored := make([]bool, len(ordered))
	for gi, g := range ordered {
		resolved := a.resolve(g, idx)
		gNorm := textutil.NormalizeForMatch(g.Text)

		bestIdx, bestScore, bestText := -1, 0.0, 0.0
		for bi := range pool {
			if pool[bi].claimed {
				continue
			}
			text := textutil.MatchScore(gNorm, pool[bi].normalized, t.Containment)
			proximity := math.Max(0, 1-math.Abs(g.Start-pool[bi].seg.Start)/t.ProximityWindow)
			score := t.TextWeight*text + t.ProximityWeight*proximity
			if score > bestScore {
				bestIdx, bestScore, bestText = bi, score, text
			}
		}

		if bestIdx >= 0 && bestScore >= t.Anchor {
			pool[bestIdx].claimed = true
			anchored[gi] = true
			resolved.Start = pool[bestIdx].seg.Start
			resolved.End = pool[bestIdx].seg.End
			resolved.TimingSource = TimingAnchored
			resolved.AnchorScore = bestScore
			if resolved.Flag != FlagUnrecognized {
				if bestText >= t.AnchorTextHigh {
					resolved.Flag = FlagHigh
				} else {
					resolved.Flag = FlagMedium
				}
			}
		} else {
			resolved.TimingSource = TimingFallback
			if resolved.Flag != FlagUnrecognized {
				resolved.Flag = FlagLow
			}
		}
		out = append(out, resolved)
	}

	if t.InterpolateGaps {
		interpolate(out, anchored)
	}

	extras := 0
	for _, entry := range pool {
		if entry.claimed || entry.normalized == "" {
			continue
		}
		extras++
		out = append(out, Segment{
			Start:        entry.seg.Start,
			End:          entry.seg.End,
			Text:         entry.seg.Text,
			RawText:      entry.seg.RawText,
			FinalText:    entry.seg.Text,
			Flag:         FlagExtra,
			Repetition:   entry.seg.Markers.Repetition,
			Uncertain:    entry.seg.Markers.Uncertain,
			LineIndex:    -1,
			TimingSource: TimingDirect,
		})
	}

	res := a.finish(out)
	res.Merged = true
	a.logger.Info("merge finished",
		logging.String("route", string(res.Route)),
		logging.Float64("mean_confidence", res.MeanConfidence),
		logging.Int("guided", len(guided)),
		logging.Int("blind", len(blind)),
		logging.Int("anchored", countTrue(anchored)),
		logging.Int("extra", extras),
	)
	return res
}

// Reconcile aligns the guided transcription and, when that result is route
// C and a blind transcription is available, merges the two. The merged
// result replaces the direct one only when its route is better, or equal
// with a higher mean confidence.
func (a *Aligner) Reconcile(lines []string, guided, blind []transcript.Segment) Result {
	return a.ReconcileDirect(a.Align(lines, guided), lines, guided, blind)
}

// ReconcileDirect is Reconcile for a caller that already holds the direct
// alignment of guided against lines.
func (a *Aligner) ReconcileDirect(direct Result, lines []string, guided, blind []transcript.Segment) Result {
	if direct.Route != RouteC || len(blind) == 0 {
		return direct
	}
	merged := a.Merge(blind, guided, lines)
	if merged.Route.Better(direct.Route) ||
		(merged.Route == direct.Route && merged.MeanConfidence > direct.MeanConfidence) {
		a.logger.Info("merge adopted", logging.Args(logging.DecisionAttrs("alignment_source", "merged",
			"route "+string(direct.Route)+" -> "+string(merged.Route))...)...)
		return merged
	}
	a.logger.Info("merge rejected", logging.Args(logging.DecisionAttrs("alignment_source", "direct",
		"merge did not improve route "+string(direct.Route))...)...)
	return direct
}

// interpolate re-places each run of unanchored segments that sits between
// two anchors but whose own timing leaves the gap between them. The gap is
// split evenly across the run.
func interpolate(segs []Segment, anchored []bool) {
	prev := -1
	for i := 0; i < len(segs); i++ {
		if anchored[i] {
			prev = i
			continue
		}
		if prev < 0 {
			continue
		}
		next := i
		for next < len(segs) && !anchored[next] {
			next++
		}
		if next == len(segs) {
			return
		}
		gapStart, gapEnd := segs[prev].End, segs[next].Start
		if gapEnd > gapStart && !runInside(segs[i:next], gapStart, gapEnd) {
			slice := (gapEnd - gapStart) / float64(next-i)
			for j := i; j < next; j++ {
				segs[j].Start = gapStart + float64(j-i)*slice
				segs[j].End = gapStart + float64(j-i+1)*slice
				segs[j].TimingSource = TimingInterpolated
			}
		}
		i = next - 1
	}
}

func runInside(run []Segment, start, end float64) bool {
	for _, seg := range run {
		if seg.Start < start || seg.End > end {
			return false
		}
	}
	return true
}

func sortedByStart(segs []transcript.Segment) []transcript.Segment {
	out := append([]transcript.Segment(nil), segs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
