// Package alignment resolves transcribed segments against a canonical lyric.
//
// Align scores every segment of one transcription against the lyric lines
// and consecutive line pairs, picks the display text and a quality flag,
// and summarizes the result as route A, B or C. Merge reconciles a guided
// transcription with a blind one by anchoring each guided segment on the
// closest unclaimed blind segment. Reconcile chains the two the way the
// pipeline uses them.
//
// Every returned Result has passed through timeline.Sanitize, so segments
// are ordered, non-overlapping and at least a few milliseconds long.
package alignment
