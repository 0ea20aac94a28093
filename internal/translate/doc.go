// Package translate produces subtitle translations of an aligned lyric.
//
// The translator numbers the lyric segments, asks the LLM for a literary
// translation that keeps the numbering, and maps the answer back onto the
// source timing. Segments the model skips are left out of the track.
package translate
