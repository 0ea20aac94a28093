// Package textutil provides the text folding and similarity primitives used
// to compare transcribed speech against lyric text.
//
// NormalizeForMatch produces the comparison form (lowercase, no annotations,
// no punctuation). SequenceRatio and MatchScore score two strings with the
// Ratcliff/Obershelp ratio plus a containment floor. Fingerprints give a cheap
// bag-of-words cosine similarity used for lyric bank lookups. Filename helpers
// keep exported artifacts filesystem-safe.
package textutil
