package alignment

import (
	"ariacut/internal/textutil"
)

// Match is the best lyric candidate for a fragment. Index is -1 when no
// candidate scored above zero.
type Match struct {
	Text  string
	Score float64
	Index int
	// Span is 1 for a single line and 2 for a consecutive pair.
	Span int
}

// BestMatch scores fragment against every line and every pair of
// consecutive lines using the default containment floor.
func BestMatch(fragment string, lines []string) Match {
	return newLineIndex(lines).best(fragment, textutil.ContainmentFloor)
}

type candidate struct {
	text       string
	normalized string
	index      int
	span       int
}

// lineIndex holds the normalized single lines followed by the normalized
// consecutive pairs, in the order they are scored.
type lineIndex struct {
	candidates []candidate
}

func newLineIndex(lines []string) *lineIndex {
	idx := &lineIndex{candidates: make([]candidate, 0, 2*len(lines))}
	for i, line := range lines {
		idx.candidates = append(idx.candidates, candidate{
			text:       line,
			normalized: textutil.NormalizeForMatch(line),
			index:      i,
			span:       1,
		})
	}
	for i := 0; i+1 < len(lines); i++ {
		combined := lines[i] + " " + lines[i+1]
		idx.candidates = append(idx.candidates, candidate{
			text:       combined,
			normalized: textutil.NormalizeForMatch(combined),
			index:      i,
			span:       2,
		})
	}
	return idx
}

// best returns the highest scoring candidate. Only a strictly greater score
// replaces the current best, so ties keep the earliest candidate and single
// lines win over pairs.
func (idx *lineIndex) best(fragment string, floor float64) Match {
	best := Match{Index: -1}
	norm := textutil.NormalizeForMatch(fragment)
	if norm == "" {
		return best
	}
	for _, c := range idx.candidates {
		score := textutil.MatchScore(norm, c.normalized, floor)
		if score > best.Score {
			best = Match{Text: c.text, Score: score, Index: c.index, Span: c.span}
		}
	}
	return best
}
