package translate

import (
	"encoding/json"
	"fmt"

	"ariacut/internal/timecode"
	"ariacut/internal/timeline"
)

// Segment is one translated subtitle cue on the cut timeline.
type Segment struct {
	Index    int
	Start    float64
	End      float64
	Original string
	Text     string
}

// Timing implements timeline.Spanned.
func (s Segment) Timing() timeline.Span { return timeline.Span{Start: s.Start, End: s.End} }

// WithTiming implements timeline.Spanned.
func (s Segment) WithTiming(span timeline.Span) Segment {
	s.Start, s.End = span.Start, span.End
	return s
}

type segmentJSON struct {
	Index    int    `json:"index"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Original string `json:"original"`
	Text     string `json:"translation"`
}

// MarshalJSON implements json.Marshaler.
func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{
		Index:    s.Index,
		Start:    timecode.Format(s.Start),
		End:      timecode.Format(s.End),
		Original: s.Original,
		Text:     s.Text,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := timecode.Parse(raw.Start)
	if err != nil {
		return fmt.Errorf("translation %d start: %w", raw.Index, err)
	}
	end, err := timecode.Parse(raw.End)
	if err != nil {
		return fmt.Errorf("translation %d end: %w", raw.Index, err)
	}
	*s = Segment{
		Index:    raw.Index,
		Start:    timecode.Canonical(start),
		End:      timecode.Canonical(end),
		Original: raw.Original,
		Text:     raw.Text,
	}
	return nil
}
