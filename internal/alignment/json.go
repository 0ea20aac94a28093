package alignment

import (
	"encoding/json"
	"fmt"

	"ariacut/internal/timecode"
)

// segmentJSON is the persisted form of a Segment. Timestamps are stored as
// HH:MM:SS,mmm so stored alignments can be read and edited by hand.
type segmentJSON struct {
	Index        int          `json:"index"`
	Start        string       `json:"start"`
	End          string       `json:"end"`
	Text         string       `json:"text"`
	RawText      string       `json:"raw_text,omitempty"`
	FinalText    string       `json:"final_text"`
	Flag         Flag         `json:"flag"`
	Confidence   float64      `json:"confidence"`
	Repetition   bool         `json:"repetition,omitempty"`
	Uncertain    bool         `json:"uncertain,omitempty"`
	Transcribed  string       `json:"transcribed,omitempty"`
	Candidate    string       `json:"candidate,omitempty"`
	LineIndex    int          `json:"line_index"`
	LineSpan     int          `json:"line_span,omitempty"`
	TimingSource TimingSource `json:"timing_source,omitempty"`
	AnchorScore  float64      `json:"anchor_score,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{
		Index:        s.Index,
		Start:        timecode.Format(s.Start),
		End:          timecode.Format(s.End),
		Text:         s.Text,
		RawText:      s.RawText,
		FinalText:    s.FinalText,
		Flag:         s.Flag,
		Confidence:   s.Confidence,
		Repetition:   s.Repetition,
		Uncertain:    s.Uncertain,
		Transcribed:  s.Transcribed,
		Candidate:    s.Candidate,
		LineIndex:    s.LineIndex,
		LineSpan:     s.LineSpan,
		TimingSource: s.TimingSource,
		AnchorScore:  s.AnchorScore,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Timestamps must be valid; a
// stored alignment with a broken timestamp is rejected rather than repaired.
func (s *Segment) UnmarshalJSON(data []byte) error {
	raw := segmentJSON{LineIndex: -1}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := timecode.Parse(raw.Start)
	if err != nil {
		return fmt.Errorf("segment %d start: %w", raw.Index, err)
	}
	end, err := timecode.Parse(raw.End)
	if err != nil {
		return fmt.Errorf("segment %d end: %w", raw.Index, err)
	}
	*s = Segment{
		Index:        raw.Index,
		Start:        timecode.Canonical(start),
		End:          timecode.Canonical(end),
		Text:         raw.Text,
		RawText:      raw.RawText,
		FinalText:    raw.FinalText,
		Flag:         raw.Flag,
		Confidence:   raw.Confidence,
		Repetition:   raw.Repetition,
		Uncertain:    raw.Uncertain,
		Transcribed:  raw.Transcribed,
		Candidate:    raw.Candidate,
		LineIndex:    raw.LineIndex,
		LineSpan:     raw.LineSpan,
		TimingSource: raw.TimingSource,
		AnchorScore:  raw.AnchorScore,
	}
	return nil
}
