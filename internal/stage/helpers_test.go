package stage

import (
	"errors"
	"testing"

	"ariacut/internal/alignment"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/transcript"
)

func TestDecodeAlignment_Valid(t *testing.T) {
	raw, err := EncodeAlignment([]alignment.Segment{{Index: 1, Start: 1, End: 3.5, Text: "Nessun dorma", FinalText: "Nessun dorma", Flag: alignment.FlagHigh, LineIndex: 0}})
	if err != nil {
		t.Fatalf("EncodeAlignment: %v", err)
	}
	segs, err := DecodeAlignment(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].End != 3.5 || segs[0].FinalText != "Nessun dorma" {
		t.Fatalf("unexpected segments: %+v", segs)
	}
}

func TestDecodeAlignment_Invalid(t *testing.T) {
	for _, raw := range []string{"", "{invalid json"} {
		if _, err := DecodeAlignment(raw); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("DecodeAlignment(%q) = %v, want validation error", raw, err)
		}
	}
}

func TestOverlayRoundTrip(t *testing.T) {
	raw, err := EncodeOverlays([]transcript.Segment{transcript.NewSegment(1, 12, 18, "Act III, Turandot's palace")})
	if err != nil {
		t.Fatalf("EncodeOverlays: %v", err)
	}
	segs, err := DecodeOverlays(raw, 4)
	if err != nil {
		t.Fatalf("DecodeOverlays: %v", err)
	}
	if len(segs) != 1 || segs[0].Start != 12 || segs[0].End != 18 {
		t.Fatalf("unexpected overlays: %+v", segs)
	}
	if _, err := DecodeOverlays("not json", 4); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrimaryOverlay(t *testing.T) {
	records := []*queue.OverlayRecord{{ID: 1, Language: "en"}, {ID: 2, Language: "pt"}}
	if got := PrimaryOverlay(records, "PT"); got == nil || got.ID != 2 {
		t.Fatalf("expected pt overlay, got %+v", got)
	}
	if got := PrimaryOverlay(records, "de"); got == nil || got.ID != 1 {
		t.Fatalf("expected fallback to first overlay, got %+v", got)
	}
	if got := PrimaryOverlay(nil, "en"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSong(t *testing.T) {
	song := Song(&queue.Edition{Artist: "Luciano Pavarotti", Title: "Nessun dorma", Opera: "Turandot", Language: "it"})
	if song.Label() != "Luciano Pavarotti - Nessun dorma (Turandot)" || song.Language != "it" {
		t.Fatalf("unexpected song: %+v", song)
	}
}
