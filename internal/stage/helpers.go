package stage

import (
	"encoding/json"
	"strings"

	"ariacut/internal/alignment"
	"ariacut/internal/lyrics"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/transcript"
)

// Song builds the prompt metadata of an edition.
func Song(e *queue.Edition) lyrics.Song {
	if e == nil {
		return lyrics.Song{}
	}
	return lyrics.Song{
		Artist:   e.Artist,
		Title:    e.Title,
		Opera:    e.Opera,
		Composer: e.Composer,
		Language: e.Language,
	}
}

// DecodeAlignment parses stored alignment segments. On failure it returns a
// services.ErrValidation suitable for stage Execute methods.
func DecodeAlignment(raw string) ([]alignment.Segment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, services.Wrap(services.ErrValidation, "stage", "decode alignment",
			"Alignment missing; rerun transcription", nil)
	}
	var segs []alignment.Segment
	if err := json.Unmarshal([]byte(raw), &segs); err != nil {
		return nil, services.Wrap(services.ErrValidation, "stage", "decode alignment",
			"Stored alignment is invalid; re-validate the edition", err)
	}
	return segs, nil
}

// EncodeAlignment renders segments in the stored alignment format.
func EncodeAlignment(segs []alignment.Segment) (string, error) {
	if segs == nil {
		segs = []alignment.Segment{}
	}
	data, err := json.Marshal(segs)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stage", "encode alignment", "Alignment not serializable", err)
	}
	return string(data), nil
}

// DecodeOverlays parses stored overlay captions. Single-timestamp entries
// stay on screen for hold seconds.
func DecodeOverlays(raw string, hold float64) ([]transcript.Segment, error) {
	segs, err := transcript.DecodeWithHold([]byte(raw), hold, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "stage", "decode overlays",
			"Overlay captions are invalid; re-import them", err)
	}
	return segs, nil
}

// EncodeOverlays renders overlay captions in the stored transcript format.
func EncodeOverlays(segs []transcript.Segment) (string, error) {
	data, err := transcript.Encode(segs)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stage", "encode overlays", "Overlays not serializable", err)
	}
	return string(data), nil
}

// PrimaryOverlay returns the overlay record in lang, falling back to the
// first record when none matches.
func PrimaryOverlay(records []*queue.OverlayRecord, lang string) *queue.OverlayRecord {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, rec := range records {
		if rec != nil && strings.EqualFold(rec.Language, lang) {
			return rec
		}
	}
	for _, rec := range records {
		if rec != nil {
			return rec
		}
	}
	return nil
}
