package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"ariacut/internal/logging"
	"ariacut/internal/services/llm"
	"ariacut/internal/timecode"
	"ariacut/internal/timeline"
)

// OverlayHold is how long an entry that only carries a single timestamp is
// assumed to stay on screen.
const OverlayHold = 4.0

// ErrNotArray reports a payload that does not contain a JSON array at all.
var ErrNotArray = errors.New("transcript payload is not a JSON array")

var (
	schemaOnce sync.Once
	schemaSet  *schemas
	schemaErr  error
)

func loadSchemas() (*schemas, error) {
	schemaOnce.Do(func() {
		schemaSet, schemaErr = compileSchemas()
	})
	return schemaSet, schemaErr
}

// Decode parses a provider payload into segments. Code fences and prose
// around the array are ignored. Elements that cannot be placed on the
// timeline are skipped with a warning; malformed timestamps degrade through
// timecode.ParseLenient. Only a payload without any JSON array is an error.
// The result is sanitized and numbered 1..N.
func Decode(payload []byte, logger *slog.Logger) ([]Segment, error) {
	return DecodeWithHold(payload, OverlayHold, logger)
}

// DecodeWithHold is Decode with a custom on-screen time for entries that
// carry a single timestamp. A non-positive hold uses OverlayHold.
func DecodeWithHold(payload []byte, hold float64, logger *slog.Logger) ([]Segment, error) {
	if hold <= 0 {
		hold = OverlayHold
	}
	sc, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	doc, err := locateArray(payload)
	if err != nil {
		return nil, err
	}
	if err := sc.envelope.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}

	elements := doc
	segs := make([]Segment, 0, len(elements))
	for pos, element := range elements {
		if err := sc.segment.Validate(element); err != nil {
			logging.WarnWithContext(logger, "transcript segment skipped", "transcript_segment_invalid",
				logging.Int("position", pos),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segment dropped from the timeline"),
				logging.String(logging.FieldErrorHint, "provider returned an entry without a usable timestamp"),
			)
			continue
		}
		segs = append(segs, decodeElement(element.(map[string]any), pos, hold, logger))
	}
	return Reindex(timeline.Sanitize(segs)), nil
}

func decodeElement(obj map[string]any, pos int, hold float64, logger *slog.Logger) Segment {
	index := pos + 1
	if v, ok := asInt(obj["index"]); ok {
		index = v
	}
	text, _ := obj["text"].(string)

	var start, end float64
	if v, ok := obj["start"]; ok {
		start = seconds(logger, v)
		if e, ok := obj["end"]; ok && e != nil {
			end = seconds(logger, e)
		} else {
			end = start + hold
		}
	} else {
		start = seconds(logger, obj["timestamp"])
		end = start + hold
	}
	return NewSegment(index, start, end, text)
}

func seconds(logger *slog.Logger, v any) float64 {
	switch val := v.(type) {
	case string:
		return timecode.ParseLenient(logger, val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return timecode.ParseLenient(logger, val.String())
		}
		if f < 0 || f > timecode.MaxSeconds {
			return timecode.ParseLenient(logger, strconv.FormatFloat(f, 'f', -1, 64))
		}
		return f
	default:
		return timecode.ParseLenient(logger, fmt.Sprint(v))
	}
}

func asInt(v any) (int, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	default:
		return 0, false
	}
}

// locateArray decodes the first JSON array in payload that holds at least one
// object, trying each '[' in turn so bracketed prose before the array is
// skipped. An array of scalars is only used when nothing better follows.
func locateArray(payload []byte) ([]any, error) {
	body := []byte(llm.StripCodeFence(string(payload)))
	var fallback []any
	var firstErr error
	for offset := 0; offset < len(body); {
		rel := bytes.IndexByte(body[offset:], '[')
		if rel < 0 {
			break
		}
		at := offset + rel
		offset = at + 1

		decoder := json.NewDecoder(bytes.NewReader(body[at:]))
		decoder.UseNumber()
		var candidate any
		if err := decoder.Decode(&candidate); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		arr, ok := candidate.([]any)
		if !ok {
			continue
		}
		if holdsObject(arr) {
			return arr, nil
		}
		if fallback == nil {
			fallback = arr
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	if firstErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, firstErr)
	}
	return nil, ErrNotArray
}

func holdsObject(arr []any) bool {
	for _, el := range arr {
		if _, ok := el.(map[string]any); ok {
			return true
		}
	}
	return false
}

type wireSegment struct {
	Index int    `json:"index"`
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// Encode renders segments as the canonical JSON array with HH:MM:SS,mmm
// timestamps. The raw provider text is kept so markers survive a round trip.
func Encode(segs []Segment) ([]byte, error) {
	wire := make([]wireSegment, len(segs))
	for i, seg := range segs {
		text := seg.RawText
		if text == "" {
			text = seg.Text
		}
		wire[i] = wireSegment{
			Index: seg.Index,
			Start: timecode.Format(seg.Start),
			End:   timecode.Format(seg.End),
			Text:  text,
		}
	}
	return json.MarshalIndent(wire, "", "  ")
}
