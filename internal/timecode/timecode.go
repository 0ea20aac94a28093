package timecode

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"ariacut/internal/logging"
)

// MaxSeconds is the largest representable offset (24 hours).
const MaxSeconds = 86400.0

var (
	// ErrMalformed reports text that matches none of the accepted shapes.
	ErrMalformed = errors.New("malformed timestamp")
	// ErrOutOfRange reports a parsed value outside [0, MaxSeconds].
	ErrOutOfRange = errors.New("timestamp out of range")
)

// Parse converts any accepted timestamp shape to seconds.
//
// Accepted shapes (comma or dot as fractional separator):
//
//	HH:MM:SS,mmm  00:01:25,300 -> 85.3
//	MM:SS:mmm     1:25:300     -> 85.3 (third group >= 100)
//	MM:SS.mmm     1:25.300     -> 85.3
//	SS.mmm        25.3         -> 25.3
//
// On error the returned value is still usable: 0 for malformed input and
// the clamped bound for out-of-range input.
func Parse(text string) (float64, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}
	parts := strings.Split(trimmed, ":")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
		}
		values = append(values, v)
	}

	var seconds float64
	switch len(values) {
	case 3:
		a, b, c := values[0], values[1], values[2]
		if c >= 100 {
			seconds = a*60 + b + c/1000
		} else {
			seconds = a*3600 + b*60 + c
		}
	case 2:
		seconds = values[0]*60 + values[1]
	case 1:
		seconds = values[0]
	default:
		return 0, fmt.Errorf("%w: %q has %d groups", ErrMalformed, text, len(values))
	}

	if seconds < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrOutOfRange, text)
	}
	if seconds > MaxSeconds {
		return MaxSeconds, fmt.Errorf("%w: %q exceeds %gs", ErrOutOfRange, text, MaxSeconds)
	}
	return seconds, nil
}

// ParseLenient parses text and never fails. Malformed and out-of-range
// inputs are logged as warnings and degrade to 0 or the clamped bound.
func ParseLenient(logger *slog.Logger, text string) float64 {
	seconds, err := Parse(text)
	if err == nil {
		return seconds
	}
	hint := "timestamp clamped into the 0-24h range"
	if errors.Is(err, ErrMalformed) {
		hint = "timestamp replaced with 0"
	}
	logging.WarnWithContext(logger, "timestamp rejected", "timestamp_invalid",
		logging.String("input", text),
		logging.Float64("seconds", seconds),
		logging.Error(err),
		logging.String(logging.FieldImpact, hint),
		logging.String(logging.FieldErrorHint, "check the transcription provider output"),
	)
	return seconds
}

// Clamp limits seconds to [0, MaxSeconds]. NaN collapses to 0.
func Clamp(seconds float64) float64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	if seconds > MaxSeconds {
		return MaxSeconds
	}
	return seconds
}

// Millis returns the clamped value as whole milliseconds.
func Millis(seconds float64) int64 {
	return int64(math.Round(Clamp(seconds) * 1000))
}

// Canonical clamps and rounds seconds to the millisecond grid. It is the
// value Parse(Format(seconds)) yields.
func Canonical(seconds float64) float64 {
	return float64(Millis(seconds)) / 1000
}

// Format renders seconds as HH:MM:SS,mmm after clamping.
func Format(seconds float64) string {
	total := Millis(seconds)
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60000) % 60
	h := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatASS renders seconds as H:MM:SS.cc, the centisecond form used by
// Advanced SubStation scripts.
func FormatASS(seconds float64) string {
	cs := int64(math.Round(Clamp(seconds) * 100))
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}
