package timecode

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func TestParseShapes(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"00:01:25,300", 85.3},
		{"00:01:25.300", 85.3},
		{"1:25:300", 85.3},
		{"1:25.300", 85.3},
		{"1:25", 85},
		{"25.3", 25.3},
		{"  00:00:02,000 ", 2},
		{"01:00:00,000", 3600},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{"", "abc", "1:2:3:4", "1:x", "NaN", "inf"} {
		got, err := Parse(input)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q) error = %v, want ErrMalformed", input, err)
		}
		if got != 0 {
			t.Fatalf("Parse(%q) = %v, want 0", input, got)
		}
	}
}

func TestParseOutOfRange(t *testing.T) {
	got, err := Parse("-5")
	if !errors.Is(err, ErrOutOfRange) || got != 0 {
		t.Fatalf("Parse(-5) = %v, %v; want 0, ErrOutOfRange", got, err)
	}
	got, err = Parse("25:00:00,000")
	if !errors.Is(err, ErrOutOfRange) || got != MaxSeconds {
		t.Fatalf("Parse(25h) = %v, %v; want %v, ErrOutOfRange", got, err, MaxSeconds)
	}
}

func TestParseLenientLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if got := ParseLenient(logger, "garbage"); got != 0 {
		t.Fatalf("ParseLenient(garbage) = %v, want 0", got)
	}
	if !strings.Contains(buf.String(), "timestamp rejected") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
	if got := ParseLenient(nil, "00:00:03,500"); got != 3.5 {
		t.Fatalf("ParseLenient = %v, want 3.5", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{85.3, "00:01:25,300"},
		{3661.5, "01:01:01,500"},
		{59.9996, "00:01:00,000"},
		{-3, "00:00:00,000"},
		{90000, "24:00:00,000"},
		{math.NaN(), "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := Format(tt.seconds); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for s := 0.0; s < MaxSeconds; s += 1234.5678 {
		got, err := Parse(Format(s))
		if err != nil {
			t.Fatalf("Parse(Format(%v)) error: %v", s, err)
		}
		if math.Abs(got-s) > 0.0005+1e-9 {
			t.Fatalf("round trip of %v drifted to %v", s, got)
		}
		if math.Abs(got-Canonical(s)) > 1e-9 {
			t.Fatalf("Canonical(%v) = %v, want %v", s, Canonical(s), got)
		}
	}
}

func TestFormatASS(t *testing.T) {
	if got := FormatASS(85.304); got != "0:01:25.30" {
		t.Fatalf("FormatASS = %q", got)
	}
	if got := FormatASS(3725.999); got != "1:02:06.00" {
		t.Fatalf("FormatASS = %q", got)
	}
}
