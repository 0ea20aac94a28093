package language

import (
	"errors"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"por", "pt"},
		{"fre", "fr"},
		{"ger", "de"},
		{"italiano", "it"},
		{"Português", "pt"},
		{"German", "de"},
		{" pl ", "pl"},
		// Outside the table but valid ISO 639
		{"el", "el"},
		{"ell", "el"},
		{"nl", "nl"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Canonical(tt.input)
			if err != nil {
				t.Fatalf("Canonical(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCanonicalRejects(t *testing.T) {
	for _, input := range []string{"", " ", "not a language", "12", "e"} {
		if _, err := Canonical(input); !errors.Is(err, ErrUnknown) {
			t.Errorf("Canonical(%q) error = %v, want ErrUnknown", input, err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"pt", "Portuguese"},
		{"deu", "German"},
		{"italiano", "Italian"},
		{"el", "Greek"},
		{"", "Unknown"},
		{"not a language", "NOT A LANGUAGE"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNativeName(t *testing.T) {
	if got := NativeName("pt"); got != "Português" {
		t.Fatalf("NativeName(pt) = %q", got)
	}
	if got := NativeName("el"); got != "Greek" {
		t.Fatalf("NativeName(el) = %q, want English fallback", got)
	}
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil", nil, nil},
		{"empty", []string{}, nil},
		{"dedup", []string{"en", "en"}, []string{"en"}},
		{"normalize 3-letter", []string{"eng", "spa"}, []string{"en", "es"}},
		{"mixed", []string{"en", "eng", "fr", "fra"}, []string{"en", "fr"}},
		{"drops garbage", []string{"en", "??"}, []string{"en"}},
		{"strips whitespace", []string{" en ", " "}, []string{"en"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeList(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("NormalizeList(%v) = %v, want %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("NormalizeList(%v)[%d] = %q, want %q", tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}
