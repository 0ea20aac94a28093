package language

import (
	"errors"
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknown reports a code that is not an ISO 639 language.
var ErrUnknown = errors.New("unknown language")

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // English name
	native  string   // Name in the language itself, used in prompts
	words   []string // Full word forms (e.g. "english")
}

// Subtitle languages plus the languages opera is commonly sung in.
var languages = []entry{
	{"en", "eng", "", "English", "English", []string{"english", "inglês"}},
	{"pt", "por", "", "Portuguese", "Português", []string{"portuguese", "português", "portugues"}},
	{"es", "spa", "", "Spanish", "Español", []string{"spanish", "espanhol", "español"}},
	{"de", "deu", "ger", "German", "Deutsch", []string{"german", "alemão", "deutsch"}},
	{"fr", "fra", "fre", "French", "Français", []string{"french", "francês", "français"}},
	{"it", "ita", "", "Italian", "Italiano", []string{"italian", "italiano"}},
	{"pl", "pol", "", "Polish", "Polski", []string{"polish", "polonês", "polski"}},
	{"ru", "rus", "", "Russian", "Русский", []string{"russian", "russo"}},
	{"cs", "ces", "cze", "Czech", "Čeština", []string{"czech", "tcheco"}},
	{"la", "lat", "", "Latin", "Latina", []string{"latin", "latim"}},
	{"hu", "hun", "", "Hungarian", "Magyar", []string{"hungarian", "húngaro"}},
	{"sv", "swe", "", "Swedish", "Svenska", []string{"swedish", "sueco"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*3)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Canonical validates code against ISO 639 and returns its two-letter form
// when one exists. Known word forms ("italiano", "German") are accepted too.
func Canonical(code string) (string, error) {
	if e := lookup(code); e != nil {
		return e.code2, nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty code", ErrUnknown)
	}
	base, err := xlanguage.ParseBase(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknown, code)
	}
	return base.String(), nil
}

// DisplayName returns the English name of a language code. Returns "Unknown"
// for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if base, err := xlanguage.ParseBase(strings.ToLower(strings.TrimSpace(code))); err == nil {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NativeName returns the language's own name, falling back to DisplayName.
func NativeName(code string) string {
	if e := lookup(code); e != nil {
		return e.native
	}
	return DisplayName(code)
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO
// 639-1, dropping entries that are not languages.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		code, err := Canonical(lang)
		if err != nil {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	return normalized
}
