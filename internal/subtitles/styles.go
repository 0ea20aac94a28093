package subtitles

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ariacut/internal/config"
	"ariacut/internal/services"
)

// Style is one ASS style. Colors are #RRGGBB.
type Style struct {
	FontName     string `yaml:"fontname"`
	FontSize     int    `yaml:"fontsize"`
	PrimaryColor string `yaml:"primarycolor"`
	OutlineColor string `yaml:"outlinecolor"`
	Outline      int    `yaml:"outline"`
	Shadow       int    `yaml:"shadow"`
	// Alignment uses numpad positions: 2 bottom center, 8 top center.
	Alignment int  `yaml:"alignment"`
	MarginV   int  `yaml:"marginv"`
	Bold      bool `yaml:"bold"`
	Italic    bool `yaml:"italic"`
}

// Styles is the complete look of a rendered cut.
type Styles struct {
	PlayResX        int
	PlayResY        int
	OverlayMaxChars int
	Overlay         Style
	Lyrics          Style
	Translation     Style
}

// Style names as they appear in the ASS script.
const (
	StyleOverlay     = "Overlay"
	StyleLyrics      = "Lyrics"
	StyleTranslation = "Translation"
)

// DefaultStyles lays a 16:9 video out inside a 9:16 frame: the overlay sits
// in the top bar, lyrics and translation in the bottom bar.
func DefaultStyles() Styles {
	return Styles{
		PlayResX:        1080,
		PlayResY:        1920,
		OverlayMaxChars: 35,
		Overlay: Style{
			FontName: "Georgia", FontSize: 47,
			PrimaryColor: "#FFFFFF", OutlineColor: "#000000",
			Outline: 3, Shadow: 1, Alignment: 8, MarginV: 490,
			Bold: true, Italic: true,
		},
		Lyrics: Style{
			FontName: "Georgia", FontSize: 35,
			PrimaryColor: "#FFFF64", OutlineColor: "#000000",
			Outline: 2, Shadow: 0, Alignment: 2, MarginV: 580,
			Bold: true, Italic: true,
		},
		Translation: Style{
			FontName: "Georgia", FontSize: 35,
			PrimaryColor: "#FFFFFF", OutlineColor: "#000000",
			Outline: 2, Shadow: 0, Alignment: 2, MarginV: 520,
			Bold: true, Italic: true,
		},
	}
}

// StylesFromConfig applies the configured layout to the defaults and then
// the YAML style file, when one is configured.
func StylesFromConfig(cfg config.Subtitles) (Styles, error) {
	styles := DefaultStyles()
	if cfg.PlayResX > 0 {
		styles.PlayResX = cfg.PlayResX
	}
	if cfg.PlayResY > 0 {
		styles.PlayResY = cfg.PlayResY
	}
	if cfg.OverlayMaxChars > 0 {
		styles.OverlayMaxChars = cfg.OverlayMaxChars
	}
	if strings.TrimSpace(cfg.StyleFile) == "" {
		return styles, nil
	}
	return LoadStyles(cfg.StyleFile, styles)
}

type styleFile struct {
	Overlay     *Style `yaml:"overlay"`
	Lyrics      *Style `yaml:"lyrics"`
	Translation *Style `yaml:"translation"`
}

// LoadStyles overrides base with the tracks named in the YAML file at path.
// Keys left out of the file keep their base value.
func LoadStyles(path string, base Styles) (Styles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, services.Wrap(services.ErrConfiguration, "subtitles", "load styles",
			fmt.Sprintf("Failed to read style file %s", path), err)
	}
	return ParseStyles(data, base)
}

// ParseStyles is LoadStyles on in-memory YAML.
func ParseStyles(data []byte, base Styles) (Styles, error) {
	overlay, lyrics, translation := base.Overlay, base.Lyrics, base.Translation
	file := styleFile{Overlay: &overlay, Lyrics: &lyrics, Translation: &translation}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return base, services.Wrap(services.ErrConfiguration, "subtitles", "parse styles",
			"Style file is not valid YAML for overlay, lyrics and translation", err)
	}

	out := base
	out.Overlay, out.Lyrics, out.Translation = overlay, lyrics, translation
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// Validate reports the first unusable style value.
func (s Styles) Validate() error {
	if s.PlayResX <= 0 || s.PlayResY <= 0 {
		return services.Wrap(services.ErrConfiguration, "subtitles", "validate styles",
			fmt.Sprintf("Play resolution %dx%d must be positive", s.PlayResX, s.PlayResY), nil)
	}
	for name, style := range map[string]Style{
		StyleOverlay:     s.Overlay,
		StyleLyrics:      s.Lyrics,
		StyleTranslation: s.Translation,
	} {
		if err := style.validate(); err != nil {
			return services.Wrap(services.ErrConfiguration, "subtitles", "validate styles",
				fmt.Sprintf("Style %s is invalid", name), err)
		}
	}
	return nil
}

func (s Style) validate() error {
	if strings.TrimSpace(s.FontName) == "" {
		return errors.New("fontname is required")
	}
	if s.FontSize <= 0 {
		return fmt.Errorf("fontsize %d must be positive", s.FontSize)
	}
	if s.Alignment < 1 || s.Alignment > 9 {
		return fmt.Errorf("alignment %d must be between 1 and 9", s.Alignment)
	}
	if s.Outline < 0 || s.Shadow < 0 || s.MarginV < 0 {
		return errors.New("outline, shadow and marginv must not be negative")
	}
	if _, err := assColor(s.PrimaryColor); err != nil {
		return fmt.Errorf("primarycolor: %w", err)
	}
	if _, err := assColor(s.OutlineColor); err != nil {
		return fmt.Errorf("outlinecolor: %w", err)
	}
	return nil
}

// assColor converts #RRGGBB to the &HAABBGGRR form ASS expects.
func assColor(hex string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(trimmed) != 6 {
		return "", fmt.Errorf("color %q is not #RRGGBB", hex)
	}
	value, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return "", fmt.Errorf("color %q is not #RRGGBB", hex)
	}
	r, g, b := value>>16&0xFF, value>>8&0xFF, value&0xFF
	return fmt.Sprintf("&H00%02X%02X%02X", b, g, r), nil
}
