package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"ariacut/internal/alignment"
	"ariacut/internal/timecode"
	"ariacut/internal/timeline"
	"ariacut/internal/transcript"
	"ariacut/internal/translate"
)

const (
	// overlayGap separates an overlay card from the next one.
	overlayGap = 1.0
	// minEventDuration is the shortest an overlay or final lyric stays up.
	minEventDuration = 2.0
	// overlayFallback is used for the last overlay when no lyric bounds the cut.
	overlayFallback = 10.0
)

// Tracks is everything shown on one rendered cut, already on the cut
// timeline (zero at the window start).
type Tracks struct {
	Overlays    []transcript.Segment
	Lyrics      []alignment.Segment
	Translation []translate.Segment
	// VersionLanguage is the language the cut is rendered for; SongLanguage
	// is what the singers sing in.
	VersionLanguage string
	SongLanguage    string
}

// NeedsTranslation reports whether lyrics must be paired with a translation.
func (t Tracks) NeedsTranslation() bool {
	return !strings.EqualFold(strings.TrimSpace(t.VersionLanguage), strings.TrimSpace(t.SongLanguage)) &&
		len(t.Translation) > 0
}

// Event is one Dialogue line.
type Event struct {
	Start float64
	End   float64
	Style string
	Text  string
}

// Document is a complete ASS script.
type Document struct {
	Styles Styles
	Events []Event
}

// BuildASS lays out the overlay, lyric and translation tracks. When the
// version language differs from the song language a lyric line is only shown
// together with its translation.
func BuildASS(tracks Tracks, styles Styles) Document {
	doc := Document{Styles: styles}

	lyrics := timeline.EnsureTrailingDuration(timeline.Sanitize(tracks.Lyrics), minEventDuration)
	var cutEnd float64
	for _, seg := range lyrics {
		if seg.End > cutEnd {
			cutEnd = seg.End
		}
	}

	overlays := make([]transcript.Segment, 0, len(tracks.Overlays))
	for _, seg := range tracks.Overlays {
		if strings.TrimSpace(seg.Text) != "" {
			overlays = append(overlays, seg)
		}
	}
	for i, seg := range overlays {
		end := cutEnd
		switch {
		case i+1 < len(overlays):
			end = overlays[i+1].Start - overlayGap
		case cutEnd <= 0:
			end = seg.Start + overlayFallback
		}
		if end-seg.Start < minEventDuration {
			end = seg.Start + minEventDuration
		}
		doc.Events = append(doc.Events, Event{
			Start: seg.Start,
			End:   end,
			Style: StyleOverlay,
			Text:  WrapOverlay(strings.TrimSpace(seg.Text), styles.OverlayMaxChars),
		})
	}

	paired := tracks.NeedsTranslation()
	byIndex := make(map[int]string, len(tracks.Translation))
	if paired {
		for _, seg := range tracks.Translation {
			if text := strings.TrimSpace(seg.Text); text != "" {
				byIndex[seg.Index] = text
			}
		}
	}
	for _, seg := range lyrics {
		text := displayText(seg)
		if text == "" {
			continue
		}
		translation, ok := byIndex[seg.Index]
		if paired && !ok {
			continue
		}
		doc.Events = append(doc.Events, Event{Start: seg.Start, End: seg.End, Style: StyleLyrics, Text: text})
		if paired {
			doc.Events = append(doc.Events, Event{Start: seg.Start, End: seg.End, Style: StyleTranslation, Text: translation})
		}
	}
	return doc
}

// WrapOverlay splits text longer than maxChars into two lines joined by the
// ASS hard break, choosing the word boundary closest to the middle.
func WrapOverlay(text string, maxChars int) string {
	length := utf8.RuneCountInString(text)
	if maxChars <= 0 || length <= maxChars {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= 1 {
		return text
	}
	middle := float64(length) / 2
	best, bestDiff := 0, float64(length)
	pos := 0
	for i, word := range words[:len(words)-1] {
		pos += utf8.RuneCountInString(word)
		if i > 0 {
			pos++
		}
		diff := float64(pos) - middle
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = i+1, diff
		}
	}
	return strings.Join(words[:best], " ") + `\N` + strings.Join(words[best:], " ")
}

// WriteTo writes the script in ASS v4+ form.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	fmt.Fprintf(cw, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 0\nScaledBorderAndShadow: yes\n\n",
		d.Styles.PlayResX, d.Styles.PlayResY)

	cw.put("[V4+ Styles]\n")
	cw.put("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
		"Alignment, MarginL, MarginR, MarginV, Encoding\n")
	for _, named := range []struct {
		name  string
		style Style
	}{
		{StyleOverlay, d.Styles.Overlay},
		{StyleLyrics, d.Styles.Lyrics},
		{StyleTranslation, d.Styles.Translation},
	} {
		if err := writeStyle(cw, named.name, named.style); err != nil {
			return cw.n, err
		}
	}

	cw.put("\n[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ev := range d.Events {
		fmt.Fprintf(cw, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			timecode.FormatASS(ev.Start), timecode.FormatASS(ev.End), ev.Style, escapeText(ev.Text))
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, bw.Flush()
}

// WriteFile writes the script to path, creating the parent directory.
func (d Document) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create subtitle directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ass: %w", err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write ass: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ass: %w", err)
	}
	return nil
}

func writeStyle(w io.Writer, name string, s Style) error {
	primary, err := assColor(s.PrimaryColor)
	if err != nil {
		return fmt.Errorf("style %s: %w", name, err)
	}
	outline, err := assColor(s.OutlineColor)
	if err != nil {
		return fmt.Errorf("style %s: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "Style: %s,%s,%d,%s,&H000000FF,%s,&H00000000,%d,%d,0,0,100,100,0,0,1,%d,%d,%d,10,10,%d,1\n",
		name, s.FontName, s.FontSize, primary, outline, assBool(s.Bold), assBool(s.Italic),
		s.Outline, s.Shadow, s.Alignment, s.MarginV)
	return err
}

func assBool(v bool) int {
	if v {
		return -1
	}
	return 0
}

// escapeText keeps a cue on one Dialogue line and stops braces from being
// read as override blocks.
func escapeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", `\N`)
	text = strings.ReplaceAll(text, "{", "(")
	return strings.ReplaceAll(text, "}", ")")
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func (c *countingWriter) put(s string) {
	_, _ = c.Write([]byte(s))
}
