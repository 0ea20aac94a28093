package subtitles

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"ariacut/internal/alignment"
	"ariacut/internal/transcript"
	"ariacut/internal/translate"
)

func lyric(index int, start, end float64, text string) alignment.Segment {
	return alignment.Segment{Index: index, Start: start, End: end, FinalText: text, LineIndex: -1}
}

func eventsWithStyle(doc Document, style string) []Event {
	var out []Event
	for _, ev := range doc.Events {
		if ev.Style == style {
			out = append(out, ev)
		}
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBuildASSOverlayTiming(t *testing.T) {
	tracks := Tracks{
		Overlays: []transcript.Segment{
			{Start: 0, End: 4, Text: "Turandot, atto III"},
			{Start: 5, End: 9, Text: ""},
			{Start: 10, End: 14, Text: "Calaf sfida la notte"},
		},
		Lyrics:          []alignment.Segment{lyric(0, 12, 20, "Nessun dorma"), lyric(1, 21, 30, "Tu pure, o Principessa")},
		VersionLanguage: "it",
		SongLanguage:    "it",
	}
	doc := BuildASS(tracks, DefaultStyles())
	overlays := eventsWithStyle(doc, StyleOverlay)
	if len(overlays) != 2 {
		t.Fatalf("expected 2 overlay events (empty text skipped), got %d", len(overlays))
	}
	if !near(overlays[0].End, 9) {
		t.Fatalf("first overlay should end 1s before the next, got %v", overlays[0].End)
	}
	if !near(overlays[1].End, 30) {
		t.Fatalf("last overlay should run to the end of the cut, got %v", overlays[1].End)
	}
}

func TestBuildASSOverlayMinimumDuration(t *testing.T) {
	tracks := Tracks{
		Overlays: []transcript.Segment{
			{Start: 0, Text: "Primo"},
			{Start: 2, Text: "Secondo"},
		},
	}
	doc := BuildASS(tracks, DefaultStyles())
	overlays := eventsWithStyle(doc, StyleOverlay)
	if len(overlays) != 2 {
		t.Fatalf("expected 2 overlay events, got %d", len(overlays))
	}
	if !near(overlays[0].End, 2) {
		t.Fatalf("overlay shorter than 2s should be stretched, got end %v", overlays[0].End)
	}
	if !near(overlays[1].End, 12) {
		t.Fatalf("last overlay without lyrics should fall back to 10s, got end %v", overlays[1].End)
	}
}

func TestBuildASSPairsLyricsWithTranslation(t *testing.T) {
	tracks := Tracks{
		Lyrics: []alignment.Segment{
			lyric(0, 0, 3, "Nessun dorma"),
			lyric(1, 3, 6, "Tu pure, o Principessa"),
			lyric(2, 6, 9, "Nella tua fredda stanza"),
		},
		Translation: []translate.Segment{
			{Index: 0, Start: 0, End: 3, Text: "Ninguém durma"},
			{Index: 1, Start: 3, End: 6, Text: "  "},
			{Index: 2, Start: 6, End: 9, Text: "No teu quarto frio"},
		},
		VersionLanguage: "pt",
		SongLanguage:    "it",
	}
	doc := BuildASS(tracks, DefaultStyles())
	lyrics := eventsWithStyle(doc, StyleLyrics)
	translations := eventsWithStyle(doc, StyleTranslation)
	if len(lyrics) != 2 || len(translations) != 2 {
		t.Fatalf("expected 2 lyric and 2 translation events, got %d and %d", len(lyrics), len(translations))
	}
	if lyrics[1].Text != "Nella tua fredda stanza" || translations[1].Text != "No teu quarto frio" {
		t.Fatalf("unexpected pairing: %+v / %+v", lyrics[1], translations[1])
	}
	if lyrics[0].Start != translations[0].Start || lyrics[0].End != translations[0].End {
		t.Fatalf("translation should share lyric timing: %+v vs %+v", lyrics[0], translations[0])
	}
}

func TestBuildASSSameLanguageShowsAllLyrics(t *testing.T) {
	tracks := Tracks{
		Lyrics: []alignment.Segment{
			lyric(0, 0, 3, "Nessun dorma"),
			lyric(1, 3, 6, ""),
			lyric(2, 6, 9, "Nella tua fredda stanza"),
		},
		Translation:     []translate.Segment{{Index: 0, Text: "ignored"}},
		VersionLanguage: "IT",
		SongLanguage:    "it",
	}
	doc := BuildASS(tracks, DefaultStyles())
	if got := len(eventsWithStyle(doc, StyleLyrics)); got != 2 {
		t.Fatalf("expected 2 lyric events, got %d", got)
	}
	if got := len(eventsWithStyle(doc, StyleTranslation)); got != 0 {
		t.Fatalf("expected no translation events, got %d", got)
	}
}

func TestBuildASSExtendsFinalLyric(t *testing.T) {
	tracks := Tracks{Lyrics: []alignment.Segment{lyric(0, 0, 3, "Vincerò"), lyric(1, 4, 4.5, "Vincerò!")}}
	doc := BuildASS(tracks, DefaultStyles())
	lyrics := eventsWithStyle(doc, StyleLyrics)
	if len(lyrics) != 2 || !near(lyrics[1].End, 6) {
		t.Fatalf("final lyric should last 2s, got %+v", lyrics)
	}
}

func TestWrapOverlay(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "Nessun dorma", "Nessun dorma"},
		{"balanced", "La storia di una principessa di ghiaccio", `La storia di una\Nprincipessa di ghiaccio`},
		{"single word", strings.Repeat("a", 50), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapOverlay(tt.text, 35); got != tt.want {
				t.Fatalf("WrapOverlay(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDocumentWriteTo(t *testing.T) {
	doc := BuildASS(Tracks{
		Overlays: []transcript.Segment{{Start: 0, Text: "Atto III"}},
		Lyrics:   []alignment.Segment{lyric(0, 1, 9, "Nessun {dorma}\nnessun")},
	}, DefaultStyles())

	var buf bytes.Buffer
	n, err := doc.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Fatalf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}
	out := buf.String()
	for _, want := range []string{
		"PlayResX: 1080\nPlayResY: 1920\n",
		"Style: Overlay,Georgia,47,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,-1,-1,0,0,100,100,0,0,1,3,1,8,10,10,490,1\n",
		"Style: Lyrics,Georgia,35,&H0064FFFF,",
		"Style: Translation,Georgia,35,&H00FFFFFF,",
		"Dialogue: 0,0:00:00.00,0:00:09.00,Overlay,,0,0,0,,Atto III\n",
		`Dialogue: 0,0:00:01.00,0:00:09.00,Lyrics,,0,0,0,,Nessun (dorma)\Nnessun`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDocumentWriteToRejectsBadColor(t *testing.T) {
	styles := DefaultStyles()
	styles.Lyrics.PrimaryColor = "yellow"
	var buf bytes.Buffer
	if _, err := (Document{Styles: styles}).WriteTo(&buf); err == nil {
		t.Fatal("expected error for invalid color")
	}
}
