package main

import (
	"encoding/json"
	"strings"
	"testing"
)

const nessunDormaLyric = "Nessun dorma! Nessun dorma!\nTu pure, o Principessa\nNella tua fredda stanza\n"

const nessunDormaGuided = `[
  {"index": 1, "start": "00:00:02,000", "end": "00:00:06,000", "text": "Nessun dorma! Nessun dorma!"},
  {"index": 2, "start": "00:00:07,000", "end": "00:00:10,500", "text": "Tu pure, o Principessa"},
  {"index": 3, "start": "00:00:11,000", "end": "00:00:15,000", "text": "Nella tua fredda stanza"}
]`

func TestTimecodeCommands(t *testing.T) {
	out, _, err := runCLI(t, []string{"timecode", "parse", "00:01:23,500", "1:02"}, "")
	if err != nil {
		t.Fatalf("timecode parse: %v", err)
	}
	requireContains(t, out, "83.500\n")
	requireContains(t, out, "62.000\n")

	out, _, err = runCLI(t, []string{"timecode", "format", "83.5"}, "")
	if err != nil {
		t.Fatalf("timecode format: %v", err)
	}
	if strings.TrimSpace(out) != "00:01:23,500" {
		t.Fatalf("unexpected format output %q", out)
	}

	if _, _, err := runCLI(t, []string{"timecode", "format", "soon"}, ""); err == nil {
		t.Fatal("expected error for non-numeric seconds")
	}
}

func TestAlignCommandPrintsTable(t *testing.T) {
	env := setupCLITestEnv(t)
	lyricPath := writeInput(t, env.baseDir, "lyric.txt", nessunDormaLyric)
	guidedPath := writeInput(t, env.baseDir, "guided.json", nessunDormaGuided)

	out, _, err := runCLI(t, []string{"align", "--lyrics", lyricPath, "--guided", guidedPath}, env.configPath)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	requireContains(t, out, "Tu pure, o Principessa")
	requireContains(t, out, "00:00:07,000")
	requireContains(t, out, "Route A")
	requireContains(t, out, "merged no")
}

func TestAlignCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	lyricPath := writeInput(t, env.baseDir, "lyric.txt", nessunDormaLyric)
	guidedPath := writeInput(t, env.baseDir, "guided.json", nessunDormaGuided)

	out, _, err := runCLI(t, []string{"align", "-l", lyricPath, "-g", guidedPath, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("align --json: %v", err)
	}
	var result struct {
		Route    string `json:"route"`
		Segments []struct {
			FinalText string `json:"final_text"`
			Flag      string `json:"flag"`
		} `json:"segments"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if result.Route != "A" || len(result.Segments) != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	for _, seg := range result.Segments {
		if seg.Flag != "high" {
			t.Fatalf("expected high flags, got %+v", result.Segments)
		}
	}
}

func TestAlignCommandRequiresInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"align", "--lyrics", "missing.txt"}, env.configPath); err == nil {
		t.Fatal("expected error without --guided")
	}
	lyricPath := writeInput(t, env.baseDir, "empty.txt", "\n\n")
	guidedPath := writeInput(t, env.baseDir, "guided.json", nessunDormaGuided)
	if _, _, err := runCLI(t, []string{"align", "-l", lyricPath, "-g", guidedPath}, env.configPath); err == nil {
		t.Fatal("expected error for empty lyric")
	}
}

func TestWindowCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	segPath := writeInput(t, env.baseDir, "overlays.json", nessunDormaGuided)

	out, _, err := runCLI(t, []string{"window", segPath}, env.configPath)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if strings.TrimSpace(out) != "00:00:02,000\t00:00:15,000\t13.000" {
		t.Fatalf("unexpected window %q", out)
	}

	out, _, err = runCLI(t, []string{"window", segPath, "--start", "4", "--end", "00:00:12,000"}, env.configPath)
	if err != nil {
		t.Fatalf("window with overrides: %v", err)
	}
	if strings.TrimSpace(out) != "00:00:04,000\t00:00:12,000\t8.000" {
		t.Fatalf("unexpected overridden window %q", out)
	}

	empty := writeInput(t, env.baseDir, "empty.json", "[]")
	if _, _, err := runCLI(t, []string{"window", empty}, env.configPath); err == nil {
		t.Fatal("expected error for empty segments without overrides")
	}
}

func TestCropCommandRebasesSegments(t *testing.T) {
	env := setupCLITestEnv(t)
	segPath := writeInput(t, env.baseDir, "guided.json", nessunDormaGuided)

	out, _, err := runCLI(t, []string{"crop", segPath, "--start", "7", "--end", "12"}, env.configPath)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	var segs []struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &segs); err != nil {
		t.Fatalf("decode crop output: %v\n%s", err, out)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 cropped segments, got %+v", segs)
	}
	if segs[0].Start != "00:00:00,000" || segs[0].End != "00:00:03,500" {
		t.Fatalf("first segment not rebased: %+v", segs[0])
	}
	if segs[1].Start != "00:00:04,000" || segs[1].End != "00:00:05,000" {
		t.Fatalf("second segment not clipped: %+v", segs[1])
	}

	if _, _, err := runCLI(t, []string{"crop", segPath, "--start", "10", "--end", "5"}, env.configPath); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestSanitizeCommandRemovesOverlaps(t *testing.T) {
	env := setupCLITestEnv(t)
	segPath := writeInput(t, env.baseDir, "overlap.json", `[
  {"start": "00:00:01,000", "end": "00:00:05,000", "text": "Vincerò"},
  {"start": "00:00:04,000", "end": "00:00:06,000", "text": "Vincerò!"}
]`)
	out, _, err := runCLI(t, []string{"sanitize", segPath}, env.configPath)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	var segs []struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal([]byte(out), &segs); err != nil {
		t.Fatalf("decode sanitize output: %v\n%s", err, out)
	}
	if len(segs) != 2 || segs[0].End > segs[1].Start {
		t.Fatalf("overlap not removed: %+v", segs)
	}
}
