package subtitles

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ariacut/internal/alignment"
	"ariacut/internal/timecode"
)

// Cue is one SRT entry.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// CuesFromAlignment turns aligned segments into cues, skipping segments with
// nothing to display.
func CuesFromAlignment(segs []alignment.Segment) []Cue {
	cues := make([]Cue, 0, len(segs))
	for _, seg := range segs {
		text := displayText(seg)
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Start: seg.Start, End: seg.End, Text: text})
	}
	return cues
}

// RenderSRT encodes cues as SRT, numbering from 1.
func RenderSRT(cues []Cue) []byte {
	var buf bytes.Buffer
	for i, cue := range cues {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n", i+1, timecode.Format(cue.Start), timecode.Format(cue.End), strings.TrimSpace(cue.Text))
	}
	return buf.Bytes()
}

// WriteSRT writes cues to path, creating the parent directory.
func WriteSRT(path string, cues []Cue) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create subtitle directory: %w", err)
		}
	}
	if err := os.WriteFile(path, RenderSRT(cues), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// ValidateSRT checks SRT content for format issues. The returned slice is
// empty when the content passed. A positive clipSeconds also flags cues that
// run past the end of the clip.
func ValidateSRT(data []byte, clipSeconds float64) []string {
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return []string{"empty_subtitle_file"}
	}

	var issues []string
	var prevStart, last float64
	valid := 0
	for n, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			issues = append(issues, fmt.Sprintf("cue %d: incomplete block", n+1))
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			issues = append(issues, fmt.Sprintf("cue %d: missing sequence number", n+1))
		}
		start, end, err := parseTimingLine(lines[1])
		if err != nil {
			issues = append(issues, fmt.Sprintf("cue %d: %v", n+1, err))
			continue
		}
		valid++
		if end <= start {
			issues = append(issues, fmt.Sprintf("cue %d: end does not follow start", n+1))
		}
		if start < prevStart {
			issues = append(issues, fmt.Sprintf("cue %d: out of order", n+1))
		}
		prevStart = start
		if end > last {
			last = end
		}
	}
	if valid == 0 {
		issues = append(issues, "no_valid_timestamps")
	}
	if clipSeconds > 0 && last > clipSeconds+0.5 {
		issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", last-clipSeconds))
	}
	return issues
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", strings.TrimSpace(line))
	}
	start, err := timecode.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start: %w", err)
	}
	end, err := timecode.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end: %w", err)
	}
	return start, end, nil
}

func displayText(seg alignment.Segment) string {
	if text := strings.TrimSpace(seg.FinalText); text != "" {
		return text
	}
	return strings.TrimSpace(seg.Text)
}
