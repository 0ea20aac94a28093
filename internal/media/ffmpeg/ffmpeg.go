// Package ffmpeg wraps the three ffmpeg invocations a cut goes through:
// audio extraction for the transcription provider, the stream-copy cut of
// the selected window and the 9:16 render with burned-in ASS subtitles.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"ariacut/internal/services"
	"ariacut/internal/timeline"
)

var commandContext = exec.CommandContext

// stderrTail bounds how much ffmpeg output is kept in error messages.
const stderrTail = 2048

// Runner invokes one ffmpeg binary.
type Runner struct {
	binary string
}

// New returns a Runner for binary, defaulting to "ffmpeg" on PATH.
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary}
}

// ExtractAudio writes the audio track of videoPath to audioPath as mono mp3.
func (r *Runner) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if err := ensureInput(videoPath, "extract audio"); err != nil {
		return err
	}
	return r.run(ctx, "extract audio", audioPath,
		"-y", "-i", videoPath,
		"-vn", "-ac", "1", "-ar", "44100",
		"-codec:a", "libmp3lame", "-b:a", "128k",
		audioPath,
	)
}

// Cut copies the streams of src between the window bounds into dst.
func (r *Runner) Cut(ctx context.Context, src, dst string, window timeline.Window) error {
	if err := ensureInput(src, "cut"); err != nil {
		return err
	}
	if window.Duration() <= 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "cut",
			fmt.Sprintf("Cut window %s has no duration", timeline.Span(window)), nil)
	}
	return r.run(ctx, "cut", dst,
		"-y", "-i", src,
		"-ss", seconds(window.Start), "-to", seconds(window.End),
		"-c", "copy", "-avoid_negative_ts", "make_zero",
		dst,
	)
}

// BurnSubtitles scales src into a width x height frame, pads it with black
// bars and draws the ASS script on top.
func (r *Runner) BurnSubtitles(ctx context.Context, src, assPath, dst string, width, height int) error {
	if err := ensureInput(src, "render"); err != nil {
		return err
	}
	if err := ensureInput(assPath, "render"); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return services.Wrap(services.ErrConfiguration, "ffmpeg", "render",
			fmt.Sprintf("Render size %dx%d must be positive", width, height), nil)
	}
	return r.run(ctx, "render", dst,
		"-y", "-i", src,
		"-vf", RenderFilter(assPath, width, height),
		"-c:v", "libx264", "-preset", "medium", "-crf", "23",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		dst,
	)
}

// RenderFilter builds the scale, pad and ass filter chain.
func RenderFilter(assPath string, width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,ass='%s'",
		width, height, width, height, escapeFilterPath(assPath))
}

func (r *Runner) run(ctx context.Context, op, output string, args ...string) error {
	if dir := filepath.Dir(output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrTransient, "ffmpeg", op, "Failed to create output directory", err)
		}
	}
	var stderr bytes.Buffer
	cmd := commandContext(ctx, r.binary, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...) //nolint:gosec
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "ffmpeg", op, "ffmpeg did not finish in time", ctx.Err())
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", op,
			fmt.Sprintf("ffmpeg failed: %s", tail(stderr.String())), err)
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", op,
			fmt.Sprintf("ffmpeg produced no output at %s", output), err)
	}
	return nil
}

func ensureInput(path, op string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", op, "Input path is empty", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return services.Wrap(services.ErrNotFound, "ffmpeg", op, fmt.Sprintf("Input %s is not readable", path), err)
	}
	return nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// escapeFilterPath quotes a path for use inside a filtergraph option.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	path = strings.ReplaceAll(path, ":", `\:`)
	return strings.ReplaceAll(path, "'", `\'`)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	if s == "" {
		return "no diagnostic output"
	}
	return s
}
