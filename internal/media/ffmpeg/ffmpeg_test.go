package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ariacut/internal/services"
	"ariacut/internal/timeline"
)

// stubRunner returns a Runner whose binary records its arguments and writes
// a few bytes to the final argument.
func stubRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\n" +
		"printf '%s\\n' \"$@\" > '" + argsFile + "'\n" +
		"for last; do :; done\n" +
		"printf 'data' > \"$last\"\n"
	bin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return New(bin), argsFile
}

func recordedArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestExtractAudio(t *testing.T) {
	runner, argsFile := stubRunner(t)
	dir := t.TempDir()
	video := touch(t, filepath.Join(dir, "original.mp4"))
	audio := filepath.Join(dir, "audio", "full.mp3")

	if err := runner.ExtractAudio(context.Background(), video, audio); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	args := strings.Join(recordedArgs(t, argsFile), " ")
	if !strings.Contains(args, "-i "+video+" -vn") || !strings.Contains(args, "libmp3lame") {
		t.Fatalf("unexpected args: %s", args)
	}
}

func TestCutUsesWindowBounds(t *testing.T) {
	runner, argsFile := stubRunner(t)
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "original.mp4"))
	dst := filepath.Join(dir, "cut.mp4")

	if err := runner.Cut(context.Background(), src, dst, timeline.Window{Start: 72.5, End: 245}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	args := strings.Join(recordedArgs(t, argsFile), " ")
	if !strings.Contains(args, "-ss 72.500 -to 245.000 -c copy") {
		t.Fatalf("unexpected args: %s", args)
	}

	err := runner.Cut(context.Background(), src, dst, timeline.Window{Start: 10, End: 10})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty window should be a validation error, got %v", err)
	}
}

func TestBurnSubtitles(t *testing.T) {
	runner, argsFile := stubRunner(t)
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "cut.mp4"))
	ass := touch(t, filepath.Join(dir, "pt.ass"))
	dst := filepath.Join(dir, "renders", "pt.mp4")

	if err := runner.BurnSubtitles(context.Background(), src, ass, dst, 1080, 1920); err != nil {
		t.Fatalf("BurnSubtitles: %v", err)
	}
	args := recordedArgs(t, argsFile)
	if got := args[len(args)-1]; got != dst {
		t.Fatalf("output should be last argument, got %q", got)
	}
	if !strings.Contains(strings.Join(args, " "), RenderFilter(ass, 1080, 1920)) {
		t.Fatalf("missing render filter in %v", args)
	}
}

func TestRenderFilterEscapesPath(t *testing.T) {
	got := RenderFilter(`C:\subs\it's.ass`, 1080, 1920)
	want := `scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black,ass='C\:/subs/it\'s.ass'`
	if got != want {
		t.Fatalf("RenderFilter =\n%s\nwant\n%s", got, want)
	}
}

func TestRunnerErrors(t *testing.T) {
	dir := t.TempDir()
	err := New("ffmpeg").Cut(context.Background(), filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "out.mp4"), timeline.Window{End: 5})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing input should be not-found, got %v", err)
	}

	bin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho 'Invalid data found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	src := touch(t, filepath.Join(dir, "original.mp4"))
	err = New(bin).ExtractAudio(context.Background(), src, filepath.Join(dir, "a.mp3"))
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected external tool error with stderr, got %v", err)
	}

	silent := filepath.Join(dir, "silent")
	if err := os.WriteFile(silent, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	err = New(silent).ExtractAudio(context.Background(), src, filepath.Join(dir, "b.mp3"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("missing output should be an external tool error, got %v", err)
	}
}
