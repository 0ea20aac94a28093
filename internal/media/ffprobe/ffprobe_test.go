package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio"},
			{CodecType: "video", Width: 1920, Height: 1080},
		},
		Format: Format{Duration: "245.120", Size: "1000"},
	}
	if !result.HasVideo() || !result.HasAudio() {
		t.Fatalf("expected both video and audio streams")
	}
	if result.DurationSeconds() != 245.12 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if w, h := result.VideoResolution(); w != 1920 || h != 1080 {
		t.Fatalf("unexpected resolution %dx%d", w, h)
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Duration: "12.5"}},
		Format:  Format{Duration: "bad", Size: "-1"},
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if (Result{}).DurationSeconds() != 0 {
		t.Fatalf("expected 0 for empty result")
	}
	if w, h := (Result{}).VideoResolution(); w != 0 || h != 0 {
		t.Fatalf("expected zero resolution without video")
	}
}

func TestInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\n" +
		"echo '{\"streams\":[{\"index\":0,\"codec_type\":\"video\",\"width\":640,\"height\":360}],\"format\":{\"duration\":\"61.5\"}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	result, err := Inspect(context.Background(), stub, "/videos/original.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.DurationSeconds() != 61.5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if w, h := result.VideoResolution(); w != 640 || h != 360 {
		t.Fatalf("unexpected resolution %dx%d", w, h)
	}
}

func TestInspectFailures(t *testing.T) {
	if _, err := Inspect(context.Background(), "", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}

	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho 'no such file' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := Inspect(context.Background(), stub, "missing.mp4"); err == nil {
		t.Fatal("expected error from failing ffprobe")
	}
}
