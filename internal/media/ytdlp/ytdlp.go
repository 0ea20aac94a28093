// Package ytdlp downloads source performances with yt-dlp.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ariacut/internal/logging"
	"ariacut/internal/services"
)

var commandContext = exec.CommandContext

// DefaultFormat caps downloads at 1080p.
const DefaultFormat = "bestvideo[height<=1080]+bestaudio/best[height<=1080]"

const baseName = "original"

// Result describes a finished download.
type Result struct {
	VideoPath string
	InfoPath  string
	Title     string
	Duration  float64
	Width     int
	Height    int
}

// Resolution renders the video size as WIDTHxHEIGHT, "?" for unknown parts.
func (r Result) Resolution() string {
	dim := func(v int) string {
		if v <= 0 {
			return "?"
		}
		return fmt.Sprint(v)
	}
	return dim(r.Width) + "x" + dim(r.Height)
}

type info struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// Downloader runs one yt-dlp binary.
type Downloader struct {
	binary string
	format string
	logger *slog.Logger
}

// New returns a Downloader. Empty binary and format fall back to yt-dlp on
// PATH and DefaultFormat.
func New(binary, format string, logger *slog.Logger) *Downloader {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	format = strings.TrimSpace(format)
	if format == "" {
		format = DefaultFormat
	}
	return &Downloader{binary: binary, format: format, logger: logging.NewComponentLogger(logger, "ytdlp")}
}

// Download fetches url into dir as original.mp4 plus original.info.json.
func (d *Downloader) Download(ctx context.Context, url, dir string) (Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{}, services.Wrap(services.ErrValidation, "ytdlp", "download", "Source URL is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "ytdlp", "download", "Failed to create download directory", err)
	}

	args := []string{
		"-f", d.format,
		"--merge-output-format", "mp4",
		"-o", filepath.Join(dir, baseName+".%(ext)s"),
		"--write-info-json",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		url,
	}
	var stderr bytes.Buffer
	cmd := commandContext(ctx, d.binary, args...) //nolint:gosec
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, services.Wrap(services.ErrTimeout, "ytdlp", "download", "Download did not finish in time", ctx.Err())
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "ytdlp", "download",
			fmt.Sprintf("yt-dlp failed: %s", strings.TrimSpace(stderr.String())), err)
	}

	result := Result{
		VideoPath: filepath.Join(dir, baseName+".mp4"),
		InfoPath:  filepath.Join(dir, baseName+".info.json"),
	}
	if _, err := os.Stat(result.VideoPath); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ytdlp", "download",
			fmt.Sprintf("yt-dlp finished without producing %s", result.VideoPath), err)
	}

	data, err := os.ReadFile(result.InfoPath)
	if err != nil {
		logging.WarnWithContext(d.logger, "download info missing; duration unknown", "ytdlp_info_missing",
			logging.String("path", result.InfoPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "duration and resolution are probed from the video instead"),
		)
		return result, nil
	}
	var meta info
	if err := json.Unmarshal(data, &meta); err != nil {
		logging.WarnWithContext(d.logger, "download info unreadable", "ytdlp_info_invalid",
			logging.String("path", result.InfoPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "duration and resolution are probed from the video instead"),
		)
		return result, nil
	}
	result.Title = meta.Title
	result.Duration = meta.Duration
	result.Width = meta.Width
	result.Height = meta.Height
	return result, nil
}
