package download

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"ariacut/internal/config"
	"ariacut/internal/logging"
	"ariacut/internal/media/ffmpeg"
	"ariacut/internal/media/ffprobe"
	"ariacut/internal/media/ytdlp"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
)

const (
	progressStageDownloading = "Downloading"
	progressPercentProbe     = 60.0
	progressPercentAudio     = 75.0
)

// Fetcher downloads a source URL into a directory.
type Fetcher interface {
	Download(ctx context.Context, url, dir string) (ytdlp.Result, error)
}

// AudioExtractor writes the transcription audio of a video.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// Downloader integrates yt-dlp and ffmpeg with the workflow manager.
type Downloader struct {
	cfg     *config.Config
	store   *queue.Store
	fetcher Fetcher
	audio   AudioExtractor
	probe   func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	logger  *slog.Logger
}

// NewDownloader constructs the download stage with the configured binaries.
func NewDownloader(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Downloader {
	return NewDownloaderWithDependencies(cfg, store, logger,
		ytdlp.New(cfg.Media.YtDlpBinary, cfg.Media.DownloadFormat, logger),
		ffmpeg.New(cfg.Media.FFmpegBinary),
	)
}

// NewDownloaderWithDependencies allows injecting the download and audio tools (used in tests).
func NewDownloaderWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher Fetcher, audio AudioExtractor) *Downloader {
	return &Downloader{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		audio:   audio,
		probe:   ffprobe.Inspect,
		logger:  logging.NewComponentLogger(logger, "download"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the edition log.
func (d *Downloader) SetLogger(logger *slog.Logger) {
	if d == nil {
		return
	}
	d.logger = logging.NewComponentLogger(logger, "download")
}

// Prepare primes progress fields before executing the stage.
func (d *Downloader) Prepare(ctx context.Context, e *queue.Edition) error {
	if d == nil || d.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "download", "prepare", "Download stage is not configured", nil)
	}
	if d.store == nil {
		return services.Wrap(services.ErrConfiguration, "download", "prepare", "Edition store unavailable", nil)
	}
	e.InitProgress(progressStageDownloading, "Fetching source video")
	return d.store.UpdateProgress(ctx, e)
}

// Execute downloads the source, records its duration and extracts audio.
func (d *Downloader) Execute(ctx context.Context, e *queue.Edition) error {
	if e == nil {
		return services.Wrap(services.ErrValidation, "download", "execute", "Edition is nil", nil)
	}
	logger := logging.WithContext(ctx, d.logger)
	dir := d.cfg.EditionDir(e.ID)

	result, err := d.fetcher.Download(ctx, e.SourceURL, dir)
	if err != nil {
		return err
	}
	e.VideoPath = result.VideoPath
	e.DurationSeconds = result.Duration
	logger.Info("source downloaded",
		logging.String("video_path", result.VideoPath),
		logging.String("resolution", result.Resolution()),
		logging.Float64("duration_seconds", result.Duration),
	)

	if e.DurationSeconds <= 0 {
		e.SetProgress(progressStageDownloading, "Probing video", progressPercentProbe)
		if err := d.store.UpdateProgress(ctx, e); err != nil {
			return err
		}
		probe, err := d.probe(ctx, d.cfg.Media.FFprobeBinary, e.VideoPath)
		if err != nil {
			logging.WarnWithContext(logger, "duration probe failed", "ffprobe_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "SRT duration check is skipped for this edition"),
			)
		} else {
			e.DurationSeconds = probe.DurationSeconds()
		}
	}

	e.SetProgress(progressStageDownloading, "Extracting audio", progressPercentAudio)
	if err := d.store.UpdateProgress(ctx, e); err != nil {
		return err
	}
	audioPath := filepath.Join(dir, "audio", "full.mp3")
	if err := d.audio.ExtractAudio(ctx, e.VideoPath, audioPath); err != nil {
		return err
	}
	e.AudioPath = audioPath

	e.SetProgressComplete("Downloaded", fmt.Sprintf("Source ready (%s)", result.Resolution()))
	return nil
}

// HealthCheck reports readiness of the download tools.
func (d *Downloader) HealthCheck(context.Context) stage.Health {
	const name = "download"
	if d == nil || d.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	for _, binary := range []string{d.cfg.Media.YtDlpBinary, d.cfg.Media.FFmpegBinary} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.MissingBinary(name, binary)
		}
	}
	return stage.Healthy(name)
}
