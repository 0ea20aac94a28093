package cutting

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ariacut/internal/alignment"
	"ariacut/internal/config"
	"ariacut/internal/logging"
	"ariacut/internal/media/ffmpeg"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
	"ariacut/internal/subtitles"
	"ariacut/internal/timecode"
	"ariacut/internal/timeline"
	"ariacut/internal/transcript"
)

const (
	progressStageCutting = "Cutting"
	progressPercentVideo = 40.0
	progressPercentSRT   = 85.0

	// LyricsSRT is the file name of the cropped lyric track inside the edition directory.
	LyricsSRT = "lyrics.srt"
)

// Cutter extracts a window of a video.
type Cutter interface {
	Cut(ctx context.Context, src, dst string, window timeline.Window) error
}

// Stage cuts an aligned edition.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	cutter Cutter
	logger *slog.Logger
}

// NewStage wires the cut stage with the configured ffmpeg.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	return NewStageWithCutter(cfg, store, logger, ffmpeg.New(cfg.Media.FFmpegBinary))
}

// NewStageWithCutter allows injecting the video cutter (used in tests).
func NewStageWithCutter(cfg *config.Config, store *queue.Store, logger *slog.Logger, cutter Cutter) *Stage {
	return &Stage{cfg: cfg, store: store, cutter: cutter, logger: logging.NewComponentLogger(logger, "cutting")}
}

// SetLogger allows the workflow manager to route stage logs into the edition log.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "cutting")
}

// Prepare primes progress fields before executing the stage.
func (s *Stage) Prepare(ctx context.Context, e *queue.Edition) error {
	if s == nil || s.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "cutting", "prepare", "Cut stage is not configured", nil)
	}
	if s.store == nil {
		return services.Wrap(services.ErrConfiguration, "cutting", "prepare", "Edition store unavailable", nil)
	}
	e.InitProgress(progressStageCutting, "Deriving cut window")
	return s.store.UpdateProgress(ctx, e)
}

// Execute derives the window, rebases overlays and lyrics, and cuts the clip.
func (s *Stage) Execute(ctx context.Context, e *queue.Edition) error {
	if e == nil {
		return services.Wrap(services.ErrValidation, "cutting", "execute", "Edition is nil", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	if strings.TrimSpace(e.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "cutting", "execute", "Source video missing; rerun download", nil)
	}

	rec, lyricSegs, err := s.validatedAlignment(ctx, e)
	if err != nil {
		return err
	}
	overlayRecords, err := s.store.Overlays(ctx, e.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "cutting", "load overlays", "Failed to read overlays", err)
	}
	overlays := make(map[int64][]transcript.Segment, len(overlayRecords))
	for _, o := range overlayRecords {
		segs, err := stage.DecodeOverlays(o.OriginalJSON, s.cfg.Window.OverlayHoldSeconds)
		if err != nil {
			return err
		}
		overlays[o.ID] = segs
	}

	window, err := s.deriveWindow(logger, e, overlayRecords, overlays, lyricSegs)
	if err != nil {
		return err
	}
	e.WindowStart, e.WindowEnd = window.Start, window.End
	logger.Info("cut window derived",
		logging.String("start", timecode.Format(window.Start)),
		logging.String("end", timecode.Format(window.End)),
		logging.Float64("duration_seconds", window.Duration()),
		logging.Bool("start_override", e.WindowStartOverride != nil),
		logging.Bool("end_override", e.WindowEndOverride != nil),
	)

	for _, o := range overlayRecords {
		raw, err := stage.EncodeOverlays(timeline.Reindex(overlays[o.ID], window.Start))
		if err != nil {
			return err
		}
		if err := s.store.SaveReindexedOverlay(ctx, o.ID, raw); err != nil {
			return services.Wrap(services.ErrTransient, "cutting", "save overlay", "Failed to store reindexed overlay", err)
		}
	}

	var cropped []alignment.Segment
	if rec != nil {
		cropped = timeline.Crop(lyricSegs, window)
		raw, err := stage.EncodeAlignment(cropped)
		if err != nil {
			return err
		}
		if err := s.store.SaveCroppedAlignment(ctx, rec.ID, raw); err != nil {
			return services.Wrap(services.ErrTransient, "cutting", "save crop", "Failed to store cropped alignment", err)
		}
	}

	e.SetProgress(progressStageCutting, "Cutting video", progressPercentVideo)
	if err := s.store.UpdateProgress(ctx, e); err != nil {
		return err
	}
	dir := s.cfg.EditionDir(e.ID)
	cutPath := filepath.Join(dir, "cut.mp4")
	if err := s.cutter.Cut(ctx, e.VideoPath, cutPath, window); err != nil {
		return err
	}
	e.CutVideoPath = cutPath

	if rec != nil {
		e.SetProgress(progressStageCutting, "Writing lyric subtitles", progressPercentSRT)
		if err := s.store.UpdateProgress(ctx, e); err != nil {
			return err
		}
		if err := s.writeSRT(logger, filepath.Join(dir, LyricsSRT), cropped, window); err != nil {
			return err
		}
	}

	e.SetProgressComplete("Cut", fmt.Sprintf("Clip %s-%s", timecode.Format(window.Start), timecode.Format(window.End)))
	return nil
}

// validatedAlignment returns the edition's alignment, or nil for
// instrumental editions.
func (s *Stage) validatedAlignment(ctx context.Context, e *queue.Edition) (*queue.AlignmentRecord, []alignment.Segment, error) {
	if e.Instrumental {
		return nil, nil, nil
	}
	rec, err := s.store.LatestAlignment(ctx, e.ID)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "cutting", "load alignment", "Failed to read alignment", err)
	}
	if rec == nil {
		return nil, nil, services.Wrap(services.ErrValidation, "cutting", "load alignment", "No alignment stored; rerun transcription", nil)
	}
	if !rec.Validated {
		return nil, nil, services.Wrap(services.ErrValidation, "cutting", "load alignment",
			fmt.Sprintf("Alignment route %s is not validated", rec.Route), nil)
	}
	segs, err := stage.DecodeAlignment(rec.SegmentsJSON)
	if err != nil {
		return nil, nil, err
	}
	return rec, segs, nil
}

func (s *Stage) deriveWindow(logger *slog.Logger, e *queue.Edition, records []*queue.OverlayRecord, overlays map[int64][]transcript.Segment, lyricSegs []alignment.Segment) (timeline.Window, error) {
	overrides := timeline.Overrides{
		Start:        e.WindowStartOverride,
		End:          e.WindowEndOverride,
		FallbackSpan: s.cfg.Window.DefaultSpanSeconds,
	}
	var window timeline.Window
	primary := stage.PrimaryOverlay(records, s.primaryLanguage())
	switch {
	case primary != nil && len(overlays[primary.ID]) > 0:
		window = timeline.DeriveWindow(overlays[primary.ID], overrides, logger)
	case len(lyricSegs) > 0:
		logger.Info("no overlays; window follows the lyrics",
			logging.Args(logging.DecisionAttrs("window_source", "alignment", "no overlay captions stored")...)...)
		window = timeline.DeriveWindow(lyricSegs, overrides, logger)
	default:
		window = timeline.DeriveWindow([]transcript.Segment(nil), overrides, logger)
	}
	if window.IsZero() {
		return window, services.Wrap(services.ErrValidation, "cutting", "derive window",
			"Nothing to derive the cut window from; import overlays or set window overrides", nil)
	}
	if e.DurationSeconds > 0 && window.End > e.DurationSeconds {
		logging.WarnWithContext(logger, "cut window ends after the video; clamping", "window_clamped",
			logging.String("end", timecode.Format(window.End)),
			logging.String("video_end", timecode.Format(e.DurationSeconds)),
			logging.String(logging.FieldImpact, "clip is shorter than the overlays suggest"),
		)
		window.End = timecode.Canonical(e.DurationSeconds)
	}
	if window.Duration() <= 0 {
		return window, services.Wrap(services.ErrValidation, "cutting", "derive window",
			fmt.Sprintf("Cut window %s-%s is empty", timecode.Format(window.Start), timecode.Format(window.End)), nil)
	}
	return window, nil
}

func (s *Stage) primaryLanguage() string {
	if langs := s.cfg.Translation.TargetLanguages; len(langs) > 0 {
		return langs[0]
	}
	return ""
}

func (s *Stage) writeSRT(logger *slog.Logger, path string, segs []alignment.Segment, window timeline.Window) error {
	cues := subtitles.CuesFromAlignment(segs)
	if err := subtitles.WriteSRT(path, cues); err != nil {
		return services.Wrap(services.ErrTransient, "cutting", "write srt", "Failed to write lyric subtitles", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "cutting", "write srt", "Failed to read back lyric subtitles", err)
	}
	if issues := subtitles.ValidateSRT(data, window.Duration()); len(issues) > 0 {
		logging.WarnWithContext(logger, "lyric subtitles have issues", "srt_validation",
			logging.String("path", path),
			logging.String("issues", strings.Join(issues, "; ")),
			logging.String(logging.FieldImpact, "burned-in lyrics may be mistimed"),
		)
	}
	return nil
}

// HealthCheck reports readiness of ffmpeg.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	const name = "cutting"
	if s == nil || s.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if _, err := exec.LookPath(s.cfg.Media.FFmpegBinary); err != nil {
		return stage.MissingBinary(name, s.cfg.Media.FFmpegBinary)
	}
	return stage.Healthy(name)
}
