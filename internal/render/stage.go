package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"ariacut/internal/alignment"
	"ariacut/internal/config"
	"ariacut/internal/fileutil"
	"ariacut/internal/language"
	"ariacut/internal/logging"
	"ariacut/internal/media/ffmpeg"
	"ariacut/internal/media/ffprobe"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
	"ariacut/internal/subtitles"
	"ariacut/internal/textutil"
	"ariacut/internal/transcript"
	"ariacut/internal/translate"
)

const (
	progressStageRendering = "Rendering"
	progressPercentStart   = 5.0
	progressPercentSpan    = 90.0

	// KindBurned marks a render with subtitles burned into the picture.
	KindBurned = "burned"
)

var errTranslationMissing = errors.New("translation missing")

// Burner burns an ASS script into a video.
type Burner interface {
	BurnSubtitles(ctx context.Context, src, assPath, dst string, width, height int) error
}

// Stage renders the per-language videos of a cut edition.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	burner Burner
	probe  func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	logger *slog.Logger
}

// NewStage wires the render stage with the configured ffmpeg.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	return NewStageWithBurner(cfg, store, logger, ffmpeg.New(cfg.Media.FFmpegBinary))
}

// NewStageWithBurner allows injecting the subtitle burner (used in tests).
func NewStageWithBurner(cfg *config.Config, store *queue.Store, logger *slog.Logger, burner Burner) *Stage {
	return &Stage{
		cfg:    cfg,
		store:  store,
		burner: burner,
		probe:  ffprobe.Inspect,
		logger: logging.NewComponentLogger(logger, "render"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the edition log.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "render")
}

// Prepare primes progress fields before executing the stage.
func (s *Stage) Prepare(ctx context.Context, e *queue.Edition) error {
	if s == nil || s.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "render", "prepare", "Render stage is not configured", nil)
	}
	if s.store == nil {
		return services.Wrap(services.ErrConfiguration, "render", "prepare", "Edition store unavailable", nil)
	}
	e.InitProgress(progressStageRendering, "Loading subtitle tracks")
	return s.store.UpdateProgress(ctx, e)
}

// material is everything a render needs besides the language.
type material struct {
	styles       subtitles.Styles
	lyrics       []alignment.Segment
	overlays     map[string][]transcript.Segment
	translations map[string][]translate.Segment
	fallback     []transcript.Segment
}

// Execute renders one video per target language.
func (s *Stage) Execute(ctx context.Context, e *queue.Edition) error {
	if e == nil {
		return services.Wrap(services.ErrValidation, "render", "execute", "Edition is nil", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	if strings.TrimSpace(e.CutVideoPath) == "" {
		return services.Wrap(services.ErrValidation, "render", "execute", "Cut clip missing; rerun the cut stage", nil)
	}
	if err := s.checkClip(ctx, logger, e); err != nil {
		return err
	}

	mat, err := s.load(ctx, e)
	if err != nil {
		return err
	}
	langs := language.NormalizeList(s.cfg.Translation.TargetLanguages)
	if len(langs) == 0 {
		return services.Wrap(services.ErrConfiguration, "render", "execute", "No target languages configured", nil)
	}

	var rendered []string
	var lastErr error
	for i, lang := range langs {
		percent := progressPercentStart + progressPercentSpan*float64(i)/float64(len(langs))
		e.SetProgress(progressStageRendering, fmt.Sprintf("Rendering %s (%d/%d)", language.DisplayName(lang), i+1, len(langs)), percent)
		if err := s.store.UpdateProgress(ctx, e); err != nil {
			return err
		}

		rec := queue.RenderRecord{EditionID: e.ID, Language: lang, Kind: KindBurned}
		path, size, err := s.renderLanguage(ctx, logger, e, lang, mat)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			rec.Status = queue.RenderFailed
			rec.ErrorMessage = err.Error()
			logging.WarnWithContext(logger, "render failed; continuing with other languages", "render_failed",
				logging.String("language", lang),
				logging.Error(err),
				logging.String(logging.FieldImpact, "this language version is not exported"),
			)
		} else {
			rec.Status = queue.RenderCompleted
			rec.Path = path
			rec.SizeBytes = size
			rendered = append(rendered, lang)
		}
		if err := s.store.SaveRender(ctx, rec); err != nil {
			return services.Wrap(services.ErrTransient, "render", lang, "save render", err)
		}
	}

	if len(rendered) == 0 {
		return services.Wrap(services.ErrExternalTool, "render", "execute",
			fmt.Sprintf("All %d renders failed", len(langs)), lastErr)
	}
	e.SetProgressComplete("Completed", fmt.Sprintf("Rendered %s", strings.Join(rendered, ", ")))
	logger.Info("renders exported",
		logging.String("languages", strings.Join(rendered, ",")),
		logging.Int("failed", len(langs)-len(rendered)),
		logging.String("export_dir", s.exportDir(e)),
	)
	return nil
}

func (s *Stage) load(ctx context.Context, e *queue.Edition) (material, error) {
	styles, err := subtitles.StylesFromConfig(s.cfg.Subtitles)
	if err != nil {
		return material{}, err
	}
	mat := material{
		styles:       styles,
		overlays:     make(map[string][]transcript.Segment),
		translations: make(map[string][]translate.Segment),
	}

	records, err := s.store.Overlays(ctx, e.ID)
	if err != nil {
		return material{}, services.Wrap(services.ErrTransient, "render", "load overlays", "Failed to read overlays", err)
	}
	for _, rec := range records {
		if strings.TrimSpace(rec.ReindexedJSON) == "" {
			continue
		}
		segs, err := stage.DecodeOverlays(rec.ReindexedJSON, s.cfg.Window.OverlayHoldSeconds)
		if err != nil {
			return material{}, err
		}
		mat.overlays[rec.Language] = segs
		if mat.fallback == nil {
			mat.fallback = segs
		}
	}

	if e.Instrumental {
		return mat, nil
	}
	alignmentRec, err := s.store.LatestAlignment(ctx, e.ID)
	if err != nil {
		return material{}, services.Wrap(services.ErrTransient, "render", "load alignment", "Failed to read alignment", err)
	}
	if alignmentRec == nil || strings.TrimSpace(alignmentRec.CroppedJSON) == "" {
		return material{}, services.Wrap(services.ErrValidation, "render", "load alignment", "Cropped alignment missing; rerun the cut stage", nil)
	}
	if mat.lyrics, err = stage.DecodeAlignment(alignmentRec.CroppedJSON); err != nil {
		return material{}, err
	}

	translations, err := s.store.Translations(ctx, e.ID)
	if err != nil {
		return material{}, services.Wrap(services.ErrTransient, "render", "load translations", "Failed to read translations", err)
	}
	for lang, rec := range translations {
		segs, err := translate.Decode(rec.SegmentsJSON)
		if err != nil {
			return material{}, err
		}
		mat.translations[lang] = segs
	}
	return mat, nil
}

func (s *Stage) renderLanguage(ctx context.Context, logger *slog.Logger, e *queue.Edition, lang string, mat material) (string, int64, error) {
	overlays, ok := mat.overlays[lang]
	if !ok && mat.fallback != nil {
		logging.WarnWithContext(logger, "no overlay in this language; using the primary overlay", "overlay_fallback",
			logging.String("language", lang),
			logging.String(logging.FieldImpact, "overlay captions are not localized"),
		)
		overlays = mat.fallback
	}

	tracks := subtitles.Tracks{
		Overlays:        overlays,
		VersionLanguage: lang,
		SongLanguage:    e.Language,
	}
	if !e.Instrumental {
		tracks.Lyrics = mat.lyrics
		tracks.Translation = mat.translations[lang]
		if song, _ := language.Canonical(e.Language); song != lang && len(tracks.Translation) == 0 {
			return "", 0, fmt.Errorf("%s: %w", lang, errTranslationMissing)
		}
	}

	doc := subtitles.BuildASS(tracks, mat.styles)
	dir := s.cfg.EditionDir(e.ID)
	assPath := filepath.Join(dir, "subtitles", lang+".ass")
	if err := doc.WriteFile(assPath); err != nil {
		return "", 0, services.Wrap(services.ErrTransient, "render", lang, "write ass", err)
	}
	burned := filepath.Join(dir, "renders", lang+".mp4")
	if err := s.burner.BurnSubtitles(ctx, e.CutVideoPath, assPath, burned, mat.styles.PlayResX, mat.styles.PlayResY); err != nil {
		return "", 0, err
	}

	exportDir := s.exportDir(e)
	target := filepath.Join(exportDir, lang+".mp4")
	size, err := fileutil.Export(burned, target)
	if err != nil {
		return "", 0, services.Wrap(services.ErrTransient, "render", lang, "export render", err)
	}
	logger.Info("render exported",
		logging.String("language", lang),
		logging.String("path", target),
		logging.Int64("size_bytes", size),
		logging.Int("events", len(doc.Events)),
	)
	return target, size, nil
}

// checkClip rejects a cut clip without a picture. A failing probe only warns.
func (s *Stage) checkClip(ctx context.Context, logger *slog.Logger, e *queue.Edition) error {
	probe, err := s.probe(ctx, s.cfg.Media.FFprobeBinary, e.CutVideoPath)
	if err != nil {
		logging.WarnWithContext(logger, "cut clip probe failed", "ffprobe_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "clip streams are not verified before burning"),
		)
		return nil
	}
	if !probe.HasVideo() {
		return services.Wrap(services.ErrValidation, "render", "probe clip", "Cut clip has no video stream; rerun the cut stage", nil)
	}
	width, height := probe.VideoResolution()
	logger.Debug("cut clip probed",
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Bool("has_audio", probe.HasAudio()),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)
	return nil
}

// exportDir is where an edition's finished videos land.
func (s *Stage) exportDir(e *queue.Edition) string {
	root := strings.TrimSpace(s.cfg.Paths.ExportDir)
	if root == "" {
		root = filepath.Join(s.cfg.EditionDir(e.ID), "export")
	}
	return filepath.Join(root, fmt.Sprintf("%d-%s", e.ID, textutil.Slug(e.Label())))
}

// HealthCheck reports readiness of ffmpeg and the style file.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	const name = "render"
	if s == nil || s.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if _, err := exec.LookPath(s.cfg.Media.FFmpegBinary); err != nil {
		return stage.MissingBinary(name, s.cfg.Media.FFmpegBinary)
	}
	if _, err := subtitles.StylesFromConfig(s.cfg.Subtitles); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}
