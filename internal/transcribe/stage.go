package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ariacut/internal/alignment"
	"ariacut/internal/config"
	"ariacut/internal/logging"
	"ariacut/internal/lyrics"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
)

const (
	progressStageTranscribing = "Transcribing"
	progressPercentGuided     = 15.0
	progressPercentBlind      = 55.0
	progressPercentPersist    = 90.0

	// AutoValidator marks alignments accepted without a human.
	AutoValidator = "auto"
)

// LyricFinder resolves the canonical lyric of a song.
type LyricFinder interface {
	Lookup(ctx context.Context, song lyrics.Song) (lyrics.Result, error)
}

// Stage transcribes an edition's audio, aligns it against the lyric and
// persists the result. Route A alignments are validated automatically;
// routes B and C park the edition in review.
type Stage struct {
	cfg      *config.Config
	store    *queue.Store
	finder   LyricFinder
	provider Provider
	logger   *slog.Logger
}

// NewStage wires the transcription stage.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, finder LyricFinder, provider Provider) *Stage {
	return &Stage{
		cfg:      cfg,
		store:    store,
		finder:   finder,
		provider: provider,
		logger:   logging.NewComponentLogger(logger, "transcribe-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the edition log.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "transcribe-stage")
}

// Prepare primes progress fields before executing the stage.
func (s *Stage) Prepare(ctx context.Context, e *queue.Edition) error {
	if s == nil || s.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "prepare", "Transcription stage is not configured", nil)
	}
	if s.store == nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "prepare", "Edition store unavailable", nil)
	}
	e.InitProgress(progressStageTranscribing, "Resolving lyric")
	return s.store.UpdateProgress(ctx, e)
}

// Execute runs lyric lookup, guided transcription, alignment and, when the
// direct alignment is route C, blind transcription plus merge.
func (s *Stage) Execute(ctx context.Context, e *queue.Edition) error {
	if e == nil {
		return services.Wrap(services.ErrValidation, "transcribe", "execute", "Edition is nil", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	if e.Instrumental {
		logger.Info("instrumental edition; alignment skipped",
			logging.Args(logging.DecisionAttrs("alignment", "skipped", "instrumental")...)...)
		e.AlignmentRoute = ""
		e.AlignmentConfidence = 0
		e.SetProgressComplete("Aligned", "Instrumental edition; no lyric")
		return nil
	}
	if s.finder == nil || s.provider == nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "execute", "Lyric source or transcription provider unavailable", nil)
	}
	if strings.TrimSpace(e.AudioPath) == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "execute", "Audio missing; rerun download", nil)
	}

	song := stage.Song(e)
	found, err := s.finder.Lookup(ctx, song)
	if err != nil {
		if errors.Is(err, lyrics.ErrNotFound) {
			return services.Wrap(services.ErrNotFound, "transcribe", "lyric lookup",
				"No lyric found; add it to the lyric bank", err)
		}
		return services.Wrap(services.ErrExternalTool, "transcribe", "lyric lookup", "Lyric lookup failed", err)
	}
	lines := found.Lyric.MatchLines

	if err := s.progress(ctx, e, "Guided transcription", progressPercentGuided); err != nil {
		return err
	}
	guided, err := s.provider.Guided(ctx, e.AudioPath, found.Lyric, song)
	if err != nil {
		return err
	}

	aligner := alignment.New(
		alignment.WithThresholds(alignment.ThresholdsFromConfig(s.cfg.Alignment)),
		alignment.WithLogger(logger),
	)
	result := aligner.Align(lines, guided)
	if result.Route == alignment.RouteC {
		if err := s.progress(ctx, e, "Blind transcription", progressPercentBlind); err != nil {
			return err
		}
		blind, blindErr := s.provider.Blind(ctx, e.AudioPath, song)
		if blindErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.WarnWithContext(logger, "blind transcription failed; keeping direct alignment", "blind_transcription_failed",
				logging.Error(blindErr),
				logging.String(logging.FieldImpact, "route C alignment goes to review without a merge attempt"),
			)
		} else {
			result = aligner.ReconcileDirect(result, lines, guided, blind)
		}
	}

	if err := s.progress(ctx, e, "Saving alignment", progressPercentPersist); err != nil {
		return err
	}
	return s.persist(ctx, logger, e, found, result)
}

func (s *Stage) persist(ctx context.Context, logger *slog.Logger, e *queue.Edition, found lyrics.Result, result alignment.Result) error {
	source := found.Source
	if source == "bank" {
		source = ""
	}
	lyric, err := s.store.UpsertLyric(ctx, queue.LyricRecord{
		Title:    e.Title,
		Artist:   e.Artist,
		Composer: e.Composer,
		Opera:    e.Opera,
		Language: e.Language,
		Text:     found.Lyric.String(),
		Source:   source,
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcribe", "save lyric", "Failed to store lyric", err)
	}

	segmentsJSON, err := stage.EncodeAlignment(result.Segments)
	if err != nil {
		return err
	}
	auto := result.Route == alignment.RouteA
	rec := queue.AlignmentRecord{
		EditionID:      e.ID,
		LyricID:        lyric.ID,
		SegmentsJSON:   segmentsJSON,
		MeanConfidence: result.MeanConfidence,
		Route:          string(result.Route),
		Merged:         result.Merged,
		Validated:      auto,
	}
	if auto {
		rec.ValidatedBy = AutoValidator
	}
	if _, err := s.store.SaveAlignment(ctx, rec); err != nil {
		return services.Wrap(services.ErrTransient, "transcribe", "save alignment", "Failed to store alignment", err)
	}

	e.AlignmentRoute = string(result.Route)
	e.AlignmentConfidence = result.MeanConfidence
	logger.Info("alignment stored",
		logging.String("route", string(result.Route)),
		logging.Float64("mean_confidence", result.MeanConfidence),
		logging.Bool("merged", result.Merged),
		logging.Int("segments", len(result.Segments)),
		logging.Int("high", result.Counts.High),
		logging.Int("medium", result.Counts.Medium),
		logging.Int("low", result.Counts.Low),
		logging.Int("unrecognized", result.Counts.Unrecognized),
		logging.Int("extra", result.Counts.Extra),
		logging.String("lyric_source", found.Source),
	)

	if !auto {
		reason := fmt.Sprintf("Alignment route %s (mean confidence %.2f); validate before cutting",
			result.Route, result.MeanConfidence)
		logger.Info("alignment needs review", logging.Args(logging.DecisionAttrs("alignment_review", "review", reason)...)...)
		e.SetFailed(queue.StatusReview, queue.StatusAligned, reason)
		return nil
	}
	e.SetProgressComplete("Aligned", fmt.Sprintf("Route A alignment (%.2f)", result.MeanConfidence))
	return nil
}

func (s *Stage) progress(ctx context.Context, e *queue.Edition, message string, percent float64) error {
	e.SetProgress(progressStageTranscribing, message, percent)
	return s.store.UpdateProgress(ctx, e)
}

// HealthCheck reports whether the stage can reach its providers.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	const name = "transcribe"
	switch {
	case s == nil || s.cfg == nil:
		return stage.Unhealthy(name, "stage not configured")
	case s.provider == nil:
		return stage.Unhealthy(name, "transcription provider unavailable")
	case s.finder == nil:
		return stage.Unhealthy(name, "lyric sources unavailable")
	case strings.TrimSpace(s.cfg.TranscriptionLLM().APIKey) == "":
		return stage.Unhealthy(name, "LLM API key missing")
	}
	return stage.Healthy(name)
}
