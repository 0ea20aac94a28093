package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"ariacut/internal/alignment"
	"ariacut/internal/config"
	"ariacut/internal/language"
	"ariacut/internal/logging"
	"ariacut/internal/lyrics"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
)

const (
	progressStageTranslating = "Translating"
	progressPercentStart     = 5.0
	progressPercentSpan      = 90.0
)

// Service translates aligned segments into one language.
type Service interface {
	Translate(ctx context.Context, segs []alignment.Segment, song lyrics.Song, to string) ([]Segment, error)
}

// Stage translates the cropped lyric of an edition into every configured
// target language other than the sung one. A failed language is logged and
// skipped; the stage fails only when no language succeeds.
type Stage struct {
	cfg     *config.Config
	store   *queue.Store
	service Service
	logger  *slog.Logger
}

// NewStage wires the translation stage.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger, service Service) *Stage {
	return &Stage{cfg: cfg, store: store, service: service, logger: logging.NewComponentLogger(logger, "translate-stage")}
}

// SetLogger allows the workflow manager to route stage logs into the edition log.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "translate-stage")
}

// Prepare primes progress fields before executing the stage.
func (s *Stage) Prepare(ctx context.Context, e *queue.Edition) error {
	if s == nil || s.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "translate", "prepare", "Translation stage is not configured", nil)
	}
	if s.store == nil {
		return services.Wrap(services.ErrConfiguration, "translate", "prepare", "Edition store unavailable", nil)
	}
	e.InitProgress(progressStageTranslating, "Preparing translations")
	return s.store.UpdateProgress(ctx, e)
}

// Targets returns the configured languages to translate a song sung in
// songLanguage into, canonicalized and without duplicates.
func Targets(configured []string, songLanguage string) []string {
	source, _ := language.Canonical(songLanguage)
	seen := make(map[string]struct{}, len(configured))
	out := make([]string, 0, len(configured))
	for _, lang := range configured {
		code, err := language.Canonical(lang)
		if err != nil || code == source {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// Execute translates the cropped alignment into each target language.
func (s *Stage) Execute(ctx context.Context, e *queue.Edition) error {
	if e == nil {
		return services.Wrap(services.ErrValidation, "translate", "execute", "Edition is nil", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	if e.Instrumental {
		logger.Info("instrumental edition; translation skipped",
			logging.Args(logging.DecisionAttrs("translation", "skipped", "instrumental")...)...)
		e.SetProgressComplete("Translated", "Instrumental edition; nothing to translate")
		return nil
	}
	if s.service == nil {
		return services.Wrap(services.ErrConfiguration, "translate", "execute", "Translator unavailable", nil)
	}

	rec, err := s.store.LatestAlignment(ctx, e.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "translate", "load alignment", "Failed to read alignment", err)
	}
	if rec == nil || strings.TrimSpace(rec.CroppedJSON) == "" {
		return services.Wrap(services.ErrValidation, "translate", "load alignment", "Cropped alignment missing; rerun the cut stage", nil)
	}
	segs, err := stage.DecodeAlignment(rec.CroppedJSON)
	if err != nil {
		return err
	}

	targets := Targets(s.cfg.Translation.TargetLanguages, e.Language)
	if len(targets) == 0 {
		e.SetProgressComplete("Translated", "No target language differs from the song language")
		return nil
	}

	song := stage.Song(e)
	var (
		done    []string
		lastErr error
	)
	for i, target := range targets {
		percent := progressPercentStart + progressPercentSpan*float64(i)/float64(len(targets))
		e.SetProgress(progressStageTranslating, fmt.Sprintf("Translating to %s (%d/%d)", language.DisplayName(target), i+1, len(targets)), percent)
		if err := s.store.UpdateProgress(ctx, e); err != nil {
			return err
		}

		translated, err := s.service.Translate(ctx, segs, song, target)
		if err == nil {
			err = s.save(ctx, e.ID, target, translated)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			logging.WarnWithContext(logger, "translation failed; continuing with other languages", "translation_failed",
				logging.String("language", target),
				logging.Error(err),
				logging.String(logging.FieldImpact, "no render is produced for this language"),
				logging.String(logging.FieldErrorHint, "retry the edition once the LLM is reachable"),
			)
			continue
		}
		done = append(done, target)
	}

	if len(done) == 0 {
		return services.Wrap(services.ErrExternalTool, "translate", "execute",
			fmt.Sprintf("All %d translations failed", len(targets)), lastErr)
	}
	e.SetProgressComplete("Translated", fmt.Sprintf("Translated into %s", strings.Join(done, ", ")))
	return nil
}

func (s *Stage) save(ctx context.Context, editionID int64, lang string, segs []Segment) error {
	if segs == nil {
		segs = []Segment{}
	}
	data, err := json.Marshal(segs)
	if err != nil {
		return services.Wrap(services.ErrValidation, "translate", lang, "encode translation", err)
	}
	if err := s.store.SaveTranslation(ctx, editionID, lang, string(data)); err != nil {
		return services.Wrap(services.ErrTransient, "translate", lang, "save translation", err)
	}
	return nil
}

// HealthCheck reports whether translations can be requested.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	const name = "translate"
	switch {
	case s == nil || s.cfg == nil:
		return stage.Unhealthy(name, "stage not configured")
	case s.service == nil:
		return stage.Unhealthy(name, "translator unavailable")
	case strings.TrimSpace(s.cfg.GetLLM().APIKey) == "":
		return stage.Unhealthy(name, "LLM API key missing")
	}
	return stage.Healthy(name)
}

// Decode parses a stored translation track.
func Decode(raw string) ([]Segment, error) {
	var segs []Segment
	if err := json.Unmarshal([]byte(raw), &segs); err != nil {
		return nil, services.Wrap(services.ErrValidation, "translate", "decode", "Stored translation is invalid", err)
	}
	return segs, nil
}
