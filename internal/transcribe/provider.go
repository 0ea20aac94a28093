package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ariacut/internal/logging"
	"ariacut/internal/lyrics"
	"ariacut/internal/services"
	"ariacut/internal/transcript"
)

// Provider produces guided and blind transcriptions of an audio file.
type Provider interface {
	Guided(ctx context.Context, audioPath string, lyric lyrics.Lyric, song lyrics.Song) ([]transcript.Segment, error)
	Blind(ctx context.Context, audioPath string, song lyrics.Song) ([]transcript.Segment, error)
}

// Completer is the slice of the LLM client the provider needs.
type Completer interface {
	CompleteJSONWithAudio(ctx context.Context, systemPrompt, userPrompt string, audio []byte, format string) (string, error)
}

// LLMProvider implements Provider on top of a multimodal chat model.
type LLMProvider struct {
	client Completer
	logger *slog.Logger
}

// NewLLMProvider builds a provider; a nil logger discards output.
func NewLLMProvider(client Completer, logger *slog.Logger) *LLMProvider {
	return &LLMProvider{client: client, logger: logging.NewComponentLogger(logger, "transcribe")}
}

// Guided asks the model to time each verse of lyric in the audio.
func (p *LLMProvider) Guided(ctx context.Context, audioPath string, lyric lyrics.Lyric, song lyrics.Song) ([]transcript.Segment, error) {
	if lyric.Empty() {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "guided", "lyric is empty", nil)
	}
	return p.run(ctx, "guided", audioPath, guidedPrompt(lyric, song))
}

// Blind asks the model to transcribe the audio without a lyric.
func (p *LLMProvider) Blind(ctx context.Context, audioPath string, song lyrics.Song) ([]transcript.Segment, error) {
	return p.run(ctx, "blind", audioPath, blindPrompt(song))
}

func (p *LLMProvider) run(ctx context.Context, pass, audioPath, prompt string) ([]transcript.Segment, error) {
	if p.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", pass, "llm client unavailable", nil)
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "transcribe", pass, "audio missing", err)
		}
		return nil, services.Wrap(services.ErrTransient, "transcribe", pass, "read audio", err)
	}
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("transcription requested",
		logging.String("pass", pass),
		logging.String("audio", filepath.Base(audioPath)),
		logging.Int("audio_bytes", len(audio)),
	)

	raw, err := p.client.CompleteJSONWithAudio(ctx, systemPrompt, prompt, audio, audioFormat(audioPath))
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "transcribe", pass, "llm request", err)
		}
		return nil, services.Wrap(services.MarkerOf(err, services.ErrTransient), "transcribe", pass, "llm request", err)
	}
	segs, err := transcript.Decode([]byte(raw), logger)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcribe", pass, "decode transcription", err)
	}
	if len(segs) == 0 {
		logging.WarnWithContext(logger, "transcription returned no segments", "transcription_empty",
			logging.String("pass", pass),
			logging.String(logging.FieldImpact, "alignment will have nothing to work with"),
			logging.String(logging.FieldErrorHint, "check that the audio contains singing"),
		)
	}
	logger.Info("transcription finished",
		logging.String("pass", pass),
		logging.Int("segments", len(segs)),
	)
	return segs, nil
}

func audioFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "", "mpga":
		return "mp3"
	default:
		return ext
	}
}

var _ Provider = (*LLMProvider)(nil)
