package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ariacut/internal/alignment"
	"ariacut/internal/language"
	"ariacut/internal/logging"
	"ariacut/internal/lyrics"
	"ariacut/internal/services"
	"ariacut/internal/services/llm"
)

const systemPrompt = `You translate opera lyrics for subtitles.
Answer with a JSON array only, no prose and no markdown.`

// Completer is the slice of the LLM client the translator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Translator translates aligned lyric segments.
type Translator struct {
	client Completer
	logger *slog.Logger
}

// New builds a translator; a nil logger discards output.
func New(client Completer, logger *slog.Logger) *Translator {
	return &Translator{client: client, logger: logging.NewComponentLogger(logger, "translate")}
}

type line struct {
	Index       flexInt `json:"index"`
	Original    string  `json:"original"`
	Translation string  `json:"translation"`
}

// flexInt accepts an index sent as a number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	n, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("index %s: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}

// Translate renders segs from the song language into to. The result keeps
// the timing of every segment the model translated, in source order.
func (t *Translator) Translate(ctx context.Context, segs []alignment.Segment, song lyrics.Song, to string) ([]Segment, error) {
	target, err := language.Canonical(to)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "target", "invalid target language", err)
	}
	source, _ := language.Canonical(song.Language)
	if target == source {
		return nil, services.Wrap(services.ErrValidation, "translate", target, "target equals the sung language", nil)
	}
	if t.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translate", target, "llm client unavailable", nil)
	}

	numbered := numberSegments(segs)
	if len(numbered) == 0 {
		return nil, nil
	}
	logger := logging.WithContext(ctx, t.logger).With(logging.String("language", target))

	raw, err := t.client.CompleteJSON(ctx, systemPrompt, prompt(numbered, song, target))
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "translate", target, "llm request", err)
		}
		return nil, services.Wrap(services.MarkerOf(err, services.ErrTransient), "translate", target, "llm request", err)
	}
	var lines []line
	if err := llm.DecodeLLMJSON(raw, &lines); err != nil {
		return nil, services.Wrap(services.ErrValidation, "translate", target, "decode translation", err)
	}

	byIndex := make(map[int]string, len(lines))
	for _, l := range lines {
		if text := strings.TrimSpace(l.Translation); text != "" {
			byIndex[int(l.Index)] = text
		}
	}
	out := make([]Segment, 0, len(numbered))
	var missing []string
	for _, seg := range numbered {
		text, ok := byIndex[seg.Index]
		if !ok {
			missing = append(missing, strconv.Itoa(seg.Index))
			continue
		}
		out = append(out, Segment{Index: seg.Index, Start: seg.Start, End: seg.End, Original: seg.FinalText, Text: text})
	}
	if len(missing) > 0 {
		logging.WarnWithContext(logger, "translation skipped segments", "translation_incomplete",
			logging.String("missing_indices", strings.Join(missing, ",")),
			logging.String(logging.FieldImpact, "those lines have no translated subtitle"),
			logging.String(logging.FieldErrorHint, "re-run the translate stage or edit the stored translation"),
		)
	}
	logger.Info("translation finished",
		logging.Int("segments", len(out)),
		logging.Int("missing", len(missing)),
	)
	return out, nil
}

// numberSegments keeps the segments with display text, in order.
func numberSegments(segs []alignment.Segment) []alignment.Segment {
	kept := make([]alignment.Segment, 0, len(segs))
	for _, seg := range segs {
		if seg.Flag == alignment.FlagExtra || strings.TrimSpace(seg.FinalText) == "" {
			continue
		}
		kept = append(kept, seg)
	}
	return kept
}

func prompt(segs []alignment.Segment, song lyrics.Song, target string) string {
	var numbered strings.Builder
	for _, seg := range segs {
		fmt.Fprintf(&numbered, "%d. %s\n", seg.Index, seg.FinalText)
	}
	return fmt.Sprintf(`Translate the following opera lyric into %s (%s).

Piece: %s
Composer: %s
Original language: %s

Lyric:
---
%s---

Rules:
1. Literary translation, not word for word.
2. For famous arias, use the established translation.
3. KEEP THE SAME NUMBERING; one entry per numbered line.
4. Each translated line should have a length similar to the original.

Return ONLY JSON:
[
  {"index": 1, "original": "...", "translation": "..."}
]`,
		language.DisplayName(target), language.NativeName(target),
		song.Label(), orNA(song.Composer), language.DisplayName(song.Language),
		numbered.String(),
	)
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "n/a"
	}
	return value
}
