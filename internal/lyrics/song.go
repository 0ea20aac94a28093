package lyrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ariacut/internal/logging"
)

// ErrNotFound is returned by a Source that has no lyric for the song.
var ErrNotFound = errors.New("lyric not found")

// Song is the metadata lyric, transcription and translation providers are
// prompted with.
type Song struct {
	Artist   string
	Title    string
	Opera    string
	Composer string
	// Language is the ISO 639-1 code the lyric is sung in.
	Language string
}

// Label renders "Artist - Title (Opera)" for logs and prompts.
func (s Song) Label() string {
	label := strings.TrimSpace(s.Title)
	if artist := strings.TrimSpace(s.Artist); artist != "" {
		label = artist + " - " + label
	}
	if opera := strings.TrimSpace(s.Opera); opera != "" {
		label += " (" + opera + ")"
	}
	return label
}

// Source looks up the canonical lyric of a song.
type Source interface {
	Name() string
	Lookup(ctx context.Context, song Song) (string, error)
}

// Result is a lyric together with the source that produced it.
type Result struct {
	Lyric  Lyric
	Source string
}

// Chain tries sources in order and returns the first non-empty lyric.
type Chain struct {
	sources []Source
	logger  *slog.Logger
}

// NewChain builds a chain over sources; nil sources are ignored.
func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	kept := make([]Source, 0, len(sources))
	for _, src := range sources {
		if src != nil {
			kept = append(kept, src)
		}
	}
	return &Chain{sources: kept, logger: logging.NewComponentLogger(logger, "lyrics")}
}

// Lookup returns the first lyric found. Source failures other than
// ErrNotFound are logged and the next source is tried; if every source
// fails the last error is returned.
func (c *Chain) Lookup(ctx context.Context, song Song) (Result, error) {
	var lastErr error = ErrNotFound
	for _, src := range c.sources {
		text, err := src.Lookup(ctx, song)
		if err == nil {
			lyric := Parse(text)
			if !lyric.Empty() {
				c.logger.Info("lyric resolved",
					logging.String("song", song.Label()),
					logging.String("source", src.Name()),
					logging.Int("lines", lyric.Len()),
				)
				return Result{Lyric: lyric, Source: src.Name()}, nil
			}
			err = ErrNotFound
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			logging.WarnWithContext(c.logger, "lyric source failed; trying next", "lyric_source_failed",
				logging.String("source", src.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "lyric may come from a less trusted source"),
			)
		}
		lastErr = err
	}
	return Result{}, fmt.Errorf("lookup %q: %w", song.Label(), lastErr)
}
