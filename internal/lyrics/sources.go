package lyrics

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ariacut/internal/queue"
)

// Bank is the part of the store that keeps approved lyrics.
type Bank interface {
	FindLyric(ctx context.Context, title, opera, language string) (*queue.LyricRecord, error)
}

// BankSource serves lyrics already approved for an earlier edition.
type BankSource struct {
	bank Bank
}

// NewBankSource wraps the store's lyric bank.
func NewBankSource(bank Bank) *BankSource { return &BankSource{bank: bank} }

// Name implements Source.
func (s *BankSource) Name() string { return "bank" }

// Lookup implements Source.
func (s *BankSource) Lookup(ctx context.Context, song Song) (string, error) {
	if s == nil || s.bank == nil {
		return "", ErrNotFound
	}
	rec, err := s.bank.FindLyric(ctx, song.Title, song.Opera, song.Language)
	if err != nil {
		return "", fmt.Errorf("lyric bank: %w", err)
	}
	if rec == nil {
		return "", ErrNotFound
	}
	return rec.Text, nil
}

// TextCompleter is the slice of the LLM client LLMSource needs.
type TextCompleter interface {
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMSource asks a generative model to recite the lyric.
type LLMSource struct {
	client TextCompleter
}

// NewLLMSource builds a source over client.
func NewLLMSource(client TextCompleter) *LLMSource { return &LLMSource{client: client} }

// Name implements Source.
func (s *LLMSource) Name() string { return "llm" }

const lyricSystemPrompt = `You know the librettos of the operatic and art-song repertoire.
You answer with the lyric text only, one verse per line, no commentary and no markdown.
If you do not know the piece, answer with the single word UNKNOWN.`

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// Lookup implements Source.
func (s *LLMSource) Lookup(ctx context.Context, song Song) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrNotFound
	}
	prompt := fmt.Sprintf(`Give the COMPLETE, ORIGINAL lyric of this piece.

Artist/Role: %s
Piece/Aria: %s
Opera: %s
Composer: %s
Original language: %s

Rules:
1. Return ONLY the lyric in the original language.
2. Keep the exact spelling.
3. One verse per line.
4. Do NOT invent text.`,
		orNA(song.Artist), song.Title, orNA(song.Opera), orNA(song.Composer), song.Language)

	text, err := s.client.CompleteText(ctx, lyricSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("llm lyric: %w", err)
	}
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" || strings.EqualFold(strings.Trim(text, ". "), "unknown") {
		return "", ErrNotFound
	}
	return text, nil
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "n/a"
	}
	return value
}
