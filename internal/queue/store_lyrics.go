package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ariacut/internal/textutil"
)

// LyricFallbackSimilarity is the minimum fingerprint similarity between two
// titles for the lyric bank to treat them as the same aria.
const LyricFallbackSimilarity = 0.8

const lyricColumns = "id, title, artist, composer, opera, language, text, source, validated_by, times_used, created_at, updated_at"

func lyricKey(title string) string {
	return textutil.NormalizeForMatch(title)
}

func scanLyric(row scanner) (*LyricRecord, error) {
	var (
		rec                             LyricRecord
		artist, composer, opera, source sql.NullString
		validatedBy                     sql.NullString
		createdRaw, updatedRaw          string
	)
	if err := row.Scan(&rec.ID, &rec.Title, &artist, &composer, &opera, &rec.Language, &rec.Text,
		&source, &validatedBy, &rec.TimesUsed, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	rec.Artist = artist.String
	rec.Composer = composer.String
	rec.Opera = opera.String
	rec.Source = source.String
	rec.ValidatedBy = validatedBy.String
	if t, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}

// UpsertLyric stores an approved lyric, replacing the text of an existing
// entry for the same title and language. Empty source and validator keep
// the values already recorded.
func (s *Store) UpsertLyric(ctx context.Context, rec LyricRecord) (*LyricRecord, error) {
	key := lyricKey(rec.Title)
	lang := strings.ToLower(strings.TrimSpace(rec.Language))
	if key == "" || lang == "" || strings.TrimSpace(rec.Text) == "" {
		return nil, errors.New("lyric title, language and text are required")
	}
	now := nowString()
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO lyrics (title, title_key, artist, composer, opera, language, text, source, validated_by, times_used, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
         ON CONFLICT(title_key, language) DO UPDATE SET
             text = excluded.text,
             source = COALESCE(excluded.source, lyrics.source),
             validated_by = COALESCE(excluded.validated_by, lyrics.validated_by),
             artist = COALESCE(excluded.artist, lyrics.artist),
             composer = COALESCE(excluded.composer, lyrics.composer),
             opera = COALESCE(excluded.opera, lyrics.opera),
             updated_at = excluded.updated_at`,
		strings.TrimSpace(rec.Title), key,
		nullableString(rec.Artist), nullableString(rec.Composer), nullableString(rec.Opera),
		lang, rec.Text, nullableString(rec.Source), nullableString(rec.ValidatedBy),
		now, now,
	); err != nil {
		return nil, fmt.Errorf("upsert lyric: %w", err)
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+lyricColumns+` FROM lyrics WHERE title_key = ? AND language = ?`, key, lang)
	stored, err := scanLyric(row)
	if err != nil {
		return nil, fmt.Errorf("reload lyric: %w", err)
	}
	return stored, nil
}

// FindLyric looks up the lyric bank by title and language. An exact match on
// the normalized title wins; otherwise the entry whose title and opera
// fingerprint is most similar (at least LyricFallbackSimilarity) is used.
// A hit increments the entry's usage count. A miss yields nil, nil.
func (s *Store) FindLyric(ctx context.Context, title, opera, language string) (*LyricRecord, error) {
	ctx = ensureContext(ctx)
	key := lyricKey(title)
	lang := strings.ToLower(strings.TrimSpace(language))
	if key == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+lyricColumns+` FROM lyrics WHERE title_key = ? AND language = ?`, key, lang)
	rec, err := scanLyric(row)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		rec, err = s.closestLyric(ctx, title+" "+opera, lang)
		if err != nil || rec == nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find lyric: %w", err)
	}

	if err := s.execWithoutResultRetry(ctx,
		`UPDATE lyrics SET times_used = times_used + 1 WHERE id = ?`, rec.ID); err != nil {
		return nil, fmt.Errorf("mark lyric used: %w", err)
	}
	rec.TimesUsed++
	return rec, nil
}

func (s *Store) closestLyric(ctx context.Context, query, language string) (*LyricRecord, error) {
	target := textutil.NewFingerprint(query)
	if target == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+lyricColumns+` FROM lyrics WHERE language = ?`, language)
	if err != nil {
		return nil, fmt.Errorf("scan lyric bank: %w", err)
	}
	defer rows.Close()

	var (
		best      *LyricRecord
		bestScore float64
	)
	for rows.Next() {
		rec, err := scanLyric(rows)
		if err != nil {
			return nil, err
		}
		score := textutil.CosineSimilarity(target, textutil.NewFingerprint(rec.Title+" "+rec.Opera))
		if score >= LyricFallbackSimilarity && score > bestScore {
			best, bestScore = rec, score
		}
	}
	return best, rows.Err()
}

// Lyrics lists the lyric bank, most used first.
func (s *Store) Lyrics(ctx context.Context) ([]*LyricRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+lyricColumns+` FROM lyrics ORDER BY times_used DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list lyrics: %w", err)
	}
	defer rows.Close()
	var out []*LyricRecord
	for rows.Next() {
		rec, err := scanLyric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
