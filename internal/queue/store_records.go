package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const alignmentColumns = "id, edition_id, lyric_id, segments_json, cropped_json, mean_confidence, route, merged, validated, validated_by, created_at"

func scanAlignment(row scanner) (*AlignmentRecord, error) {
	var (
		rec                AlignmentRecord
		lyricID            sql.NullInt64
		cropped, route, by sql.NullString
		confidence         sql.NullFloat64
		merged, validated  int64
		createdRaw         string
	)
	if err := row.Scan(&rec.ID, &rec.EditionID, &lyricID, &rec.SegmentsJSON, &cropped, &confidence,
		&route, &merged, &validated, &by, &createdRaw); err != nil {
		return nil, err
	}
	rec.LyricID = lyricID.Int64
	rec.CroppedJSON = cropped.String
	rec.MeanConfidence = confidence.Float64
	rec.Route = route.String
	rec.Merged = merged != 0
	rec.Validated = validated != 0
	rec.ValidatedBy = by.String
	if t, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}

// SaveAlignment appends an alignment result for an edition.
func (s *Store) SaveAlignment(ctx context.Context, rec AlignmentRecord) (*AlignmentRecord, error) {
	if strings.TrimSpace(rec.SegmentsJSON) == "" {
		return nil, errors.New("alignment segments are required")
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO alignments (edition_id, lyric_id, segments_json, cropped_json, mean_confidence, route, merged, validated, validated_by, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EditionID, nullableID(rec.LyricID), rec.SegmentsJSON, nullableString(rec.CroppedJSON),
		rec.MeanConfidence, nullableString(rec.Route), boolToInt(rec.Merged), boolToInt(rec.Validated),
		nullableString(rec.ValidatedBy), nowString(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert alignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+alignmentColumns+` FROM alignments WHERE id = ?`, id)
	return scanAlignment(row)
}

// LatestAlignment returns the newest alignment of an edition, or nil.
func (s *Store) LatestAlignment(ctx context.Context, editionID int64) (*AlignmentRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+alignmentColumns+` FROM alignments WHERE edition_id = ? ORDER BY id DESC LIMIT 1`, editionID)
	rec, err := scanAlignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest alignment: %w", err)
	}
	return rec, nil
}

// ValidateAlignment marks an alignment as reviewed. A non-empty segmentsJSON
// replaces the stored segments with the reviewer's corrections.
func (s *Store) ValidateAlignment(ctx context.Context, id int64, segmentsJSON, validatedBy string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE alignments
         SET validated = 1, validated_by = ?, segments_json = COALESCE(?, segments_json)
         WHERE id = ?`,
		nullableString(validatedBy), nullableString(segmentsJSON), id,
	)
	if err != nil {
		return fmt.Errorf("validate alignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("validate alignment: alignment %d not found", id)
	}
	return nil
}

// SaveCroppedAlignment stores the window-cropped segments of an alignment.
func (s *Store) SaveCroppedAlignment(ctx context.Context, id int64, croppedJSON string) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE alignments SET cropped_json = ? WHERE id = ?`, croppedJSON, id); err != nil {
		return fmt.Errorf("save cropped alignment: %w", err)
	}
	return nil
}

// SaveOverlay stores the overlay captions of one language, replacing any
// previous version.
func (s *Store) SaveOverlay(ctx context.Context, editionID int64, language, originalJSON string) error {
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO overlays (edition_id, language, original_json, created_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(edition_id, language) DO UPDATE SET original_json = excluded.original_json, reindexed_json = NULL`,
		editionID, strings.ToLower(strings.TrimSpace(language)), originalJSON, nowString(),
	); err != nil {
		return fmt.Errorf("save overlay: %w", err)
	}
	return nil
}

// SaveReindexedOverlay stores the overlay captions re-based on the cut window.
func (s *Store) SaveReindexedOverlay(ctx context.Context, id int64, reindexedJSON string) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE overlays SET reindexed_json = ? WHERE id = ?`, reindexedJSON, id); err != nil {
		return fmt.Errorf("save reindexed overlay: %w", err)
	}
	return nil
}

// Overlays lists the overlays of an edition in insertion order.
func (s *Store) Overlays(ctx context.Context, editionID int64) ([]*OverlayRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, edition_id, language, original_json, reindexed_json, created_at FROM overlays WHERE edition_id = ? ORDER BY id`,
		editionID)
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	defer rows.Close()
	var out []*OverlayRecord
	for rows.Next() {
		var (
			rec        OverlayRecord
			reindexed  sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&rec.ID, &rec.EditionID, &rec.Language, &rec.OriginalJSON, &reindexed, &createdRaw); err != nil {
			return nil, err
		}
		rec.ReindexedJSON = reindexed.String
		if t, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// SaveTranslation stores the translated lyric of one language, replacing any
// previous version.
func (s *Store) SaveTranslation(ctx context.Context, editionID int64, language, segmentsJSON string) error {
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO translations (edition_id, language, segments_json, created_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(edition_id, language) DO UPDATE SET segments_json = excluded.segments_json, created_at = excluded.created_at`,
		editionID, strings.ToLower(strings.TrimSpace(language)), segmentsJSON, nowString(),
	); err != nil {
		return fmt.Errorf("save translation: %w", err)
	}
	return nil
}

// Translations returns an edition's translations keyed by language.
func (s *Store) Translations(ctx context.Context, editionID int64) (map[string]*TranslationRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, edition_id, language, segments_json, created_at FROM translations WHERE edition_id = ?`, editionID)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()
	out := make(map[string]*TranslationRecord)
	for rows.Next() {
		var (
			rec        TranslationRecord
			createdRaw string
		)
		if err := rows.Scan(&rec.ID, &rec.EditionID, &rec.Language, &rec.SegmentsJSON, &createdRaw); err != nil {
			return nil, err
		}
		if t, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = t
		}
		out[rec.Language] = &rec
	}
	return out, rows.Err()
}

// SaveRender records the outcome of one language render.
func (s *Store) SaveRender(ctx context.Context, rec RenderRecord) error {
	if rec.Status == "" {
		rec.Status = RenderCompleted
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO renders (edition_id, language, kind, path, size_bytes, status, error_message, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EditionID, rec.Language, rec.Kind, nullableString(rec.Path), rec.SizeBytes,
		rec.Status, nullableString(rec.ErrorMessage), nowString(),
	); err != nil {
		return fmt.Errorf("save render: %w", err)
	}
	return nil
}

// Renders lists the renders of an edition.
func (s *Store) Renders(ctx context.Context, editionID int64) ([]*RenderRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, edition_id, language, kind, path, size_bytes, status, error_message, created_at
         FROM renders WHERE edition_id = ? ORDER BY id`, editionID)
	if err != nil {
		return nil, fmt.Errorf("list renders: %w", err)
	}
	defer rows.Close()
	var out []*RenderRecord
	for rows.Next() {
		var (
			rec          RenderRecord
			path, errMsg sql.NullString
			size         sql.NullInt64
			status       string
			createdRaw   string
		)
		if err := rows.Scan(&rec.ID, &rec.EditionID, &rec.Language, &rec.Kind, &path, &size, &status, &errMsg, &createdRaw); err != nil {
			return nil, err
		}
		rec.Path = path.String
		rec.SizeBytes = size.Int64
		rec.Status = RenderStatus(status)
		rec.ErrorMessage = errMsg.String
		if t, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
