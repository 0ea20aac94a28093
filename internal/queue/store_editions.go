package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEditionInvalid reports a NewEditionRequest missing required metadata.
var ErrEditionInvalid = errors.New("invalid edition")

// NewEdition enqueues an edition awaiting download.
func (s *Store) NewEdition(ctx context.Context, req NewEditionRequest) (*Edition, error) {
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	req.Artist = strings.TrimSpace(req.Artist)
	req.Title = strings.TrimSpace(req.Title)
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	switch {
	case req.SourceURL == "":
		return nil, fmt.Errorf("%w: source url is required", ErrEditionInvalid)
	case req.Artist == "" || req.Title == "":
		return nil, fmt.Errorf("%w: artist and title are required", ErrEditionInvalid)
	case req.Language == "":
		return nil, fmt.Errorf("%w: language is required", ErrEditionInvalid)
	}

	timestamp := nowString()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO editions (
            source_url, video_id, artist, title, composer, opera, category, language,
            instrumental, status, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		req.SourceURL,
		nullableString(req.VideoID),
		req.Artist,
		req.Title,
		nullableString(strings.TrimSpace(req.Composer)),
		nullableString(strings.TrimSpace(req.Opera)),
		nullableString(strings.TrimSpace(req.Category)),
		req.Language,
		boolToInt(req.Instrumental),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert edition: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an edition by identifier. A missing edition yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Edition, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+editionColumns+` FROM editions WHERE id = ?`, id)
	edition, err := scanEdition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get edition: %w", err)
	}
	return edition, nil
}

// Update persists changes to an existing edition.
func (s *Store) Update(ctx context.Context, e *Edition) error {
	if e == nil {
		return errors.New("edition is nil")
	}
	e.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE editions
         SET source_url = ?, video_id = ?, artist = ?, title = ?, composer = ?, opera = ?,
             category = ?, language = ?, instrumental = ?, status = ?, resume_status = ?,
             error_message = ?, review_reason = ?, duration_seconds = ?, video_path = ?,
             audio_path = ?, cut_video_path = ?, item_log_path = ?, window_start_override = ?,
             window_end_override = ?, window_start = ?, window_end = ?, alignment_route = ?,
             alignment_confidence = ?, progress_stage = ?, progress_percent = ?,
             progress_message = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		e.SourceURL,
		nullableString(e.VideoID),
		e.Artist,
		e.Title,
		nullableString(e.Composer),
		nullableString(e.Opera),
		nullableString(e.Category),
		e.Language,
		boolToInt(e.Instrumental),
		e.Status,
		nullableString(string(e.ResumeStatus)),
		nullableString(e.ErrorMessage),
		nullableString(e.ReviewReason),
		e.DurationSeconds,
		nullableString(e.VideoPath),
		nullableString(e.AudioPath),
		nullableString(e.CutVideoPath),
		nullableString(e.ItemLogPath),
		nullableFloat(e.WindowStartOverride),
		nullableFloat(e.WindowEndOverride),
		e.WindowStart,
		e.WindowEnd,
		nullableString(e.AlignmentRoute),
		e.AlignmentConfidence,
		nullableString(e.ProgressStage),
		e.ProgressPercent,
		nullableString(e.ProgressMessage),
		nullableTime(e.LastHeartbeat),
		e.UpdatedAt.Format(time.RFC3339Nano),
		e.ID,
	); err != nil {
		return fmt.Errorf("update edition: %w", err)
	}
	return nil
}

// List returns editions filtered by status set (or all editions when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Edition, error) {
	query := `SELECT ` + editionColumns + ` FROM editions`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list editions: %w", err)
	}
	defer rows.Close()

	var editions []*Edition
	for rows.Next() {
		e, err := scanEdition(rows)
		if err != nil {
			return nil, err
		}
		editions = append(editions, e)
	}
	return editions, rows.Err()
}

// ClaimNext atomically moves the oldest edition in from to the processing
// status to and returns it. It returns nil when nothing is waiting.
func (s *Store) ClaimNext(ctx context.Context, from, to Status) (*Edition, error) {
	ctx = ensureContext(ctx)
	var claimed int64
	err := retryOnBusy(ctx, func() error {
		now := nowString()
		row := s.db.QueryRowContext(ctx,
			`UPDATE editions
             SET status = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = (SELECT id FROM editions WHERE status = ? ORDER BY created_at, id LIMIT 1)
             RETURNING id`,
			to, now, now, from,
		)
		return row.Scan(&claimed)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim edition: %w", err)
	}
	return s.GetByID(ctx, claimed)
}

// Remove deletes an edition and everything recorded for it.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"alignments", "overlays", "translations", "renders"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE edition_id = ?`, id); err != nil {
			return false, fmt.Errorf("remove %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM editions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove edition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit remove: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateProgress persists only the progress fields, leaving the heartbeat and
// status untouched.
func (s *Store) UpdateProgress(ctx context.Context, e *Edition) error {
	if e == nil {
		return errors.New("edition is nil")
	}
	e.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE editions SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(e.ProgressStage),
		e.ProgressPercent,
		nullableString(e.ProgressMessage),
		e.UpdatedAt.Format(time.RFC3339Nano),
		e.ID,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}
