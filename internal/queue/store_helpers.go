package queue

import (
	"database/sql"
	"errors"
	"time"
)

const editionColumns = "id, source_url, video_id, artist, title, composer, opera, category, language, instrumental, status, resume_status, error_message, review_reason, duration_seconds, video_path, audio_path, cut_video_path, item_log_path, window_start_override, window_end_override, window_start, window_end, alignment_route, alignment_confidence, progress_stage, progress_percent, progress_message, last_heartbeat, created_at, updated_at"

type scanner interface{ Scan(dest ...any) error }

func scanEdition(row scanner) (*Edition, error) {
	var (
		e                Edition
		videoID          sql.NullString
		composer         sql.NullString
		opera            sql.NullString
		category         sql.NullString
		instrumental     int64
		statusStr        string
		resumeStatus     sql.NullString
		errorMessage     sql.NullString
		reviewReason     sql.NullString
		duration         sql.NullFloat64
		videoPath        sql.NullString
		audioPath        sql.NullString
		cutVideoPath     sql.NullString
		itemLogPath      sql.NullString
		startOverride    sql.NullFloat64
		endOverride      sql.NullFloat64
		windowStart      sql.NullFloat64
		windowEnd        sql.NullFloat64
		route            sql.NullString
		confidence       sql.NullFloat64
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       string
		updatedRaw       string
	)
	if err := row.Scan(
		&e.ID,
		&e.SourceURL,
		&videoID,
		&e.Artist,
		&e.Title,
		&composer,
		&opera,
		&category,
		&e.Language,
		&instrumental,
		&statusStr,
		&resumeStatus,
		&errorMessage,
		&reviewReason,
		&duration,
		&videoPath,
		&audioPath,
		&cutVideoPath,
		&itemLogPath,
		&startOverride,
		&endOverride,
		&windowStart,
		&windowEnd,
		&route,
		&confidence,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	e.VideoID = videoID.String
	e.Composer = composer.String
	e.Opera = opera.String
	e.Category = category.String
	e.Instrumental = instrumental != 0
	e.Status = Status(statusStr)
	e.ResumeStatus = Status(resumeStatus.String)
	e.ErrorMessage = errorMessage.String
	e.ReviewReason = reviewReason.String
	e.DurationSeconds = duration.Float64
	e.VideoPath = videoPath.String
	e.AudioPath = audioPath.String
	e.CutVideoPath = cutVideoPath.String
	e.ItemLogPath = itemLogPath.String
	e.WindowStartOverride = floatPtr(startOverride)
	e.WindowEndOverride = floatPtr(endOverride)
	e.WindowStart = windowStart.Float64
	e.WindowEnd = windowEnd.Float64
	e.AlignmentRoute = route.String
	e.AlignmentConfidence = confidence.Float64
	e.ProgressStage = progressStage.String
	e.ProgressPercent = progressPercent.Float64
	e.ProgressMessage = progressMessage.String

	if created, err := parseTimeString(createdRaw); err == nil {
		e.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		e.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			e.LastHeartbeat = &heartbeat
		}
	}
	return &e, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	out := v.Float64
	return &out
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}
