package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rollbackCase renders the CASE expression and arguments mapping every
// processing status to the status its stage resumes from.
func rollbackCase() (string, []any) {
	var b strings.Builder
	args := make([]any, 0, 2*len(stageRollbackTransitions))
	b.WriteString("CASE status")
	for _, tr := range stageRollbackTransitions {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, tr.from, tr.to)
	}
	b.WriteString(" ELSE status END")
	return b.String(), args
}

func processingArgs() []any {
	args := make([]any, 0, len(stageRollbackTransitions))
	for _, tr := range stageRollbackTransitions {
		args = append(args, tr.from)
	}
	return args
}

// ResetStuckProcessing returns editions left in processing states (for
// example after a crash) to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseExpr, args := rollbackCase()
	args = append(args, nowString())
	args = append(args, processingArgs()...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE editions
         SET status = `+caseExpr+`,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(stageRollbackTransitions))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck editions: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight edition.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := nowString()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE editions SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns editions whose heartbeat expired before
// cutoff to the start of their current stage.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	caseExpr, args := rollbackCase()
	args = append(args, nowString())
	args = append(args, processingArgs()...)
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE editions
         SET status = `+caseExpr+`,
             progress_stage = 'Reclaimed from stale processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(stageRollbackTransitions))+`)
           AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale editions: %w", err)
	}
	return res.RowsAffected()
}

// Retry moves failed and review editions back to the status they failed
// from (pending when unknown). With no ids every failed edition is retried;
// review editions are only retried when named explicitly.
func (s *Store) Retry(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE editions
        SET status = COALESCE(resume_status, ?), resume_status = NULL,
            progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, review_reason = NULL, updated_at = ?`
	args := []any{StatusPending, nowString()}
	if len(ids) == 0 {
		query += ` WHERE status = ?`
		args = append(args, StatusFailed)
	} else {
		query += ` WHERE status IN (?, ?) AND id IN (` + makePlaceholders(len(ids)) + `)`
		args = append(args, StatusFailed, StatusReview)
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry editions: %w", err)
	}
	return res.RowsAffected()
}

// FailInFlight marks every processing edition as failed with reason, used
// when the runner shuts down mid-stage.
func (s *Store) FailInFlight(ctx context.Context, reason string) (int64, error) {
	caseExpr, args := rollbackCase()
	args = append([]any{StatusFailed}, args...)
	args = append(args, reason, nowString())
	args = append(args, processingArgs()...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE editions
         SET status = ?, resume_status = `+caseExpr+`,
             error_message = ?, progress_stage = 'Failed', last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(stageRollbackTransitions))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("fail in-flight editions: %w", err)
	}
	return res.RowsAffected()
}
