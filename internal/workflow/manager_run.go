package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"ariacut/internal/fileutil"
	"ariacut/internal/logging"
	"ariacut/internal/queue"
	"ariacut/internal/staging"
)

// Start recovers editions left mid-stage by a previous runner and launches
// the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	m.mu.Unlock()

	if err := m.recover(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	m.mu.Unlock()

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.Duration("poll_interval", m.pollInterval),
		logging.Duration("stage_timeout", m.stageTimeout),
		logging.String(logging.FieldEventType, "workflow_start"),
	)
	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx, i+1)
	}
	return nil
}

// Stop cancels the workers, waits for them and marks editions they were
// processing as failed so an operator can retry them.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	failed, err := m.store.FailInFlight(context.Background(), queue.RunnerStopReason)
	if err != nil {
		m.logger.Error("failed to mark in-flight editions", logging.Error(err))
		return
	}
	if failed > 0 {
		logging.WarnWithContext(m.logger, "in-flight editions marked failed on shutdown", "workflow_stop",
			logging.Int64("count", failed),
			logging.String(logging.FieldErrorHint, "run ariacut edition retry to resume them"),
		)
	}
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stop"))
}

// Running reports whether the worker pool is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) recover(ctx context.Context) error {
	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck editions: %w", err)
	}
	if reset > 0 {
		logging.WarnWithContext(m.logger, "reset editions left in processing", "workflow_recover",
			logging.Int64("count", reset),
			logging.String(logging.FieldImpact, "those editions restart their interrupted stage"),
		)
	}

	editions, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list editions: %w", err)
	}
	active := make(map[int64]struct{}, len(editions))
	for _, e := range editions {
		active[e.ID] = struct{}{}
	}
	staging.CleanOrphaned(ctx, filepath.Join(m.cfg.Paths.StorageDir, "editions"), active, m.logger)
	if exportDir := m.cfg.Paths.ExportDir; exportDir != "" {
		if pruned, err := fileutil.PruneEmptyDirs(exportDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to prune export directory", logging.String("dir", exportDir), logging.Error(err))
		} else if pruned > 0 {
			m.logger.Info("pruned empty export directories", logging.Int("count", pruned))
		}
	}

	if removed := logging.CleanupOldLogs(m.logger, m.cfg.Logging.RetentionDays, filepath.Join(m.cfg.Paths.LogDir, "editions"), "edition-*.log"); removed > 0 {
		m.logger.Info("pruned edition logs", logging.Int("count", removed))
	}
	return nil
}

func (m *Manager) runWorker(ctx context.Context, worker int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", worker))

	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := m.heartbeat.ReclaimStale(ctx, logger); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(logger, "reclaim stale processing failed; stuck editions may remain", "heartbeat_reclaim_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		stg, edition, err := m.claimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if edition == nil {
			m.wait(ctx, m.pollInterval)
			continue
		}

		if err := m.processEdition(ctx, logger, stg, edition); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// claimNext claims the first waiting edition, trying later stages first.
func (m *Manager) claimNext(ctx context.Context) (pipelineStage, *queue.Edition, error) {
	for _, stg := range m.claimOrder() {
		edition, err := m.store.ClaimNext(ctx, stg.startStatus, stg.processingStatus)
		if err != nil {
			return pipelineStage{}, nil, err
		}
		if edition != nil {
			return stg, edition, nil
		}
	}
	return pipelineStage{}, nil, nil
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(logger, "failed to claim next edition", "queue_claim_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.wait(ctx, m.retryDelay)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
