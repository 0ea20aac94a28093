package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ariacut/internal/logging"
	"ariacut/internal/queue"
)

// HeartbeatMonitor manages edition heartbeats and stale edition reclamation.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "workflow-heartbeat"),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStale returns editions that stopped sending heartbeats to the start
// of their stage.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context, logger *slog.Logger) (int64, error) {
	if h.heartbeatTimeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		logging.WarnWithContext(logger, "reclaimed stale editions", "heartbeat_reclaim",
			logging.Int64("count", reclaimed),
			logging.Duration("heartbeat_timeout", h.heartbeatTimeout),
			logging.String(logging.FieldImpact, "reclaimed editions restart their current stage"),
		)
	}
	return reclaimed, nil
}

// Start runs a heartbeat updater for one edition and returns the function
// that stops it. The returned stop blocks until the updater exits.
func (h *HeartbeatMonitor) Start(ctx context.Context, editionID int64) func() {
	if h.heartbeatInterval <= 0 {
		return func() {}
	}
	hbCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go h.loop(hbCtx, &wg, editionID)
	return func() {
		cancel()
		wg.Wait()
	}
}

func (h *HeartbeatMonitor) loop(ctx context.Context, wg *sync.WaitGroup, editionID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, editionID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat update cancelled")
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
