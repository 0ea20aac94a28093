package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ariacut/internal/config"
	"ariacut/internal/logging"
	"ariacut/internal/queue"
)

// Manager coordinates edition processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration
	stageTimeout time.Duration
	workers      int

	heartbeat *HeartbeatMonitor
	stages    []pipelineStage

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastEdition *queue.Edition
	active      map[int64]string
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow-manager"),
		pollInterval: secondsOrMin(cfg.Workflow.PollInterval),
		retryDelay:   secondsOrMin(cfg.Workflow.ErrorRetryInterval),
		stageTimeout: time.Duration(cfg.Workflow.StageTimeoutSeconds) * time.Second,
		workers:      workers,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		active: make(map[int64]string),
	}
}

// secondsOrMin converts a configured interval, keeping a floor so an idle
// worker never spins.
func secondsOrMin(seconds int) time.Duration {
	if seconds <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(seconds) * time.Second
}
