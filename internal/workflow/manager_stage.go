package workflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"ariacut/internal/logging"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stageexec"
)

func (m *Manager) processEdition(ctx context.Context, workerLogger *slog.Logger, stg pipelineStage, edition *queue.Edition) error {
	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(ctx, requestID)

	stageLogger, closeLog := m.editionLogger(workerLogger, edition)
	defer closeLog()

	m.markActive(edition.ID, stg.name)
	defer m.clearActive(edition.ID)

	err := stageexec.Run(stageCtx, stageexec.Options{
		Logger:     stageLogger,
		Store:      m.store,
		Handler:    stg.handler,
		StageName:  stg.name,
		Processing: stg.processingStatus,
		Done:       stg.doneStatus,
		Edition:    edition,
		Timeout:    m.stageTimeout,
		Heartbeat:  m.heartbeat.Start,
	})
	m.setLastEdition(edition)
	if err != nil {
		m.setLastError(err)
	}
	return err
}

// editionLogger tees the worker logger into the edition's own log file and
// records its path on the edition.
func (m *Manager) editionLogger(base *slog.Logger, edition *queue.Edition) (*slog.Logger, func()) {
	logger, path, closer, err := logging.EditionLogger(base, m.cfg.Paths.LogDir, edition.ID)
	if err != nil {
		logging.WarnWithContext(base, "edition log unavailable", "edition_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stage output only goes to the runner log"),
		)
		return base, func() {}
	}
	edition.ItemLogPath = path
	return logger, func() {
		_ = closer.Close()
	}
}
