package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"ariacut/internal/logging"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
)

// Handler is the stage contract used by the execution helper.
type Handler interface {
	Prepare(context.Context, *queue.Edition) error
	Execute(context.Context, *queue.Edition) error
}

// Options controls stage execution and store persistence behavior.
type Options struct {
	Logger     *slog.Logger
	Store      *queue.Store
	Handler    Handler
	StageName  string
	Processing queue.Status
	Done       queue.Status
	Edition    *queue.Edition
	// Timeout bounds Execute; zero means no limit.
	Timeout time.Duration
	// Heartbeat, when set, is started before Execute and stopped after it.
	Heartbeat func(ctx context.Context, editionID int64) (stop func())
}

// Run executes one stage for an edition and applies the status transitions:
// processing on entry, done on success, review or failed on error. A
// cancelled parent context leaves the edition untouched so the caller can
// fail or reset in-flight work.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Store == nil {
		return errors.New("edition store is required")
	}
	if opts.Edition == nil {
		return errors.New("edition is required")
	}
	edition := opts.Edition

	stageCtx := services.WithStage(services.WithEditionID(ctx, edition.ID), opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	start := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Processing)),
		logging.String("edition", edition.Label()),
		logging.String("source_url", strings.TrimSpace(edition.SourceURL)),
	)

	setProcessingState(edition, opts.Processing)
	if err := opts.Store.Update(stageCtx, edition); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := opts.Handler.Prepare(stageCtx, edition); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}
	if err := opts.Store.Update(stageCtx, edition); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	execCtx := stageCtx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(stageCtx, opts.Timeout)
		defer cancel()
	}
	var stopHeartbeat func()
	if opts.Heartbeat != nil {
		stopHeartbeat = opts.Heartbeat(execCtx, edition.ID)
	}
	execErr := opts.Handler.Execute(execCtx, edition)
	if stopHeartbeat != nil {
		stopHeartbeat()
	}
	if execErr != nil {
		if ctx.Err() != nil {
			stageLogger.Debug("stage interrupted by shutdown")
			return ctx.Err()
		}
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) && !errors.Is(execErr, services.ErrTimeout) {
			execErr = services.Wrap(services.ErrTimeout, opts.StageName, "execute",
				fmt.Sprintf("Stage exceeded %s", opts.Timeout), execErr)
		}
		return handleFailure(stageCtx, stageLogger, opts, execErr)
	}

	if edition.Status == opts.Processing || edition.Status == "" {
		edition.Status = opts.Done
	}
	edition.LastHeartbeat = nil
	if err := opts.Store.Update(stageCtx, edition); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(edition.Status)),
		logging.String("progress_stage", strings.TrimSpace(edition.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(edition.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, stageErr error) error {
	edition := opts.Edition
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = opts.StageName + " failed"
	}
	status := services.FailureStatus(stageErr)
	resume, ok := queue.RollbackStatus(opts.Processing)
	if !ok {
		resume = queue.StatusPending
	}
	edition.SetFailed(status, resume, message)

	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("resolved_status", string(status)),
		logging.String("resume_status", string(resume)),
		logging.String("error_message", message),
		logging.Bool("retryable", services.IsRetryable(stageErr)),
		logging.Error(stageErr),
	)
	if err := opts.Store.Update(ctx, edition); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("runner shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	return stageErr
}

func setProcessingState(edition *queue.Edition, processing queue.Status) {
	now := time.Now().UTC()
	edition.Status = processing
	edition.ResumeStatus = ""
	edition.ReviewReason = ""
	edition.InitProgress(DeriveStageLabel(processing), fmt.Sprintf("%s started", DeriveStageLabel(processing)))
	edition.LastHeartbeat = &now
}

// DeriveStageLabel renders a status as a title-cased progress label.
func DeriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
