package stage

import (
	"context"
	"log/slog"

	"ariacut/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Edition) error
	Execute(context.Context, *queue.Edition) error
	HealthCheck(context.Context) Health
}

// LoggerAware is implemented by stages that can write into the edition log.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
