package workflow

import (
	"context"
	"fmt"

	"ariacut/internal/logging"
	"ariacut/internal/preflight"
)

// Preflight validates directories, external binaries and the LLM endpoint
// before the runner starts. It returns an error describing every failure.
func (m *Manager) Preflight(ctx context.Context) error {
	results := preflight.RunAll(ctx, m.cfg)
	for _, r := range results {
		if r.Passed {
			m.logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.ErrorWithContext(m.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart the runner"),
		)
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		return fmt.Errorf("preflight checks failed: %s", preflight.Summary(results))
	}
	return nil
}
