package engine

import (
	"context"

	"vidconv/internal/logging"
	"vidconv/internal/queue"
)

// notifyOutcome reports a finished attempt. Removed or superseded jobs are
// skipped.
func (e *Engine) notifyOutcome(ctx context.Context, id string, attempt int) {
	if e.notifier == nil || ctx.Err() != nil {
		return
	}
	job, ok := e.store.Get(id)
	if !ok || job.Attempt != attempt {
		return
	}
	var err error
	switch job.Status {
	case queue.StatusComplete:
		err = e.notifier.NotifyJobCompleted(ctx, job.OriginalName, job.OutputName, job.OutputSizeBytes)
	case queue.StatusError:
		err = e.notifier.NotifyJobFailed(ctx, job.OriginalName, job.ErrorMessage)
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(e.logger, "notification failed", "notification_failed",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.Error(err),
		)
	}
}
