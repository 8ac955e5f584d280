package engine

import (
	"context"

	"vidconv/internal/logging"
	"vidconv/internal/queue"
	"vidconv/internal/services"
)

func (e *Engine) publishIfComplete(ctx context.Context, id string, attempt int) {
	if e.publisher == nil || ctx.Err() != nil {
		return
	}
	job, ok := e.store.Get(id)
	if !ok || job.Attempt != attempt {
		return
	}
	path, ok := e.OutputPath(job)
	if !ok {
		return
	}
	key, err := e.publisher.Publish(ctx, path)
	if err != nil {
		logging.WarnWithContext(e.logger, "publish failed", "publish_failed",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldErrorHint, "check publish bucket and credentials"),
			logging.String(logging.FieldImpact, "converted file stays local only"),
			logging.Error(err),
		)
	}
	if _, mutErr := e.store.Mutate(id, func(j *queue.Job) error {
		if j.Attempt != attempt || j.Status != queue.StatusComplete {
			return queue.ErrStaleAttempt
		}
		j.PublishedKey = key
		if err != nil {
			j.PublishError = services.Describe(err)
		}
		return nil
	}); mutErr != nil {
		e.logger.Debug("publish result not recorded", logging.String(logging.FieldJobID, id), logging.Error(mutErr))
	}
}
