package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/service"
	"github.com/tryonlab/api/internal/storage"
)

// CleanupWorker deletes scratch uploads once their retention has passed
type CleanupWorker struct {
	scratch *storage.FileStore
	logger  zerolog.Logger
}

// NewCleanupWorker creates a new cleanup worker restricted to scratch
func NewCleanupWorker(scratch *storage.FileStore, logger zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		scratch: scratch,
		logger:  logger.With().Str("worker", service.TaskTypeCleanup).Logger(),
	}
}

// ProcessTask handles cleanup task processing. Paths outside scratch storage
// are skipped, never deleted.
func (w *CleanupWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal cleanup payload: %w: %w", err, asynq.SkipRetry)
	}

	removed := 0
	for _, path := range payload.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.scratch.Contains(path) {
			w.logger.Warn().Str("job_id", payload.JobID).Str("path", path).Msg("refusing to delete path outside scratch")
			continue
		}
		if err := w.scratch.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}

	w.logger.Info().Str("job_id", payload.JobID).Int("removed", removed).Msg("scratch cleaned")
	return nil
}
