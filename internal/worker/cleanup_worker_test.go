package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tryonlab/api/internal/service"
	"github.com/tryonlab/api/internal/storage"
)

func TestCleanupWorker_RemovesScratchFiles(t *testing.T) {
	scratch, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	inside := filepath.Join(scratch.BasePath(), "job-1_person.jpg")
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0o644))
	outside := filepath.Join(t.TempDir(), "keep.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	missing := filepath.Join(scratch.BasePath(), "job-1_garment.jpg")

	task, err := service.NewCleanupTask("job-1", []string{inside, outside, missing})
	require.NoError(t, err)

	w := NewCleanupWorker(scratch, zerolog.Nop())
	require.NoError(t, w.ProcessTask(context.Background(), task))

	assert.NoFileExists(t, inside)
	assert.FileExists(t, outside)
}

func TestCleanupWorker_BadPayloadSkipsRetry(t *testing.T) {
	scratch, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	w := NewCleanupWorker(scratch, zerolog.Nop())
	err = w.ProcessTask(context.Background(), asynq.NewTask(service.TaskTypeCleanup, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
