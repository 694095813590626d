package service

import (
	"context"

	"github.com/tryonlab/api/internal/client"
	"github.com/tryonlab/api/internal/model"
)

// ProgressFunc receives intermediate steps while a job is awaited.
type ProgressFunc func(step string, attempt int)

// Executor dispatches a job to an external collaborator and waits for its
// outcome. Implementations exist for the remote prediction API and the local
// reconstruction process.
type Executor interface {
	Strategy() model.Strategy
	Submit(ctx context.Context, job *model.Job) (*JobHandle, error)
	Await(ctx context.Context, h *JobHandle, progress ProgressFunc) (*model.Outcome, error)
}

// JobHandle references a dispatched job
type JobHandle struct {
	Job *model.Job
	// PredictionID is set by the remote executor.
	PredictionID string

	// done delivers the local process exit.
	done <-chan processExit
}

type processExit struct {
	result *client.RunResult
	err    error
}
