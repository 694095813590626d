package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeCleanup = "cleanup:scratch"
	QueueCleanup    = "cleanup"
)

// CleanupPayload lists scratch files to delete once their retention ends
type CleanupPayload struct {
	JobID string   `json:"jobId"`
	Paths []string `json:"paths"`
}

// CleanupScheduler schedules deletion of a job's scratch uploads
type CleanupScheduler interface {
	ScheduleCleanup(ctx context.Context, jobID string, paths []string) error
}

// AsynqCleanupScheduler enqueues delayed cleanup tasks
type AsynqCleanupScheduler struct {
	asynqClient *asynq.Client
	retention   time.Duration
}

// NewAsynqCleanupScheduler creates a scheduler. A zero retention disables
// cleanup and returns nil.
func NewAsynqCleanupScheduler(asynqClient *asynq.Client, retention time.Duration) *AsynqCleanupScheduler {
	if asynqClient == nil || retention <= 0 {
		return nil
	}
	return &AsynqCleanupScheduler{asynqClient: asynqClient, retention: retention}
}

// ScheduleCleanup enqueues a cleanup task processed after the retention period.
func (s *AsynqCleanupScheduler) ScheduleCleanup(ctx context.Context, jobID string, paths []string) error {
	if s == nil || len(paths) == 0 {
		return nil
	}

	task, err := NewCleanupTask(jobID, paths)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(QueueCleanup),
		asynq.ProcessIn(s.retention),
		asynq.MaxRetry(3),
		asynq.TaskID("cleanup:"+jobID),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// NewCleanupTask builds the cleanup task for jobID.
func NewCleanupTask(jobID string, paths []string) (*asynq.Task, error) {
	data, err := json.Marshal(CleanupPayload{JobID: jobID, Paths: paths})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCleanup, data), nil
}
