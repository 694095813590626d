package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/client"
	"github.com/tryonlab/api/internal/metrics"
	"github.com/tryonlab/api/internal/model"
	"github.com/tryonlab/api/internal/storage"
)

// Messages surfaced by the reconstruction flow
const (
	MsgReconstructFailed = "Failed to generate 3D model. Check Python dependencies."
	MsgDependencyMissing = "Python dependencies missing. Please install required packages."
	MsgOutputMissing     = "3D model not generated"
)

// LocalExecutor runs 3D reconstruction jobs as a local child process
type LocalExecutor struct {
	runner    client.Reconstructor
	models    *storage.FileStore
	publisher Publisher
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

// NewLocalExecutor creates a new local-process executor writing into models
func NewLocalExecutor(runner client.Reconstructor, models *storage.FileStore, publisher Publisher, collector *metrics.Collector, logger zerolog.Logger) *LocalExecutor {
	return &LocalExecutor{
		runner:    runner,
		models:    models,
		publisher: publisher,
		metrics:   collector,
		logger:    logger.With().Str("executor", string(model.StrategyLocalProcess)).Logger(),
	}
}

func (e *LocalExecutor) Strategy() model.Strategy {
	return model.StrategyLocalProcess
}

// Submit verifies the interpreter's dependencies and starts the
// reconstruction. The process is never spawned when the check fails.
func (e *LocalExecutor) Submit(ctx context.Context, job *model.Job) (*JobHandle, error) {
	person, ok := job.Input(model.RolePerson)
	if !ok || person.Path == "" {
		return nil, apperr.MissingField("Missing person image")
	}

	check, err := e.runner.CheckDependencies(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.From(ctx.Err())
		}
		e.metrics.RecordProcess("dependency_check", false)
		return nil, apperr.DependencyMissing(MsgReconstructFailed).WithDetails(
			fmt.Sprintf("%s\n%v", MsgDependencyMissing, err))
	}
	e.metrics.RecordProcess("dependency_check", check.OK())
	if !check.OK() {
		e.logger.Warn().Str("job_id", job.ID).Int("exit_code", check.ExitCode).Str("stderr", check.Stderr).Msg("dependency check failed")
		return nil, apperr.DependencyMissing(MsgReconstructFailed).WithDetails(MsgDependencyMissing)
	}

	outDir, err := e.models.MkdirAll(job.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to prepare output directory", err)
	}
	job.OutputDir = outDir

	done := make(chan processExit, 1)
	go func() {
		res, err := e.runner.Reconstruct(ctx, person.Path, outDir)
		done <- processExit{result: res, err: err}
	}()

	e.logger.Info().Str("job_id", job.ID).Str("out_dir", outDir).Msg("reconstruction started")

	return &JobHandle{Job: job, done: done}, nil
}

// Await waits for the process to exit and resolves its output files.
func (e *LocalExecutor) Await(ctx context.Context, h *JobHandle, progress ProgressFunc) (*model.Outcome, error) {
	if progress != nil {
		progress("reconstructing", 1)
	}

	var exit processExit
	select {
	case exit = <-h.done:
	case <-ctx.Done():
		// CommandContext kills the child; wait for it to be reaped
		<-h.done
		return nil, apperr.From(ctx.Err())
	}

	if exit.err != nil {
		if ctx.Err() != nil {
			return nil, apperr.From(ctx.Err())
		}
		e.metrics.RecordProcess("reconstruct", false)
		return nil, apperr.Wrap(apperr.KindProcessFailed, MsgReconstructFailed, exit.err)
	}

	e.metrics.RecordProcess("reconstruct", exit.result.OK())
	if !exit.result.OK() {
		e.logger.Warn().
			Str("job_id", h.Job.ID).
			Int("exit_code", exit.result.ExitCode).
			Str("stderr", exit.result.Stderr).
			Msg("reconstruction failed")
		return nil, apperr.ProcessFailed(MsgReconstructFailed).WithDetails(
			fmt.Sprintf("PIFuHD failed.\nStderr: %s\nStdout: %s", exit.result.Stderr, exit.result.Stdout))
	}

	if progress != nil {
		progress("publishing", 1)
	}
	return e.resolveOutput(ctx, h.Job)
}

// resolveOutput checks for the mesh and optional material file and derives
// the public URL.
func (e *LocalExecutor) resolveOutput(ctx context.Context, job *model.Job) (*model.Outcome, error) {
	if !e.models.Exists(job.ID + "/" + MeshFile) {
		return nil, apperr.OutputMissing(MsgOutputMissing)
	}

	files := []string{MeshFile}
	hasMaterials := e.models.Exists(job.ID + "/" + MaterialFile)
	if hasMaterials {
		files = append(files, MaterialFile)
	}

	url, err := e.publisher.Publish(ctx, job.OutputDir, files)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to publish 3D model", err)
	}

	return &model.Outcome{
		Models:       []string{url},
		HasMaterials: hasMaterials,
	}, nil
}
