package service

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/metrics"
	"github.com/tryonlab/api/internal/model"
	"github.com/tryonlab/api/internal/websocket"
)

// TryOnRequest is a validated 2D try-on submission
type TryOnRequest struct {
	Person      *multipart.FileHeader
	Garment     *multipart.FileHeader
	Description string
	// Channel optionally names a progress channel on the hub.
	Channel string
}

// ReconstructRequest is a validated 3D reconstruction submission
type ReconstructRequest struct {
	Person *multipart.FileHeader
	// Cloth is accepted and stored but not used by the reconstruction.
	Cloth   *multipart.FileHeader
	Channel string
}

// TryOnService runs the upload, dispatch, wait and resolve pipeline for both
// flows
type TryOnService struct {
	uploads *UploadService
	remote  Executor
	local   Executor
	cleanup CleanupScheduler
	hub     *websocket.Hub
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewTryOnService creates a new try-on service. cleanup and hub may be nil.
func NewTryOnService(
	uploads *UploadService,
	remote Executor,
	local Executor,
	cleanup CleanupScheduler,
	hub *websocket.Hub,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *TryOnService {
	return &TryOnService{
		uploads: uploads,
		remote:  remote,
		local:   local,
		cleanup: cleanup,
		hub:     hub,
		metrics: collector,
		logger:  logger.With().Str("component", "tryon").Logger(),
	}
}

// TryOn composites the garment onto the person through the remote executor.
func (s *TryOnService) TryOn(ctx context.Context, req *TryOnRequest) (*model.Job, *model.Outcome, error) {
	if req.Person == nil || req.Garment == nil || strings.TrimSpace(req.Description) == "" {
		return nil, nil, apperr.MissingField("Missing required fields")
	}

	job := model.NewJob(model.FlowTryOn, s.remote.Strategy())
	job.Description = strings.TrimSpace(req.Description)

	inputs, err := s.uploads.EncodeAll(ctx,
		[]model.ArtifactRole{model.RolePerson, model.RoleGarment},
		[]*multipart.FileHeader{req.Person, req.Garment},
	)
	if err != nil {
		return job, nil, s.fail(job, req.Channel, err)
	}
	job.Inputs = inputs

	return s.run(ctx, job, s.remote, req.Channel)
}

// Reconstruct builds a 3D mesh of the person through the local executor.
func (s *TryOnService) Reconstruct(ctx context.Context, req *ReconstructRequest) (*model.Job, *model.Outcome, error) {
	if req.Person == nil {
		return nil, nil, apperr.MissingField("Missing person image")
	}

	job := model.NewJob(model.FlowReconstruct, s.local.Strategy())

	person, err := s.uploads.Save(ctx, job, model.RolePerson, req.Person)
	if err != nil {
		return job, nil, s.fail(job, req.Channel, err)
	}
	job.Inputs = append(job.Inputs, person)

	if req.Cloth != nil {
		cloth, err := s.uploads.Save(ctx, job, model.RoleGarment, req.Cloth)
		if err != nil {
			s.scheduleCleanup(ctx, job)
			return job, nil, s.fail(job, req.Channel, err)
		}
		job.Inputs = append(job.Inputs, cloth)
	}

	defer s.scheduleCleanup(ctx, job)
	return s.run(ctx, job, s.local, req.Channel)
}

// run drives a job through submit and await, reporting transitions.
func (s *TryOnService) run(ctx context.Context, job *model.Job, exec Executor, channel string) (*model.Job, *model.Outcome, error) {
	log := s.logger.With().
		Str("job_id", job.ID).
		Str("flow", string(job.Flow)).
		Str("strategy", string(exec.Strategy())).
		Logger()

	job.MarkRunning()
	s.hub.BroadcastProgress(channel, job, "submitting", 0, 10)
	log.Info().Int("inputs", len(job.Inputs)).Msg("job dispatched")

	handle, err := exec.Submit(ctx, job)
	if err != nil {
		return job, nil, s.fail(job, channel, err)
	}

	outcome, err := exec.Await(ctx, handle, func(step string, attempt int) {
		s.hub.BroadcastProgress(channel, job, step, attempt, 50)
	})
	if err != nil {
		return job, nil, s.fail(job, channel, err)
	}

	job.MarkSucceeded()
	s.metrics.RecordJob(string(job.Strategy), string(job.Status), "", job.Elapsed())
	s.hub.BroadcastComplete(channel, job.ID, outcome)
	log.Info().Dur("elapsed", job.Elapsed()).Msg("job succeeded")

	return job, outcome, nil
}

// fail records the terminal failure and returns err as an *apperr.Error.
func (s *TryOnService) fail(job *model.Job, channel string, err error) error {
	e := apperr.From(err)
	job.MarkFailed(e.Message)
	s.metrics.RecordJob(string(job.Strategy), string(job.Status), string(e.Kind), job.Elapsed())
	s.hub.BroadcastError(channel, job.ID, string(e.Kind), e.Message)

	ev := s.logger.Warn()
	if e.Kind.Status() >= 500 {
		ev = s.logger.Error()
	}
	ev.Err(err).
		Str("job_id", job.ID).
		Str("flow", string(job.Flow)).
		Str("kind", string(e.Kind)).
		Str("details", e.Details).
		Msg("job failed")

	return e
}

func (s *TryOnService) scheduleCleanup(ctx context.Context, job *model.Job) {
	if s.cleanup == nil {
		return
	}
	var paths []string
	for _, a := range job.Inputs {
		if a.Path != "" {
			paths = append(paths, a.Path)
		}
	}
	if len(paths) == 0 {
		return
	}
	if err := s.cleanup.ScheduleCleanup(context.WithoutCancel(ctx), job.ID, paths); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to schedule scratch cleanup")
	}
}
