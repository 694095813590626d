package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/client"
	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/model"
)

const cancelTimeout = 10 * time.Second

// RemoteExecutor runs 2D try-on jobs on the Replicate prediction API
type RemoteExecutor struct {
	predictor client.Predictor
	cfg       config.ReplicateConfig
	logger    zerolog.Logger
}

// NewRemoteExecutor creates a new remote-prediction executor
func NewRemoteExecutor(predictor client.Predictor, cfg config.ReplicateConfig, logger zerolog.Logger) *RemoteExecutor {
	return &RemoteExecutor{
		predictor: predictor,
		cfg:       cfg,
		logger:    logger.With().Str("executor", string(model.StrategyRemotePrediction)).Logger(),
	}
}

func (e *RemoteExecutor) Strategy() model.Strategy {
	return model.StrategyRemotePrediction
}

// Submit creates the prediction from the job's data URL inputs.
func (e *RemoteExecutor) Submit(ctx context.Context, job *model.Job) (*JobHandle, error) {
	if !e.predictor.IsConfigured() {
		return nil, apperr.New(apperr.KindNotConfigured, "Replicate API token is not configured")
	}

	person, ok := job.Input(model.RolePerson)
	if !ok || person.DataURL == "" {
		return nil, apperr.MissingField("Missing required fields")
	}
	garment, ok := job.Input(model.RoleGarment)
	if !ok || garment.DataURL == "" {
		return nil, apperr.MissingField("Missing required fields")
	}

	prediction, err := e.predictor.CreatePrediction(ctx, &client.CreatePredictionRequest{
		Version: e.cfg.ModelVersion,
		Input: client.TryOnInput{
			HumanImg:   person.DataURL,
			GarmImg:    garment.DataURL,
			GarmentDes: job.Description,
			Category:   e.cfg.Category,
		},
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("prediction", prediction.ID).
		Str("status", prediction.Status).
		Msg("prediction created")

	return &JobHandle{Job: job, PredictionID: prediction.ID}, nil
}

// Await polls the prediction until it yields an output. A prediction that is
// abandoned through cancellation or the wait bound is cancelled upstream.
func (e *RemoteExecutor) Await(ctx context.Context, h *JobHandle, progress ProgressFunc) (*model.Outcome, error) {
	prediction, err := e.predictor.PollPrediction(ctx, h.PredictionID, e.cfg.PollInterval, e.cfg.MaxWait,
		func(attempt int, p *client.Prediction) {
			if progress != nil {
				progress(p.Status, attempt)
			}
		})
	if err != nil {
		if ctx.Err() != nil || apperr.KindOf(err) == apperr.KindTimeout {
			e.cancel(h.PredictionID)
		}
		return nil, err
	}

	return &model.Outcome{Result: prediction.OutputURL()}, nil
}

// cancel is best effort and runs detached from the request context.
func (e *RemoteExecutor) cancel(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	if err := e.predictor.CancelPrediction(ctx, id); err != nil {
		e.logger.Warn().Err(err).Str("prediction", id).Msg("failed to cancel prediction")
		return
	}
	e.logger.Info().Str("prediction", id).Msg("prediction cancelled")
}
