package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/client"
	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/model"
)

func tryOnJob() *model.Job {
	job := model.NewJob(model.FlowTryOn, model.StrategyRemotePrediction)
	job.Description = "blue jacket"
	job.Inputs = []model.Artifact{
		{Role: model.RolePerson, DataURL: "data:image/png;base64,AAA="},
		{Role: model.RoleGarment, DataURL: "data:image/png;base64,BBB="},
	}
	return job
}

func TestRemoteExecutor_SubmitBuildsModelInput(t *testing.T) {
	fake := newFakePredictor("https://replicate.delivery/out.png")
	exec := NewRemoteExecutor(fake, testReplicateConfig(), zerolog.Nop())

	h, err := exec.Submit(context.Background(), tryOnJob())
	require.NoError(t, err)
	assert.Equal(t, "pred-1", h.PredictionID)

	require.Len(t, fake.created, 1)
	req := fake.created[0]
	assert.Equal(t, config.DefaultModelVersion, req.Version)
	assert.Equal(t, client.TryOnInput{
		HumanImg:   "data:image/png;base64,AAA=",
		GarmImg:    "data:image/png;base64,BBB=",
		GarmentDes: "blue jacket",
		Category:   "upper_body",
	}, req.Input)
}

func TestRemoteExecutor_SubmitRequiresToken(t *testing.T) {
	fake := newFakePredictor("")
	fake.configured = false
	exec := NewRemoteExecutor(fake, testReplicateConfig(), zerolog.Nop())

	_, err := exec.Submit(context.Background(), tryOnJob())
	assert.Equal(t, apperr.KindNotConfigured, apperr.KindOf(err))
	assert.Empty(t, fake.created)
}

func TestRemoteExecutor_SubmitErrorPropagates(t *testing.T) {
	fake := newFakePredictor("")
	fake.createErr = apperr.New(apperr.KindRemoteSubmit, "Failed to create prediction")
	exec := NewRemoteExecutor(fake, testReplicateConfig(), zerolog.Nop())

	_, err := exec.Submit(context.Background(), tryOnJob())
	assert.Equal(t, apperr.KindRemoteSubmit, apperr.KindOf(err))
}

func TestRemoteExecutor_AwaitResolvesFirstOutput(t *testing.T) {
	fake := newFakePredictor("https://replicate.delivery/out.png")
	exec := NewRemoteExecutor(fake, testReplicateConfig(), zerolog.Nop())

	h, err := exec.Submit(context.Background(), tryOnJob())
	require.NoError(t, err)

	var steps []string
	out, err := exec.Await(context.Background(), h, func(step string, _ int) { steps = append(steps, step) })
	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/out.png", out.Result)
	assert.Equal(t, []string{client.PredictionSucceeded}, steps)
	assert.Empty(t, fake.cancelledIDs())
}

func TestRemoteExecutor_TimeoutCancelsPrediction(t *testing.T) {
	fake := newFakePredictor("")
	fake.pollErr = apperr.Timeout("Prediction did not complete")
	exec := NewRemoteExecutor(fake, testReplicateConfig(), zerolog.Nop())

	h, err := exec.Submit(context.Background(), tryOnJob())
	require.NoError(t, err)

	_, err = exec.Await(context.Background(), h, nil)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	assert.Equal(t, []string{h.PredictionID}, fake.cancelledIDs())
}

func TestRemoteExecutor_RequestCancellationCancelsPrediction(t *testing.T) {
	fake := newFakePredictor("")
	fake.blockPoll = true
	exec := NewRemoteExecutor(fake, testReplicateConfig(), zerolog.Nop())

	h, err := exec.Submit(context.Background(), tryOnJob())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = exec.Await(ctx, h, nil)
	require.Error(t, err)
	assert.Equal(t, []string{h.PredictionID}, fake.cancelledIDs())
}

func TestRemoteExecutor_FailedJobIsNotCancelled(t *testing.T) {
	fake := newFakePredictor("")
	fake.pollErr = apperr.RemoteJobFailed("Prediction failed")
	exec := NewRemoteExecutor(fake, testReplicateConfig(), zerolog.Nop())

	h, err := exec.Submit(context.Background(), tryOnJob())
	require.NoError(t, err)

	_, err = exec.Await(context.Background(), h, nil)
	assert.Equal(t, apperr.KindRemoteJobFailed, apperr.KindOf(err))
	assert.Empty(t, fake.cancelledIDs())
}
