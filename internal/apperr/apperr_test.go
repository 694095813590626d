package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindMissingField, http.StatusBadRequest},
		{KindInvalidField, http.StatusBadRequest},
		{KindDependencyMissing, http.StatusInternalServerError},
		{KindRemoteSubmit, http.StatusInternalServerError},
		{KindRemoteJobFailed, http.StatusInternalServerError},
		{KindProcessFailed, http.StatusInternalServerError},
		{KindOutputMissing, http.StatusInternalServerError},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindNotConfigured, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestWrapKeepsCauseAsDetails(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindRemoteSubmit, "Failed to create prediction", cause)

	assert.Equal(t, "connection refused", err.Details)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to create prediction: connection refused", err.Error())
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("resolve: %w", OutputMissing("3D model not generated"))

	assert.ErrorIs(t, err, OutputMissing(""))
	assert.NotErrorIs(t, err, ProcessFailed(""))
	assert.Equal(t, KindOutputMissing, KindOf(err))
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))
	assert.Equal(t, KindTimeout, From(context.DeadlineExceeded).Kind)
	assert.Equal(t, KindInternal, From(errors.New("boom")).Kind)

	original := MissingField("Missing person image")
	assert.Same(t, original, From(original))
}

func TestWithDetailsCopies(t *testing.T) {
	base := ProcessFailed("PIFuHD failed")
	withDetails := base.WithDetails("stderr: boom")

	assert.Empty(t, base.Details)
	assert.Equal(t, "stderr: boom", withDetails.Details)
}
