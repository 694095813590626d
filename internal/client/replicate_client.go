package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/metrics"
)

// Prediction statuses reported by Replicate
const (
	PredictionStarting   = "starting"
	PredictionProcessing = "processing"
	PredictionSucceeded  = "succeeded"
	PredictionFailed     = "failed"
	PredictionCanceled   = "canceled"
)

// Predictor defines the remote prediction operations used by the 2D flow
type Predictor interface {
	CreatePrediction(ctx context.Context, req *CreatePredictionRequest) (*Prediction, error)
	GetPrediction(ctx context.Context, id string) (*Prediction, error)
	CancelPrediction(ctx context.Context, id string) error
	PollPrediction(ctx context.Context, id string, interval, maxWait time.Duration, onPoll func(attempt int, p *Prediction)) (*Prediction, error)
	IsConfigured() bool
}

// ReplicateClient implements Predictor for the Replicate HTTP API
type ReplicateClient struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	retry      RetryPolicy
	metrics    *metrics.Collector
	logger     zerolog.Logger
}

// CreatePredictionRequest is the body of POST /predictions
type CreatePredictionRequest struct {
	Version string      `json:"version"`
	Input   interface{} `json:"input"`
}

// TryOnInput is the IDM-VTON model input
type TryOnInput struct {
	HumanImg   string `json:"human_img"`
	GarmImg    string `json:"garm_img"`
	GarmentDes string `json:"garment_des"`
	Category   string `json:"category"`
}

// Prediction is the remote job as reported by Replicate
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  interface{}     `json:"error,omitempty"`
}

// HasOutput reports whether the prediction carries a non-null output.
func (p *Prediction) HasOutput() bool {
	return p.OutputURL() != ""
}

// OutputURL returns the output reference. Array outputs resolve to their
// first element.
func (p *Prediction) OutputURL() string {
	if len(p.Output) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(p.Output, &s); err == nil {
		return s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(p.Output, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		if err := json.Unmarshal(list[0], &s); err == nil {
			return s
		}
		return string(list[0])
	}

	if string(p.Output) == "null" {
		return ""
	}
	return string(p.Output)
}

// ErrorMessage returns the upstream failure text, if any.
func (p *Prediction) ErrorMessage() string {
	switch v := p.Error.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// NewReplicateClient creates a new Replicate API client
func NewReplicateClient(cfg *config.ReplicateConfig, collector *metrics.Collector, logger zerolog.Logger) *ReplicateClient {
	return &ReplicateClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		retry:    DefaultRetryPolicy(cfg.SubmitRetries),
		metrics:  collector,
		logger:   logger.With().Str("component", "replicate").Logger(),
	}
}

// CreatePrediction starts a prediction. Transient failures are retried.
func (c *ReplicateClient) CreatePrediction(ctx context.Context, req *CreatePredictionRequest) (*Prediction, error) {
	var result Prediction
	err := c.retry.do(ctx, c.logger, func() error {
		return c.post(ctx, "/predictions", req, &result)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.From(ctx.Err())
		}
		return nil, apperr.Wrap(apperr.KindRemoteSubmit, "Failed to create prediction", err)
	}
	if result.ID == "" {
		return nil, apperr.New(apperr.KindRemoteSubmit, "Prediction response carried no id")
	}
	return &result, nil
}

// GetPrediction retrieves the current state of a prediction
func (c *ReplicateClient) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	var result Prediction
	if err := c.get(ctx, "/predictions/"+id, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelPrediction asks Replicate to stop a running prediction
func (c *ReplicateClient) CancelPrediction(ctx context.Context, id string) error {
	var result Prediction
	return c.post(ctx, "/predictions/"+id+"/cancel", struct{}{}, &result)
}

// post sends a POST request with JSON body
func (c *ReplicateClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *ReplicateClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *ReplicateClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	log := c.logger.With().Str("method", req.Method).Str("path", req.URL.Path).Logger()
	log.Debug().Msg("request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("request failed")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read response")
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug().Int("status", resp.StatusCode).Int("bytes", len(respBody)).Msg("response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Warn().Err(err).Msg("failed to unmarshal response")
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ReplicateClient) IsConfigured() bool {
	return c.apiToken != ""
}

// PollPrediction polls until the prediction carries an output or reaches a
// failed state. maxWait bounds the whole loop; exceeding it is a Timeout.
// onPoll, when set, is called after every status query.
func (c *ReplicateClient) PollPrediction(ctx context.Context, id string, interval, maxWait time.Duration, onPoll func(attempt int, p *Prediction)) (*Prediction, error) {
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for {
		attempt++
		result, err := c.GetPrediction(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperr.From(ctx.Err())
			}
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("prediction", id).Msg("poll failed")
			return nil, apperr.Wrap(apperr.KindRemoteJobFailed, "Failed to query prediction", err)
		}

		c.metrics.RecordPoll(result.Status)
		c.logger.Debug().Int("attempt", attempt).Str("prediction", id).Str("status", result.Status).Msg("poll")
		if onPoll != nil {
			onPoll(attempt, result)
		}

		if result.HasOutput() {
			return result, nil
		}

		switch result.Status {
		case PredictionFailed, PredictionCanceled:
			e := apperr.RemoteJobFailed(fmt.Sprintf("Prediction %s", result.Status))
			if msg := result.ErrorMessage(); msg != "" {
				e = e.WithDetails(msg)
			}
			return nil, e
		case PredictionSucceeded:
			return nil, apperr.RemoteJobFailed("Failed to get output from replicate.")
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, apperr.Timeout(fmt.Sprintf("Prediction did not complete within %v", maxWait))
		}
		wait := interval
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			c.logger.Debug().Str("prediction", id).Msg("poll cancelled")
			return nil, apperr.From(ctx.Err())
		case <-time.After(wait):
		}
	}
}
