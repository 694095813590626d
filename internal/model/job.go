package model

import (
	"time"

	"github.com/google/uuid"
)

// Job represents one try-on request and its working state. It lives for a
// single request/response cycle.
type Job struct {
	ID          string     `json:"id"`
	Flow        Flow       `json:"flow"`
	Strategy    Strategy   `json:"strategy"`
	Status      JobStatus  `json:"status"`
	Inputs      []Artifact `json:"inputs"`
	Description string     `json:"description,omitempty"`
	OutputDir   string     `json:"-"` // absolute path, local-process strategy only
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewJob creates a pending job with a fresh identifier.
func NewJob(flow Flow, strategy Strategy) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Flow:      flow,
		Strategy:  strategy,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
}

// Input returns the artifact uploaded under the given role.
func (j *Job) Input(role ArtifactRole) (Artifact, bool) {
	for _, a := range j.Inputs {
		if a.Role == role {
			return a, true
		}
	}
	return Artifact{}, false
}

// MarkRunning transitions the job to running on dispatch.
func (j *Job) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// MarkSucceeded transitions the job to its successful terminal state.
func (j *Job) MarkSucceeded() {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.CompletedAt = &now
}

// MarkFailed transitions the job to its failed terminal state.
func (j *Job) MarkFailed(msg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = &msg
	j.CompletedAt = &now
}

// Elapsed returns the time between dispatch and completion, or since
// creation when the job never started.
func (j *Job) Elapsed() time.Duration {
	start := j.CreatedAt
	if j.StartedAt != nil {
		start = *j.StartedAt
	}
	end := time.Now()
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	return end.Sub(start)
}

// Artifact is an uploaded input owned by exactly one job. Either Path (scratch
// file on disk) or DataURL (inline base64) is set.
type Artifact struct {
	Role        ArtifactRole `json:"role"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"contentType"`
	Size        int64        `json:"size"`
	Path        string       `json:"-"`
	DataURL     string       `json:"-"`
}

// Outcome is the result reference of a succeeded job.
type Outcome struct {
	// Result is a URL or data URL returned by the remote prediction.
	Result string `json:"result,omitempty"`
	// Models are public URLs of generated meshes.
	Models       []string `json:"models,omitempty"`
	HasMaterials bool     `json:"hasMaterials"`
}
