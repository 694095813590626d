package model

// Flow identifies which product feature a job belongs to
type Flow string

const (
	FlowTryOn       Flow = "tryon"
	FlowReconstruct Flow = "reconstruct"
)

// Strategy is the executor used to fulfil a job
type Strategy string

const (
	StrategyRemotePrediction Strategy = "remote-prediction"
	StrategyLocalProcess     Strategy = "local-process"
)

// Job status
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions can occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Artifact roles
type ArtifactRole string

const (
	RolePerson  ArtifactRole = "person"
	RoleGarment ArtifactRole = "garment"
)
