package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage reports a job transition to subscribers of a channel
type WSProgressMessage struct {
	Type     string    `json:"type"`
	Channel  string    `json:"channel"`
	JobID    string    `json:"jobId"`
	Flow     Flow      `json:"flow"`
	Status   JobStatus `json:"status"`
	Step     string    `json:"step,omitempty"`
	Attempt  int       `json:"attempt,omitempty"`
	Progress int       `json:"progress"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	JobID   string   `json:"jobId"`
	Result  *Outcome `json:"result"`
}

// WSErrorMessage represents a failed job
type WSErrorMessage struct {
	Type    string  `json:"type"`
	Channel string  `json:"channel"`
	JobID   string  `json:"jobId"`
	Error   WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
