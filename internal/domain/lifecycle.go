package domain

import "time"

type LifecycleEventType string

const (
	LifecycleSubmitted LifecycleEventType = "job.submitted"
	LifecycleFailed    LifecycleEventType = "job.failed"
	LifecycleResolved  LifecycleEventType = "job.resolved"
)

// LifecycleEvent is published to the job events topic.
type LifecycleEvent struct {
	Type      LifecycleEventType `json:"type"`
	JobID     string             `json:"job_id,omitempty"`
	Model     string             `json:"model,omitempty"`
	Scale     int                `json:"scale,omitempty"`
	SkipAlpha bool               `json:"skip_alpha,omitempty"`
	Filename  string             `json:"filename,omitempty"`
	OutputURL string             `json:"output_url,omitempty"`
	Error     string             `json:"error,omitempty"`
	At        time.Time          `json:"at"`
}
