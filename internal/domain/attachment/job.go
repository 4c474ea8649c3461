package attachment

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// JobStatus represents the status of an attachment job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsValid checks if the JobStatus is a valid value
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this is a terminal status (no further transitions)
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo checks if the status can transition to the target status
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	return s == JobStatusQueued && target.IsTerminal()
}

// Job tracks one queued attachment request
type Job struct {
	shared.BaseEntity
	Method       string
	Queue        string
	Timeout      time.Duration
	Payload      JobPayload
	Status       JobStatus
	ErrorMessage string
	FileID       *uuid.UUID
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// NewJob creates a queued job for a payload
func NewJob(payload JobPayload, timeout time.Duration) (*Job, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &Job{
		BaseEntity: shared.NewBaseEntity(),
		Method:     JobMethod,
		Queue:      JobQueue,
		Timeout:    timeout,
		Payload:    payload,
		Status:     JobStatusQueued,
	}, nil
}

// Start records that a worker picked the job up
func (j *Job) Start() error {
	if j.Status != JobStatusQueued {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot start job in status: "+j.Status.String())
	}
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// Complete marks the job as completed with the attached file
func (j *Job) Complete(fileID uuid.UUID) error {
	if !j.Status.CanTransitionTo(JobStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot complete from status: "+j.Status.String())
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.FileID = &fileID
	j.FinishedAt = &now
	j.UpdatedAt = now
	return nil
}

// Fail marks the job as failed with an error message
func (j *Job) Fail(errorMessage string) error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot fail a job that is already in terminal status: "+j.Status.String())
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errorMessage
	j.FinishedAt = &now
	j.UpdatedAt = now
	return nil
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}
