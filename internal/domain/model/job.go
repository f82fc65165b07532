package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType represents the type of deferred work a job carries.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current lifecycle state of a job.
type JobStatus string

const (
	// JobTypeNotification represents a post-publication notification job.
	JobTypeNotification JobType = "notification"

	// JobStatusPending indicates a job is waiting to be reserved by a worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a job is held under an active lease.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job was acknowledged successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusDead indicates a job exhausted its attempt budget and is
	// parked for operator inspection.
	JobStatusDead JobStatus = "dead"
)

// ErrNoJobsAvailable is returned when no jobs are eligible for reservation.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeNotification
}

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := JobType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobType: %q", v)
	}
	*t = v
	return nil
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusRunning ||
		s == JobStatusCompleted || s == JobStatusDead
}

// Job is a durable unit of deferred work referencing a post by identifier.
// Workers must re-fetch the post rather than trusting any snapshot taken at
// enqueue time.
type Job struct {
	ID             string     `json:"id"                         db:"id"`
	Type           JobType    `json:"type"                       db:"type"`
	Status         JobStatus  `json:"status"                     db:"status"`
	PostID         string     `json:"post_id"                    db:"post_id"`
	EnqueuedAt     time.Time  `json:"enqueued_at"                db:"enqueued_at"`
	ScheduledAt    time.Time  `json:"scheduled_at"               db:"scheduled_at"`
	AttemptCount   int        `json:"attempt_count"              db:"attempt_count"`
	MaxAttempts    int        `json:"max_attempts"               db:"max_attempts"`
	LastError      *string    `json:"last_error,omitempty"       db:"last_error"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"     db:"completed_at"`
	UpdatedAt      time.Time  `json:"updated_at"                 db:"updated_at"`
}

// EnqueueJobRequest represents a request to enqueue a job.
type EnqueueJobRequest struct {
	Type        JobType    `json:"type"`
	PostID      string     `json:"post_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	MaxAttempts int        `json:"max_attempts"`
}

// DefaultMaxAttempts is the attempt budget applied when a request does not set one.
const DefaultMaxAttempts = 3

// Validate validates the EnqueueJobRequest fields.
func (r *EnqueueJobRequest) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("invalid job type: %q", r.Type)
	}
	if strings.TrimSpace(r.PostID) == "" {
		return errors.New("post id is required")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// JobStats represents counts of jobs in each lifecycle state.
type JobStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Dead      int `json:"dead"`
}
