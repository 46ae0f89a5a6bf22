package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobKind represents the type of scheduled job
type JobKind string

const (
	// JobKindCheck asks the user whether an event or habit happened, fired
	// when the commitment's window ends
	JobKindCheck JobKind = "check"
	// JobKindExpire marks an unanswered event or habit as missed after the
	// grace period runs out
	JobKindExpire JobKind = "expire"
	// JobKindRemind nudges the user ahead of a task deadline
	JobKindRemind JobKind = "remind"
)

// JobID derives the identifier for a job from its kind and commitment.
// The same commitment always yields the same id, so a retried schedule
// call cannot produce a second copy of the job.
func JobID(kind JobKind, commitmentID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", kind, commitmentID)
}

// Job represents a time-delayed unit of work against a single commitment
type Job struct {
	ID           string    `json:"id"`
	Kind         JobKind   `json:"kind"`
	CommitmentID uuid.UUID `json:"commitment_id"`
	UserID       string    `json:"user_id"`
	RunAt        time.Time `json:"run_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewJob creates a job with its deterministic id
func NewJob(kind JobKind, commitmentID uuid.UUID, userID string, runAt time.Time) *Job {
	return &Job{
		ID:           JobID(kind, commitmentID),
		Kind:         kind,
		CommitmentID: commitmentID,
		UserID:       userID,
		RunAt:        runAt,
		CreatedAt:    time.Now(),
	}
}

// Due reports whether the job's fire time has arrived
func (j *Job) Due(now time.Time) bool {
	return !now.Before(j.RunAt)
}
