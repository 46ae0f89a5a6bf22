package scheduler

import (
	"context"
)

// MessageInterface defines the interface for queue messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// Scheduler is the interface for delayed job delivery
type Scheduler interface {
	// ScheduleAt publishes a job for delivery at its RunAt time.
	// Scheduling a job whose id is already registered is a no-op.
	ScheduleAt(ctx context.Context, job *Job) error

	// Cancel withdraws a scheduled job by id. The broker may still deliver
	// the message, but the worker will find the registration gone and
	// discard it. Cancelling an unknown id is not an error.
	Cancel(ctx context.Context, jobID string) error

	// Exists reports whether a job is scheduled and not yet fired or
	// cancelled.
	Exists(ctx context.Context, jobID string) (bool, error)

	// Consume returns a channel of due jobs from the queue
	// Messages are delivered asynchronously as they arrive
	// The caller is responsible for acknowledging each message
	// Prefetch controls how many unacknowledged messages each consumer can hold
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the underlying connection
	Close() error

	// HealthCheck verifies the broker connection is healthy
	HealthCheck(ctx context.Context) error
}
