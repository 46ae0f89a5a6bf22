package lifecycle

import "errors"

var (
	// ErrPersistenceFailed indicates the commitment could not be written to
	// the ledger; nothing was scheduled
	ErrPersistenceFailed = errors.New("failed to persist commitment")

	// ErrSchedulingFailed indicates the commitment was persisted but its
	// reminder jobs could not be enqueued. The creation still succeeds; the
	// commitment stays pending without reminders and the failure is logged.
	ErrSchedulingFailed = errors.New("failed to schedule commitment jobs")

	// ErrNotFound indicates no commitment exists for the given id
	ErrNotFound = errors.New("commitment not found")

	// ErrAlreadyResolved indicates the commitment already reached a terminal
	// status; the first resolution stands
	ErrAlreadyResolved = errors.New("commitment already resolved")

	// ErrInvalidStatus indicates a resolution was attempted with a
	// non-terminal status
	ErrInvalidStatus = errors.New("resolution status must be terminal")

	// ErrScheduledInPast indicates a task deadline that has already passed
	ErrScheduledInPast = errors.New("task deadline is in the past")
)
