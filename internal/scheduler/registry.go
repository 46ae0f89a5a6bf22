package scheduler

import (
	"context"
	"sync"
	"time"
)

// JobRegistry tracks which scheduled jobs are still wanted. Delayed messages
// cannot be recalled from the broker once published, so cancellation works by
// removing the registration: the worker acquires a job's registration before
// dispatching it and drops deliveries whose registration is gone.
type JobRegistry interface {
	// Register records a job id. Returns false if the id is already
	// registered, which makes repeated scheduling of the same job a no-op.
	Register(ctx context.Context, jobID string, ttl time.Duration) (bool, error)

	// Acquire consumes a registration. Returns false if the id was never
	// registered or has been cancelled.
	Acquire(ctx context.Context, jobID string) (bool, error)

	// Remove drops a registration, cancelling the job. Removing an unknown
	// id is not an error.
	Remove(ctx context.Context, jobID string) error

	// Exists reports whether a job id is still registered, without
	// consuming it.
	Exists(ctx context.Context, jobID string) (bool, error)
}

// MemoryRegistry is an in-process JobRegistry used by tests and single-node
// deployments
type MemoryRegistry struct {
	mu   sync.Mutex
	jobs map[string]time.Time
}

// NewMemoryRegistry creates an empty in-memory registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]time.Time)}
}

// Register records a job id with an expiry deadline
func (r *MemoryRegistry) Register(_ context.Context, jobID string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deadline, ok := r.jobs[jobID]; ok && time.Now().Before(deadline) {
		return false, nil
	}
	r.jobs[jobID] = time.Now().Add(ttl)
	return true, nil
}

// Acquire consumes a registration if present and unexpired
func (r *MemoryRegistry) Acquire(_ context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deadline, ok := r.jobs[jobID]
	if !ok {
		return false, nil
	}
	delete(r.jobs, jobID)
	if time.Now().After(deadline) {
		return false, nil
	}
	return true, nil
}

// Remove drops a registration
func (r *MemoryRegistry) Remove(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, jobID)
	return nil
}

// Exists reports whether a registration is present and unexpired
func (r *MemoryRegistry) Exists(_ context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deadline, ok := r.jobs[jobID]
	return ok && time.Now().Before(deadline), nil
}

var _ JobRegistry = (*MemoryRegistry)(nil)
