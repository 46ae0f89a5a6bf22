// Package workers consumes due scheduler jobs and feeds them to the
// lifecycle engine.
package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/NotJohn04/commitkeeper/internal/scheduler"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

// JobHandler processes a single due job
type JobHandler interface {
	HandleJob(ctx context.Context, job *scheduler.Job) error
}

// Dispatcher pulls due jobs off the queue and dispatches them to the
// lifecycle engine, retrying transient failures before dead-lettering
type Dispatcher struct {
	sched       scheduler.Scheduler
	handler     JobHandler
	logger      *zap.Logger
	maxAttempts int

	mu       sync.Mutex
	attempts map[string]int
}

// NewDispatcher creates a dispatcher over the given scheduler and handler
func NewDispatcher(sched scheduler.Scheduler, handler JobHandler, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sched:       sched,
		handler:     handler,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		attempts:    make(map[string]int),
	}
}

// Run consumes jobs until ctx is cancelled or the delivery stream breaks
func (d *Dispatcher) Run(ctx context.Context, prefetch int) error {
	msgs, errs, err := d.sched.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case consumeErr, ok := <-errs:
			if !ok {
				return nil
			}
			if consumeErr != nil {
				d.logger.Error("consumer_error", zap.Error(consumeErr))
			}
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			d.Process(ctx, msg)
		}
	}
}

// Process handles a single delivery, acknowledging or retrying it
func (d *Dispatcher) Process(ctx context.Context, msg scheduler.MessageInterface) {
	job := msg.GetJob()

	err := d.handler.HandleJob(ctx, job)
	if err == nil {
		d.clearAttempts(job.ID)
		if ackErr := msg.Ack(); ackErr != nil {
			d.logger.Warn("job_ack_failed",
				zap.String("job_id", job.ID),
				zap.Error(ackErr))
		}
		return
	}

	attempt := d.recordAttempt(job.ID)
	if attempt < d.maxAttempts {
		d.logger.Warn("job_failed_will_retry",
			zap.String("job_id", job.ID),
			zap.String("job_kind", string(job.Kind)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		// The delivery consumed the job's registration, so a plain requeue
		// would be dropped as cancelled. Re-scheduling registers it again
		// and publishes a fresh message.
		if schedErr := d.sched.ScheduleAt(ctx, job); schedErr != nil {
			d.logger.Error("job_reschedule_failed",
				zap.String("job_id", job.ID),
				zap.Error(schedErr))
			if nackErr := msg.Nack(true); nackErr != nil {
				d.logger.Warn("job_nack_failed",
					zap.String("job_id", job.ID),
					zap.Error(nackErr))
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			d.logger.Warn("job_ack_failed",
				zap.String("job_id", job.ID),
				zap.Error(ackErr))
		}
		return
	}

	d.clearAttempts(job.ID)
	d.logger.Error("job_failed_dead_lettering",
		zap.String("job_id", job.ID),
		zap.String("job_kind", string(job.Kind)),
		zap.Int("attempts", attempt),
		zap.Error(err))
	if nackErr := msg.Nack(false); nackErr != nil {
		d.logger.Warn("job_nack_failed",
			zap.String("job_id", job.ID),
			zap.Error(nackErr))
	}
}

func (d *Dispatcher) recordAttempt(jobID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts[jobID]++
	return d.attempts[jobID]
}

func (d *Dispatcher) clearAttempts(jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.attempts, jobID)
}
