// Package lifecycle drives commitments from creation through resolution,
// owning the persist-before-schedule ordering and the per-kind reminder
// policy.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/NotJohn04/commitkeeper/internal/notify"
	"github.com/NotJohn04/commitkeeper/internal/scheduler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultGrace is how long after the outcome check an event or habit
	// stays answerable before being marked missed
	DefaultGrace = 60 * time.Minute

	// DefaultTaskLead is how far before a task deadline the reminder fires
	DefaultTaskLead = 30 * time.Minute
)

// kindPolicy describes which jobs a commitment kind gets
type kindPolicy struct {
	checkAtEnd bool // outcome prompt at scheduled_at + duration
	autoExpire bool // missed after check + grace with no answer
	remindLead bool // nudge at scheduled_at - lead
}

// policies maps each kind to its reminder behavior. Events and habits get an
// outcome check when their window closes and expire if unanswered; tasks get
// an advance nudge and never expire on their own.
var policies = map[models.Kind]kindPolicy{
	models.KindEvent: {checkAtEnd: true, autoExpire: true},
	models.KindHabit: {checkAtEnd: true, autoExpire: true},
	models.KindTask:  {remindLead: true},
}

// Engine owns commitment creation and resolution
type Engine struct {
	commitments database.CommitmentRepositoryInterface
	sched       scheduler.Scheduler
	sink        notify.Sink
	logger      *zap.Logger
	now         func() time.Time
	grace       time.Duration
	taskLead    time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the engine's time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithGrace overrides the auto-expiry grace period
func WithGrace(grace time.Duration) Option {
	return func(e *Engine) { e.grace = grace }
}

// WithTaskLead overrides the task reminder lead time
func WithTaskLead(lead time.Duration) Option {
	return func(e *Engine) { e.taskLead = lead }
}

// NewEngine creates a lifecycle engine
func NewEngine(commitments database.CommitmentRepositoryInterface, sched scheduler.Scheduler, sink notify.Sink, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		commitments: commitments,
		sched:       sched,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
		grace:       DefaultGrace,
		taskLead:    DefaultTaskLead,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create persists a new commitment and schedules its reminder jobs. The
// write happens before any scheduling so a broker failure can never leave a
// job pointing at a commitment that does not exist.
func (e *Engine) Create(ctx context.Context, c *models.Commitment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.DurationMinutes <= 0 {
		c.DurationMinutes = models.DefaultDurationMinutes
	}
	c.Status = models.StatusPending

	if c.Kind == models.KindTask && c.ScheduledAt.Before(e.now()) {
		return ErrScheduledInPast
	}

	if err := e.commitments.Create(ctx, c); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// The ledger write stands even when the broker is down. The commitment
	// stays pending without reminders rather than failing the create, and a
	// retried create would duplicate the row.
	if err := e.scheduleJobs(ctx, c); err != nil {
		e.logger.Error("commitment_scheduling_degraded",
			zap.String("commitment_id", c.ID.String()),
			zap.Error(err))
	}

	e.logger.Info("commitment_created",
		zap.String("commitment_id", c.ID.String()),
		zap.String("kind", string(c.Kind)),
		zap.Time("scheduled_at", c.ScheduledAt),
		zap.Int("duration_minutes", c.DurationMinutes))

	return nil
}

func (e *Engine) scheduleJobs(ctx context.Context, c *models.Commitment) error {
	policy := policies[c.Kind]

	if policy.checkAtEnd {
		checkAt := c.End()
		check := scheduler.NewJob(scheduler.JobKindCheck, c.ID, c.UserID, checkAt)
		if err := e.sched.ScheduleAt(ctx, check); err != nil {
			return fmt.Errorf("%w: check: %v", ErrSchedulingFailed, err)
		}

		if policy.autoExpire {
			expire := scheduler.NewJob(scheduler.JobKindExpire, c.ID, c.UserID, checkAt.Add(e.grace))
			if err := e.sched.ScheduleAt(ctx, expire); err != nil {
				return fmt.Errorf("%w: expire: %v", ErrSchedulingFailed, err)
			}
		}
	}

	if policy.remindLead {
		remindAt := c.ScheduledAt.Add(-e.taskLead)
		if remindAt.Before(e.now()) {
			remindAt = e.now()
		}
		remind := scheduler.NewJob(scheduler.JobKindRemind, c.ID, c.UserID, remindAt)
		if err := e.sched.ScheduleAt(ctx, remind); err != nil {
			return fmt.Errorf("%w: remind: %v", ErrSchedulingFailed, err)
		}
	}

	return nil
}

// Resolve moves a pending commitment to a terminal status and withdraws its
// outstanding jobs. Returns ErrNotFound or ErrAlreadyResolved when the
// transition cannot happen; the first resolution always wins.
func (e *Engine) Resolve(ctx context.Context, id uuid.UUID, status models.Status) (*models.Commitment, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	err := e.commitments.MarkResolved(ctx, id, status, e.now())
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, database.ErrAlreadyResolved):
		return nil, ErrAlreadyResolved
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	e.cancelJobs(ctx, id)

	c, err := e.commitments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	e.logger.Info("commitment_resolved",
		zap.String("commitment_id", id.String()),
		zap.String("status", string(status)))

	// Best effort. The prompt the user answered gets rewritten with the
	// final status so its buttons stop inviting a second answer.
	if err := e.sink.EditLast(ctx, c.UserID, fmt.Sprintf("%q marked %s.", c.Description, status)); err != nil {
		e.logger.Warn("prompt_edit_failed",
			zap.String("commitment_id", id.String()),
			zap.Error(err))
	}

	return c, nil
}

// cancelJobs withdraws every job the commitment could still have. Cancelling
// an id that was never scheduled is harmless.
func (e *Engine) cancelJobs(ctx context.Context, id uuid.UUID) {
	for _, kind := range []scheduler.JobKind{scheduler.JobKindCheck, scheduler.JobKindExpire, scheduler.JobKindRemind} {
		if err := e.sched.Cancel(ctx, scheduler.JobID(kind, id)); err != nil {
			e.logger.Warn("job_cancel_failed",
				zap.String("commitment_id", id.String()),
				zap.String("job_kind", string(kind)),
				zap.Error(err))
		}
	}
}

// HandleJob processes a due job delivered by the worker
func (e *Engine) HandleJob(ctx context.Context, job *scheduler.Job) error {
	switch job.Kind {
	case scheduler.JobKindCheck:
		return e.handleCheck(ctx, job)
	case scheduler.JobKindExpire:
		return e.handleExpire(ctx, job)
	case scheduler.JobKindRemind:
		return e.handleRemind(ctx, job)
	default:
		return fmt.Errorf("unknown job kind: %s", job.Kind)
	}
}

func (e *Engine) handleCheck(ctx context.Context, job *scheduler.Job) error {
	c, err := e.commitments.GetByID(ctx, job.CommitmentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load commitment: %w", err)
	}
	if c.Status != models.StatusPending {
		return nil
	}

	return e.sink.Send(ctx, notify.Prompt{
		UserID:  c.UserID,
		Text:    fmt.Sprintf("Did %q happen?", c.Description),
		Options: []string{"Done", "Missed"},
	})
}

func (e *Engine) handleExpire(ctx context.Context, job *scheduler.Job) error {
	err := e.commitments.MarkResolved(ctx, job.CommitmentID, models.StatusMissed, e.now())
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrAlreadyResolved) {
		// Answered or removed before the grace period ran out
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to expire commitment: %w", err)
	}

	e.logger.Info("commitment_expired",
		zap.String("commitment_id", job.CommitmentID.String()))

	// An undelivered check for the same commitment may still be registered.
	e.cancelJobs(ctx, job.CommitmentID)

	c, err := e.commitments.GetByID(ctx, job.CommitmentID)
	if err != nil {
		return fmt.Errorf("failed to load commitment: %w", err)
	}

	return e.sink.EditLast(ctx, c.UserID,
		fmt.Sprintf("No answer in time, so %q was marked as missed.", c.Description))
}

func (e *Engine) handleRemind(ctx context.Context, job *scheduler.Job) error {
	c, err := e.commitments.GetByID(ctx, job.CommitmentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load commitment: %w", err)
	}
	if c.Status != models.StatusPending {
		return nil
	}

	return e.sink.Send(ctx, notify.Prompt{
		UserID:  c.UserID,
		Text:    fmt.Sprintf("Heads up: %q is due at %s.", c.Description, c.ScheduledAt.Format("15:04")),
		Options: []string{"Done", "Not yet"},
	})
}
