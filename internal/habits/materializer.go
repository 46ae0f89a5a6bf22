// Package habits turns recurring habit definitions into concrete
// commitments ahead of time.
package habits

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"go.uber.org/zap"
)

// Creator persists a materialized occurrence and schedules its jobs
type Creator interface {
	Create(ctx context.Context, c *models.Commitment) error
}

// Materializer periodically walks every habit and creates the commitments
// for its upcoming occurrences, so each occurrence gets the same reminder
// treatment as a hand-entered event
type Materializer struct {
	habits      database.HabitRepositoryInterface
	commitments database.CommitmentRepositoryInterface
	creator     Creator
	loc         *time.Location
	horizonDays int
	interval    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewMaterializer creates a materializer sweeping every interval and looking
// horizonDays ahead
func NewMaterializer(
	habits database.HabitRepositoryInterface,
	commitments database.CommitmentRepositoryInterface,
	creator Creator,
	loc *time.Location,
	horizonDays int,
	interval time.Duration,
	logger *zap.Logger,
) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Materializer{
		habits:      habits,
		commitments: commitments,
		creator:     creator,
		loc:         loc,
		horizonDays: horizonDays,
		interval:    interval,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the materializer's time source, used by tests
func (m *Materializer) WithClock(now func() time.Time) *Materializer {
	m.now = now
	return m
}

// Start runs the sweep loop until ctx is cancelled. One sweep runs
// immediately so a fresh deployment does not wait a full interval.
func (m *Materializer) Start(ctx context.Context) error {
	if err := m.Sweep(ctx); err != nil {
		m.logger.Warn("habit_sweep_error", zap.Error(err))
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.logger.Warn("habit_sweep_error", zap.Error(err))
			}
		}
	}
}

// Sweep materializes every due occurrence inside the horizon
func (m *Materializer) Sweep(ctx context.Context) error {
	habits, err := m.habits.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list habits: %w", err)
	}

	created := 0
	for _, h := range habits {
		n, err := m.materializeHabit(ctx, h)
		if err != nil {
			m.logger.Warn("habit_materialize_error",
				zap.String("habit_id", h.ID.String()),
				zap.Error(err))
			continue
		}
		created += n
	}

	if created > 0 {
		m.logger.Info("habits_materialized", zap.Int("count", created))
	}
	return nil
}

func (m *Materializer) materializeHabit(ctx context.Context, h *models.Habit) (int, error) {
	hour, minute, err := parseTimeOfDay(h.TimeOfDay)
	if err != nil {
		return 0, fmt.Errorf("habit %s has bad time_of_day %q: %w", h.ID, h.TimeOfDay, err)
	}

	now := m.now().In(m.loc)
	created := 0

	for day := 0; day < m.horizonDays; day++ {
		date := now.AddDate(0, 0, day)
		if !h.OccursOn(date.Weekday()) {
			continue
		}

		slot := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, m.loc)
		if !slot.After(now) {
			continue
		}

		exists, err := m.commitments.ExistsForHabitSlot(ctx, h.ID, slot)
		if err != nil {
			return created, fmt.Errorf("failed to check slot: %w", err)
		}
		if exists {
			continue
		}

		habitID := h.ID
		c := &models.Commitment{
			UserID:          h.UserID,
			Kind:            models.KindHabit,
			Description:     h.Description,
			ScheduledAt:     slot,
			DurationMinutes: h.DurationMinutes,
			HabitID:         &habitID,
		}
		if err := m.creator.Create(ctx, c); err != nil {
			return created, fmt.Errorf("failed to create occurrence: %w", err)
		}
		created++
	}

	return created, nil
}

func parseTimeOfDay(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour %q", parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute %q", parts[1])
	}
	return hour, minute, nil
}
