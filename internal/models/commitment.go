package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind represents the kind of commitment being tracked
type Kind string

const (
	KindEvent Kind = "event"
	KindTask  Kind = "task"
	KindHabit Kind = "habit"
)

// Status represents the status of a commitment. Pending is the only
// non-terminal status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusMissed    Status = "missed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusMissed || s == StatusCancelled
}

// DefaultDurationMinutes is applied when no duration was supplied or parsed.
const DefaultDurationMinutes = 60

// Commitment is the unit of work tracked by the system: an event, task or
// habit occurrence with a scheduled time and a lifecycle status.
type Commitment struct {
	ID              uuid.UUID  `json:"id"`
	UserID          string     `json:"user_id"`
	Kind            Kind       `json:"kind"`
	Description     string     `json:"description"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          Status     `json:"status"`
	HabitID         *uuid.UUID `json:"habit_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// End returns the moment the commitment's time window closes. For tasks this
// is the due time itself.
func (c *Commitment) End() time.Time {
	if c.Kind == KindTask {
		return c.ScheduledAt
	}
	return c.ScheduledAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// Draft is a candidate commitment awaiting user confirmation. It carries the
// extractor's ambiguity verdict so callers can phrase the confirmation prompt
// accordingly.
type Draft struct {
	UserID          string    `json:"user_id"`
	Kind            Kind      `json:"kind"`
	Description     string    `json:"description"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Ambiguous       bool      `json:"ambiguous"`
	CreatedAt       time.Time `json:"created_at"`
}

// DescriptionTokens returns the number of whitespace-delimited tokens in the
// description. Descriptions under two tokens are not trusted.
func (d *Draft) DescriptionTokens() int {
	return len(strings.Fields(d.Description))
}
