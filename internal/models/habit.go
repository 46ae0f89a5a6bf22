package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FrequencyDaily selects every day of the week.
const FrequencyDaily = "daily"

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Habit is a recurring commitment definition. The worker materializes it into
// concrete Habit-kind commitments ahead of time.
type Habit struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"user_id"`
	Description     string    `json:"description"`
	Frequency       string    `json:"frequency"`   // "daily" or comma-separated weekday names
	TimeOfDay       string    `json:"time_of_day"` // HH:MM, in the user's timezone
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}

// OccursOn reports whether the habit recurs on the given weekday.
func (h *Habit) OccursOn(day time.Weekday) bool {
	for _, freq := range strings.Split(h.Frequency, ",") {
		freq = strings.ToLower(strings.TrimSpace(freq))
		if freq == FrequencyDaily {
			return true
		}
		if wd, ok := weekdayNames[freq]; ok && wd == day {
			return true
		}
	}
	return false
}

// ValidFrequency reports whether every comma-separated part of freq is
// "daily" or a full weekday name.
func ValidFrequency(freq string) bool {
	parts := strings.Split(freq, ",")
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == FrequencyDaily {
			continue
		}
		if _, ok := weekdayNames[p]; !ok {
			return false
		}
	}
	return true
}
