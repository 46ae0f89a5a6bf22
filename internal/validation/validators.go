package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("commitment_kind", validateKind); err != nil {
		panic(fmt.Sprintf("failed to register commitment_kind validator: %v", err))
	}
	if err := Validate.RegisterValidation("terminal_status", validateTerminalStatus); err != nil {
		panic(fmt.Sprintf("failed to register terminal_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("habit_frequency", validateFrequency); err != nil {
		panic(fmt.Sprintf("failed to register habit_frequency validator: %v", err))
	}
	if err := Validate.RegisterValidation("time_of_day", validateTimeOfDay); err != nil {
		panic(fmt.Sprintf("failed to register time_of_day validator: %v", err))
	}
}

// validateKind validates that a string is a valid Kind enum value
func validateKind(fl validator.FieldLevel) bool {
	switch models.Kind(fl.Field().String()) {
	case models.KindEvent, models.KindTask, models.KindHabit:
		return true
	default:
		return false
	}
}

// validateTerminalStatus validates that a string is a status a user may
// resolve a commitment to
func validateTerminalStatus(fl validator.FieldLevel) bool {
	return models.Status(fl.Field().String()).IsTerminal()
}

// validateFrequency validates a habit frequency expression
func validateFrequency(fl validator.FieldLevel) bool {
	return models.ValidFrequency(fl.Field().String())
}

// validateTimeOfDay validates an HH:MM clock value
func validateTimeOfDay(fl validator.FieldLevel) bool {
	return ValidateTimeOfDay(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateKind validates a Kind string value
func ValidateKind(value string) error {
	switch models.Kind(value) {
	case models.KindEvent, models.KindTask, models.KindHabit:
		return nil
	default:
		return fmt.Errorf("invalid kind: %s (must be 'event', 'task', or 'habit')", value)
	}
}

// ValidateTerminalStatus validates a terminal Status string value
func ValidateTerminalStatus(value string) error {
	if !models.Status(value).IsTerminal() {
		return fmt.Errorf("invalid status: %s (must be 'done', 'missed', or 'cancelled')", value)
	}
	return nil
}

// ValidateTimeOfDay validates an HH:MM clock value
func ValidateTimeOfDay(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid time_of_day: %s (must be HH:MM)", value)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("invalid time_of_day: %s (must be HH:MM)", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid time_of_day: %s (hour 0-23, minute 0-59)", value)
	}
	return nil
}
