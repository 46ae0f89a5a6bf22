package validation

import (
	"testing"
)

func TestValidateKind(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"event", "task", "habit"} {
		if err := ValidateKind(valid); err != nil {
			t.Errorf("ValidateKind(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "reminder", "Event"} {
		if err := ValidateKind(invalid); err == nil {
			t.Errorf("ValidateKind(%q) expected error", invalid)
		}
	}
}

func TestValidateTerminalStatus(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"done", "missed", "cancelled"} {
		if err := ValidateTerminalStatus(valid); err != nil {
			t.Errorf("ValidateTerminalStatus(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"pending", "", "complete"} {
		if err := ValidateTerminalStatus(invalid); err == nil {
			t.Errorf("ValidateTerminalStatus(%q) expected error", invalid)
		}
	}
}

func TestValidateTimeOfDay(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"06:30", "0:00", "23:59"} {
		if err := ValidateTimeOfDay(valid); err != nil {
			t.Errorf("ValidateTimeOfDay(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"24:00", "12:60", "noon", "12", ""} {
		if err := ValidateTimeOfDay(invalid); err == nil {
			t.Errorf("ValidateTimeOfDay(%q) expected error", invalid)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  dinner  ", "dinner"},
		{"strips control characters", "din\x00ner", "dinner"},
		{"keeps newline and tab", "a\n\tb", "a\n\tb"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tc.input); got != tc.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestStructValidation(t *testing.T) {
	t.Parallel()

	type habitInput struct {
		Frequency string `validate:"habit_frequency"`
		TimeOfDay string `validate:"time_of_day"`
	}

	if err := Validate.Struct(habitInput{Frequency: "daily", TimeOfDay: "06:30"}); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}
	if err := Validate.Struct(habitInput{Frequency: "hourly", TimeOfDay: "06:30"}); err == nil {
		t.Error("bad frequency accepted")
	}
	if err := Validate.Struct(habitInput{Frequency: "monday,friday", TimeOfDay: "25:00"}); err == nil {
		t.Error("bad time_of_day accepted")
	}
}
