package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/NotJohn04/commitkeeper/internal/models"
)

const unitPattern = `(hours?|hrs?|minutes?|mins?)`

// durationPatterns are tried in fixed priority order; the first match wins.
var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bfor\s+(\d+(?:\.\d+)?)\s*` + unitPattern + `\b`),
	regexp.MustCompile(`(?i)\bin\s+(\d+(?:\.\d+)?)\s*` + unitPattern + `\b`),
	regexp.MustCompile(`(?i)\blasting\s+(\d+(?:\.\d+)?)\s*` + unitPattern + `\b`),
	regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*` + unitPattern + `(?:\s*(?:long|duration))?\b`),
}

// Duration extracts an explicit duration in minutes from text, or the
// default when no duration phrase is present. Hour counts convert to
// minutes; fractional counts are truncated. Never fails on malformed input.
func Duration(text string) int {
	for _, pattern := range durationPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		unit := strings.ToLower(m[2])
		if strings.HasPrefix(unit, "h") {
			return int(num * 60)
		}
		return int(num)
	}
	return models.DefaultDurationMinutes
}

// StripDurations removes every substring matching any duration pattern, so a
// downstream date resolver cannot misread "3 hours" as a time of day.
func StripDurations(text string) string {
	for _, pattern := range durationPatterns {
		text = pattern.ReplaceAllString(text, " ")
	}
	return text
}
