package intent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// stopwords are imperative verbs that leak into the description from
// phrasing like "schedule dinner with family tomorrow".
var stopwordPattern = regexp.MustCompile(`(?i)\b(?:set|schedule)\b`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Result is the outcome of extracting a commitment intent from free text.
// When and DurationMinutes are always set; Description may be empty only
// when Ambiguous is true.
type Result struct {
	Description     string
	When            time.Time
	DurationMinutes int
	Ambiguous       bool
}

// Extractor turns free-form text into a description/time/duration triple
// with an ambiguity verdict. Date phrase resolution is delegated to the
// Resolver; duration and immediacy phrases are handled directly.
type Extractor struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewExtractor creates an extractor backed by the given resolver.
func NewExtractor(resolver Resolver, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{resolver: resolver, logger: logger}
}

// Extract parses text relative to now. It is total: resolver failures
// degrade to "no time phrase found" rather than an error, and the result
// always carries a defined time (defaulting to now) and duration.
func (e *Extractor) Extract(ctx context.Context, text string, now time.Time) Result {
	result := Result{
		When:            now,
		DurationMinutes: Duration(text),
	}

	// Durations are stripped before date resolution so "3 hours" is never
	// misread as a time of day.
	working := StripDurations(text)

	if hasImmediacy(working) {
		working = stripImmediacy(working)
	} else {
		matches, err := e.resolver.Resolve(ctx, working, now)
		if err != nil {
			e.logger.Debug("temporal_resolver_failed", zap.Error(err))
			matches = nil
		}

		var future []Match
		for _, m := range matches {
			if m.Time.After(now) {
				future = append(future, m)
			}
		}

		switch {
		case len(future) > 0:
			// Earliest-declared future phrase wins. More than one future
			// candidate needs human confirmation.
			winner := future[0]
			result.When = winner.Time
			if len(future) > 1 {
				result.Ambiguous = true
			}
			working = removePhrase(working, winner.Text)
		case len(matches) > 0:
			// Every phrase resolved to the past; very likely a misparse.
			winner := matches[0]
			result.When = winner.Time
			result.Ambiguous = true
			working = removePhrase(working, winner.Text)
		default:
			result.Ambiguous = true
		}
	}

	result.Description = cleanDescription(working)
	if len(strings.Fields(result.Description)) < 2 {
		result.Ambiguous = true
	}

	return result
}

// removePhrase removes the first case-insensitive occurrence of phrase.
func removePhrase(text, phrase string) string {
	if phrase == "" {
		return text
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(phrase))
	if idx < 0 {
		return text
	}
	return text[:idx] + " " + text[idx+len(phrase):]
}

func cleanDescription(text string) string {
	text = stopwordPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, ".,")
	return strings.TrimSpace(text)
}
