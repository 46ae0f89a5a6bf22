package intent

import (
	"context"
	"regexp"
	"time"
)

// Match is a date/time-bearing substring resolved to an absolute point in
// time. Index is the byte offset of Text within the searched string, so a
// slice of matches sorted by Index is in declared order.
type Match struct {
	Text  string
	Index int
	Time  time.Time
}

// Resolver locates natural-language date/time phrases in text relative to
// now, preferring future-dated resolutions for phrases that are ambiguous
// between past and future. Matches are returned in declared order.
type Resolver interface {
	Resolve(ctx context.Context, text string, now time.Time) ([]Match, error)
}

// Immediacy phrases bind to "now" directly and never reach the resolver.
// "right now" must be listed before "now" so the longer form wins.
var immediacyPattern = regexp.MustCompile(`(?i)\b(?:right\s+now|now|immediately)\b`)

func hasImmediacy(text string) bool {
	return immediacyPattern.MatchString(text)
}

func stripImmediacy(text string) string {
	return immediacyPattern.ReplaceAllString(text, " ")
}
