package resolver

import (
	"context"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/intent"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// maxMatches bounds the scan; a single request rarely carries more than a
// couple of time phrases, and each extra match only widens ambiguity.
const maxMatches = 4

// Rules resolves natural-language date/time phrases with the olebedev/when
// rule engine. The engine returns one match per pass, so Resolve walks the
// text collecting matches in declared order.
type Rules struct {
	parser *when.Parser
}

// NewRules creates a rules resolver with the English and common rule sets.
func NewRules() *Rules {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Rules{parser: w}
}

// Resolve implements intent.Resolver.
func (r *Rules) Resolve(_ context.Context, text string, now time.Time) ([]intent.Match, error) {
	var matches []intent.Match
	offset := 0
	remaining := text

	for len(matches) < maxMatches {
		res, err := r.parser.Parse(remaining, now)
		if err != nil {
			return matches, err
		}
		if res == nil {
			break
		}

		matches = append(matches, intent.Match{
			Text:  res.Text,
			Index: offset + res.Index,
			Time:  res.Time,
		})

		cut := res.Index + len(res.Text)
		if cut >= len(remaining) {
			break
		}
		offset += cut
		remaining = remaining[cut:]
	}

	return matches, nil
}
