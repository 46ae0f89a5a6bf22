package resolver

import (
	"context"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/intent"
)

// Chain tries each resolver in order and returns the first non-empty match
// set. A failing resolver is skipped; its error is only surfaced when every
// resolver comes up empty.
type Chain struct {
	resolvers []intent.Resolver
}

// NewChain creates a chain over the given resolvers.
func NewChain(resolvers ...intent.Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Resolve implements intent.Resolver.
func (c *Chain) Resolve(ctx context.Context, text string, now time.Time) ([]intent.Match, error) {
	var firstErr error
	for _, r := range c.resolvers {
		matches, err := r.Resolve(ctx, text, now)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}
	return nil, firstErr
}
