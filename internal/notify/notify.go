// Package notify delivers prompts and notices to users over an outbound
// channel such as a chat webhook.
package notify

import (
	"context"
)

// Prompt is a message pushed to a user, optionally with quick-reply options.
// Edit marks an update replacing the user's most recent prompt.
type Prompt struct {
	UserID  string   `json:"user_id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Edit    bool     `json:"edit,omitempty"`
}

// Sink sends prompts to users
type Sink interface {
	Send(ctx context.Context, prompt Prompt) error

	// EditLast rewrites the user's most recent prompt, dropping its options.
	// Used to report the final status once a commitment resolves.
	EditLast(ctx context.Context, userID, text string) error
}
