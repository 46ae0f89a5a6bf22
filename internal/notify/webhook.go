package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const webhookTimeout = 10 * time.Second

// WebhookSink posts prompts as JSON to a chat platform webhook
type WebhookSink struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookSink creates a sink posting to the given webhook URL
func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
	}
}

// Send posts the prompt to the webhook
func (s *WebhookSink) Send(ctx context.Context, prompt Prompt) error {
	body, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("failed to marshal prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debug("prompt_sent",
		zap.String("user_id", prompt.UserID),
		zap.Int("option_count", len(prompt.Options)))

	return nil
}

// EditLast posts an edit marker; the webhook receiver replaces the user's
// most recent message with the new text.
func (s *WebhookSink) EditLast(ctx context.Context, userID, text string) error {
	return s.Send(ctx, Prompt{UserID: userID, Text: text, Edit: true})
}

var _ Sink = (*WebhookSink)(nil)
