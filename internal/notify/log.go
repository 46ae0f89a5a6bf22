package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes prompts to the structured log instead of a chat channel,
// used when no webhook URL is configured
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink over the given logger
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Send logs the prompt
func (s *LogSink) Send(_ context.Context, prompt Prompt) error {
	s.logger.Info("prompt",
		zap.String("user_id", prompt.UserID),
		zap.String("text", prompt.Text),
		zap.Strings("options", prompt.Options))
	return nil
}

// EditLast logs the replacement text
func (s *LogSink) EditLast(_ context.Context, userID, text string) error {
	s.logger.Info("prompt_edit",
		zap.String("user_id", userID),
		zap.String("text", text))
	return nil
}

var _ Sink = (*LogSink)(nil)
