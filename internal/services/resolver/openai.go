package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/intent"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
)

const resolverSystemPrompt = `You extract date/time phrases from short scheduling requests.
Given the request text and the current time, return JSON of the form
{"phrases": [{"text": "<exact substring from the input>", "time": "<RFC3339 timestamp>"}]}.
Rules: prefer future-dated interpretations for phrases that could be past or
future; list phrases in the order they appear; copy "text" verbatim from the
input; return {"phrases": []} when no date/time phrase is present. Do not
treat bare durations (e.g. "2 hours") as times of day.`

// OpenAI is a fallback resolver that asks an LLM for phrase/time pairs when
// the rules engine finds nothing.
type OpenAI struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAI creates an OpenAI-backed resolver.
func NewOpenAI(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAI{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Resolve implements intent.Resolver.
func (p *OpenAI) Resolve(ctx context.Context, text string, now time.Time) ([]intent.Match, error) {
	userPrompt := fmt.Sprintf("Current time: %s\nRequest: %s", now.Format(time.RFC3339), text)

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(resolverSystemPrompt),
			openai.UserMessage(userPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.debugMode {
			p.logger.Debug("llm_resolver_error",
				zap.String("model", p.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return nil, fmt.Errorf("failed to resolve time phrases: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	content := resp.Choices[0].Message.Content

	if p.debugMode {
		p.logger.Debug("llm_resolver_response",
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseResolverResponse(content, text, now)
}

// parseResolverResponse maps the model's phrase list back onto the input
// text. Phrases the model invented (not present in the input) are dropped;
// positions come from the input, not the model.
func parseResolverResponse(content, text string, now time.Time) ([]intent.Match, error) {
	var payload struct {
		Phrases []struct {
			Text string `json:"text"`
			Time string `json:"time"`
		} `json:"phrases"`
	}

	raw := content
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end != -1 && end > start {
			raw = raw[start : end+1]
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse resolver response: %w", err)
		}
	}

	lowerText := strings.ToLower(text)
	var matches []intent.Match
	for _, phrase := range payload.Phrases {
		if phrase.Text == "" {
			continue
		}
		idx := strings.Index(lowerText, strings.ToLower(phrase.Text))
		if idx < 0 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, phrase.Time)
		if err != nil {
			continue
		}
		matches = append(matches, intent.Match{
			Text:  text[idx : idx+len(phrase.Text)],
			Index: idx,
			Time:  ts.In(now.Location()),
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Index < matches[j].Index })
	return matches, nil
}
