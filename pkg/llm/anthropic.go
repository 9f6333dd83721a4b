package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
	"github.com/malbeclabs/finagent/pkg/metrics"
)

const (
	DefaultModel       = anthropic.ModelClaudeSonnet4_5_20250929
	DefaultMaxTokens   = 2048
	DefaultMaxAttempts = 4
)

type AnthropicConfig struct {
	Logger    *slog.Logger
	APIKey    string
	BaseURL   string
	Model     anthropic.Model
	MaxTokens int64

	// Transport-level attempts for transient API failures (rate limits, overload, 5xx).
	MaxAttempts          uint
	RetryInitialInterval time.Duration
}

func (cfg *AnthropicConfig) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	return nil
}

// AnthropicClient implements Client using the Anthropic messages API. Structured
// replies are obtained by forcing a single tool whose input schema is the shape.
type AnthropicClient struct {
	log    *slog.Logger
	cfg    AnthropicConfig
	client anthropic.Client
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate anthropic config: %w", err)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		log:    cfg.Logger,
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}, nil
}

func (c *AnthropicClient) Complete(ctx context.Context, system string, conversation []Message) (string, error) {
	msg, err := c.send(ctx, "complete", c.params(system, conversation))
	if err != nil {
		return "", err
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return strings.Join(parts, "\n"), nil
}

func (c *AnthropicClient) CompleteStructured(ctx context.Context, system string, conversation []Message, shape Shape) (json.RawMessage, error) {
	tool := anthropic.ToolParam{
		Name:        shape.Name,
		Description: anthropic.Opt(shape.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type: "object",
		},
	}
	if shape.Schema != nil {
		tool.InputSchema.Properties = shape.Schema.Properties
		tool.InputSchema.Required = shape.Schema.Required
	}

	params := c.params(system, conversation)
	params.Tools = []anthropic.ToolUnionParam{{OfTool: &tool}}
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: shape.Name},
	}

	msg, err := c.send(ctx, shape.Name, params)
	if err != nil {
		return nil, err
	}
	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == shape.Name {
			return block.Input, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: no tool_use block in response (stop reason %q)", ErrMalformedOutput, shape.Name, msg.StopReason)
}

func (c *AnthropicClient) params(system string, conversation []Message) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  toAnthropicMessages(conversation),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

func (c *AnthropicClient) send(ctx context.Context, kind string, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	start := time.Now()
	c.log.Debug("llm: request starting", "kind", kind, "model", c.cfg.Model, "messages", len(params.Messages))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitialInterval

	msg, err := backoff.Retry(ctx, func() (*anthropic.Message, error) {
		msg, err := c.client.Messages.New(ctx, params)
		if err != nil {
			if isTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return msg, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn("llm: transient failure, retrying", "kind", kind, "error", err, "retry_in", next)
		}),
	)

	duration := time.Since(start)
	metrics.LLMRequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(kind, "error").Inc()
		c.log.Error("llm: request failed", "kind", kind, "duration", duration, "error", err)
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}
	metrics.LLMRequestsTotal.WithLabelValues(kind, "ok").Inc()
	c.log.Debug("llm: request completed", "kind", kind, "duration", duration, "stop_reason", msg.StopReason,
		"input_tokens", msg.Usage.InputTokens, "output_tokens", msg.Usage.OutputTokens)
	return msg, nil
}

func isTransient(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode >= http.StatusInternalServerError:
			return true
		}
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// toAnthropicMessages maps the conversation onto the API's alternating turns: leading
// assistant turns are dropped and consecutive turns of the same role are merged.
func toAnthropicMessages(conversation []Message) []anthropic.MessageParam {
	var merged []Message
	for _, m := range conversation {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if len(merged) == 0 && m.Role != RoleUser {
			continue
		}
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content += "\n\n" + m.Content
			continue
		}
		merged = append(merged, m)
	}

	out := make([]anthropic.MessageParam, 0, len(merged))
	for _, m := range merged {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
