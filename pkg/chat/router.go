// Package chat routes user messages to the right responder: a polite decline for
// off-topic messages, a general finance answer, or a lookup in the user's own records.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/malbeclabs/finagent/pkg/llm"
	"github.com/malbeclabs/finagent/pkg/metrics"
	"github.com/malbeclabs/finagent/pkg/pipeline"
)

// FallbackAnswer is sent when a records lookup could not produce an acceptable query.
const FallbackAnswer = "Sorry, I couldn't retrieve that from your records. Please try rephrasing your question."

const DefaultMaxHistoryMessages = 20

type QueryRunner interface {
	Run(ctx context.Context, q pipeline.Question) (*pipeline.Outcome, error)
}

type SchemaSource interface {
	IntrospectSchema(ctx context.Context) (string, error)
}

type Config struct {
	Logger  *slog.Logger
	LLM     llm.Client
	Queries QueryRunner
	Schema  SchemaSource
	Prompts *Prompts

	// Most recent messages sent to the generation service with each request.
	MaxHistoryMessages int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.LLM == nil {
		return fmt.Errorf("llm client is required")
	}
	if cfg.Queries == nil {
		return fmt.Errorf("query runner is required")
	}
	if cfg.Schema == nil {
		return fmt.Errorf("schema source is required")
	}
	if cfg.Prompts == nil {
		prompts, err := LoadPrompts()
		if err != nil {
			return err
		}
		cfg.Prompts = prompts
	}
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = DefaultMaxHistoryMessages
	}
	return nil
}

type Reply struct {
	Text      string
	Route     Route
	ToolError bool
	Attempts  []pipeline.Attempt
}

type Router struct {
	log        *slog.Logger
	cfg        Config
	classifier *Classifier
	responder  *Responder
}

func NewRouter(cfg Config) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate router config: %w", err)
	}
	return &Router{
		log:        cfg.Logger,
		cfg:        cfg,
		classifier: NewClassifier(cfg.Logger, cfg.LLM, cfg.Prompts),
		responder:  NewResponder(cfg.LLM, cfg.Prompts),
	}, nil
}

// Reply appends message to the conversation, answers it on behalf of tenantID and
// appends the answer. On error the conversation is left as it was.
func (r *Router) Reply(ctx context.Context, tenantID int64, conv *Conversation, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, fmt.Errorf("message is empty")
	}

	conv.turn.Lock()
	defer conv.turn.Unlock()

	before := conv.Len()
	conv.Append(llm.UserMessage(message))

	reply, err := r.reply(ctx, tenantID, conv.Recent(r.cfg.MaxHistoryMessages), message)
	if err != nil {
		conv.truncate(before)
		return Reply{}, err
	}

	conv.Append(llm.AssistantMessage(reply.Text))
	return reply, nil
}

func (r *Router) reply(ctx context.Context, tenantID int64, history []llm.Message, message string) (Reply, error) {
	schema, err := r.cfg.Schema.IntrospectSchema(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to introspect schema: %w", err)
	}

	route, err := r.classifier.Classify(ctx, schema, history)
	if err != nil {
		return Reply{}, err
	}
	metrics.ChatRoutesTotal.WithLabelValues(string(route)).Inc()
	r.log.Info("chat: routing message", "route", route, "user_id", tenantID)

	reply := Reply{Route: route}
	switch route {
	case RouteInvalidTopic:
		reply.Text, err = r.responder.Decline(ctx, history)
	case RouteGeneralFinance:
		reply.Text, err = r.responder.GeneralFinance(ctx, history)
	case RouteUserData:
		var outcome *pipeline.Outcome
		outcome, err = r.cfg.Queries.Run(ctx, pipeline.Question{
			Text:         message,
			TenantID:     tenantID,
			Conversation: history,
		})
		if err == nil {
			reply.Attempts = outcome.Attempts
			reply.ToolError = outcome.ToolError
			reply.Text = outcome.Answer
			if outcome.ToolError {
				reply.Text = FallbackAnswer
			}
		}
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to answer %s message: %w", route, err)
	}
	return reply, nil
}
