package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/malbeclabs/finagent/pkg/llm"
)

// Route is the path a message takes through the agent.
type Route string

const (
	RouteUserData       Route = "user_data"
	RouteGeneralFinance Route = "general_finance"
	RouteInvalidTopic   Route = "invalid_topic"
)

var ErrClassificationFault = errors.New("message classification failed")

func (r Route) Valid() bool {
	switch r {
	case RouteUserData, RouteGeneralFinance, RouteInvalidTopic:
		return true
	}
	return false
}

type routeDecision struct {
	QueryType Route `json:"query_type" jsonschema:"The category of the user's latest message"`
}

var routeShape = func() llm.Shape {
	shape := llm.MustShapeFor[routeDecision]("classify_message", "Classify the user's latest message.")
	shape.Schema.Properties["query_type"].Enum = []any{
		string(RouteUserData), string(RouteGeneralFinance), string(RouteInvalidTopic),
	}
	return shape
}()

type Classifier struct {
	log     *slog.Logger
	llm     llm.Client
	prompts *Prompts
}

func NewClassifier(log *slog.Logger, client llm.Client, prompts *Prompts) *Classifier {
	return &Classifier{log: log, llm: client, prompts: prompts}
}

// Classify routes the latest message of the conversation. schema is the store schema
// text used to recognise questions about the user's own records.
func (c *Classifier) Classify(ctx context.Context, schema string, conversation []llm.Message) (Route, error) {
	system := strings.Replace(c.prompts.Classify, "{{SCHEMA}}", schema, 1)

	decision, err := llm.Generate[routeDecision](ctx, c.llm, system, conversation, routeShape)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassificationFault, err)
	}
	if !decision.QueryType.Valid() {
		return "", fmt.Errorf("%w: unknown route %q", ErrClassificationFault, decision.QueryType)
	}
	c.log.Debug("chat: message classified", "route", decision.QueryType)
	return decision.QueryType, nil
}
