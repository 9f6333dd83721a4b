package chat

import (
	"context"
	"fmt"

	"github.com/malbeclabs/finagent/pkg/llm"
)

// Responder produces the free-form replies for messages that need no data lookup.
type Responder struct {
	llm     llm.Client
	prompts *Prompts
}

func NewResponder(client llm.Client, prompts *Prompts) *Responder {
	return &Responder{llm: client, prompts: prompts}
}

// Decline politely turns away off-topic messages and answers greetings.
func (r *Responder) Decline(ctx context.Context, conversation []llm.Message) (string, error) {
	text, err := r.llm.Complete(ctx, r.prompts.Decline, conversation)
	if err != nil {
		return "", fmt.Errorf("failed to generate decline: %w", err)
	}
	return text, nil
}

func (r *Responder) GeneralFinance(ctx context.Context, conversation []llm.Message) (string, error) {
	text, err := r.llm.Complete(ctx, r.prompts.GeneralFinance, conversation)
	if err != nil {
		return "", fmt.Errorf("failed to generate finance answer: %w", err)
	}
	return text, nil
}
