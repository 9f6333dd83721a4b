package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/malbeclabs/finagent/pkg/llm"
)

var verdictShape = llm.MustShapeFor[Verdict]("query_verdict",
	"Report whether the SQL query may be executed, with feedback when it may not.")

// defaultRejectionFeedback is used when the verifier rejects without saying why.
const defaultRejectionFeedback = "The query was rejected. Make sure it is read-only, filters every per-user table with " +
	"user_id = " + TenantPlaceholder + ", runs without modification apart from that tag, and answers the question."

// Verifier asks the generation service to judge a candidate independently of the synthesizer.
type Verifier struct {
	log     *slog.Logger
	llm     llm.Client
	prompts *Prompts
}

func NewVerifier(log *slog.Logger, client llm.Client, prompts *Prompts) *Verifier {
	return &Verifier{log: log, llm: client, prompts: prompts}
}

func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (Verdict, error) {
	system := renderVerifyPrompt(v.prompts.Verify, in)

	conversation := conversationFor(in.Question, in.Conversation)
	conversation = append(conversation, llm.UserMessage(
		fmt.Sprintf("Evaluate the SQL query: `%s` against the user's question: %s", in.Candidate.SQL, in.Question)))

	verdict, err := llm.Generate[Verdict](ctx, v.llm, system, conversation, verdictShape)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrVerificationFault, err)
	}

	verdict.Feedback = strings.TrimSpace(verdict.Feedback)
	if !verdict.IsCorrect && verdict.Feedback == "" {
		v.log.Warn("verifier: rejection without feedback, using default")
		verdict.Feedback = defaultRejectionFeedback
	}
	return verdict, nil
}
