package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/malbeclabs/finagent/pkg/llm"
)

var candidateShape = llm.MustShapeFor[CandidateQuery]("candidate_query",
	"Submit the read-only SQL query that answers the user's question.")

// generateInstruction closes the conversation so the model produces the query rather
// than replying to the user.
const generateInstruction = "Generate the query"

// Synthesizer asks the generation service for a candidate query in placeholder form.
type Synthesizer struct {
	log     *slog.Logger
	llm     llm.Client
	prompts *Prompts
}

func NewSynthesizer(log *slog.Logger, client llm.Client, prompts *Prompts) *Synthesizer {
	return &Synthesizer{log: log, llm: client, prompts: prompts}
}

func (s *Synthesizer) Synthesize(ctx context.Context, in SynthesisInput) (CandidateQuery, error) {
	system := renderSynthesisPrompt(s.prompts.Synthesize, in)

	conversation := conversationFor(in.Question, in.Conversation)
	conversation = append(conversation, llm.UserMessage(generateInstruction))

	candidate, err := llm.Generate[CandidateQuery](ctx, s.llm, system, conversation, candidateShape)
	if err != nil {
		return CandidateQuery{}, fmt.Errorf("%w: %w", ErrSynthesisFault, err)
	}

	candidate.SQL = cleanSQL(candidate.SQL)
	if candidate.SQL == "" {
		return CandidateQuery{}, fmt.Errorf("%w: empty query", ErrSynthesisFault)
	}
	s.log.Debug("synthesizer: candidate generated", "sql", candidate.SQL, "has_feedback", in.PreviousFeedback != "")
	return candidate, nil
}

// conversationFor returns a copy of the conversation, or the question alone when there is none.
func conversationFor(question string, conversation []llm.Message) []llm.Message {
	if len(conversation) == 0 {
		return []llm.Message{llm.UserMessage(question)}
	}
	out := make([]llm.Message, len(conversation), len(conversation)+1)
	copy(out, conversation)
	return out
}

// cleanSQL strips markdown fences and a trailing semicolon the model sometimes adds
// despite instructions.
func cleanSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasPrefix(sql, "```") {
		sql = strings.TrimPrefix(sql, "```sql")
		sql = strings.TrimPrefix(sql, "```SQL")
		sql = strings.TrimPrefix(sql, "```")
		sql = strings.TrimSuffix(sql, "```")
		sql = strings.TrimSpace(sql)
	}
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
