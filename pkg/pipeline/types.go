// Package pipeline turns a user's data question into a read-only query against their
// own records. A candidate query is synthesized with a tenant placeholder, reviewed by an
// independent verifier, bound to the tenant and executed, inside a bounded retry loop
// that feeds each failure back into the next synthesis.
package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/malbeclabs/finagent/pkg/llm"
	"github.com/malbeclabs/finagent/pkg/store"
)

// TenantPlaceholder stands in for the tenant id in candidate queries until execution.
const TenantPlaceholder = "<user_id>"

const DefaultMaxRetries = 3

var (
	// ErrSynthesisFault means the generation service did not return a usable candidate.
	ErrSynthesisFault = errors.New("query synthesis failed")

	// ErrVerificationFault means the generation service did not return a usable verdict.
	ErrVerificationFault = errors.New("query verification failed")
)

// Question is a natural-language data question asked on behalf of one tenant.
type Question struct {
	Text     string
	TenantID int64

	// Prior turns of the conversation, ending with the question itself.
	Conversation []llm.Message
}

// CandidateQuery is a generated query in placeholder form.
type CandidateQuery struct {
	SQL string `json:"sql_query" jsonschema:"The SQL query to execute, using the literal <user_id> tag for the user id"`
}

// Bind substitutes the tenant id for every placeholder occurrence.
func (c CandidateQuery) Bind(tenantID int64) string {
	return strings.ReplaceAll(c.SQL, TenantPlaceholder, strconv.FormatInt(tenantID, 10))
}

// Verdict is the verifier's judgement of a candidate. Feedback is non-empty when IsCorrect is false.
type Verdict struct {
	IsCorrect bool   `json:"is_correct" jsonschema:"Whether the query is safe, tenant scoped, complete and answers the question"`
	Feedback  string `json:"feedback,omitempty" jsonschema:"What must change when the query is not correct"`
}

// Attempt records one synthesize, verify and execute cycle. Attempts are values; the
// loop never mutates a recorded attempt.
type Attempt struct {
	Seq       int
	Candidate CandidateQuery
	Verdict   Verdict

	// Executed is set when the verdict was positive and the bound query was run.
	Executed       bool
	ExecutionError string
	RowCount       int
}

// Feedback is what the next synthesis is told about this attempt: the execution error
// when execution failed, otherwise the verifier's feedback.
func (a Attempt) Feedback() string {
	if a.ExecutionError != "" {
		return a.ExecutionError
	}
	return a.Verdict.Feedback
}

// Succeeded reports whether the attempt produced rows.
func (a Attempt) Succeeded() bool {
	return a.Executed && a.ExecutionError == ""
}

// Outcome is the result of one loop invocation. Exactly one of Done and ToolError is set.
type Outcome struct {
	Done      bool
	ToolError bool
	Answer    string
	Attempts  []Attempt
}

type SynthesisInput struct {
	Question          string
	Conversation      []llm.Message
	Schema            string
	FieldCatalog      string
	CurrentTimeMs     int64
	PreviousCandidate string
	PreviousFeedback  string
}

type VerifyInput struct {
	Candidate     CandidateQuery
	Question      string
	Conversation  []llm.Message
	Schema        string
	CurrentTimeMs int64
}

type QuerySynthesizer interface {
	Synthesize(ctx context.Context, in SynthesisInput) (CandidateQuery, error)
}

type QueryVerifier interface {
	Verify(ctx context.Context, in VerifyInput) (Verdict, error)
}

// Store is the subset of store.Store the loop needs.
type Store interface {
	IntrospectSchema(ctx context.Context) (string, error)
	ExecuteReadOnly(ctx context.Context, query string) (store.RowSet, error)
}
