package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/finagent/pkg/metrics"
	"github.com/malbeclabs/finagent/pkg/store"
)

type Config struct {
	Logger      *slog.Logger
	Store       Store
	Synthesizer QuerySynthesizer
	Verifier    QueryVerifier
	Clock       clockwork.Clock

	// Column semantics shown to the synthesizer. Defaults to store.FieldCatalog().
	FieldCatalog string

	// Attempts per invocation, shared by verifier rejections and execution failures.
	MaxRetries int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Store == nil {
		return fmt.Errorf("store is required")
	}
	if cfg.Synthesizer == nil {
		return fmt.Errorf("synthesizer is required")
	}
	if cfg.Verifier == nil {
		return fmt.Errorf("verifier is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.FieldCatalog == "" {
		cfg.FieldCatalog = store.FieldCatalog()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return nil
}

// QueryLoop runs the synthesize, verify, execute cycle for one question at a time.
//
// A rejected candidate or a failed execution consumes one attempt and its feedback
// is handed to the next synthesis. A positive verdict is the only gate before the
// bound query reaches the store; the store's read-only handle is the remaining guard.
type QueryLoop struct {
	log *slog.Logger
	cfg Config
}

func NewQueryLoop(cfg Config) (*QueryLoop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate query loop config: %w", err)
	}
	return &QueryLoop{log: cfg.Logger, cfg: cfg}, nil
}

// Run answers q. Exhausting the retry budget is not an error: the outcome has ToolError
// set and no answer. Errors are returned for synthesis or verification faults, schema
// introspection failures and context cancellation; the attempts made so far are still
// returned in the outcome.
func (l *QueryLoop) Run(ctx context.Context, q Question) (*Outcome, error) {
	start := l.cfg.Clock.Now()
	defer func() {
		metrics.QueryLoopDuration.Observe(l.cfg.Clock.Since(start).Seconds())
	}()

	outcome := &Outcome{}

	schema, err := l.cfg.Store.IntrospectSchema(ctx)
	if err != nil {
		metrics.QueryLoopOutcomesTotal.WithLabelValues("fault").Inc()
		return outcome, fmt.Errorf("failed to introspect schema: %w", err)
	}
	nowMs := l.cfg.Clock.Now().UnixMilli()

	var prev *Attempt
	for seq := 1; seq <= l.cfg.MaxRetries; seq++ {
		if err := ctx.Err(); err != nil {
			metrics.QueryLoopOutcomesTotal.WithLabelValues("fault").Inc()
			return outcome, err
		}

		in := SynthesisInput{
			Question:      q.Text,
			Conversation:  q.Conversation,
			Schema:        schema,
			FieldCatalog:  l.cfg.FieldCatalog,
			CurrentTimeMs: nowMs,
		}
		if prev != nil {
			in.PreviousCandidate = prev.Candidate.SQL
			in.PreviousFeedback = prev.Feedback()
		}

		candidate, err := l.cfg.Synthesizer.Synthesize(ctx, in)
		if err != nil {
			metrics.QueryLoopOutcomesTotal.WithLabelValues("fault").Inc()
			return outcome, fmt.Errorf("attempt %d: %w", seq, err)
		}
		l.log.Info("pipeline: candidate generated", "attempt", seq, "sql", candidate.SQL)

		verdict, err := l.cfg.Verifier.Verify(ctx, VerifyInput{
			Candidate:     candidate,
			Question:      q.Text,
			Conversation:  q.Conversation,
			Schema:        schema,
			CurrentTimeMs: nowMs,
		})
		if err != nil {
			metrics.QueryLoopOutcomesTotal.WithLabelValues("fault").Inc()
			return outcome, fmt.Errorf("attempt %d: %w", seq, err)
		}

		attempt := Attempt{Seq: seq, Candidate: candidate, Verdict: verdict}
		if !verdict.IsCorrect {
			metrics.QueryAttemptsTotal.WithLabelValues("rejected").Inc()
			l.log.Info("pipeline: candidate rejected", "attempt", seq, "feedback", verdict.Feedback)
		} else {
			attempt.Executed = true
			rows, err := l.cfg.Store.ExecuteReadOnly(ctx, candidate.Bind(q.TenantID))
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					metrics.QueryLoopOutcomesTotal.WithLabelValues("fault").Inc()
					return outcome, ctxErr
				}
				attempt.ExecutionError = err.Error()
				metrics.QueryAttemptsTotal.WithLabelValues("execution_error").Inc()
				l.log.Info("pipeline: execution failed", "attempt", seq, "error", err)
			} else {
				attempt.RowCount = rows.Len()
				outcome.Attempts = append(outcome.Attempts, attempt)
				outcome.Done = true
				outcome.Answer = FormatRows(rows)

				metrics.QueryAttemptsTotal.WithLabelValues("success").Inc()
				metrics.QueryLoopOutcomesTotal.WithLabelValues("done").Inc()
				l.log.Info("pipeline: query answered", "attempt", seq, "rows", rows.Len())
				l.log.Debug("pipeline: answer", "answer", outcome.Answer)
				return outcome, nil
			}
		}

		outcome.Attempts = append(outcome.Attempts, attempt)
		prev = &attempt
	}

	outcome.ToolError = true
	metrics.QueryLoopOutcomesTotal.WithLabelValues("failed").Inc()
	l.log.Warn("pipeline: retry budget exhausted", "attempts", len(outcome.Attempts))
	return outcome, nil
}
