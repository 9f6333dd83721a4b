package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawClient struct {
	raw json.RawMessage
	err error
}

func (c rawClient) Complete(context.Context, string, []Message) (string, error) {
	return "", errors.New("not implemented")
}

func (c rawClient) CompleteStructured(context.Context, string, []Message, Shape) (json.RawMessage, error) {
	return c.raw, c.err
}

type testVerdict struct {
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback,omitempty"`
}

func TestFinagent_LLM_Generate(t *testing.T) {
	t.Parallel()

	shape := MustShapeFor[testVerdict]("query_verdict", "")

	tests := []struct {
		name      string
		raw       string
		want      testVerdict
		malformed bool
	}{
		{name: "valid", raw: `{"is_correct": false, "feedback": "missing tenant filter"}`, want: testVerdict{Feedback: "missing tenant filter"}},
		{name: "optional field omitted", raw: `{"is_correct": true}`, want: testVerdict{IsCorrect: true}},
		{name: "required field missing", raw: `{"feedback": "x"}`, malformed: true},
		{name: "wrong type", raw: `{"is_correct": "yes"}`, malformed: true},
		{name: "not json", raw: `SELECT 1`, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate[testVerdict](context.Background(), rawClient{raw: json.RawMessage(tt.raw)}, "", nil, shape)
			if tt.malformed {
				require.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinagent_LLM_Generate_PropagatesClientError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Generate[testVerdict](context.Background(), rawClient{err: boom}, "", nil, MustShapeFor[testVerdict]("v", ""))
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrMalformedOutput)
}

func TestFinagent_LLM_ShapeFor_RequiredFields(t *testing.T) {
	t.Parallel()

	shape, err := ShapeFor[testVerdict]("query_verdict", "Verdict on a candidate query")
	require.NoError(t, err)
	assert.Equal(t, "query_verdict", shape.Name)
	assert.Equal(t, []string{"is_correct"}, shape.Schema.Required)
	assert.Contains(t, shape.Schema.Properties, "feedback")
}
