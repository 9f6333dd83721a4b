// Package llm is the boundary to the text generation service. It exposes free-form
// completion and structured generation, where the reply must conform to a JSON shape.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrMalformedOutput is returned when a structured reply does not conform to its shape.
var ErrMalformedOutput = errors.New("malformed structured output")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Shape names and describes the structure a structured reply must conform to.
type Shape struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// ShapeFor infers a shape from T. Fields without omitempty are required, and
// jsonschema struct tags become field descriptions.
func ShapeFor[T any](name, description string) (Shape, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return Shape{}, fmt.Errorf("failed to infer schema for %s: %w", name, err)
	}
	return Shape{Name: name, Description: description, Schema: schema}, nil
}

// MustShapeFor is ShapeFor for package-level shapes.
func MustShapeFor[T any](name, description string) Shape {
	shape, err := ShapeFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return shape
}

type Client interface {
	// Complete returns a free-form reply to the conversation under the system instructions.
	Complete(ctx context.Context, system string, conversation []Message) (string, error)

	// CompleteStructured returns the raw JSON object produced for shape.
	CompleteStructured(ctx context.Context, system string, conversation []Message, shape Shape) (json.RawMessage, error)
}

// Generate requests a structured reply for shape, validates it against the shape's schema
// and decodes it into T.
func Generate[T any](ctx context.Context, c Client, system string, conversation []Message, shape Shape) (T, error) {
	var out T

	raw, err := c.CompleteStructured(ctx, system, conversation, shape)
	if err != nil {
		return out, err
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, shape.Name, err)
	}
	if shape.Schema != nil {
		resolved, err := shape.Schema.Resolve(nil)
		if err != nil {
			return out, fmt.Errorf("failed to resolve schema for %s: %w", shape.Name, err)
		}
		if err := resolved.Validate(instance); err != nil {
			return out, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, shape.Name, err)
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, shape.Name, err)
	}
	return out, nil
}
