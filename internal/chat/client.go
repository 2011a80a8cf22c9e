package chat

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// StreamFunc receives incremental model output during generation. Returning
// an error aborts the stream.
type StreamFunc = func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// GenerateParams describes one model invocation.
type GenerateParams struct {
	// Model is the provider-qualified model name.
	Model    string
	System   string
	Messages []*ai.Message
	Tools    []ai.ToolRef
	// MaxTurns bounds the agentic tool-calling loop.
	MaxTurns    int
	Temperature *float32
}

// Client is the model-inference capability the orchestrator depends on:
// given a system prompt, a message history, and a tool set, produce a
// sequence of output parts with usage statistics.
type Client interface {
	Generate(ctx context.Context, params GenerateParams, stream StreamFunc) (*ai.ModelResponse, error)

	// Complete is a one-shot text completion, used for auxiliary
	// generations like follow-up suggestions.
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// GenkitClient implements Client on Genkit.
type GenkitClient struct {
	g *genkit.Genkit
}

// NewGenkitClient creates a Genkit-backed model client.
func NewGenkitClient(g *genkit.Genkit) *GenkitClient {
	return &GenkitClient{g: g}
}

func (c *GenkitClient) Generate(ctx context.Context, params GenerateParams, stream StreamFunc) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(params.Model),
		ai.WithSystem(params.System),
		ai.WithMessages(params.Messages...),
	}
	if params.MaxTurns > 0 {
		opts = append(opts, ai.WithMaxTurns(params.MaxTurns))
	}
	if len(params.Tools) > 0 {
		opts = append(opts, ai.WithTools(params.Tools...))
	}
	if params.Temperature != nil {
		opts = append(opts, ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature: float64(*params.Temperature),
		}))
	}
	if stream != nil {
		opts = append(opts, ai.WithStreaming(stream))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating with %s: %w", params.Model, err)
	}
	return resp, nil
}

func (c *GenkitClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(model),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("completing with %s: %w", model, err)
	}
	return resp.Text(), nil
}
