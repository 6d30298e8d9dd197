package gemini

import (
	"context"
	"fmt"

	"github.com/tovaren/sightline-core/core/vision"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// Prompt runs one non-streamed prompt/response cycle and returns the fully
// assembled response. Sessioned options are not supported here; use
// PromptWithStream for session-backed prompting.
func (c *Client) Prompt(ctx context.Context, prompt *string, opts ...vision.StreamingPromptOption) (*vision.Response, error) {
	ctx, span := tracer.Start(ctx, "prompt vision model")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	options := vision.StreamingPromptOptions{}
	for _, opt := range opts {
		opt.ApplyToStreaming(&options)
	}

	parts := c.frameParts(options.Frames)
	if prompt != nil {
		parts = append(parts, genai.NewPartFromText(*prompt))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("prompt or frames are required")
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := c.generationConfig(options.Instructions, options.Settings)

	response, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		err = fmt.Errorf("failed to generate content: %w", err)
		span.RecordError(err)
		return nil, err
	}

	result := &vision.Response{Content: response.Text()}
	if response.UsageMetadata != nil {
		result.Usage = &vision.Usage{
			InputTokens:  int(response.UsageMetadata.PromptTokenCount),
			OutputTokens: int(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(response.UsageMetadata.TotalTokenCount),
		}
		span.SetAttributes(attribute.Int("usage.total", int(response.UsageMetadata.TotalTokenCount)))
	}
	return result, nil
}
