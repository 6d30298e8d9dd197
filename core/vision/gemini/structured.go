package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/tovaren/sightline-core/core/camera"
	"github.com/tovaren/sightline-core/core/vision"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// PromptJSONSchema runs one non-streamed prompt constrained to the JSON
// schema reflected from the output type, and decodes the response into it.
func PromptJSONSchema[T any](
	ctx context.Context,
	client *Client,
	prompt string,
	outputSchema T,
	opts ...vision.StructuredPromptOption,
) (*T, error) {
	ctx, span := tracer.Start(ctx, "prompt vision model structured")
	defer span.End()

	if client == nil {
		return nil, fmt.Errorf("client is required")
	}

	options := vision.StructuredPromptOptions{}
	for _, opt := range opts {
		opt.ApplyToStructured(&options)
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	var schema *jsonschema.Schema
	if reflect.TypeOf(outputSchema).Kind() == reflect.Ptr {
		schema = reflector.ReflectFromType(reflect.TypeOf(outputSchema).Elem())
	} else {
		schema = reflector.Reflect(outputSchema)
	}

	span.SetAttributes(attribute.String("request.model", client.model))
	schemaString, _ := schema.MarshalJSON()
	span.SetAttributes(attribute.String("request.schema", string(schemaString)))

	config := client.generationConfig(options.Instructions, options.Settings)
	config.ResponseMIMEType = "application/json"
	config.ResponseJsonSchema = schema

	parts := client.frameParts(options.Frames)
	parts = append(parts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := client.client.Models.GenerateContent(ctx, client.model, contents, config)
	if err != nil {
		err = fmt.Errorf("failed to generate structured content: %w", err)
		span.RecordError(err)
		return nil, err
	}

	text := response.Text()
	if text == "" {
		err := fmt.Errorf("empty structured response")
		span.RecordError(err)
		return nil, err
	}

	var output T
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		err = fmt.Errorf("failed to unmarshal structured response: %w", err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("response.body", text))
		return nil, err
	}

	return &output, nil
}

// objectPresence is the structured verdict returned by the presence check.
type objectPresence struct {
	Present    bool    `json:"present" jsonschema:"description=Whether the requested object is clearly visible in the frames"`
	Confidence float64 `json:"confidence" jsonschema:"description=Confidence between 0 and 1"`
}

// JudgeObjectPresence asks the model for a structured yes/no verdict on
// whether the named object is visible in the passed frames.
func (c *Client) JudgeObjectPresence(ctx context.Context, object string, frames []camera.Frame) (bool, error) {
	prompt := fmt.Sprintf("Is there a %s clearly visible in the image? Judge only what is actually visible.", object)
	verdict, err := PromptJSONSchema(ctx, c, prompt, objectPresence{}, vision.WithFrames(frames...))
	if err != nil {
		return false, err
	}

	return verdict.Present, nil
}
