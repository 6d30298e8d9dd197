package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/tovaren/sightline-core/core/vision"
	"github.com/tovaren/sightline-core/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// PromptWithStream starts one streamed prompt/response cycle. When the
// options carry a session id the prompt goes through that session's retained
// chat, otherwise it is a stateless one-shot call.
func (c *Client) PromptWithStream(_ context.Context, prompt *string, opts ...vision.StreamingPromptOption) vision.Stream {
	options := vision.StreamingPromptOptions{}
	for _, opt := range opts {
		opt.ApplyToStreaming(&options)
	}

	return &Stream{
		client:  c,
		prompt:  prompt,
		options: options,
	}
}

type Stream struct {
	client  *Client
	prompt  *string
	options vision.StreamingPromptOptions
}

func (s *Stream) Chunks(ctx context.Context) func(func(vision.StreamChunk, error) bool) {
	requestToFirstTokenTime := time.Time{}
	setRequestToFirstTokenTime := func(span trace.Span) {
		if requestToFirstTokenTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestToFirstTokenTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstTokenTime = time.Time{}
	}

	return func(yield func(vision.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt vision model stream")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.client.model))
		span.SetAttributes(attribute.Int("request.frames", len(s.options.Frames)))
		span.SetAttributes(attribute.Bool("request.sessioned", s.options.SessionID != ""))

		responses, err := s.start(ctx)
		if err != nil {
			span.RecordError(err)
			yield(nil, err)
			return
		}

		requestToFirstTokenTime = time.Now()
		span.AddEvent("request started")

		var usage *genai.GenerateContentResponseUsageMetadata
		for response, err := range responses {
			if err != nil {
				err = fmt.Errorf("failed to stream vision response: %w", err)
				span.RecordError(err)
				yield(nil, err)
				return
			}
			setRequestToFirstTokenTime(span)

			var finishReason *string
			if len(response.Candidates) > 0 && response.Candidates[0].FinishReason != "" {
				finishReason = utils.Ptr(string(response.Candidates[0].FinishReason))
			}
			if response.UsageMetadata != nil {
				usage = response.UsageMetadata
			}

			if text := response.Text(); text != "" {
				if !yield(StreamContentChunk{finishReason: finishReason, content: text}, nil) {
					return
				}
			}
		}

		if usage != nil {
			span.SetAttributes(attribute.Int("usage.input", int(usage.PromptTokenCount)))
			span.SetAttributes(attribute.Int("usage.output", int(usage.CandidatesTokenCount)))
			span.SetAttributes(attribute.Int("usage.total", int(usage.TotalTokenCount)))
			yield(StreamUsageChunk{usage: vision.Usage{
				InputTokens:  int(usage.PromptTokenCount),
				OutputTokens: int(usage.CandidatesTokenCount),
				TotalTokens:  int(usage.TotalTokenCount),
			}}, nil)
		}
	}
}

func (s *Stream) start(ctx context.Context) (func(func(*genai.GenerateContentResponse, error) bool), error) {
	parts := s.client.frameParts(s.options.Frames)
	if s.prompt != nil {
		parts = append(parts, genai.NewPartFromText(*s.prompt))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("prompt or frames are required")
	}

	if s.options.SessionID != "" {
		chat, err := s.client.sessionChat(ctx, s.options.SessionID, s.options.Instructions)
		if err != nil {
			return nil, err
		}

		chatParts := make([]genai.Part, 0, len(parts))
		for _, part := range parts {
			chatParts = append(chatParts, *part)
		}
		return chat.SendMessageStream(ctx, chatParts...), nil
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := s.client.generationConfig(s.options.Instructions, s.options.Settings)
	return s.client.client.Models.GenerateContentStream(ctx, s.client.model, contents, config), nil
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (c StreamContentChunk) FinishReason() *string { return c.finishReason }
func (c StreamContentChunk) Content() string       { return c.content }

type StreamUsageChunk struct {
	finishReason *string
	usage        vision.Usage
}

func (c StreamUsageChunk) FinishReason() *string { return c.finishReason }
func (c StreamUsageChunk) Usage() vision.Usage   { return c.usage }
