package vision

import "context"

// Stream is one in-flight prompt/response cycle against the vision model.
// The iterator returned by Chunks terminates when the model signals
// completion; completion without error is the only "done" signal.
type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	FinishReason() *string
}

// StreamContentChunk carries one streamed piece of response text.
type StreamContentChunk interface {
	StreamChunk
	Content() string
}

// StreamUsageChunk carries the provider's token accounting for the cycle,
// when the provider reports it. Consumers fall back to estimation otherwise.
type StreamUsageChunk interface {
	StreamChunk
	Usage() Usage
}

type Usage struct {
	// InputTokens is the number of prompt tokens, images included.
	InputTokens int
	// OutputTokens is the number of generated tokens.
	OutputTokens int
	// TotalTokens is the provider-reported total for the cycle.
	TotalTokens int
}
