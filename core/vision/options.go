package vision

import "github.com/tovaren/sightline-core/core/camera"

// GenerationSettings tunes one prompt/response cycle. The zero value leaves
// every knob at the provider's default.
type GenerationSettings struct {
	Temperature     *float32
	TopP            *float32
	TopK            *float32
	MaxOutputTokens int32
}

type StreamingPromptOptions struct {
	Instructions string
	Frames       []camera.Frame
	Settings     GenerationSettings
	// SessionID selects a retained model session; empty means a stateless
	// one-shot call.
	SessionID string
}

type StreamingPromptOption interface {
	ApplyToStreaming(*StreamingPromptOptions)
}

type StructuredPromptOptions struct {
	Instructions string
	Frames       []camera.Frame
	Settings     GenerationSettings
}

type StructuredPromptOption interface {
	ApplyToStructured(*StructuredPromptOptions)
}

// PromptOption is a function option applicable to both streaming and
// structured prompts.
type PromptOption func(instructions *string, frames *[]camera.Frame, settings *GenerationSettings)

func (f PromptOption) ApplyToStreaming(o *StreamingPromptOptions) {
	f(&o.Instructions, &o.Frames, &o.Settings)
}

func (f PromptOption) ApplyToStructured(o *StructuredPromptOptions) {
	f(&o.Instructions, &o.Frames, &o.Settings)
}

// WithSystemPrompt sets the system instructions for the prompt. Repeating
// this option overwrites the previous instructions.
func WithSystemPrompt(prompt string) PromptOption {
	return func(instructions *string, _ *[]camera.Frame, _ *GenerationSettings) {
		*instructions = prompt
	}
}

// WithFrames attaches camera frames to the prompt, oldest first. Repeating
// this option appends more frames.
func WithFrames(frames ...camera.Frame) PromptOption {
	return func(_ *string, target *[]camera.Frame, _ *GenerationSettings) {
		*target = append(*target, frames...)
	}
}

// WithGenerationSettings overrides the provider's generation defaults.
func WithGenerationSettings(settings GenerationSettings) PromptOption {
	return func(_ *string, _ *[]camera.Frame, target *GenerationSettings) {
		*target = settings
	}
}

type sessionOption string

func (s sessionOption) ApplyToStreaming(o *StreamingPromptOptions) {
	o.SessionID = string(s)
}

// WithSession routes the prompt through the provider's retained session for
// the passed id, so follow-up prompts can rely on earlier context instead of
// retransmitting it.
func WithSession(id string) StreamingPromptOption {
	return sessionOption(id)
}
