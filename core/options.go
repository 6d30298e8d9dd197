package navigation

import (
	"context"
	"time"

	"github.com/tovaren/sightline-core/core/camera"
	"github.com/tovaren/sightline-core/core/cues"
	"github.com/tovaren/sightline-core/core/detection"
	"github.com/tovaren/sightline-core/core/vision"
)

type DirectorOption func(*Director)

// VisionWithStream is the minimal inference-engine contract: one streamed
// prompt/response cycle per call. The director serializes calls so a new
// cycle never starts before the previous stream finished or errored.
type VisionWithStream interface {
	PromptWithStream(ctx context.Context, prompt *string, opts ...vision.StreamingPromptOption) vision.Stream
}

// VisionWithPrompt is implemented by providers that also support non-streamed
// prompting; preferred for internal queries where chunking adds nothing.
type VisionWithPrompt interface {
	VisionWithStream
	Prompt(ctx context.Context, prompt *string, opts ...vision.StreamingPromptOption) (*vision.Response, error)
}

// VisionWithSessions is implemented by providers that retain per-session
// context, enabling two-phase prompting and budget-driven session resets.
type VisionWithSessions interface {
	VisionWithStream
	ResetSessions(ctx context.Context) error
	EndSession(id string)
}

// VisionWithVerdict is implemented by providers that can return a structured
// yes/no presence judgement; object finding prefers it over parsing a
// free-text answer.
type VisionWithVerdict interface {
	VisionWithStream
	JudgeObjectPresence(ctx context.Context, object string, frames []camera.Frame) (bool, error)
}

func WithVisionClient(client VisionWithStream) DirectorOption {
	return func(d *Director) { d.vision = client }
}

func WithDetector(detector detection.Detector) DirectorOption {
	return func(d *Director) { d.detector = detector }
}

func WithCameraFeed(feed *camera.Feed) DirectorOption {
	return func(d *Director) { d.feed = feed }
}

func WithThreatConfig(config ThreatConfig) DirectorOption {
	return func(d *Director) { d.threats = newThreatAssessor(config) }
}

// WithSharpnessScorer injects the frame sharpness metric and the minimum
// acceptable score used by best-quality selection. Applied to the frame
// buffer after all options run, so it composes with WithFrameBuffer in any
// order.
func WithSharpnessScorer(scorer SharpnessScorer, threshold float64) DirectorOption {
	return func(d *Director) {
		d.scorer = scorer
		d.scoreThreshold = threshold
	}
}

func WithFrameBuffer(capacity int, maxAgeMs int64) DirectorOption {
	return func(d *Director) { d.frames = newFrameBuffer(capacity, maxAgeMs) }
}

// WithTokenBudget overrides the approximate context-window budget after
// which the model session is recreated.
func WithTokenBudget(tokens int) DirectorOption {
	return func(d *Director) { d.tokenBudget = tokens }
}

// WithCrossingPollInterval overrides how often crossing guidance re-polls
// the model.
func WithCrossingPollInterval(interval time.Duration) DirectorOption {
	return func(d *Director) { d.crossingPollInterval = interval }
}

// WithCrossingTimeout overrides the absolute safety timeout that force-ends
// a crossing session.
func WithCrossingTimeout(timeout time.Duration) DirectorOption {
	return func(d *Director) { d.crossingTimeout = timeout }
}

// WithFrameWaitTimeout overrides how long ask-style operations wait for a
// usable frame before giving up with a no-frame cue.
func WithFrameWaitTimeout(timeout time.Duration) DirectorOption {
	return func(d *Director) { d.frameWaitTimeout = timeout }
}

// DirectOptions carries the runtime callbacks for one Direct run.
type DirectOptions struct {
	onCue              func(cues.Cue)
	onCrossingComplete func()
	onCrossingWait     func(seconds int)
	onNavigationEnded  func()
}

type DirectOption func(*DirectOptions)

// WithCueCallback registers the primary cue consumer (the speech/UI
// collaborator).
func WithCueCallback(onCue func(cues.Cue)) DirectOption {
	return func(o *DirectOptions) { o.onCue = onCue }
}

func WithCrossingCompleteCallback(onComplete func()) DirectOption {
	return func(o *DirectOptions) { o.onCrossingComplete = onComplete }
}

// WithCrossingWaitCallback registers the timer callback invoked when
// crossing guidance instructs a wait of the passed number of seconds.
func WithCrossingWaitCallback(onWait func(seconds int)) DirectOption {
	return func(o *DirectOptions) { o.onCrossingWait = onWait }
}

func WithNavigationEndedCallback(onEnded func()) DirectOption {
	return func(o *DirectOptions) { o.onNavigationEnded = onEnded }
}
