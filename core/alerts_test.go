package navigation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tovaren/sightline-core/core/camera"
	"github.com/tovaren/sightline-core/core/cues"
	"github.com/tovaren/sightline-core/core/vision"
)

type fakeContentChunk struct{ content string }

func (c fakeContentChunk) FinishReason() *string { return nil }
func (c fakeContentChunk) Content() string       { return c.content }

type fakeUsageChunk struct{ usage vision.Usage }

func (c fakeUsageChunk) FinishReason() *string { return nil }
func (c fakeUsageChunk) Usage() vision.Usage   { return c.usage }

type scriptedStream struct {
	chunks []vision.StreamChunk
	err    error
}

func (s scriptedStream) Chunks(context.Context) func(func(vision.StreamChunk, error) bool) {
	return func(yield func(vision.StreamChunk, error) bool) {
		for _, chunk := range s.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

func textStream(parts ...string) scriptedStream {
	stream := scriptedStream{}
	for _, part := range parts {
		stream.chunks = append(stream.chunks, fakeContentChunk{content: part})
	}
	return stream
}

// fakeVision serves scripted streams in order, repeating the last one, and
// records what each call asked for.
type fakeVision struct {
	mu        sync.Mutex
	responses []scriptedStream

	prompts    []string
	frameCount []int
	sessionIDs []string
}

func (f *fakeVision) PromptWithStream(_ context.Context, prompt *string, opts ...vision.StreamingPromptOption) vision.Stream {
	options := vision.StreamingPromptOptions{}
	for _, opt := range opts {
		opt.ApplyToStreaming(&options)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if prompt != nil {
		f.prompts = append(f.prompts, *prompt)
	}
	f.frameCount = append(f.frameCount, len(options.Frames))
	f.sessionIDs = append(f.sessionIDs, options.SessionID)

	if len(f.responses) == 0 {
		return scriptedStream{}
	}
	next := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return next
}

func (f *fakeVision) recordedPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeVision) recordedSessionIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sessionIDs...)
}

type fakeVisionWithVerdict struct {
	*fakeVision

	present      bool
	verdictErr   error
	verdictCalls int
	judged       string
}

func (f *fakeVisionWithVerdict) JudgeObjectPresence(_ context.Context, object string, _ []camera.Frame) (bool, error) {
	f.verdictCalls++
	f.judged = object
	return f.present, f.verdictErr
}

type fakeVisionWithPrompt struct {
	*fakeVision

	answer      string
	promptCalls int
}

func (f *fakeVisionWithPrompt) Prompt(_ context.Context, _ *string, _ ...vision.StreamingPromptOption) (*vision.Response, error) {
	f.promptCalls++
	return &vision.Response{Content: f.answer, Usage: &vision.Usage{TotalTokens: 7}}, nil
}

type cueRecorder struct {
	mu   sync.Mutex
	cues []cues.Cue
}

func (r *cueRecorder) record(cue cues.Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, cue)
}

func (r *cueRecorder) recorded() []cues.Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cues.Cue(nil), r.cues...)
}

func newTestCoordinator(visionClient VisionWithStream) (*alertCoordinator, *cueRecorder, *inferenceLease) {
	recorder := &cueRecorder{}
	emitter := newCueEmitter()
	emitter.setCallback(recorder.record)
	lease := newInferenceLease(0, nil)
	return newAlertCoordinator(emitter, newPromptSessions(), lease, visionClient, nil), recorder, lease
}

func testFrame() camera.Frame {
	return camera.Frame{Data: []byte{0xFF}, Width: 1, Height: 1, TimestampMs: 1}
}

func TestAnnounceCriticalStreamsChunksInOrder(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{textStream("Stop, ", "car ahead.")}}
	coordinator, recorder, _ := newTestCoordinator(fake)

	err := coordinator.AnnounceCritical(context.Background(), "", []string{"car"}, []camera.Frame{testFrame()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	recorded := recorder.recorded()
	if len(recorded) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(recorded))
	}
	for i, expected := range []string{"Stop, ", "car ahead."} {
		if recorded[i].Kind() != cues.KindCriticalAlert {
			t.Fatalf("expected critical alert at %d, got %s", i, recorded[i].Kind())
		}
		if recorded[i].Message() != expected {
			t.Fatalf("expected message %q at %d, got %q", expected, i, recorded[i].Message())
		}
		if recorded[i].Done() {
			t.Fatalf("expected chunk cue at %d to not be done", i)
		}
	}
	if !recorded[2].Done() {
		t.Fatalf("expected terminal cue to be done")
	}
}

func TestAnnounceCriticalFallsBackOnStreamError(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{{err: errors.New("model unavailable")}}}
	coordinator, recorder, _ := newTestCoordinator(fake)

	err := coordinator.AnnounceCritical(context.Background(), "", []string{"car"}, []camera.Frame{testFrame()})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	recorded := recorder.recorded()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 fallback cue, got %d", len(recorded))
	}
	if recorded[0].Message() != criticalFallbackMessage {
		t.Fatalf("expected fallback message, got %q", recorded[0].Message())
	}
	if !recorded[0].Done() {
		t.Fatalf("expected fallback cue to be done")
	}
}

func TestAnnounceUsesTwoPhaseSessionPrompts(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{textStream("ok")}}
	coordinator, _, _ := newTestCoordinator(fake)
	coordinator.sessions.Start("walk", OperationNavigation, "")

	frames := []camera.Frame{testFrame()}
	if err := coordinator.AnnounceCritical(context.Background(), "walk", []string{"car"}, frames); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := coordinator.AnnounceCritical(context.Background(), "walk", []string{"bus"}, frames); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	prompts := fake.recordedPrompts()
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(prompts))
	}
	if !strings.HasPrefix(prompts[0], navigationInitialPrompt) {
		t.Fatalf("expected first prompt to carry full instructions, got %q", prompts[0])
	}
	if !strings.HasPrefix(prompts[1], navigationFollowUpPrompt) {
		t.Fatalf("expected second prompt to be the follow-up, got %q", prompts[1])
	}
	if !strings.Contains(prompts[1], "bus") {
		t.Fatalf("expected detected objects in follow-up prompt, got %q", prompts[1])
	}

	for i, id := range fake.recordedSessionIDs() {
		if id != "walk" {
			t.Fatalf("expected session id forwarded on call %d, got %q", i, id)
		}
	}
}

func TestAnnounceFallsBackToStatelessPromptWithoutSession(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{textStream("ok")}}
	coordinator, _, _ := newTestCoordinator(fake)

	err := coordinator.AnnounceInformational(context.Background(), "unknown", []string{"dog"}, []camera.Frame{testFrame()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ids := fake.recordedSessionIDs(); ids[0] != "" {
		t.Fatalf("expected stateless call, got session id %q", ids[0])
	}
	if prompts := fake.recordedPrompts(); !strings.Contains(prompts[0], "dog") {
		t.Fatalf("expected detected objects in stateless prompt, got %q", prompts[0])
	}
}

func TestFindObjectAnnouncesLocationWhenPresent(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{
		textStream("yes"),
		textStream("At 2 o'clock, one step away."),
	}}
	coordinator, recorder, _ := newTestCoordinator(fake)

	if err := coordinator.FindObject(context.Background(), "mug", testFrame()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	recorded := recorder.recorded()
	if len(recorded) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(recorded))
	}
	if !strings.Contains(recorded[0].Message(), "mug detected") {
		t.Fatalf("expected detection cue first, got %q", recorded[0].Message())
	}
	if recorded[1].Message() != "At 2 o'clock, one step away." {
		t.Fatalf("expected location cue, got %q", recorded[1].Message())
	}
	if !recorded[2].Done() {
		t.Fatalf("expected terminal cue to be done")
	}
}

func TestFindObjectReportsAbsence(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{textStream("no")}}
	coordinator, recorder, _ := newTestCoordinator(fake)

	if err := coordinator.FindObject(context.Background(), "mug", testFrame()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	recorded := recorder.recorded()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(recorded))
	}
	if !strings.Contains(recorded[0].Message(), "No mug found") {
		t.Fatalf("expected absence cue, got %q", recorded[0].Message())
	}
	if !recorded[0].Done() {
		t.Fatalf("expected absence cue to be done")
	}
}

func TestFindObjectPrefersStructuredVerdict(t *testing.T) {
	fake := &fakeVisionWithVerdict{
		fakeVision: &fakeVision{responses: []scriptedStream{textStream("By your right hand.")}},
		present:    true,
	}
	coordinator, recorder, _ := newTestCoordinator(fake)

	if err := coordinator.FindObject(context.Background(), "keys", testFrame()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if fake.verdictCalls != 1 {
		t.Fatalf("expected 1 verdict call, got %d", fake.verdictCalls)
	}
	if fake.judged != "keys" {
		t.Fatalf("expected verdict for keys, got %q", fake.judged)
	}
	// The presence check must not go through the yes/no text prompt.
	for _, prompt := range fake.recordedPrompts() {
		if strings.Contains(prompt, "yes") {
			t.Fatalf("expected no yes/no prompt, got %q", prompt)
		}
	}
	if len(recorder.recorded()) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(recorder.recorded()))
	}
}

func TestFindObjectUsesNonStreamedPresenceCheck(t *testing.T) {
	fake := &fakeVisionWithPrompt{
		fakeVision: &fakeVision{responses: []scriptedStream{textStream("On the table at 11 o'clock.")}},
		answer:     "Yes",
	}
	coordinator, recorder, lease := newTestCoordinator(fake)

	if err := coordinator.FindObject(context.Background(), "phone", testFrame()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if fake.promptCalls != 1 {
		t.Fatalf("expected 1 non-streamed presence check, got %d", fake.promptCalls)
	}
	if len(recorder.recorded()) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(recorder.recorded()))
	}
	if spent := lease.tokensSpent(); spent < 7 {
		t.Fatalf("expected presence-check usage recorded, got %d", spent)
	}
}

func TestAnswerQuestionFallsBackOnError(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{{err: errors.New("model unavailable")}}}
	coordinator, recorder, _ := newTestCoordinator(fake)

	if err := coordinator.AnswerQuestion(context.Background(), "what is this?", testFrame()); err == nil {
		t.Fatalf("expected error, got nil")
	}

	recorded := recorder.recorded()
	if len(recorded) != 1 || recorded[0].Message() != answerFallbackMessage {
		t.Fatalf("expected answer fallback cue, got %v", recorded)
	}
}

func TestStreamUsageFeedsTokenBudget(t *testing.T) {
	reported := scriptedStream{chunks: []vision.StreamChunk{
		fakeContentChunk{content: "ok"},
		fakeUsageChunk{usage: vision.Usage{TotalTokens: 420}},
	}}
	fake := &fakeVision{responses: []scriptedStream{reported}}
	coordinator, _, lease := newTestCoordinator(fake)

	if err := coordinator.AnnounceAmbient(context.Background(), "", []camera.Frame{testFrame()}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if spent := lease.tokensSpent(); spent != 420 {
		t.Fatalf("expected 420 tokens recorded, got %d", spent)
	}
}

func TestStreamWithoutUsageEstimatesTokens(t *testing.T) {
	fake := &fakeVision{responses: []scriptedStream{textStream("a short description")}}
	coordinator, _, lease := newTestCoordinator(fake)

	if err := coordinator.AnnounceAmbient(context.Background(), "", []camera.Frame{testFrame()}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// One frame alone accounts for at least the per-frame estimate.
	if spent := lease.tokensSpent(); spent < estimatedTokensPerFrame {
		t.Fatalf("expected at least %d estimated tokens, got %d", estimatedTokensPerFrame, spent)
	}
}
