package navigation

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tovaren/sightline-core/core/camera"
	"github.com/tovaren/sightline-core/core/cues"
	"github.com/tovaren/sightline-core/core/vision"
)

// Spoken fallbacks for when the vision model is unreachable or errors
// mid-response. They are deliberately generic: a wrong canned warning is safer
// than silence for the critical category and than confusion for the rest.
const (
	criticalFallbackMessage      = "Caution, possible danger ahead. Please stop and check your surroundings."
	informationalFallbackMessage = "New objects detected nearby. Stay aware of your surroundings."
	ambientFallbackMessage       = "Unable to describe the surroundings right now."
	answerFallbackMessage        = "Unable to answer right now. Please try again."
)

// cueFactory pairs the streamed-chunk and terminal constructors for one cue
// category.
type cueFactory struct {
	chunk func(message string) cues.Cue
	done  func(message string) cues.Cue
}

var (
	criticalCues = cueFactory{
		chunk: func(message string) cues.Cue { return cues.NewCriticalAlert(message) },
		done:  func(message string) cues.Cue { return cues.NewCriticalAlertDone(message) },
	}
	informationalCues = cueFactory{
		chunk: func(message string) cues.Cue { return cues.NewInformationalAlert(message) },
		done:  func(message string) cues.Cue { return cues.NewInformationalAlertDone(message) },
	}
	ambientCues = cueFactory{
		chunk: func(message string) cues.Cue { return cues.NewAmbientUpdate(message) },
		done:  func(message string) cues.Cue { return cues.NewAmbientUpdateDone(message) },
	}
)

// alertCoordinator turns assessed threats and user requests into model calls
// and spoken cues. Every model call goes through the inference lease, so the
// coordinator inherits the one-cycle-at-a-time guarantee, and every failure
// path degrades into a canned fallback cue instead of silence.
type alertCoordinator struct {
	emitter  *cueEmitter
	sessions *promptSessions
	lease    *inferenceLease
	vision   VisionWithStream

	// alive gates emission; a cue for a mode that was cancelled mid-stream
	// is dropped rather than spoken late. Nil means always alive.
	alive func(ctx context.Context) bool
}

func newAlertCoordinator(emitter *cueEmitter, sessions *promptSessions, lease *inferenceLease, visionClient VisionWithStream, alive func(ctx context.Context) bool) *alertCoordinator {
	return &alertCoordinator{
		emitter:  emitter,
		sessions: sessions,
		lease:    lease,
		vision:   visionClient,
		alive:    alive,
	}
}

func (c *alertCoordinator) emit(ctx context.Context, cue cues.Cue) {
	if c.alive != nil && !c.alive(ctx) {
		return
	}
	c.emitter.Emit(cue)
}

// streamResponse runs one full prompt/response cycle under the inference
// lease: each content chunk is emitted as a cue in arrival order, and stream
// completion without error produces the terminal done cue. The accumulated
// response text is returned so callers can pattern-match control signals
// after, and only after, the response is complete.
func (c *alertCoordinator) streamResponse(ctx context.Context, prompt string, frames []camera.Frame, sessionID string, factory cueFactory) (string, error) {
	ctx, span := tracer.Start(ctx, "stream response")
	defer span.End()
	span.SetAttributes(
		attribute.Int("frames", len(frames)),
		attribute.Bool("sessioned", sessionID != ""),
	)

	if c.vision == nil {
		err := fmt.Errorf("no vision client configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if err := c.lease.Acquire(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to acquire inference lease: %w", err)
	}
	defer c.lease.Release()

	opts := []vision.StreamingPromptOption{vision.WithFrames(frames...)}
	if sessionID != "" {
		opts = append(opts, vision.WithSession(sessionID))
	}

	var response strings.Builder
	usageReported := false
	stream := c.vision.PromptWithStream(ctx, &prompt, opts...)
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return response.String(), fmt.Errorf("response stream failed: %w", err)
		}

		switch chunk := chunk.(type) {
		case vision.StreamContentChunk:
			if content := chunk.Content(); content != "" {
				response.WriteString(content)
				if factory.chunk != nil {
					c.emit(ctx, factory.chunk(content))
				}
			}
		case vision.StreamUsageChunk:
			c.lease.RecordUsage(chunk.Usage().TotalTokens)
			usageReported = true
		}
	}

	if !usageReported {
		c.lease.RecordEstimated(prompt+response.String(), len(frames))
	}

	// Iterator completion without error is the model's done signal.
	if factory.done != nil {
		c.emit(ctx, factory.done(""))
	}
	return response.String(), nil
}

// collectResponse runs a cycle without emitting cues; used for internal
// queries whose raw answer the coordinator interprets itself.
func (c *alertCoordinator) collectResponse(ctx context.Context, prompt string, frames []camera.Frame) (string, error) {
	return c.streamResponse(ctx, prompt, frames, "", cueFactory{})
}

// fallback emits the category's canned done cue, unless the failure was the
// caller's own cancellation.
func (c *alertCoordinator) fallback(ctx context.Context, factory cueFactory, message string) {
	if ctx.Err() != nil {
		return
	}
	if factory.done != nil {
		c.emit(ctx, factory.done(message))
	}
}

// sessionedPrompt resolves the two-phase prompt for the session, falling back
// to the stateless prompt when the session is unknown. The returned session
// id is empty on the stateless path so the provider call is one-shot too.
func (c *alertCoordinator) sessionedPrompt(sessionID, stateless string) (prompt string, id string) {
	if prompt, ok := c.sessions.Prompt(sessionID); ok {
		return prompt, sessionID
	}
	return stateless, ""
}

// AnnounceCritical speaks imminent-danger guidance about the detected
// objects.
func (c *alertCoordinator) AnnounceCritical(ctx context.Context, sessionID string, objects []string, frames []camera.Frame) error {
	detected := strings.Join(objects, ", ")
	prompt, id := c.sessionedPrompt(sessionID, fmt.Sprintf(criticalStaticPrompt, detected))
	if id != "" {
		prompt = prompt + "\nDetected: " + detected
	}

	if _, err := c.streamResponse(ctx, prompt, frames, id, criticalCues); err != nil {
		c.fallback(ctx, criticalCues, criticalFallbackMessage)
		return fmt.Errorf("critical announcement failed: %w", err)
	}
	return nil
}

// AnnounceInformational speaks a one-time mention of newly seen objects.
func (c *alertCoordinator) AnnounceInformational(ctx context.Context, sessionID string, objects []string, frames []camera.Frame) error {
	detected := strings.Join(objects, ", ")
	prompt, id := c.sessionedPrompt(sessionID, fmt.Sprintf(informationalStaticPrompt, detected))
	if id != "" {
		prompt = prompt + "\nNewly detected: " + detected
	}

	if _, err := c.streamResponse(ctx, prompt, frames, id, informationalCues); err != nil {
		c.fallback(ctx, informationalCues, informationalFallbackMessage)
		return fmt.Errorf("informational announcement failed: %w", err)
	}
	return nil
}

// AnnounceAmbient speaks a periodic scene description.
func (c *alertCoordinator) AnnounceAmbient(ctx context.Context, sessionID string, frames []camera.Frame) error {
	prompt, id := c.sessionedPrompt(sessionID, ambientStaticPrompt)

	if _, err := c.streamResponse(ctx, prompt, frames, id, ambientCues); err != nil {
		c.fallback(ctx, ambientCues, ambientFallbackMessage)
		return fmt.Errorf("ambient update failed: %w", err)
	}
	return nil
}

// FindObject checks whether the object is in view and, only when it is,
// streams a location description. The presence check prefers the provider's
// structured verdict and falls back to a yes/no text answer.
func (c *alertCoordinator) FindObject(ctx context.Context, object string, frame camera.Frame) error {
	present, err := c.judgePresence(ctx, object, frame)
	if err != nil {
		c.fallback(ctx, informationalCues, answerFallbackMessage)
		return fmt.Errorf("failed to check for %s: %w", object, err)
	}

	if !present {
		c.emit(ctx, informationalCues.done(fmt.Sprintf("No %s found in view.", object)))
		return nil
	}

	c.emit(ctx, informationalCues.chunk(fmt.Sprintf("%s detected. ", object)))
	prompt := fmt.Sprintf(objectLocationPrompt, object)
	if _, err := c.streamResponse(ctx, prompt, []camera.Frame{frame}, "", informationalCues); err != nil {
		c.fallback(ctx, informationalCues, answerFallbackMessage)
		return fmt.Errorf("failed to locate %s: %w", object, err)
	}
	return nil
}

func (c *alertCoordinator) judgePresence(ctx context.Context, object string, frame camera.Frame) (bool, error) {
	if judge, ok := c.vision.(VisionWithVerdict); ok {
		if err := c.lease.Acquire(ctx); err != nil {
			return false, fmt.Errorf("failed to acquire inference lease: %w", err)
		}
		defer c.lease.Release()

		present, err := judge.JudgeObjectPresence(ctx, object, []camera.Frame{frame})
		if err != nil {
			return false, err
		}
		c.lease.RecordEstimated(object, 1)
		return present, nil
	}

	prompt := fmt.Sprintf(objectPresencePrompt, object)
	if prompter, ok := c.vision.(VisionWithPrompt); ok {
		if err := c.lease.Acquire(ctx); err != nil {
			return false, fmt.Errorf("failed to acquire inference lease: %w", err)
		}
		defer c.lease.Release()

		response, err := prompter.Prompt(ctx, &prompt, vision.WithFrames(frame))
		if err != nil {
			return false, err
		}
		if response.Usage != nil {
			c.lease.RecordUsage(response.Usage.TotalTokens)
		} else {
			c.lease.RecordEstimated(prompt+response.Content, 1)
		}
		return strings.Contains(strings.ToLower(response.Content), "yes"), nil
	}

	answer, err := c.collectResponse(ctx, prompt, []camera.Frame{frame})
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(answer), "yes"), nil
}

// AnswerQuestion speaks the model's answer to a free-form question about the
// current view.
func (c *alertCoordinator) AnswerQuestion(ctx context.Context, question string, frame camera.Frame) error {
	return c.respond(ctx, fmt.Sprintf(questionStaticPrompt, question), frame)
}

// ReadText reads legible text in the current view aloud.
func (c *alertCoordinator) ReadText(ctx context.Context, frame camera.Frame) error {
	return c.respond(ctx, readTextStaticPrompt, frame)
}

// IdentifyCurrency identifies a currency note or coin in the current view.
func (c *alertCoordinator) IdentifyCurrency(ctx context.Context, frame camera.Frame) error {
	return c.respond(ctx, currencyStaticPrompt, frame)
}

func (c *alertCoordinator) respond(ctx context.Context, prompt string, frame camera.Frame) error {
	if _, err := c.streamResponse(ctx, prompt, []camera.Frame{frame}, "", informationalCues); err != nil {
		c.fallback(ctx, informationalCues, answerFallbackMessage)
		return err
	}
	return nil
}
