package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tovaren/sightline-core/core/camera"
	"github.com/tovaren/sightline-core/core/cues"
	"github.com/tovaren/sightline-core/core/detection"
)

const (
	navigationSessionID = "navigation"

	defaultCrossingPollInterval = 2 * time.Second
	defaultCrossingTimeout      = 5 * time.Minute
	defaultFrameWaitTimeout     = 1500 * time.Millisecond
	frameWaitPollInterval       = 50 * time.Millisecond

	noFrameMessage = "No camera frame available. Please check the camera."
)

var (
	ErrAlreadyDirecting = errors.New("director is already running")
	ErrNotDirecting     = errors.New("director is not running")
)

// Director is the pipeline root: it pumps camera frames into the buffer and
// the detector, turns detection ticks into assessed threats and spoken cues,
// and exposes the user-facing navigation, crossing, and ask-style operations.
// One Director services one camera stream.
type Director struct {
	vision   VisionWithStream
	detector detection.Detector
	feed     *camera.Feed

	frames   *frameBuffer
	threats  *threatAssessor
	sessions *promptSessions
	lease    *inferenceLease
	emitter  *cueEmitter

	modes       *modeManager
	gate        *transientGate
	coordinator *alertCoordinator

	tokenBudget          int
	crossingPollInterval time.Duration
	crossingTimeout      time.Duration
	frameWaitTimeout     time.Duration

	scorer         SharpnessScorer
	scoreThreshold float64

	started atomic.Bool
	closed  atomic.Bool

	// announcing guards the per-tick inference dispatch: detection ticks that
	// arrive while an announcement is in flight are skipped whole, cooldown
	// bookkeeping included, so speech is never queued up faster than it can
	// be spoken.
	announcing atomic.Bool

	mu      sync.Mutex
	baseCtx context.Context
	navCtx  context.Context
	options DirectOptions
}

func NewDirector(opts ...DirectorOption) *Director {
	d := &Director{
		feed:                 camera.NewFeed(),
		frames:               newFrameBuffer(0, 0),
		threats:              newThreatAssessor(DefaultThreatConfig()),
		sessions:             newPromptSessions(),
		emitter:              newCueEmitter(),
		crossingPollInterval: defaultCrossingPollInterval,
		crossingTimeout:      defaultCrossingTimeout,
		frameWaitTimeout:     defaultFrameWaitTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.scorer != nil {
		d.frames.setScorer(d.scorer, d.scoreThreshold)
	}

	d.lease = newInferenceLease(d.tokenBudget, func(ctx context.Context) error {
		if sessioned, ok := d.vision.(VisionWithSessions); ok {
			return sessioned.ResetSessions(ctx)
		}
		return nil
	})
	d.modes = newModeManager(d.onModeStop)
	d.gate = newTransientGate(d.modes, d.resumeMode)
	d.coordinator = newAlertCoordinator(d.emitter, d.sessions, d.lease, d.vision, func(ctx context.Context) bool {
		return ctx == nil || ctx.Err() == nil
	})

	return d
}

// Direct starts the pipeline and blocks until the passed context is
// cancelled. It wires the camera feed into the frame buffer and the detector,
// and the detector's label callbacks into threat assessment. Only one Direct
// call may be active per Director.
func (d *Director) Direct(ctx context.Context, opts ...DirectOption) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyDirecting
	}

	ctx, span := tracer.Start(ctx, "direct")
	defer span.End()

	options := DirectOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	d.mu.Lock()
	d.baseCtx = ctx
	d.options = options
	d.mu.Unlock()
	d.emitter.setCallback(options.onCue)

	receiver, err := d.feed.Subscribe("director")
	if err != nil {
		return fmt.Errorf("failed to subscribe to camera feed: %w", err)
	}
	defer func() {
		if err := d.feed.Unsubscribe("director"); err != nil {
			logger.WarnContext(ctx, "failed to unsubscribe from camera feed", "error", err)
		}
	}()

	if d.detector != nil {
		err := d.detector.Start(ctx,
			detection.WithLabelsCallback(d.handleDetection),
			detection.WithErrorCallback(func(err error) {
				logger.WarnContext(ctx, "detector frame analysis failed", "error", err)
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to start detector: %w", err)
		}
		defer func() {
			if err := d.detector.Close(context.WithoutCancel(ctx)); err != nil {
				logger.WarnContext(ctx, "failed to close detector", "error", err)
			}
		}()
	}

	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		for {
			frame, err := receiver.Next(ctx)
			if err != nil {
				return
			}
			d.frames.Push(frame)
			if d.detector != nil {
				if err := d.detector.SendFrame(frame); err != nil {
					logger.WarnContext(ctx, "failed to submit frame to detector", "error", err)
				}
			}
		}
	}()

	<-ctx.Done()
	d.modes.Stop()
	pump.Wait()

	if err := ctx.Err(); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Feed returns the camera feed frames should be published into.
func (d *Director) Feed() *camera.Feed {
	return d.feed
}

// Cues returns a subscription to the emitted cue stream alongside its cancel
// function. Works in addition to the Direct cue callback.
func (d *Director) Cues() (<-chan cues.Cue, func()) {
	return d.emitter.Subscribe()
}

// StartNavigation begins continuous walking guidance. Any previously active
// mode is replaced and the navigation prompt session starts over from its
// full instruction phase.
func (d *Director) StartNavigation() error {
	if !d.started.Load() {
		return ErrNotDirecting
	}

	d.sessions.Start(navigationSessionID, OperationNavigation, "")
	d.startMode(ModeNavigation)
	return nil
}

// StopNavigation ends continuous guidance and resets the pipeline's
// per-session state.
func (d *Director) StopNavigation() {
	d.modes.Stop()
}

func (d *Director) startMode(mode OperatingMode) {
	d.mu.Lock()
	baseCtx := d.baseCtx
	d.mu.Unlock()
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	d.modes.Start(baseCtx, mode, func(ctx context.Context) {
		d.setNavigationContext(ctx)
		<-ctx.Done()
		d.clearNavigationContext(ctx)
	})
}

// resumeMode restarts a mode paused around a transient operation, keeping the
// prompt session in its follow-up phase.
func (d *Director) resumeMode(mode OperatingMode) {
	if mode == ModeNavigation {
		d.startMode(ModeNavigation)
	}
}

func (d *Director) onModeStop() {
	d.frames.Clear()
	d.threats.Reset()
	d.lease.Reset()
	d.sessions.End(navigationSessionID)
	if sessioned, ok := d.vision.(VisionWithSessions); ok {
		sessioned.EndSession(navigationSessionID)
	}

	d.mu.Lock()
	onEnded := d.options.onNavigationEnded
	d.mu.Unlock()
	if onEnded != nil {
		onEnded()
	}
}

func (d *Director) setNavigationContext(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navCtx = ctx
}

// clearNavigationContext clears the stored context only if it is still the
// passed one, so a stale task ending late cannot clobber its successor.
func (d *Director) clearNavigationContext(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.navCtx == ctx {
		d.navCtx = nil
	}
}

func (d *Director) navigationContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.navCtx
}

// handleDetection is the detector's per-frame label callback. It classifies
// the tick and dispatches at most one announcement at a time; ticks arriving
// while an announcement is in flight are skipped.
func (d *Director) handleDetection(labels []string) {
	navCtx := d.navigationContext()
	if navCtx == nil || !d.modes.Alive(navCtx) {
		return
	}

	if !d.announcing.CompareAndSwap(false, true) {
		return
	}

	assessment := d.threats.Assess(labels, time.Now())
	if _, quiet := assessment.(NoAlert); quiet {
		d.announcing.Store(false)
		return
	}

	go func() {
		defer d.announcing.Store(false)

		ctx, span := tracer.Start(navCtx, "announce threat")
		defer span.End()

		var err error
		switch assessment := assessment.(type) {
		case CriticalThreat:
			span.SetAttributes(attribute.String("category", "critical"))
			frames := d.frames.MotionPair()
			if len(frames) == 0 {
				return
			}
			err = d.coordinator.AnnounceCritical(ctx, navigationSessionID, assessment.Objects, frames)
		case NewObjects:
			span.SetAttributes(attribute.String("category", "informational"))
			frame, ok := d.frames.BestQuality()
			if !ok {
				return
			}
			err = d.coordinator.AnnounceInformational(ctx, navigationSessionID, assessment.Objects, []camera.Frame{frame})
		case AmbientDue:
			span.SetAttributes(attribute.String("category", "ambient"))
			frame, ok := d.frames.BestQuality()
			if !ok {
				return
			}
			err = d.coordinator.AnnounceAmbient(ctx, navigationSessionID, []camera.Frame{frame})
		}

		if err != nil && ctx.Err() == nil {
			logger.WarnContext(ctx, "threat announcement failed", "error", err)
		}
	}()
}

// StartCrossing suspends continuous guidance and guides the user across a
// street, polling the model with fresh motion pairs until it declares the
// crossing complete, the safety timeout expires, or the context is cancelled.
// Model-requested waits suspend polling for the requested number of seconds.
func (d *Director) StartCrossing(ctx context.Context) error {
	if !d.started.Load() {
		return ErrNotDirecting
	}

	return d.gate.ExecuteExclusive(ctx, "crossing", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d.crossingTimeout)
		defer cancel()

		sessionID := fmt.Sprintf("crossing_%d", time.Now().UnixMilli())
		d.sessions.Start(sessionID, OperationCrossing, "")
		defer func() {
			d.sessions.End(sessionID)
			if sessioned, ok := d.vision.(VisionWithSessions); ok {
				sessioned.EndSession(sessionID)
			}
		}()

		for {
			frames := d.frames.MotionPair()
			if len(frames) == 0 {
				frame, ok := d.awaitFrame(ctx)
				if !ok {
					d.emitter.Emit(cues.NewCriticalAlertDone(noFrameMessage))
					return errors.New("no camera frame available")
				}
				frames = []camera.Frame{frame}
			}

			complete, waitSeconds, err := d.coordinator.GuideCrossing(ctx, sessionID, frames)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			// Guidance errors already produced a fallback cue; keep polling
			// rather than abandoning the user mid-street.

			if complete {
				d.mu.Lock()
				onComplete := d.options.onCrossingComplete
				d.mu.Unlock()
				if onComplete != nil {
					onComplete()
				}
				return nil
			}

			delay := d.crossingPollInterval
			if waitSeconds > 0 {
				d.mu.Lock()
				onWait := d.options.onCrossingWait
				d.mu.Unlock()
				if onWait != nil {
					onWait(waitSeconds)
				}
				delay = time.Duration(waitSeconds) * time.Second
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	})
}

// FindObject checks the current view for the named object and, when present,
// speaks where it is.
func (d *Director) FindObject(ctx context.Context, object string) error {
	return d.transientWithFrame(ctx, "find object", func(ctx context.Context, frame camera.Frame) error {
		return d.coordinator.FindObject(ctx, object, frame)
	})
}

// AskQuestion speaks the model's answer to a free-form question about the
// current view.
func (d *Director) AskQuestion(ctx context.Context, question string) error {
	return d.transientWithFrame(ctx, "ask question", func(ctx context.Context, frame camera.Frame) error {
		return d.coordinator.AnswerQuestion(ctx, question, frame)
	})
}

// ReadText reads legible text in the current view aloud.
func (d *Director) ReadText(ctx context.Context) error {
	return d.transientWithFrame(ctx, "read text", func(ctx context.Context, frame camera.Frame) error {
		return d.coordinator.ReadText(ctx, frame)
	})
}

// IdentifyCurrency identifies a currency note or coin held up to the camera.
func (d *Director) IdentifyCurrency(ctx context.Context) error {
	return d.transientWithFrame(ctx, "identify currency", func(ctx context.Context, frame camera.Frame) error {
		return d.coordinator.IdentifyCurrency(ctx, frame)
	})
}

func (d *Director) transientWithFrame(ctx context.Context, name string, operation func(ctx context.Context, frame camera.Frame) error) error {
	if !d.started.Load() {
		return ErrNotDirecting
	}

	return d.gate.ExecuteExclusive(ctx, name, func(ctx context.Context) error {
		frame, ok := d.awaitFrame(ctx)
		if !ok {
			d.emitter.Emit(cues.NewInformationalAlertDone(noFrameMessage))
			return errors.New("no camera frame available")
		}
		return operation(ctx, frame)
	})
}

// awaitFrame waits briefly for a usable frame, covering the window right
// after a mode switch when the buffer was just cleared.
func (d *Director) awaitFrame(ctx context.Context) (camera.Frame, bool) {
	deadline := time.Now().Add(d.frameWaitTimeout)
	for {
		if frame, ok := d.frames.BestQuality(); ok {
			return frame, true
		}
		if time.Now().After(deadline) {
			return camera.Frame{}, false
		}
		select {
		case <-ctx.Done():
			return camera.Frame{}, false
		case <-time.After(frameWaitPollInterval):
		}
	}
}

// Close releases the Director's resources. Safe to call more than once.
func (d *Director) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.modes.Stop()
	d.feed.Close()
	d.emitter.Close()
	d.frames.Clear()
	d.lease.Reset()
}
