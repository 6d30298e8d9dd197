package navigation

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// OperatingMode names a long-running continuous mode. Exactly one mode, or
// none, is active at a time.
type OperatingMode string

const ModeNavigation OperatingMode = "NAVIGATION"

type activeMode struct {
	mode   OperatingMode
	ctx    context.Context
	cancel context.CancelFunc
}

// modeManager owns the single continuous mode's lifecycle and its cancellable
// task handle. Cancellation is cooperative: Stop and Pause request it and
// return without waiting for the task to unwind, so downstream components
// check Alive before emitting.
type modeManager struct {
	mu sync.Mutex

	active *activeMode
	paused *OperatingMode

	// onStop performs downstream cleanup (frame buffer clear, lease reset);
	// fired exactly once per Stop.
	onStop func()
}

func newModeManager(onStop func()) *modeManager {
	return &modeManager{onStop: onStop}
}

// Start launches run as the mode's background task. Any predecessor task is
// cancelled first so two long-running modes can never run concurrently; any
// paused-mode memory is cleared.
func (m *modeManager) Start(baseCtx context.Context, mode OperatingMode, run func(ctx context.Context)) {
	m.mu.Lock()
	if m.active != nil {
		m.active.cancel()
		m.active = nil
	}
	m.paused = nil

	ctx, cancel := context.WithCancel(baseCtx)
	m.active = &activeMode{mode: mode, ctx: ctx, cancel: cancel}
	m.mu.Unlock()

	go func() {
		ctx, span := tracer.Start(ctx, "operating mode")
		defer span.End()
		span.SetAttributes(attribute.String("mode", string(mode)))
		run(ctx)
	}()
}

// Pause cancels the active mode's task and remembers the mode for a later
// resume. Reports whether a mode was actually paused; when idle any stale
// paused memory is cleared instead.
func (m *modeManager) Pause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		m.paused = nil
		return false
	}

	mode := m.active.mode
	m.active.cancel()
	m.active = nil
	m.paused = &mode
	return true
}

// Stop cancels any active task, clears both active and paused state, and
// triggers downstream cleanup exactly once per stop.
func (m *modeManager) Stop() {
	m.mu.Lock()
	hadState := m.active != nil || m.paused != nil
	if m.active != nil {
		m.active.cancel()
		m.active = nil
	}
	m.paused = nil
	onStop := m.onStop
	m.mu.Unlock()

	if hadState && onStop != nil {
		onStop()
	}
}

// Active returns the currently active mode, if any.
func (m *modeManager) Active() (OperatingMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return "", false
	}
	return m.active.mode, true
}

// Alive reports whether the passed context still belongs to the live task of
// an active mode; late emissions from a cancelled task check this first.
func (m *modeManager) Alive(ctx context.Context) bool {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return false
		default:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Paused returns the mode remembered by the last Pause.
func (m *modeManager) Paused() (OperatingMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused == nil {
		return "", false
	}
	return *m.paused, true
}

// ClearPaused consumes the paused-mode memory.
func (m *modeManager) ClearPaused() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = nil
}
