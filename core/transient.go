package navigation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// transientGate serializes user-initiated one-shot operations and suspends
// the continuous mode around them, so the camera/AI pipeline never services
// two conversational requests at once and the background loop never talks
// over a latency-sensitive request.
type transientGate struct {
	mu    sync.Mutex
	modes *modeManager

	// resume restarts the previously paused mode after a transient
	// operation finishes.
	resume func(mode OperatingMode)
}

func newTransientGate(modes *modeManager, resume func(mode OperatingMode)) *transientGate {
	return &transientGate{modes: modes, resume: resume}
}

// ExecuteExclusive runs operation under the global transient mutex. The
// active continuous mode (if any) is paused first and resumed on every exit
// path; operation failures propagate after cleanup.
func (g *transientGate) ExecuteExclusive(ctx context.Context, name string, operation func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, span := tracer.Start(ctx, "transient operation")
	defer span.End()
	span.SetAttributes(attribute.String("operation", name))

	pausedMode, wasPaused := "", false
	if g.modes != nil {
		if g.modes.Pause() {
			if mode, ok := g.modes.Paused(); ok {
				pausedMode, wasPaused = string(mode), true
			}
		}
	}
	span.SetAttributes(attribute.Bool("paused_continuous_mode", wasPaused))

	err := func() (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s operation panicked: %v", name, recovered)
			}
		}()
		return operation(ctx)
	}()

	if g.modes != nil && wasPaused {
		if _, stillPaused := g.modes.Paused(); stillPaused {
			g.modes.ClearPaused()
			if g.resume != nil {
				g.resume(OperatingMode(pausedMode))
			}
		}
	}

	if err != nil {
		err = fmt.Errorf("%s operation failed: %w", name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
