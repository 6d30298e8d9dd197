package navigation

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tovaren/sightline-core/core/cues"
)

const cueSubscriberBuffer = 32

// cueEmitter fans emitted cues out to the configured callback and to every
// channel subscriber. Emission never blocks the pipeline: a subscriber that
// stops draining loses its oldest undelivered cues first, while a subscriber
// that keeps up observes every cue in emission order.
type cueEmitter struct {
	mu          sync.Mutex
	subscribers map[string]chan cues.Cue
	onCue       func(cues.Cue)
	closed      bool
}

func newCueEmitter() *cueEmitter {
	return &cueEmitter{subscribers: map[string]chan cues.Cue{}}
}

func (e *cueEmitter) setCallback(onCue func(cues.Cue)) {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCue = onCue
}

func (e *cueEmitter) Emit(cue cues.Cue) {
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	onCue := e.onCue
	// Sends stay under the lock so an unsubscribe can never close a channel
	// mid-emission; every send below is non-blocking.
	for _, channel := range e.subscribers {
		for {
			select {
			case channel <- cue:
			default:
				// Full buffer: drop the oldest cue and retry so the
				// subscriber converges on recent guidance.
				select {
				case <-channel:
				default:
				}
				continue
			}
			break
		}
	}
	e.mu.Unlock()

	if onCue != nil {
		onCue(cue)
	}
}

// Subscribe registers a cue channel. The returned cancel function
// unregisters and closes it.
func (e *cueEmitter) Subscribe() (<-chan cues.Cue, func()) {
	id := uuid.NewString()
	channel := make(chan cues.Cue, cueSubscriberBuffer)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(channel)
		return channel, func() {}
	}
	e.subscribers[id] = channel
	e.mu.Unlock()

	return channel, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(channel)
		}
	}
}

func (e *cueEmitter) Close() {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, channel := range e.subscribers {
		close(channel)
		delete(e.subscribers, id)
	}
}
