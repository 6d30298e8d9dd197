package camera

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrFeedClosed         = errors.New("camera feed closed")
	ErrSubscriberExists   = errors.New("subscriber already registered")
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// SubscriberStats tracks per-subscriber delivery counters.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// Feed broadcasts captured frames to any number of subscribers.
//
// Publishing never blocks: every subscriber owns a single latest-frame slot
// and a new frame overwrites an unconsumed one (drop-oldest). A late
// subscriber immediately observes the most recently published frame.
type Feed struct {
	mu          sync.Mutex
	latest      Frame
	hasLatest   bool
	subscribers map[string]*Receiver
	closed      bool
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[string]*Receiver)}
}

// Publish hands a frame to every subscriber, overwriting any frame a slow
// subscriber has not consumed yet.
func (f *Feed) Publish(frame Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	f.latest = frame
	f.hasLatest = true
	for _, receiver := range f.subscribers {
		receiver.offer(frame)
	}
}

// Subscribe registers a receiver under id, replaying the latest published
// frame into it so late subscribers never start cold.
func (f *Feed) Subscribe(id string) (*Receiver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFeedClosed
	}
	if _, exists := f.subscribers[id]; exists {
		return nil, ErrSubscriberExists
	}

	receiver := newReceiver()
	if f.hasLatest {
		receiver.offer(f.latest)
	}
	f.subscribers[id] = receiver
	return receiver, nil
}

func (f *Feed) Unsubscribe(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	receiver, ok := f.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	delete(f.subscribers, id)
	receiver.close()
	return nil
}

func (f *Feed) Stats(id string) (*SubscriberStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	receiver, ok := f.subscribers[id]
	if !ok {
		return nil, ErrSubscriberNotFound
	}
	stats := receiver.statsSnapshot()
	return &stats, nil
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, receiver := range f.subscribers {
		receiver.close()
		delete(f.subscribers, id)
	}
}

// Receiver is one subscriber's view of the feed: a single latest-frame slot
// with a wakeup signal.
type Receiver struct {
	mu       sync.Mutex
	frame    Frame
	hasFrame bool
	stats    SubscriberStats
	closed   bool

	updateSignal chan struct{}
}

func newReceiver() *Receiver {
	return &Receiver{updateSignal: make(chan struct{}, 1)}
}

func (r *Receiver) offer(frame Frame) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.hasFrame {
		r.stats.Dropped++
	}
	r.frame = frame
	r.hasFrame = true
	r.stats.Sent++
	r.mu.Unlock()

	select {
	case r.updateSignal <- struct{}{}:
	default:
	}
}

// Next blocks until a frame is available or the context is done.
func (r *Receiver) Next(ctx context.Context) (Frame, error) {
	for {
		if frame, ok := r.take(); ok {
			return frame, nil
		}

		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return Frame{}, ErrFeedClosed
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-r.updateSignal:
		}
	}
}

// Latest consumes the pending frame without blocking.
func (r *Receiver) Latest() (Frame, bool) {
	return r.take()
}

func (r *Receiver) take() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasFrame {
		return Frame{}, false
	}
	frame := r.frame
	r.hasFrame = false
	return frame, true
}

func (r *Receiver) statsSnapshot() SubscriberStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Receiver) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	select {
	case r.updateSignal <- struct{}{}:
	default:
	}
}
