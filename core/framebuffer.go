package navigation

import (
	"sync"

	"github.com/tovaren/sightline-core/core/camera"
)

const (
	defaultFrameBufferCapacity = 35
	defaultMaxFrameAgeMs       = camera.DefaultMaxFrameAgeMs

	// motionPairSpacing is how many buffered frames apart the motion pair
	// should be, giving the model roughly a second of temporal context at
	// ~30fps capture.
	motionPairSpacing = 30
)

// SharpnessScorer rates a frame's sharpness; higher is sharper. The metric
// itself is injected, the buffer only compares scores.
type SharpnessScorer func(frame camera.Frame) float64

// frameBuffer is a bounded temporal store of recent camera frames. It is
// single-writer (the capture path) and multi-reader: reads snapshot the
// buffered frames under the lock and never observe a half-written frame.
type frameBuffer struct {
	mu sync.Mutex

	frames   []camera.Frame
	capacity int
	maxAgeMs int64

	scorer         SharpnessScorer
	scoreThreshold float64
}

func newFrameBuffer(capacity int, maxAgeMs int64) *frameBuffer {
	if capacity <= 0 {
		capacity = defaultFrameBufferCapacity
	}
	if maxAgeMs <= 0 {
		maxAgeMs = defaultMaxFrameAgeMs
	}

	return &frameBuffer{
		capacity: capacity,
		maxAgeMs: maxAgeMs,
	}
}

func (b *frameBuffer) setScorer(scorer SharpnessScorer, threshold float64) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.scorer = scorer
	b.scoreThreshold = threshold
}

// Push appends a frame, then evicts from the front until the buffer is within
// capacity and every retained frame is younger than the max-age window
// relative to the newest frame.
func (b *frameBuffer) Push(frame camera.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, frame)

	evictBefore := 0
	for len(b.frames)-evictBefore > b.capacity {
		evictBefore++
	}
	newest := b.frames[len(b.frames)-1].TimestampMs
	for evictBefore < len(b.frames)-1 && newest-b.frames[evictBefore].TimestampMs > b.maxAgeMs {
		evictBefore++
	}

	if evictBefore > 0 {
		remaining := make([]camera.Frame, len(b.frames)-evictBefore)
		copy(remaining, b.frames[evictBefore:])
		b.frames = remaining
	}
}

func (b *frameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Latest returns the most recently pushed frame.
func (b *frameBuffer) Latest() (camera.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == 0 {
		return camera.Frame{}, false
	}
	return b.frames[len(b.frames)-1], true
}

// BestQuality returns the sharpest buffered frame so a motion-blurred frame
// is never fed to the vision model. When no frame scores above the acceptance
// threshold (or no scorer is configured) it falls back to the most recent
// frame; a non-empty buffer always yields a frame.
func (b *frameBuffer) BestQuality() (camera.Frame, bool) {
	snapshot, scorer, threshold := b.snapshot()
	if len(snapshot) == 0 {
		return camera.Frame{}, false
	}
	if scorer == nil {
		return snapshot[len(snapshot)-1], true
	}

	// Scoring runs on the snapshot so a slow metric never blocks the
	// capture path.
	best := -1
	bestScore := threshold
	for i, frame := range snapshot {
		if score := scorer(frame); score >= bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return snapshot[len(snapshot)-1], true
	}
	return snapshot[best], true
}

// MotionPair returns two frames spaced about motionPairSpacing insertions
// apart, chronological order, to give the model temporal context. With fewer
// than two buffered frames it returns what is available.
func (b *frameBuffer) MotionPair() []camera.Frame {
	snapshot, _, _ := b.snapshot()
	if len(snapshot) == 0 {
		return nil
	}
	if len(snapshot) == 1 {
		return []camera.Frame{snapshot[0]}
	}

	newest := len(snapshot) - 1
	oldest := newest - motionPairSpacing
	if oldest < 0 {
		oldest = 0
	}
	return []camera.Frame{snapshot[oldest], snapshot[newest]}
}

func (b *frameBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
}

func (b *frameBuffer) snapshot() ([]camera.Frame, SharpnessScorer, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make([]camera.Frame, len(b.frames))
	copy(snapshot, b.frames)
	return snapshot, b.scorer, b.scoreThreshold
}
