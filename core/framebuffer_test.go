package navigation

import (
	"sync"
	"testing"

	"github.com/tovaren/sightline-core/core/camera"
)

func TestFrameBufferNeverExceedsCapacity(t *testing.T) {
	buffer := newFrameBuffer(5, 1000)

	for i := 0; i < 20; i++ {
		buffer.Push(camera.Frame{Sequence: uint64(i), TimestampMs: int64(i)})
		if buffer.Len() > 5 {
			t.Fatalf("expected buffer to stay within capacity 5, got %d after push %d", buffer.Len(), i)
		}
	}

	latest, ok := buffer.Latest()
	if !ok || latest.Sequence != 19 {
		t.Fatalf("expected latest frame 19 to survive, got %+v", latest)
	}
}

func TestFrameBufferEvictsFramesOlderThanMaxAge(t *testing.T) {
	buffer := newFrameBuffer(35, 1000)

	buffer.Push(camera.Frame{Sequence: 1, TimestampMs: 0})
	buffer.Push(camera.Frame{Sequence: 2, TimestampMs: 500})
	buffer.Push(camera.Frame{Sequence: 3, TimestampMs: 1600})

	if buffer.Len() != 2 {
		t.Fatalf("expected the stale frame to be evicted, got %d frames", buffer.Len())
	}
	pair := buffer.MotionPair()
	if pair[0].Sequence != 2 {
		t.Fatalf("expected oldest surviving frame 2, got %d", pair[0].Sequence)
	}
}

func TestFrameBufferFortyFramesAtCaptureRateStayBounded(t *testing.T) {
	buffer := newFrameBuffer(35, 1000)

	for i := 0; i < 40; i++ {
		buffer.Push(camera.Frame{Sequence: uint64(i), TimestampMs: int64(i) * 33})
	}

	if buffer.Len() > 35 {
		t.Fatalf("expected at most 35 frames, got %d", buffer.Len())
	}

	latest, _ := buffer.Latest()
	pair := buffer.MotionPair()
	if age := latest.TimestampMs - pair[0].TimestampMs; age > 1000 {
		t.Fatalf("expected the oldest retained frame within 1000ms of the newest, got %dms", age)
	}
}

func TestBestQualityPicksSharpestFrame(t *testing.T) {
	buffer := newFrameBuffer(10, 10000)
	buffer.setScorer(func(frame camera.Frame) float64 {
		return float64(frame.Width)
	}, 0)

	buffer.Push(camera.Frame{Sequence: 1, Width: 10, TimestampMs: 1})
	buffer.Push(camera.Frame{Sequence: 2, Width: 90, TimestampMs: 2})
	buffer.Push(camera.Frame{Sequence: 3, Width: 40, TimestampMs: 3})

	frame, ok := buffer.BestQuality()
	if !ok {
		t.Fatalf("expected a frame from a non-empty buffer")
	}
	if frame.Sequence != 2 {
		t.Fatalf("expected sharpest frame 2, got %d", frame.Sequence)
	}
}

func TestBestQualityFallsBackToMostRecentWhenNothingScoresAcceptably(t *testing.T) {
	buffer := newFrameBuffer(10, 10000)
	buffer.setScorer(func(camera.Frame) float64 { return 0 }, 0.5)

	buffer.Push(camera.Frame{Sequence: 1, TimestampMs: 1})
	buffer.Push(camera.Frame{Sequence: 2, TimestampMs: 2})

	frame, ok := buffer.BestQuality()
	if !ok {
		t.Fatalf("expected a fallback frame from a non-empty buffer")
	}
	if frame.Sequence != 2 {
		t.Fatalf("expected most recent frame 2 as fallback, got %d", frame.Sequence)
	}
}

func TestBestQualityOnEmptyBufferReportsNoFrame(t *testing.T) {
	buffer := newFrameBuffer(10, 1000)

	if _, ok := buffer.BestQuality(); ok {
		t.Fatalf("expected no frame from an empty buffer")
	}
}

func TestMotionPairReturnsChronologicalSpacedFrames(t *testing.T) {
	buffer := newFrameBuffer(35, 100000)

	for i := 0; i < 35; i++ {
		buffer.Push(camera.Frame{Sequence: uint64(i), TimestampMs: int64(i)})
	}

	pair := buffer.MotionPair()
	if len(pair) != 2 {
		t.Fatalf("expected a pair, got %d frames", len(pair))
	}
	if pair[0].TimestampMs >= pair[1].TimestampMs {
		t.Fatalf("expected chronological order, got %d then %d", pair[0].TimestampMs, pair[1].TimestampMs)
	}
	if spacing := pair[1].Sequence - pair[0].Sequence; spacing != motionPairSpacing {
		t.Fatalf("expected spacing %d, got %d", motionPairSpacing, spacing)
	}
}

func TestMotionPairWithSingleFrameReturnsWhatIsAvailable(t *testing.T) {
	buffer := newFrameBuffer(35, 1000)
	buffer.Push(camera.Frame{Sequence: 1, TimestampMs: 1})

	pair := buffer.MotionPair()
	if len(pair) != 1 {
		t.Fatalf("expected one frame, got %d", len(pair))
	}
}

func TestFrameBufferReadsAreSafeAgainstConcurrentPushes(t *testing.T) {
	buffer := newFrameBuffer(35, 1000000)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			buffer.Push(camera.Frame{Sequence: uint64(i), TimestampMs: int64(i)})
		}
	}()

	for i := 0; i < 200; i++ {
		buffer.BestQuality()
		buffer.MotionPair()
		buffer.Latest()
	}
	wg.Wait()

	if buffer.Len() > 35 {
		t.Fatalf("expected bounded buffer under concurrency, got %d", buffer.Len())
	}
}
