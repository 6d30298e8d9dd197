package camera

const DefaultMaxFrameAgeMs = 1000

// Frame is one captured camera frame with its monotonic capture timestamp.
//
// Frames are value types: the capture path hands them over and never touches
// Data again, so holding a Frame is safe without further copying. Use
// [Frame.Clone] when the producer reuses its underlying buffer.
type Frame struct {
	Data   []byte
	Width  int
	Height int

	Sequence    uint64
	TimestampMs int64
}

func (f Frame) IsZero() bool {
	return f.Data == nil && f.TimestampMs == 0
}

// AgeMs returns the frame's age relative to the passed monotonic timestamp.
func (f Frame) AgeMs(nowMs int64) int64 {
	return nowMs - f.TimestampMs
}

// Clone returns a Frame with its own copy of the image buffer.
func (f Frame) Clone() Frame {
	clone := f
	if f.Data != nil {
		clone.Data = make([]byte, len(f.Data))
		copy(clone.Data, f.Data)
	}
	return clone
}
