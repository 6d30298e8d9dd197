package detection

// DetectionOptions carries the callbacks a detector invokes while it runs.
// The detector may coalesce or skip frames; label callbacks are therefore
// not guaranteed to be 1:1 with submitted frames.
type DetectionOptions struct {
	// LabelsCallback receives the label list for one analyzed frame.
	LabelsCallback func(labels []string)
	// ErrorCallback receives non-fatal per-frame analysis failures.
	ErrorCallback func(err error)
}

type DetectionOption func(*DetectionOptions)

func WithLabelsCallback(callback func(labels []string)) DetectionOption {
	return func(o *DetectionOptions) {
		o.LabelsCallback = callback
	}
}

func WithErrorCallback(callback func(err error)) DetectionOption {
	return func(o *DetectionOptions) {
		o.ErrorCallback = callback
	}
}
