// Package detection defines the object-detector collaborator contract. The
// concrete detector model lives outside this module; the pipeline only
// depends on the frame-in, label-list-out shape declared here.
package detection

import (
	"context"

	"github.com/tovaren/sightline-core/core/camera"
)

// Detector is a push-style object detector: the pipeline feeds it frames and
// it reports per-frame label lists through the configured callbacks.
type Detector interface {
	// Start begins analysis and registers the callbacks. It must be called
	// before SendFrame and returns once the detector is accepting frames.
	Start(ctx context.Context, opts ...DetectionOption) error
	// SendFrame submits one frame for analysis. Implementations are free to
	// drop frames under load; SendFrame must never block the capture path.
	SendFrame(frame camera.Frame) error
	// Close stops analysis and releases the detector's resources.
	Close(ctx context.Context) error
}
