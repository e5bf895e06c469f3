package facewatch

import "errors"

var (
	// ErrDeviceUnavailable is returned when the capture device can not be
	// opened
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrReferenceImageNotFound is returned when the reference image is
	// missing or can not be decoded
	ErrReferenceImageNotFound = errors.New("reference image not found")

	// ErrNoFrame is a transient capture failure, the driver skips the tick
	// and tries again
	ErrNoFrame = errors.New("no frame captured")

	// ErrSourceClosed is returned by a FrameSource which can no longer
	// produce frames
	ErrSourceClosed = errors.New("frame source closed")

	// ErrPipelinePanic wraps an unexpected panic recovered from the main loop
	ErrPipelinePanic = errors.New("pipeline panic")
)
