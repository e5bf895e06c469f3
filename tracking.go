package facewatch

import (
	"sync"
)

// TrackingState holds the last known face box and the last published
// verdict.  The box is written by the driver goroutine, the verdict by the
// verification goroutine, and both may be read from anywhere.
type TrackingState struct {
	mu sync.RWMutex
	// box is the most recent detected face box, only valid when hasBox is set
	box    FaceBox
	hasBox bool
	// verdict is the last completed verification
	verdict Verdict
	// published counts verdicts received
	published uint64
}

// NewTrackingState returns an empty tracking state with no box and a pending
// verdict
func NewTrackingState() *TrackingState {
	return &TrackingState{}
}

// Observe records the detection result for the current frame and returns the
// box that should be rendered.  A detected box replaces the last known box.
// A miss keeps the last known box, or yields DefaultBox if no face has ever
// been seen.
func (t *TrackingState) Observe(box FaceBox, found bool) FaceBox {
	t.mu.Lock()
	defer t.mu.Unlock()

	if found {
		t.box = box
		t.hasBox = true
		return box
	}

	if t.hasBox {
		return t.box
	}

	return DefaultBox
}

// Box returns the last known face box and whether one has ever been set
func (t *TrackingState) Box() (FaceBox, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.box, t.hasBox
}

// Publish replaces the current verdict
func (t *TrackingState) Publish(v Verdict) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.verdict = v
	t.published++
}

// Verdict returns the last published verdict
func (t *TrackingState) Verdict() Verdict {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.verdict
}

// Published returns the number of verdicts published so far
func (t *TrackingState) Published() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.published
}
