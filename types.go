package facewatch

import (
	"fmt"
	"image"
	"time"
)

// FaceBox is a face bounding box in frame coordinates
type FaceBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultBox is the placeholder rendered before any face has been seen
var DefaultBox = FaceBox{X: 0, Y: 0, Width: 1, Height: 1}

// BoxFromRect converts an image.Rectangle into a FaceBox
func BoxFromRect(r image.Rectangle) FaceBox {
	return FaceBox{
		X:      r.Min.X,
		Y:      r.Min.Y,
		Width:  r.Dx(),
		Height: r.Dy(),
	}
}

// Rect returns the box as an image.Rectangle
func (b FaceBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Center returns the centre point of the box
func (b FaceBox) Center() image.Point {
	return image.Pt(b.X+b.Width/2, b.Y+b.Height/2)
}

func (b FaceBox) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}

// Outcome classifies how a verification concluded
type Outcome int

const (
	// OutcomePending means no verification has completed yet
	OutcomePending Outcome = iota
	// OutcomeMatch means the face matched the reference identity
	OutcomeMatch
	// OutcomeNoMatch means a face was compared and did not match
	OutcomeNoMatch
	// OutcomeNoFace means no face could be found to compare
	OutcomeNoFace
	// OutcomeFailure means the comparison capability failed
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeMatch:
		return "match"
	case OutcomeNoMatch:
		return "no-match"
	case OutcomeNoFace:
		return "no-face"
	case OutcomeFailure:
		return "failure"
	}

	return fmt.Sprintf("outcome(%d)", int(o))
}

// Verdict is the result of a single verification
type Verdict struct {
	// Verified is true only when Outcome is OutcomeMatch
	Verified bool
	// Distance is the score reported by the comparison, only valid when
	// HasDistance is set
	Distance    float64
	HasDistance bool
	Outcome     Outcome
	// Err holds the underlying cause for OutcomeNoFace and OutcomeFailure
	Err error
	// JobID identifies the verification run that produced this verdict
	JobID string
	// FrameIndex is the scheduler counter value of the frame verified
	FrameIndex  uint64
	Latency     time.Duration
	CompletedAt time.Time
}

// Matched returns a positive verdict with the given distance
func Matched(distance float64) Verdict {
	return Verdict{
		Verified:    true,
		Distance:    distance,
		HasDistance: true,
		Outcome:     OutcomeMatch,
	}
}

// NotMatched returns a negative verdict with the given distance
func NotMatched(distance float64) Verdict {
	return Verdict{
		Distance:    distance,
		HasDistance: true,
		Outcome:     OutcomeNoMatch,
	}
}

// Rejected returns a fail-closed verdict for the given outcome and cause
func Rejected(outcome Outcome, err error) Verdict {
	return Verdict{
		Outcome: outcome,
		Err:     err,
	}
}
