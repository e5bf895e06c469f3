package verify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

var (
	// ErrNoFace is returned by a Comparer when either image contains no
	// detectable face
	ErrNoFace = errors.New("no face detected")

	// ErrEmptyFrame is reported when the frame to verify holds no pixels
	ErrEmptyFrame = errors.New("empty frame")
)

// Comparer compares two face images.  It returns an error wrapping ErrNoFace
// when a face can not be found in one of the images.
type Comparer interface {
	Compare(ctx context.Context, a, b gocv.Mat) (Comparison, error)
}

// Verifier checks frames against a fixed reference image and never reports
// uncertainty as a match
type Verifier struct {
	comparer  Comparer
	reference gocv.Mat
	policy    Policy
}

// New returns a Verifier comparing frames against reference.  The verifier
// takes ownership of reference and releases it on Close.
func New(comparer Comparer, reference gocv.Mat, policy Policy) *Verifier {
	return &Verifier{
		comparer:  comparer,
		reference: reference,
		policy:    policy,
	}
}

// Verify compares frame against the reference image.  Both images are
// cloned before being passed to the comparer so the caller may reuse frame
// as soon as Verify returns.  A missing face resolves to OutcomeNoFace, any
// other failure to OutcomeFailure, both with Verified set to false.
func (v *Verifier) Verify(ctx context.Context, frame gocv.Mat) facewatch.Verdict {

	if frame.Empty() {
		return facewatch.Rejected(facewatch.OutcomeFailure, ErrEmptyFrame)
	}

	a := frame.Clone()
	defer a.Close()

	b := v.reference.Clone()
	defer b.Close()

	cmp, err := v.compare(ctx, a, b)

	if err != nil {
		if errors.Is(err, ErrNoFace) {
			return facewatch.Rejected(facewatch.OutcomeNoFace, err)
		}

		log.Printf("Face verification failed: %v", err)
		return facewatch.Rejected(facewatch.OutcomeFailure, err)
	}

	if v.policy.Accept(cmp) {
		return facewatch.Matched(cmp.Distance)
	}

	return facewatch.NotMatched(cmp.Distance)
}

// compare calls the comparer converting a panic into an error
func (v *Verifier) compare(ctx context.Context, a, b gocv.Mat) (cmp Comparison, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("comparer panic: %v", r)
		}
	}()

	return v.comparer.Compare(ctx, a, b)
}

// Close releases the reference image
func (v *Verifier) Close() error {
	return v.reference.Close()
}
