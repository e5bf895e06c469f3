package facewatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// DefaultPeriod is the number of processed frames between verification
// launch attempts
const DefaultPeriod = 30

// Verifier compares a frame against the reference identity.  It must never
// fail, any error is reported inside the Verdict with Verified set to false.
type Verifier interface {
	Verify(ctx context.Context, frame gocv.Mat) Verdict
}

// SchedulerStats are counters describing scheduler activity
type SchedulerStats struct {
	// Frames is the number of frames the scheduler has been advanced by
	Frames uint64
	// Launched is the number of verifications started
	Launched uint64
	// Skipped is the number of period boundaries skipped because a
	// verification was still running
	Skipped uint64
	// Completed is the number of verifications finished
	Completed uint64
}

// Scheduler launches a verification every period frames with at most one
// verification in flight.  Advance must only be called from a single
// goroutine, the driver loop.
type Scheduler struct {
	period   uint64
	verifier Verifier
	state    *TrackingState
	// counter is the frame counter, incremented once per Advance
	counter atomic.Uint64
	// running is the single in-flight slot
	running atomic.Bool
	// wg tracks the in-flight verification goroutine
	wg        sync.WaitGroup
	launched  atomic.Uint64
	skipped   atomic.Uint64
	completed atomic.Uint64
	// onVerdict is called after each verdict is published
	onVerdict func(Verdict)
	// ctx is handed to the verifier, verifications are never cancelled
	ctx context.Context
}

// NewScheduler returns a scheduler which publishes verdicts from verifier
// into state.  A period less than 1 uses DefaultPeriod.
func NewScheduler(period int, verifier Verifier, state *TrackingState) *Scheduler {

	if period < 1 {
		period = DefaultPeriod
	}

	return &Scheduler{
		period:   uint64(period),
		verifier: verifier,
		state:    state,
		ctx:      context.Background(),
	}
}

// SetVerdictHook registers a function called on the verification goroutine
// after each verdict has been published and the slot released.  A slow hook
// does not hold the slot, so it may still be running while the next
// verification is in flight.  Wait also waits for running hooks.  It must be
// set before the first call to Advance.
func (s *Scheduler) SetVerdictHook(fn func(Verdict)) {
	s.onVerdict = fn
}

// Period returns the launch period in frames
func (s *Scheduler) Period() int {
	return int(s.period)
}

// Advance counts one processed frame and launches a verification on a clone
// of frame if the frame falls on a period boundary and no verification is in
// flight.  It returns true if a verification was launched.  The first frame
// advanced is boundary zero so it always launches.
func (s *Scheduler) Advance(frame gocv.Mat) bool {

	index := s.counter.Add(1) - 1

	if index%s.period != 0 {
		return false
	}

	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return false
	}

	s.launched.Add(1)
	job := frame.Clone()
	jobID := uuid.NewString()

	s.wg.Add(1)
	go s.run(job, jobID, index)

	return true
}

// run performs a single verification and publishes the verdict
func (s *Scheduler) run(frame gocv.Mat, jobID string, index uint64) {

	defer s.wg.Done()

	start := time.Now()
	verdict := s.verify(frame)
	frame.Close()

	verdict.JobID = jobID
	verdict.FrameIndex = index
	verdict.CompletedAt = time.Now()
	verdict.Latency = verdict.CompletedAt.Sub(start)

	// publish before releasing the slot so a newer verdict can never be
	// overwritten by an older one
	s.state.Publish(verdict)
	s.completed.Add(1)
	s.running.Store(false)

	if s.onVerdict != nil {
		s.onVerdict(verdict)
	}
}

// verify calls the verifier converting a panic into a failed verdict
func (s *Scheduler) verify(frame gocv.Mat) (v Verdict) {

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Verification panicked: %v", r)
			v = Rejected(OutcomeFailure, fmt.Errorf("verifier panic: %v", r))
		}
	}()

	v = s.verifier.Verify(s.ctx, frame)

	// a match can only be reported through OutcomeMatch
	v.Verified = v.Outcome == OutcomeMatch

	return v
}

// Running returns true while a verification is in flight
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Wait blocks until the in-flight verification, if any, has completed
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stats returns a snapshot of the scheduler counters
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Frames:    s.counter.Load(),
		Launched:  s.launched.Load(),
		Skipped:   s.skipped.Load(),
		Completed: s.completed.Load(),
	}
}
