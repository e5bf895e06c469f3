package facewatch

import (
	"errors"
	"math/rand"
	"testing"
)

func TestTrackingStateDefaultBox(t *testing.T) {

	state := NewTrackingState()

	if got := state.Observe(FaceBox{}, false); got != DefaultBox {
		t.Errorf("expected default box %v before any detection, got %v", DefaultBox, got)
	}

	if _, ok := state.Box(); ok {
		t.Error("expected last known box to remain unset after a miss")
	}
}

// TestTrackingStateSticky checks the last known box only ever changes to a
// newly detected box for random sequences of hits and misses
func TestTrackingStateSticky(t *testing.T) {

	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		state := NewTrackingState()
		var last FaceBox
		seen := false

		for i := 0; i < 200; i++ {
			found := rng.Intn(3) == 0
			box := FaceBox{
				X:      rng.Intn(600),
				Y:      rng.Intn(400),
				Width:  10 + rng.Intn(100),
				Height: 10 + rng.Intn(100),
			}

			got := state.Observe(box, found)

			switch {
			case found:
				last = box
				seen = true
				if got != box {
					t.Fatalf("run %d step %d: expected detected box %v, got %v", run, i, box, got)
				}
			case seen:
				if got != last {
					t.Fatalf("run %d step %d: expected stale box %v, got %v", run, i, last, got)
				}
			default:
				if got != DefaultBox {
					t.Fatalf("run %d step %d: expected default box, got %v", run, i, got)
				}
			}

			stored, ok := state.Box()

			if ok != seen || (seen && stored != last) {
				t.Fatalf("run %d step %d: stored box %v (set=%v) does not match %v (set=%v)",
					run, i, stored, ok, last, seen)
			}
		}
	}
}

// TestTrackingStateFaceDisappears tracks a box then misses ten frames
func TestTrackingStateFaceDisappears(t *testing.T) {

	state := NewTrackingState()
	b := FaceBox{X: 120, Y: 80, Width: 140, Height: 150}

	state.Observe(b, true)

	for i := 0; i < 10; i++ {
		if got := state.Observe(FaceBox{}, false); got != b {
			t.Errorf("miss %d: expected box %v, got %v", i, b, got)
		}
	}
}

func TestTrackingStatePublish(t *testing.T) {

	state := NewTrackingState()

	if v := state.Verdict(); v.Verified || v.Outcome != OutcomePending {
		t.Errorf("expected pending verdict, got %+v", v)
	}

	state.Publish(Matched(0.25))

	if v := state.Verdict(); !v.Verified || v.Distance != 0.25 {
		t.Errorf("expected matched verdict, got %+v", v)
	}

	state.Publish(Rejected(OutcomeNoFace, errors.New("no face")))

	if v := state.Verdict(); v.Verified || v.Outcome != OutcomeNoFace {
		t.Errorf("expected no-face verdict, got %+v", v)
	}

	if state.Published() != 2 {
		t.Errorf("expected 2 published verdicts, got %d", state.Published())
	}
}

func TestFaceBoxConversions(t *testing.T) {

	b := FaceBox{X: 10, Y: 20, Width: 30, Height: 40}
	r := b.Rect()

	if r.Min.X != 10 || r.Min.Y != 20 || r.Max.X != 40 || r.Max.Y != 60 {
		t.Errorf("unexpected rect %v", r)
	}

	if BoxFromRect(r) != b {
		t.Errorf("expected round trip to %v, got %v", b, BoxFromRect(r))
	}

	if c := b.Center(); c.X != 25 || c.Y != 40 {
		t.Errorf("unexpected center %v", c)
	}
}
