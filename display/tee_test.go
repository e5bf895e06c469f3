package display

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

type fakeDisplay struct {
	shown   int
	polls   int
	closed  int
	quit    bool
	showErr error
}

func (f *fakeDisplay) Show(img gocv.Mat) error {
	f.shown++
	return f.showErr
}

func (f *fakeDisplay) QuitRequested() bool {
	f.polls++
	return f.quit
}

func (f *fakeDisplay) Close() error {
	f.closed++
	return nil
}

func TestTee(t *testing.T) {

	a := &fakeDisplay{}
	b := &fakeDisplay{showErr: errors.New("encode failed")}
	tee := NewTee(a, b)

	frame := testFrame()
	defer frame.Close()

	if err := tee.Show(frame); err == nil {
		t.Error("expected joined show error")
	}

	if a.shown != 1 || b.shown != 1 {
		t.Errorf("expected frame shown on both displays, got %d and %d", a.shown, b.shown)
	}

	if tee.QuitRequested() {
		t.Error("unexpected quit")
	}

	a.quit = true

	if !tee.QuitRequested() {
		t.Error("expected quit when any display requests it")
	}

	if a.polls != 2 || b.polls != 2 {
		t.Errorf("expected every display polled, got %d and %d", a.polls, b.polls)
	}

	if err := tee.Close(); err != nil || a.closed != 1 || b.closed != 1 {
		t.Errorf("expected all displays closed, got %v", err)
	}
}
