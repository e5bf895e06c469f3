package display

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrClosed is returned when showing a frame on a closed display
var ErrClosed = errors.New("display closed")

// DefaultQuitKey is the key which requests the pipeline to stop
const DefaultQuitKey = 'q'

// Window shows frames in a desktop window and polls the keyboard for the
// quit key
type Window struct {
	win     *gocv.Window
	quitKey int
	mu      sync.Mutex
	closed  bool
}

// NewWindow opens a window with the given title.  A quitKey of zero uses
// DefaultQuitKey.
func NewWindow(title string, quitKey rune) *Window {

	if quitKey == 0 {
		quitKey = DefaultQuitKey
	}

	return &Window{
		win:     gocv.NewWindow(title),
		quitKey: int(quitKey),
	}
}

// Show displays img in the window
func (w *Window) Show(img gocv.Mat) error {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	w.win.IMShow(img)
	return nil
}

// QuitRequested waits up to 1ms for a key press and returns true if the
// quit key was pressed or the window has been closed by the user
func (w *Window) QuitRequested() bool {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return true
	}

	key := w.win.WaitKey(1)

	if key >= 0 && key&0xFF == w.quitKey {
		return true
	}

	return !w.win.IsOpen()
}

// Close destroys the window, it is safe to call more than once
func (w *Window) Close() error {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	return w.win.Close()
}
