package display

import (
	"errors"

	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

// Tee fans frames out to several displays
type Tee struct {
	displays []facewatch.Display
}

// NewTee returns a display showing each frame on every one of displays
func NewTee(displays ...facewatch.Display) *Tee {
	return &Tee{displays: displays}
}

// Show displays img on every display, returning the joined errors
func (t *Tee) Show(img gocv.Mat) error {

	var errs []error

	for _, d := range t.displays {
		if err := d.Show(img); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// QuitRequested returns true if any display requested a quit.  Every
// display is polled so windows keep processing events.
func (t *Tee) QuitRequested() bool {

	quit := false

	for _, d := range t.displays {
		if d.QuitRequested() {
			quit = true
		}
	}

	return quit
}

// Close closes all displays
func (t *Tee) Close() error {

	var errs []error

	for _, d := range t.displays {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
