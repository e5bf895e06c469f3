package facewatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// FrameSource produces BGR frames from a capture device
type FrameSource interface {
	// Read captures the next frame into img.  It returns ErrNoFrame on a
	// transient failure and ErrSourceClosed when no more frames can be read.
	Read(img *gocv.Mat) error
	// FPS returns the instantaneous frame rate of successful reads
	FPS() float64
	Close() error
}

// FaceLocator finds the single most prominent face in a frame
type FaceLocator interface {
	Locate(img gocv.Mat) (FaceBox, bool)
}

// Overlay is the per frame information drawn onto the video
type Overlay struct {
	// Box is the tracked face box
	Box FaceBox
	// Detected is true when Box was located in this frame rather than carried
	// over from an earlier one
	Detected bool
	Verdict  Verdict
	FPS      float64
	// Frame is the index of the frame being rendered
	Frame uint64
}

// Renderer annotates a frame in place
type Renderer interface {
	Render(img *gocv.Mat, ov Overlay)
}

// Display presents annotated frames and reports a user quit request
type Display interface {
	Show(img gocv.Mat) error
	// QuitRequested polls for a quit request without blocking for longer
	// than a short key wait
	QuitRequested() bool
	Close() error
}

// DriverStats are counters describing driver activity
type DriverStats struct {
	// Processed is the number of frames that went through the full pipeline
	Processed uint64
	// Dropped is the number of ticks skipped due to a failed capture
	Dropped   uint64
	Scheduler SchedulerStats
}

// Driver runs the per frame control loop
type Driver struct {
	source    FrameSource
	locator   FaceLocator
	scheduler *Scheduler
	state     *TrackingState
	renderer  Renderer
	display   Display
	processed atomic.Uint64
	dropped   atomic.Uint64
}

// NewDriver returns a driver wiring the given pipeline stages together.  The
// driver takes ownership of source and display and closes them when Run
// returns.
func NewDriver(source FrameSource, locator FaceLocator, scheduler *Scheduler,
	state *TrackingState, renderer Renderer, display Display) *Driver {

	return &Driver{
		source:    source,
		locator:   locator,
		scheduler: scheduler,
		state:     state,
		renderer:  renderer,
		display:   display,
	}
}

// Run loops over frames until a quit is requested, ctx is cancelled or the
// frame source fails.  The frame source and display are always released
// before Run returns, including when a stage panics.
func (d *Driver) Run(ctx context.Context) (err error) {

	img := gocv.NewMat()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPipelinePanic, r)
		}

		err = errors.Join(err, d.shutdown())
		img.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Pipeline stopping: %v", ctx.Err())
			return nil
		default:
		}

		quit, err := d.Tick(&img)

		if err != nil {
			return err
		}

		if quit {
			log.Printf("Quit requested")
			return nil
		}
	}
}

// Tick runs a single pass of the pipeline using img as the capture buffer.
// It returns true when the display reported a quit request.
func (d *Driver) Tick(img *gocv.Mat) (bool, error) {

	if err := d.source.Read(img); err != nil {
		if errors.Is(err, ErrNoFrame) {
			d.dropped.Add(1)
			return d.display.QuitRequested(), nil
		}

		return false, fmt.Errorf("error reading frame: %w", err)
	}

	frameNum := d.processed.Add(1) - 1

	box, found := d.locator.Locate(*img)
	tracked := d.state.Observe(box, found)

	// schedule before rendering so the verification sees an unannotated frame
	d.scheduler.Advance(*img)

	d.renderer.Render(img, Overlay{
		Box:      tracked,
		Detected: found,
		Verdict:  d.state.Verdict(),
		FPS:      d.source.FPS(),
		Frame:    frameNum,
	})

	if err := d.display.Show(*img); err != nil {
		log.Printf("Error displaying frame %d: %v", frameNum, err)
	}

	return d.display.QuitRequested(), nil
}

// Stats returns a snapshot of the driver counters
func (d *Driver) Stats() DriverStats {
	return DriverStats{
		Processed: d.processed.Load(),
		Dropped:   d.dropped.Load(),
		Scheduler: d.scheduler.Stats(),
	}
}

// shutdown releases the frame source and display then waits for any
// in-flight verification to finish
func (d *Driver) shutdown() error {

	var errs []error

	if err := d.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing frame source: %w", err))
	}

	if err := d.display.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing display: %w", err))
	}

	d.scheduler.Wait()

	stats := d.Stats()
	log.Printf("Processed %d frames, dropped %d, verifications launched %d, skipped %d",
		stats.Processed, stats.Dropped, stats.Scheduler.Launched, stats.Scheduler.Skipped)

	return errors.Join(errs...)
}
