package capture

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

// MaxEmptyReads is the number of consecutive failed reads after which a non
// looping file or stream source is treated as ended
const MaxEmptyReads = 30

// Camera is a FrameSource reading from a camera device, video file or
// stream URL through OpenCV
type Camera struct {
	device string
	video  *gocv.VideoCapture
	meter  *FPSMeter
	// loop rewinds file sources when the last frame has been read
	loop   bool
	isFile bool
	// emptyReads counts consecutive failed reads
	emptyReads int
	mu         sync.Mutex
	closed bool
}

// Open opens the capture device and requests the given frame resolution.  A
// numeric device selects a camera index, anything else is treated as a file
// path or stream URL.  A width or height of zero keeps the device default.
func Open(device string, width, height int) (*Camera, error) {

	var video *gocv.VideoCapture
	var err error

	id, convErr := strconv.Atoi(device)
	isFile := convErr != nil

	if isFile {
		video, err = gocv.VideoCaptureFile(device)
	} else {
		video, err = gocv.VideoCaptureDevice(id)
	}

	if err != nil {
		if video != nil {
			video.Close()
		}
		return nil, fmt.Errorf("%w: %s: %v", facewatch.ErrDeviceUnavailable, device, err)
	}

	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("%w: %s", facewatch.ErrDeviceUnavailable, device)
	}

	if width > 0 && height > 0 {
		video.Set(gocv.VideoCaptureFrameWidth, float64(width))
		video.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	log.Printf("Opened capture device %s at %.0fx%.0f", device,
		video.Get(gocv.VideoCaptureFrameWidth), video.Get(gocv.VideoCaptureFrameHeight))

	return &Camera{
		device: device,
		video:  video,
		meter:  NewFPSMeter(),
		isFile: isFile,
	}, nil
}

// SetLoop sets whether a file source restarts from the first frame once the
// end has been reached.  It has no effect on camera devices.
func (c *Camera) SetLoop(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loop = loop
}

// Read captures the next frame into img
func (c *Camera) Read(img *gocv.Mat) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.video.IsOpened() {
		return facewatch.ErrSourceClosed
	}

	if ok := c.video.Read(img); !ok || img.Empty() {
		return c.readFailed()
	}

	c.emptyReads = 0
	c.meter.Tick()
	return nil
}

// readFailed classifies a failed read.  Camera devices always report a
// transient ErrNoFrame.  A looping file is rewound, otherwise a file or
// stream that has reached its last frame, or keeps failing, has ended.
func (c *Camera) readFailed() error {

	if !c.isFile {
		return facewatch.ErrNoFrame
	}

	if c.loop {
		// end of file reached so rewind to first frame
		c.video.Set(gocv.VideoCapturePosFrames, 0)
		return facewatch.ErrNoFrame
	}

	c.emptyReads++

	if count := c.video.Get(gocv.VideoCaptureFrameCount); count > 0 &&
		c.video.Get(gocv.VideoCapturePosFrames) >= count {
		log.Printf("End of %s reached", c.device)
		return facewatch.ErrSourceClosed
	}

	if c.emptyReads >= MaxEmptyReads {
		log.Printf("No frames from %s after %d reads", c.device, c.emptyReads)
		return facewatch.ErrSourceClosed
	}

	return facewatch.ErrNoFrame
}

// FPS returns the instantaneous capture frame rate
func (c *Camera) FPS() float64 {
	return c.meter.FPS()
}

// Device returns the device identifier the camera was opened with
func (c *Camera) Device() string {
	return c.device
}

// Close releases the capture device.  It is safe to call more than once.
func (c *Camera) Close() error {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.video.Close()
}
