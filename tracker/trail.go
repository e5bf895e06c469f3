package tracker

import (
	"sync"

	"github.com/swdee/go-facewatch"
)

// Point represents the x,y coordinates of the center of a tracked face box
type Point struct {
	X, Y int
}

// Trail keeps a history of the tracked face box centers used for drawing
// a trail
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// points is the history of tracked centers, oldest first
	points []Point
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the number of
// most recent points to keep and specifies the maximum length of the trail
func NewTrail(size int) *Trail {

	if size < 1 {
		size = 1
	}

	return &Trail{
		size:   size,
		points: make([]Point, 0, size),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.points = t.points[:0]
}

// Add records the center point of box in the history
func (t *Trail) Add(box facewatch.FaceBox) {
	t.Lock()
	defer t.Unlock()

	c := box.Center()
	t.points = append(t.points, Point{X: c.X, Y: c.Y})

	// check if history is exceeded and drop oldest point
	if len(t.points) > t.size {
		t.points = append(t.points[:0], t.points[1:]...)
	}
}

// Points returns a copy of the point history, oldest first
func (t *Trail) Points() []Point {
	t.Lock()
	defer t.Unlock()

	out := make([]Point, len(t.points))
	copy(out, t.points)

	return out
}

// Size returns the maximum trail length
func (t *Trail) Size() int {
	return t.size
}
