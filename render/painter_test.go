package render

import (
	"image"
	"testing"

	"github.com/swdee/go-facewatch"
	"github.com/swdee/go-facewatch/tracker"
	"gocv.io/x/gocv"
	"golang.org/x/image/font/gofont/goregular"
)

func blankFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
}

// findPixel reports whether any pixel inside r satisfies match, pixel
// channels are in BGR order
func findPixel(img gocv.Mat, r image.Rectangle, match func(b, g, r uint8) bool) bool {

	r = r.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := img.GetVecbAt(y, x)
			if match(v[0], v[1], v[2]) {
				return true
			}
		}
	}

	return false
}

func isGreen(b, g, r uint8) bool { return g > 200 && r < 60 && b < 60 }
func isRed(b, g, r uint8) bool   { return r > 200 && g < 60 && b < 60 }
func isPink(b, g, r uint8) bool  { return r > 150 && b > 150 && g < 80 }

func TestParsePlacement(t *testing.T) {

	tests := []struct {
		in   string
		want Placement
		ok   bool
	}{
		{"", Tracked, true},
		{"tracked", Tracked, true},
		{" Pinned ", Pinned, true},
		{"floating", Tracked, false},
	}

	for _, tc := range tests {
		got, err := ParsePlacement(tc.in)

		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("%q: expected %v (ok=%v), got %v (%v)", tc.in, tc.want, tc.ok, got, err)
		}
	}
}

func TestVerdictLabel(t *testing.T) {

	if text, clr := VerdictLabel(facewatch.Matched(0.2)); text != MatchText || clr != MatchColor {
		t.Errorf("expected MATCH label, got %s %v", text, clr)
	}

	negatives := []facewatch.Verdict{
		{},
		facewatch.NotMatched(0.9),
		facewatch.Rejected(facewatch.OutcomeNoFace, nil),
		facewatch.Rejected(facewatch.OutcomeFailure, nil),
	}

	for _, v := range negatives {
		if text, clr := VerdictLabel(v); text != NoMatchText || clr != NoMatchColor {
			t.Errorf("%v: expected NO MATCH label, got %s %v", v.Outcome, text, clr)
		}
	}
}

func TestLabelPosition(t *testing.T) {

	font := DefaultFont()
	textSize := image.Pt(100, 20)

	tests := []struct {
		name  string
		box   facewatch.FaceBox
		align Alignment
		want  image.Point
	}{
		{"left", facewatch.FaceBox{X: 200, Y: 120, Width: 160, Height: 160}, Left, image.Pt(203, 110)},
		{"center", facewatch.FaceBox{X: 200, Y: 120, Width: 160, Height: 160}, Center, image.Pt(230, 110)},
		{"right", facewatch.FaceBox{X: 200, Y: 120, Width: 160, Height: 160}, Right, image.Pt(257, 110)},
		{"clamped to top", facewatch.DefaultBox, Left, image.Pt(3, 24)},
	}

	for _, tc := range tests {
		font.Alignment = tc.align

		if got := labelPosition(tc.box, textSize, font, 3); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if got := pinnedPosition(textSize, DefaultFont()); got != image.Pt(4, 24) {
		t.Errorf("expected pinned position (4,24), got %v", got)
	}
}

func TestPainterTracked(t *testing.T) {

	img := blankFrame()
	defer img.Close()

	box := facewatch.FaceBox{X: 200, Y: 120, Width: 160, Height: 160}

	p := NewPainter(Tracked)
	p.Render(&img, facewatch.Overlay{
		Box:      box,
		Detected: true,
		Verdict:  facewatch.Matched(0.2),
		FPS:      29.97,
		Frame:    42,
	})

	// box outline is drawn in BGR (255,255,0)
	if v := img.GetVecbAt(box.Y, box.X+box.Width/2); v[0] != 255 || v[1] != 255 || v[2] != 0 {
		t.Errorf("expected box outline color, got %v", v)
	}

	above := image.Rect(box.X, box.Y-40, box.X+box.Width, box.Y)

	if !findPixel(img, above, isGreen) {
		t.Error("expected green MATCH label above the box")
	}

	if findPixel(img, image.Rect(0, 0, 640, 80), isRed) {
		t.Error("unexpected red label for a match")
	}

	bar := image.Rect(0, 440, 640, 480)

	if !findPixel(img, bar, isPink) {
		t.Error("expected status text in the bottom bar")
	}
}

func TestPainterPinned(t *testing.T) {

	img := blankFrame()
	defer img.Close()

	box := facewatch.FaceBox{X: 400, Y: 250, Width: 120, Height: 120}

	p := NewPainter(Pinned)
	p.Render(&img, facewatch.Overlay{Box: box, Verdict: facewatch.NotMatched(0.8)})

	if !findPixel(img, image.Rect(0, 0, 200, 40), isRed) {
		t.Error("expected red NO MATCH label pinned top left")
	}

	if findPixel(img, image.Rect(box.X, box.Y-40, box.X+box.Width, box.Y), isRed) {
		t.Error("pinned label should not be drawn above the box")
	}
}

func TestPainterTrail(t *testing.T) {

	img := blankFrame()
	defer img.Close()

	trail := tracker.NewTrail(10)
	p := NewPainter(Tracked)
	p.SetTrail(trail, DefaultTrailStyle())

	for i := 0; i < 5; i++ {
		p.Render(&img, facewatch.Overlay{
			Box:      facewatch.FaceBox{X: 100 + i*10, Y: 100, Width: 50, Height: 50},
			Detected: true,
		})
	}

	// a stale box does not extend the trail
	p.Render(&img, facewatch.Overlay{
		Box: facewatch.FaceBox{X: 140, Y: 100, Width: 50, Height: 50},
	})

	if n := len(trail.Points()); n != 5 {
		t.Errorf("expected 5 trail points, got %d", n)
	}
}

func TestPainterTTF(t *testing.T) {

	ttf, err := NewTTF(goregular.TTF, 14)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ttf.Close()

	if sz := ttf.Measure("FPS: 30.00"); sz.X <= 0 || sz.Y <= 0 {
		t.Errorf("expected positive text size, got %v", sz)
	}

	img := blankFrame()
	defer img.Close()

	p := NewPainter(Tracked)
	p.SetTTF(ttf)
	p.Render(&img, facewatch.Overlay{Box: facewatch.DefaultBox, FPS: 30})

	if !findPixel(img, image.Rect(0, 420, 640, 480), isPink) {
		t.Error("expected TTF status text in the bottom bar")
	}
}

func TestLoadTTFMissing(t *testing.T) {
	if _, err := LoadTTF("testdata/missing.ttf", 12); err == nil {
		t.Error("expected error loading missing font")
	}
}
