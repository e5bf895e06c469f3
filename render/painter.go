package render

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"strings"

	"github.com/swdee/go-facewatch"
	"github.com/swdee/go-facewatch/tracker"
	"gocv.io/x/gocv"
)

// Placement defines where the verdict label is drawn
type Placement int

const (
	// Tracked draws the label above the tracked face box
	Tracked Placement = iota
	// Pinned draws the label at a fixed location in the top left corner
	Pinned
)

func (p Placement) String() string {
	if p == Pinned {
		return "pinned"
	}
	return "tracked"
}

// ParsePlacement converts a placement name into a Placement
func ParsePlacement(s string) (Placement, error) {

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tracked":
		return Tracked, nil
	case "pinned":
		return Pinned, nil
	}

	return Tracked, fmt.Errorf("unknown label placement %q", s)
}

const (
	// MatchText is the label drawn for a positive verdict
	MatchText = "MATCH"
	// NoMatchText is the label drawn for any other verdict
	NoMatchText = "NO MATCH"
)

// VerdictLabel returns the label text and color for a verdict
func VerdictLabel(v facewatch.Verdict) (string, color.RGBA) {

	if v.Verified {
		return MatchText, MatchColor
	}

	return NoMatchText, NoMatchColor
}

// Painter draws the face box, verdict label, FPS readout and optional trail
// onto frames.  It implements facewatch.Renderer.
type Painter struct {
	font          Font
	statusFont    Font
	boxColor      color.RGBA
	lineThickness int
	placement     Placement
	trail         *tracker.Trail
	trailStyle    TrailStyle
	ttf           *TTF
}

// NewPainter returns a Painter with default styling placing the label at
// the given position
func NewPainter(placement Placement) *Painter {
	return &Painter{
		font:          DefaultFont(),
		statusFont:    StatusFont(),
		boxColor:      BoxColor,
		lineThickness: 3,
		placement:     placement,
		trailStyle:    DefaultTrailStyle(),
	}
}

// SetTrail enables drawing the history of detected face box centers
func (p *Painter) SetTrail(trail *tracker.Trail, style TrailStyle) {
	p.trail = trail
	p.trailStyle = style
}

// SetTTF sets a TrueType font used for the status bar text instead of the
// Hershey font
func (p *Painter) SetTTF(ttf *TTF) {
	p.ttf = ttf
}

// SetFont sets the font used for the verdict label
func (p *Painter) SetFont(font Font) {
	p.font = font
}

// Placement returns the label placement in use
func (p *Painter) Placement() Placement {
	return p.placement
}

// Render annotates img with the overlay
func (p *Painter) Render(img *gocv.Mat, ov facewatch.Overlay) {

	if p.trail != nil {
		if ov.Detected {
			p.trail.Add(ov.Box)
		}
		Trail(img, p.trail, p.trailStyle)
	}

	FaceBox(img, ov.Box, p.boxColor, p.lineThickness)

	text, clr := VerdictLabel(ov.Verdict)
	Label(img, text, p.labelOrigin(text, ov.Box), p.font, clr)

	p.status(img, fmt.Sprintf("Frame: %d, FPS: %.2f", ov.Frame, ov.FPS))
}

// labelOrigin returns where the verdict label text is drawn
func (p *Painter) labelOrigin(text string, box facewatch.FaceBox) image.Point {

	textSize := gocv.GetTextSize(text, p.font.Face, p.font.Scale, p.font.Thickness)

	if p.placement == Pinned {
		return pinnedPosition(textSize, p.font)
	}

	return labelPosition(box, textSize, p.font, p.lineThickness)
}

// status draws text on a blanked bar along the bottom of the image
func (p *Painter) status(img *gocv.Mat, text string) {

	var textSize image.Point

	if p.ttf != nil {
		textSize = p.ttf.Measure(text)
	} else {
		textSize = gocv.GetTextSize(text, p.statusFont.Face, p.statusFont.Scale,
			p.statusFont.Thickness)
	}

	barHeight := textSize.Y + p.statusFont.TopPad + p.statusFont.BottomPad
	top := img.Rows() - barHeight

	// blank out background video
	gocv.Rectangle(img, image.Rect(0, top, img.Cols(), img.Rows()), Black, -1)

	pos := image.Pt(p.statusFont.LeftPad, img.Rows()-p.statusFont.BottomPad)

	if p.ttf != nil {
		if err := p.ttf.Draw(img, text, pos, p.statusFont.Color); err != nil {
			log.Printf("Error drawing status text: %v", err)
		}
		return
	}

	Label(img, text, pos, p.statusFont, p.statusFont.Color)
}
