package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

// FaceBox renders the tracked bounding box
func FaceBox(img *gocv.Mat, box facewatch.FaceBox, clr color.RGBA, lineThickness int) {
	gocv.Rectangle(img, box.Rect(), clr, lineThickness)
}

// labelPosition calculates the text origin for a label of textSize placed
// above box according to the font alignment.  The label is kept within the
// top edge of the image.
func labelPosition(box facewatch.FaceBox, textSize image.Point, font Font,
	lineThickness int) image.Point {

	var centerX int

	switch font.Alignment {
	case Center:
		centerX = box.X + box.Width/2

	case Right:
		centerX = box.X + box.Width - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = box.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	x := centerX - textSize.X/2
	y := box.Y - font.BottomPad

	if x < 0 {
		x = 0
	}

	if top := textSize.Y + font.TopPad; y < top {
		y = top
	}

	return image.Pt(x, y)
}

// pinnedPosition is the fixed label origin in the top left corner of the
// image
func pinnedPosition(textSize image.Point, font Font) image.Point {
	return image.Pt(font.LeftPad, textSize.Y+font.TopPad)
}

// Label draws text at pos using font with the given color
func Label(img *gocv.Mat, text string, pos image.Point, font Font, clr color.RGBA) {
	gocv.PutTextWithParams(img, text, pos, font.Face, font.Scale, clr,
		font.Thickness, font.LineType, false)
}
