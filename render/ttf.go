package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TTF renders text with a TrueType font, supporting characters the Hershey
// fonts can not draw
type TTF struct {
	face font.Face
}

// LoadTTF loads a TrueType font file at the given point size
func LoadTTF(path string, size float64) (*TTF, error) {

	fontBytes, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	return NewTTF(fontBytes, size)
}

// NewTTF parses TrueType font data and returns a face at the given point size
func NewTTF(data []byte, size float64) (*TTF, error) {

	f, err := opentype.Parse(data)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &TTF{face: face}, nil
}

// Measure returns the width and height in pixels of text
func (t *TTF) Measure(text string) image.Point {

	adv := font.MeasureString(t.face, text)
	m := t.face.Metrics()

	return image.Pt(adv.Ceil(), (m.Ascent + m.Descent).Ceil())
}

// Draw writes text onto img with its baseline origin at pos.  The text is
// added onto the existing pixels so it should be drawn over a dark
// background.
func (t *TTF) Draw(img *gocv.Mat, text string, pos image.Point, clr color.RGBA) error {

	// create image with text writing
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}), image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(clr),
		Face: t.face,
		Dot: fixed.Point26_6{
			X: fixed.I(pos.X),
			Y: fixed.I(pos.Y),
		},
	}
	dr.DrawString(text)

	// convert image.RGBA to gocv.Mat
	overlay, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil || overlay.Empty() {
		return fmt.Errorf("error creating Mat from RGBA: %v", err)
	}

	defer overlay.Close()

	gocv.CvtColor(overlay, &overlay, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, overlay, 1.0, 0, img)

	return nil
}

// Close releases the font face
func (t *TTF) Close() error {
	return t.face.Close()
}
