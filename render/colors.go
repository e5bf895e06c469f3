package render

import "image/color"

var (
	// MatchColor is used for the label when the face matched the reference
	MatchColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	// NoMatchColor is used for the label in every other case
	NoMatchColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	// BoxColor is the tracked face box outline
	BoxColor = color.RGBA{R: 0, G: 255, B: 255, A: 255}

	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)
