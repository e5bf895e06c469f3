package detect

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

// ErrCascadeLoad is returned when the cascade classifier file can not be
// loaded
var ErrCascadeLoad = errors.New("failed to load cascade classifier")

// CascadeFile is the OpenCV frontal face cascade
const CascadeFile = "haarcascade_frontalface_default.xml"

// cascadeDirs are the locations searched for CascadeFile when no explicit
// path is configured
var cascadeDirs = []string{
	"data",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// Config holds the detector parameters, all are fixed for the lifetime of
// the detector so the result is deterministic for identical input
type Config struct {
	// CascadePath is the cascade XML file, when empty CascadeFile is searched
	// for in the standard OpenCV install locations
	CascadePath string
	// ScaleFactor is how much the image size is reduced at each image scale
	ScaleFactor float64
	// MinNeighbors is how many neighbours each candidate rectangle should
	// have to be retained
	MinNeighbors int
	// MinSize and MaxSize bound the face size in pixels, a zero value
	// disables the bound
	MinSize image.Point
	MaxSize image.Point
}

// DefaultConfig returns the default detector parameters
func DefaultConfig() Config {
	return Config{
		ScaleFactor:  1.05,
		MinNeighbors: 6,
		MinSize:      image.Pt(30, 30),
		MaxSize:      image.Pt(300, 300),
	}
}

// Haar is a FaceLocator using an OpenCV Haar cascade classifier
type Haar struct {
	cfg        Config
	classifier gocv.CascadeClassifier
	gray       gocv.Mat
}

// NewHaar loads the cascade classifier
func NewHaar(cfg Config) (*Haar, error) {

	path, err := resolveCascade(cfg.CascadePath)

	if err != nil {
		return nil, err
	}

	classifier := gocv.NewCascadeClassifier()

	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, path)
	}

	cfg.CascadePath = path

	return &Haar{
		cfg:        cfg,
		classifier: classifier,
		gray:       gocv.NewMat(),
	}, nil
}

// resolveCascade finds the cascade file to load
func resolveCascade(path string) (string, error) {

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %v", ErrCascadeLoad, err)
		}
		return path, nil
	}

	for _, dir := range cascadeDirs {
		candidate := filepath.Join(dir, CascadeFile)

		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found in %v", ErrCascadeLoad, CascadeFile, cascadeDirs)
}

// Locate returns the first face found in img.  The frame is only read.  Not
// safe for concurrent use as the grayscale buffer is reused between calls.
func (h *Haar) Locate(img gocv.Mat) (facewatch.FaceBox, bool) {

	if img.Empty() {
		return facewatch.FaceBox{}, false
	}

	if img.Channels() == 1 {
		img.CopyTo(&h.gray)
	} else {
		gocv.CvtColor(img, &h.gray, gocv.ColorBGRToGray)
	}

	rects := h.classifier.DetectMultiScaleWithParams(h.gray, h.cfg.ScaleFactor,
		h.cfg.MinNeighbors, 0, h.cfg.MinSize, h.cfg.MaxSize)

	return First(rects)
}

// Config returns the detector configuration with the resolved cascade path
func (h *Haar) Config() Config {
	return h.cfg
}

// Close releases the classifier
func (h *Haar) Close() error {

	if err := h.gray.Close(); err != nil {
		return err
	}

	return h.classifier.Close()
}

// First applies the tie-break rule when the detector returns multiple
// candidates: the first rectangle in the detector's native output order is
// selected, not the largest or most central one
func First(rects []image.Rectangle) (facewatch.FaceBox, bool) {

	if len(rects) == 0 {
		return facewatch.FaceBox{}, false
	}

	return facewatch.BoxFromRect(rects[0]), true
}
