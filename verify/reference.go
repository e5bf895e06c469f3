package verify

import (
	"fmt"
	"os"

	"github.com/swdee/go-facewatch"
	"gocv.io/x/gocv"
)

// LoadReference reads the reference identity image.  A missing or
// undecodable file returns facewatch.ErrReferenceImageNotFound.
func LoadReference(path string) (gocv.Mat, error) {

	info, err := os.Stat(path)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s: %v", facewatch.ErrReferenceImageNotFound, path, err)
	}

	if info.IsDir() {
		return gocv.NewMat(), fmt.Errorf("%w: %s is a directory", facewatch.ErrReferenceImageNotFound, path)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)

	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s could not be decoded", facewatch.ErrReferenceImageNotFound, path)
	}

	return img, nil
}
