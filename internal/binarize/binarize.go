// Package binarize converts the source raster of a diagram into the binary
// mask the engine digitizes. The diagram part is assumed dark-on-light: a
// pixel at or below the greyscale threshold is a data pixel. The threshold
// itself is policy supplied by the caller; Otsu estimation is available
// through the OpenCV-backed path in opencv.go.
package binarize

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"pollen-digitizer/internal/mask"

	_ "golang.org/x/image/tiff" // diagrams are often scanned to TIFF
)

// Load reads and decodes an image file.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return img, nil
}

// Crop cuts the diagram part out of the full scan. The rectangle is in image
// coordinates.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect)
}

// FromImage thresholds a greyscale or RGB image into a mask. Pixels whose
// grey level falls below threshold become data pixels.
func FromImage(img image.Image, threshold uint8) *mask.Mask {
	grey := imaging.Grayscale(img)
	bw := segment.Threshold(grey, threshold)

	b := bw.Bounds()
	m := mask.New(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// segment.Threshold turns everything above the level white;
			// the dark remainder is ink.
			if bw.GrayAt(b.Min.X+x, b.Min.Y+y).Y == 0 {
				m.Set(y, x, true)
			}
		}
	}
	return m
}
