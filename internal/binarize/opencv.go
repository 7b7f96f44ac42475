package binarize

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"pollen-digitizer/internal/mask"
)

// OtsuThreshold estimates the binarization threshold of an image with Otsu's
// method. Use it when no threshold policy is supplied; the returned level
// feeds straight into FromImage.
func OtsuThreshold(img image.Image) (uint8, error) {
	grey, err := toGreyMat(img)
	if err != nil {
		return 0, err
	}
	defer grey.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	level := gocv.Threshold(grey, &dst, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	return uint8(level), nil
}

// Denoise applies morphological open and close passes to the mask, removing
// speck noise and closing single-pixel gaps before digitization.
func Denoise(m *mask.Mask, iterations int) *mask.Mask {
	src := toMat(m)
	defer src.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
	defer kernel.Close()

	for i := 0; i < iterations; i++ {
		gocv.MorphologyEx(src, &src, gocv.MorphOpen, kernel)
	}
	for i := 0; i < iterations; i++ {
		gocv.MorphologyEx(src, &src, gocv.MorphClose, kernel)
	}

	out := mask.New(m.Width(), m.Height())
	for r := 0; r < m.Height(); r++ {
		for c := 0; c < m.Width(); c++ {
			if src.GetUCharAt(r, c) > 0 {
				out.Set(r, c, true)
			}
		}
	}
	return out
}

func toGreyMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}
	grey := imagingGrey(img)
	m := gocv.NewMatWithSize(b.Dy(), b.Dx(), gocv.MatTypeCV8U)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			m.SetUCharAt(y, x, grey[y*b.Dx()+x])
		}
	}
	return m, nil
}

func imagingGrey(img image.Image) []uint8 {
	b := img.Bounds()
	out := make([]uint8, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// Rec. 601 luma, matching the greyscale conversion of the
			// pure-Go path.
			out[y*b.Dx()+x] = uint8((299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000)
		}
	}
	return out
}

func toMat(m *mask.Mask) gocv.Mat {
	out := gocv.NewMatWithSize(m.Height(), m.Width(), gocv.MatTypeCV8U)
	for r := 0; r < m.Height(); r++ {
		for c := 0; c < m.Width(); c++ {
			if m.At(r, c) {
				out.SetUCharAt(r, c, 255)
			}
		}
	}
	return out
}
