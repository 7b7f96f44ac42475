package binarize

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

// greyImage builds an image from grey levels, one row per slice entry.
func greyImage(levels [][]uint8) *image.Gray {
	h := len(levels)
	w := len(levels[0])
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y, row := range levels {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestFromImage(t *testing.T) {
	img := greyImage([][]uint8{
		{0, 100, 200},
		{255, 60, 50},
	})
	m := FromImage(img, 128)

	want := [][]bool{
		{true, true, false},
		{false, true, true},
	}
	for y, row := range want {
		for x, v := range row {
			if m.At(y, x) != v {
				t.Errorf("pixel (%d, %d) = %v, want %v", y, x, m.At(y, x), v)
			}
		}
	}
	if m.Width() != 3 || m.Height() != 2 {
		t.Errorf("mask is %dx%d, want 3x2", m.Width(), m.Height())
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	// Cropped images keep their original coordinate origin; the mask must
	// not depend on it.
	img := image.NewGray(image.Rect(5, 7, 8, 9))
	img.SetGray(5, 7, color.Gray{Y: 0})
	m := FromImage(img, 128)
	if !m.At(0, 0) {
		t.Error("pixel at the bounds origin did not map to mask (0, 0)")
	}
	if m.Width() != 3 || m.Height() != 2 {
		t.Errorf("mask is %dx%d, want 3x2", m.Width(), m.Height())
	}
}

func TestCrop(t *testing.T) {
	img := greyImage([][]uint8{
		{255, 255, 255, 255},
		{255, 0, 0, 255},
		{255, 255, 255, 255},
	})
	cropped := Crop(img, image.Rect(1, 1, 3, 2))
	m := FromImage(cropped, 128)
	if m.Width() != 2 || m.Height() != 1 {
		t.Fatalf("cropped mask is %dx%d, want 2x1", m.Width(), m.Height())
	}
	if !m.At(0, 0) || !m.At(0, 1) {
		t.Error("cropped data pixels lost")
	}
}

func TestSubMasksByColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.RGBA{200, 30, 30, 255})  // reddish
	img.Set(1, 0, color.RGBA{30, 30, 200, 255})  // bluish
	img.Set(2, 0, color.RGBA{30, 200, 30, 255})  // green, near no reference

	m := FromImage(img, 250)
	if m.Count() != 3 {
		t.Fatalf("data mask has %d pixels, want 3", m.Count())
	}

	refs := []colorful.Color{
		{R: 0.8, G: 0.1, B: 0.1},
		{R: 0.1, G: 0.1, B: 0.8},
	}
	subs, err := SubMasksByColor(img, m, refs, 0.3)
	if err != nil {
		t.Fatalf("SubMasksByColor: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d sub-masks, want 2", len(subs))
	}
	if !subs[0].At(0, 0) || subs[0].Count() != 1 {
		t.Errorf("red sub-mask = %d pixels at wrong spots", subs[0].Count())
	}
	if !subs[1].At(0, 1) || subs[1].Count() != 1 {
		t.Errorf("blue sub-mask = %d pixels at wrong spots", subs[1].Count())
	}

	if _, err := SubMasksByColor(img, m, nil, 0.3); err == nil {
		t.Error("empty reference set accepted")
	}
	if _, err := SubMasksByColor(img, m, refs, 0); err == nil {
		t.Error("zero distance accepted")
	}
	small := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if _, err := SubMasksByColor(small, m, refs, 0.3); err == nil {
		t.Error("mismatched image and mask accepted")
	}
}
