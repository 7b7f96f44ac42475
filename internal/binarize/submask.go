package binarize

import (
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"

	"pollen-digitizer/internal/mask"
)

// SubMasksByColor splits the data pixels of an RGB diagram into one mask per
// reference color, assigning each pixel to the nearest reference in CIE-Lab
// distance. Pixels farther than maxDist from every reference are assigned to
// no mask. Stacked-area readers consume the result as their sub-series
// masks; picking the reference colors stays with the caller.
func SubMasksByColor(img image.Image, data *mask.Mask, refs []colorful.Color, maxDist float64) ([]*mask.Mask, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("need at least one reference color")
	}
	if maxDist <= 0 {
		return nil, fmt.Errorf("max color distance %v must be > 0", maxDist)
	}
	b := img.Bounds()
	if b.Dx() != data.Width() || b.Dy() != data.Height() {
		return nil, fmt.Errorf("image %dx%d does not match mask %dx%d",
			b.Dx(), b.Dy(), data.Width(), data.Height())
	}

	subs := make([]*mask.Mask, len(refs))
	for i := range subs {
		subs[i] = mask.New(data.Width(), data.Height())
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if !data.At(y, x) {
				continue
			}
			c, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				continue // fully transparent pixel
			}
			best := -1
			bestDist := maxDist
			for i, ref := range refs {
				if d := c.DistanceLab(ref); d <= bestDist {
					best = i
					bestDist = d
				}
			}
			if best >= 0 {
				subs[best].Set(y, x, true)
			}
		}
	}
	return subs, nil
}
