// Package calib maps pixel coordinates to data values along one axis.
// A calibration is an affine map value = a*pixel + b fitted from reference
// points; the fit is exact for two points and ordinary least squares for
// more. The fit never sees pointer or widget state, it only consumes
// (pixel, value) pairs supplied by the caller.
package calib

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateCalibration is returned when the reference points span no
// pixel distance, leaving the slope undefined.
var ErrDegenerateCalibration = errors.New("calibration points have zero pixel distance")

// Point is one reference point: a pixel coordinate and the data value it
// represents.
type Point struct {
	Pixel float64 `json:"pixel"`
	Value float64 `json:"value"`
}

// Axis is a fitted affine pixel-to-value map. A negative slope is valid and
// represents an axis whose value decreases with the pixel coordinate.
type Axis struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Transform maps a pixel coordinate to its data value.
func (ax Axis) Transform(pixel float64) float64 {
	return ax.A*pixel + ax.B
}

// Invert maps a data value back to its pixel coordinate.
func (ax Axis) Invert(value float64) float64 {
	return (value - ax.B) / ax.A
}

// Fit computes the affine map from at least two reference points. With
// exactly two points the system is solved exactly; with more, by least
// squares over all points.
func Fit(points []Point) (Axis, error) {
	switch {
	case len(points) < 2:
		return Axis{}, fmt.Errorf("need at least 2 calibration points, got %d", len(points))
	case len(points) == 2:
		p0, p1 := points[0], points[1]
		if p1.Pixel == p0.Pixel {
			return Axis{}, fmt.Errorf("points at pixel %v: %w", p0.Pixel, ErrDegenerateCalibration)
		}
		a := (p1.Value - p0.Value) / (p1.Pixel - p0.Pixel)
		return Axis{A: a, B: p0.Value - a*p0.Pixel}, nil
	default:
		return fitLeastSquares(points)
	}
}

// fitLeastSquares solves the overdetermined system [pixel 1] * [a b]' = value
// by QR decomposition.
func fitLeastSquares(points []Point) (Axis, error) {
	n := len(points)
	A := mat.NewDense(n, 2, nil)
	B := mat.NewVecDense(n, nil)

	first := points[0].Pixel
	allEqual := true
	for i, p := range points {
		A.Set(i, 0, p.Pixel)
		A.Set(i, 1, 1)
		B.SetVec(i, p.Value)
		if p.Pixel != first {
			allEqual = false
		}
	}
	if allEqual {
		return Axis{}, fmt.Errorf("all %d points at pixel %v: %w", n, first, ErrDegenerateCalibration)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return Axis{}, fmt.Errorf("calibration fit: %w", err)
	}
	return Axis{A: params.AtVec(0), B: params.AtVec(1)}, nil
}
