// Package removal detects non-data features in the binary mask: axis lines,
// disconnected artifacts, features spanning several columns and small noise
// specks. Every detector is read-only and returns the pixel set it would
// erase; the caller reviews or edits the set and then clears it through
// Apply. That split keeps each removal atomic and reviewable.
package removal

import (
	"context"
	"fmt"
	"sort"

	"pollen-digitizer/internal/column"
	"pollen-digitizer/internal/mask"
	"pollen-digitizer/pkg/series"
)

// Orientation selects the scan direction for line detection.
type Orientation int

const (
	// Horizontal detects rows of near-full coverage (x-axes, grid lines).
	Horizontal Orientation = iota
	// Vertical detects pixel columns of near-full coverage (y-axes).
	Vertical
)

// LineParams configures line detection.
type LineParams struct {
	// MinFraction is the coverage fraction a row or pixel column must reach
	// to count as part of a line.
	MinFraction float64
	// MinWidth and MaxWidth bound the thickness of a line in pixels.
	// MaxWidth 0 means unbounded.
	MinWidth int
	MaxWidth int
}

func (p LineParams) validate() error {
	if p.MinFraction < 0 || p.MinFraction > 1 {
		return fmt.Errorf("line min fraction %v outside [0, 1]", p.MinFraction)
	}
	if p.MinWidth < 1 {
		return fmt.Errorf("line min width %d must be >= 1", p.MinWidth)
	}
	if p.MaxWidth != 0 && p.MaxWidth < p.MinWidth {
		return fmt.Errorf("line max width %d below min width %d", p.MaxWidth, p.MinWidth)
	}
	return nil
}

// DetectLines finds horizontal or vertical lines across the diagram part.
// A contiguous run of rows (or pixel columns) whose individual coverage is at
// least MinFraction and whose run length lies within [MinWidth, MaxWidth] is
// a line; the returned set holds all data pixels inside flagged runs.
func DetectLines(m *mask.Mask, orient Orientation, p LineParams) ([]mask.Pixel, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	w, h := m.Width(), m.Height()

	extent, span := h, w
	if orient == Vertical {
		extent, span = w, h
	}

	covered := make([]bool, extent)
	for i := 0; i < extent; i++ {
		var n int
		if orient == Horizontal {
			n = m.RowCount(i, 0, w)
		} else {
			n = m.ColCount(i, 0, h)
		}
		covered[i] = float64(n)/float64(span) >= p.MinFraction
	}

	var pixels []mask.Pixel
	for _, run := range series.TrueRuns(covered) {
		if run.Len() < p.MinWidth {
			continue
		}
		if p.MaxWidth != 0 && run.Len() > p.MaxWidth {
			continue
		}
		for i := run.Start; i < run.End; i++ {
			pixels = append(pixels, linePixels(m, orient, i)...)
		}
	}
	return pixels, nil
}

func linePixels(m *mask.Mask, orient Orientation, i int) []mask.Pixel {
	var px []mask.Pixel
	if orient == Horizontal {
		for c := 0; c < m.Width(); c++ {
			if m.At(i, c) {
				px = append(px, mask.Pixel{Row: i, Col: c})
			}
		}
		return px
	}
	for r := 0; r < m.Height(); r++ {
		if m.At(r, i) {
			px = append(px, mask.Pixel{Row: r, Col: i})
		}
	}
	return px
}

// DisconnectedMode selects which distance rule flags a component.
type DisconnectedMode int

const (
	// FromStart flags components too far below the column's top boundary.
	FromStart DisconnectedMode = iota
	// FromPrevious flags components too far below the previous component in
	// the same column.
	FromPrevious
	// BothDistances flags components violating both rules at once.
	BothDistances
)

// DisconnectedParams configures disconnected-feature detection.
type DisconnectedParams struct {
	FromStartDist    int
	FromPreviousDist int
	Mode             DisconnectedMode
	Connectivity     mask.Connectivity
}

func (p DisconnectedParams) validate() error {
	if p.FromStartDist < 0 || p.FromPreviousDist < 0 {
		return fmt.Errorf("disconnected distances must be >= 0, got %d and %d",
			p.FromStartDist, p.FromPreviousDist)
	}
	return nil
}

// DetectDisconnected flags components per column whose vertical distance to
// the column's top boundary, or to the nearest earlier component, exceeds the
// configured limits.
func DetectDisconnected(ctx context.Context, m *mask.Mask, cols *column.Model, p DisconnectedParams) ([]mask.Pixel, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var pixels []mask.Pixel
	for _, col := range cols.Columns() {
		comps, err := mask.LabelRegion(ctx, m, col.StartRow, col.EndRow, col.Start, col.End, p.Connectivity)
		if err != nil {
			return nil, err
		}
		sort.Slice(comps, func(i, j int) bool { return comps[i].MinRow < comps[j].MinRow })

		prevEnd := col.StartRow
		for _, comp := range comps {
			fromStart := comp.MinRow-col.StartRow > p.FromStartDist
			fromPrev := comp.MinRow-prevEnd > p.FromPreviousDist
			flag := false
			switch p.Mode {
			case FromStart:
				flag = fromStart
			case FromPrevious:
				flag = fromPrev
			case BothDistances:
				flag = fromStart && fromPrev
			}
			if flag {
				pixels = append(pixels, comp.Pixels...)
			} else if comp.MaxRow+1 > prevEnd {
				// Flagged components do not anchor later ones.
				prevEnd = comp.MaxRow + 1
			}
		}
	}
	return pixels, nil
}

// DetectCrossColumn labels components over the entire mask and flags those
// holding at least minPixels data pixels in more than one column's range.
func DetectCrossColumn(ctx context.Context, m *mask.Mask, cols *column.Model, minPixels int, conn mask.Connectivity) ([]mask.Pixel, error) {
	if minPixels < 1 {
		return nil, fmt.Errorf("cross-column min pixels %d must be >= 1", minPixels)
	}
	comps, err := mask.Label(ctx, m, conn)
	if err != nil {
		return nil, err
	}
	var pixels []mask.Pixel
	for _, comp := range comps {
		perCol := make(map[int]int)
		for _, px := range comp.Pixels {
			if c, ok := cols.ColumnAt(px.Col); ok {
				perCol[c.Index]++
			}
		}
		hit := 0
		for _, n := range perCol {
			if n >= minPixels {
				hit++
			}
		}
		if hit > 1 {
			pixels = append(pixels, comp.Pixels...)
		}
	}
	return pixels, nil
}

// DetectSmall flags components with fewer than minSize pixels, labeled per
// column.
func DetectSmall(ctx context.Context, m *mask.Mask, cols *column.Model, minSize int, conn mask.Connectivity) ([]mask.Pixel, error) {
	if minSize < 1 {
		return nil, fmt.Errorf("small-feature min size %d must be >= 1", minSize)
	}
	var pixels []mask.Pixel
	for _, col := range cols.Columns() {
		comps, err := mask.LabelRegion(ctx, m, col.StartRow, col.EndRow, col.Start, col.End, conn)
		if err != nil {
			return nil, err
		}
		for _, comp := range comps {
			if comp.Size() < minSize {
				pixels = append(pixels, comp.Pixels...)
			}
		}
	}
	return pixels, nil
}

// DetectColumnEnds flags components that touch the last npixels of their
// column's range. Such features usually belong to the neighboring column and
// leaked across the boundary.
func DetectColumnEnds(ctx context.Context, m *mask.Mask, cols *column.Model, npixels int, conn mask.Connectivity) ([]mask.Pixel, error) {
	if npixels < 1 {
		return nil, fmt.Errorf("column-end width %d must be >= 1", npixels)
	}
	var pixels []mask.Pixel
	for _, col := range cols.Columns() {
		comps, err := mask.LabelRegion(ctx, m, col.StartRow, col.EndRow, col.Start, col.End, conn)
		if err != nil {
			return nil, err
		}
		for _, comp := range comps {
			if comp.MaxCol >= col.End-npixels {
				pixels = append(pixels, comp.Pixels...)
			}
		}
	}
	return pixels, nil
}

// Apply clears the pixel set from the mask. This is the single mutating
// operation of the package; it is idempotent.
func Apply(m *mask.Mask, pixels []mask.Pixel) {
	m.Apply(pixels)
}
