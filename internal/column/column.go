// Package column partitions the diagram width into the per-variable
// sub-diagrams of a stratigraphic plot. The columns of a model always tile
// the full pixel width with no gaps or overlaps; every edit re-validates that
// invariant before it takes effect.
package column

import (
	"errors"
	"fmt"
	"sort"

	"pollen-digitizer/internal/mask"
)

// ErrOverlappingColumns is returned when an edit would break the column
// tiling invariant.
var ErrOverlappingColumns = errors.New("columns overlap or leave a gap")

// Column is one sub-diagram's horizontal pixel range [Start, End) together
// with the vertical extent [StartRow, EndRow) it is digitized over.
type Column struct {
	Index    int `json:"index"`
	Start    int `json:"start"`
	End      int `json:"end"`
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
}

// Width returns the number of pixel columns covered.
func (c Column) Width() int { return c.End - c.Start }

// Model holds the ordered column boundaries for one diagram.
// bounds has one entry per column plus one: bounds[i] is column i's start,
// bounds[len-1] is the image width.
type Model struct {
	width  int
	height int
	bounds []int
	rows   [][2]int // per-column digitizing extent [start_row, end_row)
}

// New creates a model from explicit column start positions. starts must be
// strictly increasing, begin at 0 and stay below width.
func New(width, height int, starts []int) (*Model, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("column model needs a positive image size, got %dx%d", width, height)
	}
	if len(starts) == 0 || starts[0] != 0 {
		return nil, fmt.Errorf("first column must start at 0: %w", ErrOverlappingColumns)
	}
	bounds := make([]int, 0, len(starts)+1)
	bounds = append(bounds, starts...)
	bounds = append(bounds, width)
	if err := validate(bounds, width); err != nil {
		return nil, err
	}
	m := &Model{width: width, height: height, bounds: bounds}
	m.rows = make([][2]int, len(starts))
	for i := range m.rows {
		m.rows[i] = [2]int{0, height}
	}
	return m, nil
}

// Len returns the number of columns.
func (m *Model) Len() int { return len(m.bounds) - 1 }

// Column returns the i-th column, counted from the left.
func (m *Model) Column(i int) Column {
	return Column{
		Index:    i,
		Start:    m.bounds[i],
		End:      m.bounds[i+1],
		StartRow: m.rows[i][0],
		EndRow:   m.rows[i][1],
	}
}

// Columns returns all columns left to right.
func (m *Model) Columns() []Column {
	cols := make([]Column, m.Len())
	for i := range cols {
		cols[i] = m.Column(i)
	}
	return cols
}

// ColumnAt returns the column containing pixel column x, or ok=false when x
// is outside the image.
func (m *Model) ColumnAt(x int) (Column, bool) {
	if x < 0 || x >= m.width {
		return Column{}, false
	}
	i := sort.SearchInts(m.bounds, x+1) - 1
	return m.Column(i), true
}

// MoveBoundary moves the start of column i (0 < i < Len) to newStart.
// Fails if the boundary would cross one of its neighbors.
func (m *Model) MoveBoundary(i, newStart int) error {
	if i <= 0 || i >= m.Len() {
		return fmt.Errorf("boundary %d is not movable", i)
	}
	if newStart <= m.bounds[i-1] || newStart >= m.bounds[i+1] {
		return fmt.Errorf("boundary %d to %d: %w", i, newStart, ErrOverlappingColumns)
	}
	m.bounds[i] = newStart
	return nil
}

// InsertBoundary splits the column containing x by starting a new column at
// x. The new column inherits the split column's row extent.
func (m *Model) InsertBoundary(x int) error {
	if x <= 0 || x >= m.width {
		return fmt.Errorf("boundary at %d outside image: %w", x, ErrOverlappingColumns)
	}
	i := sort.SearchInts(m.bounds, x)
	if i < len(m.bounds) && m.bounds[i] == x {
		return fmt.Errorf("boundary at %d already exists: %w", x, ErrOverlappingColumns)
	}
	col := i - 1
	m.bounds = append(m.bounds, 0)
	copy(m.bounds[i+1:], m.bounds[i:])
	m.bounds[i] = x
	m.rows = append(m.rows, [2]int{})
	copy(m.rows[col+1:], m.rows[col:])
	m.rows[col+1] = m.rows[col]
	return nil
}

// DeleteBoundary removes the boundary starting column i, merging it into its
// left neighbor. The merged column keeps the left neighbor's row extent.
func (m *Model) DeleteBoundary(i int) error {
	if i <= 0 || i >= m.Len() {
		return fmt.Errorf("boundary %d is not removable", i)
	}
	m.bounds = append(m.bounds[:i], m.bounds[i+1:]...)
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

// SetEnds sets the vertical digitizing extent of column i.
func (m *Model) SetEnds(i, startRow, endRow int) error {
	if i < 0 || i >= m.Len() {
		return fmt.Errorf("no column %d", i)
	}
	if startRow < 0 || endRow > m.height || startRow > endRow {
		return fmt.Errorf("row extent [%d, %d) invalid for height %d", startRow, endRow, m.height)
	}
	m.rows[i] = [2]int{startRow, endRow}
	return nil
}

func validate(bounds []int, width int) error {
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return fmt.Errorf("bounds %v: %w", bounds, ErrOverlappingColumns)
		}
	}
	if bounds[0] != 0 || bounds[len(bounds)-1] != width {
		return fmt.Errorf("bounds %v do not tile [0, %d): %w", bounds, width, ErrOverlappingColumns)
	}
	return nil
}

// Detect scans the mask left to right and groups data-bearing pixel columns
// into Columns. A pixel column counts as data-bearing when its coverage
// fraction over the full row extent is at least threshold; every run of
// data-bearing pixel columns separated by an empty one becomes its own
// Column. Empty margins are attached to the column on their left (the first
// margin to the first column) so that the result tiles the full width.
func Detect(m *mask.Mask, threshold float64) (*Model, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("column threshold %v outside [0, 1]", threshold)
	}
	w, h := m.Width(), m.Height()
	covered := make([]bool, w)
	for c := 0; c < w; c++ {
		frac := float64(m.ColCount(c, 0, h)) / float64(h)
		covered[c] = frac >= threshold && frac > 0
	}

	var starts []int
	inRun := false
	for c := 0; c < w; c++ {
		if covered[c] && !inRun {
			starts = append(starts, c)
			inRun = true
		} else if !covered[c] {
			inRun = false
		}
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("no data-bearing pixel columns at threshold %v", threshold)
	}
	// The run starts become column starts; everything left of the first run
	// belongs to the first column.
	starts[0] = 0
	return New(w, h, starts)
}

// EstimateStarts returns candidate column start positions using the doubling
// heuristic: a pixel column starts a new column when it follows an empty one,
// or when its data pixel count at least doubles against its predecessor.
// Candidates must be covered by at least threshold and candidates closer than
// one percent of the image width to their successor are dropped.
func EstimateStarts(m *mask.Mask, threshold float64) []int {
	w, h := m.Width(), m.Height()
	summed := make([]int, w)
	for c := 0; c < w; c++ {
		summed[c] = m.ColCount(c, 0, h)
	}
	valid := func(c int) bool {
		return float64(summed[c])/float64(h) >= threshold && summed[c] > 0
	}

	var cand []int
	for c := 0; c < w; c++ {
		if !valid(c) {
			continue
		}
		if c == 0 || summed[c-1] == 0 || summed[c] >= 2*summed[c-1] {
			cand = append(cand, c)
		}
	}

	// Enforce the minimum spacing of 1% of the width between starts.
	minDiff := w / 100
	var out []int
	for i, c := range cand {
		next := w
		if i+1 < len(cand) {
			next = cand[i+1]
		}
		if next-c > minDiff {
			out = append(out, c)
		}
	}
	return out
}
