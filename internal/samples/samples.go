// Package samples reduces the full per-row series of a reader's columns to
// the measurement rows the diagram was drawn from. Phase 1 derives rough
// candidate intervals per column, phase 2 aligns them across columns into one
// strictly increasing set of sample rows shared by every column.
package samples

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"pollen-digitizer/internal/bars"
	"pollen-digitizer/pkg/series"
)

// ErrOutOfOrderSample is returned when an edit would violate the strict row
// ordering of the sample set.
var ErrOutOfOrderSample = errors.New("sample rows must be strictly ordered")

// Interval is a rough candidate location of one measurement in one column:
// the rows [Start, End) surrounding a local extremum or covering one bar.
type Interval struct {
	Col   int
	Start int
	End   int
}

func (iv Interval) overlaps(start, end int) bool {
	return iv.Start < end && start < iv.End
}

// RoughFromSeries finds the candidate intervals of an area or line column.
// The first difference of the series changes sign at every vertex of the
// interpolated curve; each sign change yields one interval covering the
// plateau of the extremum. Flat runs are absorbed into the plateau, never
// emitted on their own.
func RoughFromSeries(s []float64, col int) []Interval {
	d := series.Diff(s)
	var out []Interval

	prevSign := 0
	lastChange := -1 // index of the last nonzero difference seen
	for i, v := range d {
		sign := series.Sign(v)
		if sign == 0 {
			continue
		}
		if prevSign != 0 && sign != prevSign {
			// Rows lastChange+1 .. i all hold the extremal value.
			out = append(out, Interval{Col: col, Start: lastChange + 1, End: i + 1})
		}
		prevSign = sign
		lastChange = i
	}
	return out
}

// RoughFromSegments turns a bar column's segments into candidate intervals:
// one bar, one candidate. Gap segments are skipped.
func RoughFromSegments(segs []bars.Segment, col int) []Interval {
	var out []Interval
	for _, s := range segs {
		if s.Value != 0 {
			out = append(out, Interval{Col: col, Start: s.Start, End: s.End})
		}
	}
	return out
}

// Representative selects the output row of one alignment group. The default
// picks the row of the group's strongest extremum, falling back to the median
// boundary row when the series carry no usable extremum. The rule is a
// policy, not a law; callers with better knowledge of their diagrams can
// substitute their own.
type Representative func(group []Interval, seriesByCol map[int][]float64) int

// Options configures cross-column alignment.
type Options struct {
	// PixelTol merges aligned sample rows closer than this many pixels.
	// Zero keeps all rows.
	PixelTol int `json:"pixel_tol"`
	// Representative picks the output row of a group. Nil selects
	// StrongestExtremum.
	Representative Representative `json:"-"`
}

// DefaultOptions returns the alignment defaults.
func DefaultOptions() Options {
	return Options{PixelTol: 5}
}

// Find aligns the rough intervals of all columns into one strictly
// increasing sequence of sample rows. Intervals that mutually overlap (share
// at least one row) merge into a single alignment group; each group yields
// exactly one row.
func Find(intervals []Interval, seriesByCol map[int][]float64, opts Options) ([]int, error) {
	if opts.PixelTol < 0 {
		return nil, fmt.Errorf("pixel tolerance %d must be >= 0", opts.PixelTol)
	}
	rep := opts.Representative
	if rep == nil {
		rep = StrongestExtremum
	}
	if len(intervals) == 0 {
		return nil, nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Col < sorted[j].Col
	})

	var rows []int
	group := []Interval{sorted[0]}
	maxEnd := sorted[0].End
	flush := func() {
		rows = append(rows, rep(group, seriesByCol))
	}
	for _, iv := range sorted[1:] {
		if iv.Start < maxEnd {
			group = append(group, iv)
			if iv.End > maxEnd {
				maxEnd = iv.End
			}
			continue
		}
		flush()
		group = []Interval{iv}
		maxEnd = iv.End
	}
	flush()

	sort.Ints(rows)
	rows = dedupe(rows)
	if opts.PixelTol > 0 {
		rows = mergeClose(rows, opts.PixelTol)
	}
	return rows, nil
}

// StrongestExtremum is the default group representative: the mid-plateau row
// of the interval with the largest prominence against its surroundings. When
// every interval is flat against its surroundings, the median boundary row of
// the group is used instead.
func StrongestExtremum(group []Interval, seriesByCol map[int][]float64) int {
	bestProm := 0.0
	bestRow := -1
	for _, iv := range group {
		s := seriesByCol[iv.Col]
		if len(s) == 0 {
			continue
		}
		mid := clamp((iv.Start+iv.End-1)/2, 0, len(s)-1)
		v := s[mid]
		left := s[clamp(iv.Start-1, 0, len(s)-1)]
		right := s[clamp(iv.End, 0, len(s)-1)]
		prom := math.Max(math.Abs(v-left), math.Abs(v-right))
		if prom > bestProm {
			bestProm = prom
			bestRow = mid
		}
	}
	if bestRow >= 0 {
		return bestRow
	}

	var bounds []float64
	for _, iv := range group {
		bounds = append(bounds, float64(iv.Start), float64(iv.End-1))
	}
	return int(math.Round(series.Median(bounds)))
}

// mergeClose collapses sorted rows closer than tol into their rounded mean.
func mergeClose(rows []int, tol int) []int {
	var out []int
	i := 0
	for i < len(rows) {
		j := i
		sum := rows[i]
		for j+1 < len(rows) && rows[j+1]-rows[j] <= tol {
			j++
			sum += rows[j]
		}
		out = append(out, int(math.Round(float64(sum)/float64(j-i+1))))
		i = j + 1
	}
	return out
}

func dedupe(rows []int) []int {
	var out []int
	for i, r := range rows {
		if i == 0 || r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValueAt reads a series at a sample row with nearest interpolation: rows
// outside the digitized extent clamp to its edge. row is absolute, startRow
// is the row of the series' first entry.
func ValueAt(s []float64, startRow, row int) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return s[clamp(row-startRow, 0, len(s)-1)]
}

// Set is the editable, strictly ordered sample row set of one reader.
type Set struct {
	rows []int
}

// NewSet creates a set from aligned rows. The rows must already be strictly
// increasing.
func NewSet(rows []int) (*Set, error) {
	for i := 1; i < len(rows); i++ {
		if rows[i] <= rows[i-1] {
			return nil, fmt.Errorf("rows %d and %d: %w", rows[i-1], rows[i], ErrOutOfOrderSample)
		}
	}
	s := &Set{rows: make([]int, len(rows))}
	copy(s.rows, rows)
	return s, nil
}

// Rows returns the sample rows in ascending order.
func (s *Set) Rows() []int {
	out := make([]int, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of samples.
func (s *Set) Len() int { return len(s.rows) }

// Add inserts a new sample row. Adding an existing row fails and leaves the
// set unchanged.
func (s *Set) Add(row int) error {
	i := sort.SearchInts(s.rows, row)
	if i < len(s.rows) && s.rows[i] == row {
		return fmt.Errorf("row %d already sampled: %w", row, ErrOutOfOrderSample)
	}
	s.rows = append(s.rows, 0)
	copy(s.rows[i+1:], s.rows[i:])
	s.rows[i] = row
	return nil
}

// Delete removes a sample row.
func (s *Set) Delete(row int) error {
	i := sort.SearchInts(s.rows, row)
	if i >= len(s.rows) || s.rows[i] != row {
		return fmt.Errorf("no sample at row %d", row)
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return nil
}

// Move relocates a sample. Moving onto another sample's row fails and leaves
// the set unchanged.
func (s *Set) Move(oldRow, newRow int) error {
	if oldRow == newRow {
		return nil
	}
	i := sort.SearchInts(s.rows, oldRow)
	if i >= len(s.rows) || s.rows[i] != oldRow {
		return fmt.Errorf("no sample at row %d", oldRow)
	}
	j := sort.SearchInts(s.rows, newRow)
	if j < len(s.rows) && s.rows[j] == newRow {
		return fmt.Errorf("row %d already sampled: %w", newRow, ErrOutOfOrderSample)
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	j = sort.SearchInts(s.rows, newRow)
	s.rows = append(s.rows, 0)
	copy(s.rows[j+1:], s.rows[j:])
	s.rows[j] = newRow
	return nil
}
