// Package bars turns the row-wise distance signal of a bar diagram column
// into discrete bar segments. The segmenter is a greedy single-pass
// run-length encoder with a noise tolerance, not an optimal change-point
// search: a new segment starts whenever the signal jumps by more than the
// tolerance.
package bars

import (
	"fmt"
	"math"

	"pollen-digitizer/pkg/series"
)

// Segment is a maximal run of rows [Start, End) assigned one constant value.
// Gaps between bars are segments with Value 0, so the segments of a column
// always tile its full row range.
type Segment struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Value float64 `json:"value"`
}

// Len returns the row span of the segment.
func (s Segment) Len() int { return s.End - s.Start }

// Options configures segmentation and cleanup.
type Options struct {
	// Tolerance is the maximum jump between neighboring rows that still
	// belongs to the same bar.
	Tolerance float64 `json:"tolerance"`
	// MinLength removes bars shorter than this many rows outright.
	// Zero disables the absolute cutoff.
	MinLength int `json:"min_length"`
	// ShortFraction removes bars shorter than this fraction of the median
	// bar length. Zero disables the relative cutoff.
	ShortFraction float64 `json:"short_fraction"`
	// LongFraction flags bars longer than this multiple of the median bar
	// length as candidates for splitting. Zero disables flagging.
	LongFraction float64 `json:"long_fraction"`
	// Rounded tolerates a rounding margin of this many rows at the top and
	// bottom of each bar before a jump counts as a new segment. Zero means
	// sharp-cornered bars.
	Rounded int `json:"rounded"`
	// Value computes a segment's representative value from the signal d over
	// [start, end). Nil selects ModeValue.
	Value func(d []float64, start, end int) float64 `json:"-"`
}

// DefaultRounded is the rounding margin rounded-bar readers fall back to
// when Options.Rounded is zero.
const DefaultRounded = 2

// DefaultOptions returns the segmentation defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:     2,
		ShortFraction: 0.4,
		LongFraction:  1.7,
	}
}

func (o Options) validate() error {
	if o.Tolerance < 0 {
		return fmt.Errorf("bar tolerance %v must be >= 0", o.Tolerance)
	}
	if o.MinLength < 0 {
		return fmt.Errorf("bar min length %d must be >= 0", o.MinLength)
	}
	if o.ShortFraction < 0 || o.LongFraction < 0 || o.Rounded < 0 {
		return fmt.Errorf("bar cleanup parameters must be >= 0")
	}
	return nil
}

// ModeValue is the default segment value policy: the most frequent value in
// the range, ties broken by the value closest to the range's first row.
func ModeValue(d []float64, start, end int) float64 {
	return series.Mode(d, start, end, d[start])
}

// Segmentize splits the distance signal d into segments and returns them
// together with the indices of segments flagged as too long. The returned
// segments tile [0, len(d)); rows with no data carry Value 0.
func Segmentize(d []float64, opts Options) ([]Segment, []int, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	if len(d) == 0 {
		return nil, nil, nil
	}
	value := opts.Value
	if value == nil {
		value = ModeValue
	}

	var segs []Segment
	start := 0
	for i := 1; i <= len(d); i++ {
		if i < len(d) && !boundary(d, start, i, opts) {
			continue
		}
		segs = append(segs, makeSegment(d, start, i, value))
		start = i
	}

	segs = removeShort(segs, d, value, opts)
	return segs, flagLong(segs, opts), nil
}

// boundary reports whether row i starts a new segment against the segment
// forming since row start.
func boundary(d []float64, start, i int, opts Options) bool {
	prev, cur := d[i-1], d[i]
	if series.IsZero(prev) != series.IsZero(cur) {
		return true
	}
	if series.IsZero(prev) && series.IsZero(cur) {
		return false
	}
	if math.Abs(cur-prev) <= opts.Tolerance {
		return false
	}
	// Rounded bars taper at both ends. Inside the leading margin a rising
	// jump is still the top of the bar; a falling jump whose bar runs into a
	// gap within the margin is still its bottom.
	if opts.Rounded > 0 && i-start <= opts.Rounded && cur > prev {
		return false
	}
	if opts.Rounded > 0 && cur < prev && gapWithin(d, i, opts.Rounded) {
		return false
	}
	return true
}

// gapWithin reports whether the signal reaches a gap, or its end, within n
// rows after row i.
func gapWithin(d []float64, i, n int) bool {
	for j := i + 1; j <= i+n; j++ {
		if j >= len(d) || series.IsZero(d[j]) {
			return true
		}
	}
	return false
}

func makeSegment(d []float64, start, end int, value func([]float64, int, int) float64) Segment {
	if series.IsZero(d[start]) {
		return Segment{Start: start, End: end, Value: 0}
	}
	v := value(d, start, end)
	if math.IsNaN(v) {
		v = 0
	}
	return Segment{Start: start, End: end, Value: v}
}

// removeShort merges data segments shorter than the absolute and relative
// minimums into their neighboring gap.
func removeShort(segs []Segment, d []float64, value func([]float64, int, int) float64, opts Options) []Segment {
	if opts.MinLength == 0 && opts.ShortFraction == 0 {
		return segs
	}
	med := medianDataLen(segs)
	cut := float64(opts.MinLength)
	if opts.ShortFraction > 0 {
		rel := opts.ShortFraction * med
		if rel > cut {
			cut = rel
		}
	}
	var out []Segment
	for _, s := range segs {
		if s.Value != 0 && float64(s.Len()) < cut {
			s.Value = 0
		}
		// Coalesce adjacent gap segments.
		if len(out) > 0 && out[len(out)-1].Value == 0 && s.Value == 0 {
			out[len(out)-1].End = s.End
			continue
		}
		out = append(out, s)
	}
	return out
}

// flagLong returns the indices of data segments longer than LongFraction
// times the median data segment length.
func flagLong(segs []Segment, opts Options) []int {
	if opts.LongFraction == 0 {
		return nil
	}
	med := medianDataLen(segs)
	if math.IsNaN(med) || med == 0 {
		return nil
	}
	var flagged []int
	for i, s := range segs {
		if s.Value != 0 && float64(s.Len()) > opts.LongFraction*med {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

func medianDataLen(segs []Segment) float64 {
	var lens []float64
	for _, s := range segs {
		if s.Value != 0 {
			lens = append(lens, float64(s.Len()))
		}
	}
	return series.Median(lens)
}

// SplitAt inserts a segment boundary at row strictly inside an existing
// segment. Both children get their value recomputed from their own sub-range.
// Splitting at a row that is already a boundary has no further effect.
func SplitAt(segs []Segment, d []float64, row int, opts Options) ([]Segment, error) {
	value := opts.Value
	if value == nil {
		value = ModeValue
	}
	for i, s := range segs {
		if row == s.Start {
			return segs, nil // already a boundary
		}
		if !(row > s.Start && row < s.End) {
			continue
		}
		left := makeSegment(d, s.Start, row, value)
		right := makeSegment(d, row, s.End, value)
		out := make([]Segment, 0, len(segs)+1)
		out = append(out, segs[:i]...)
		out = append(out, left, right)
		out = append(out, segs[i+1:]...)
		return out, nil
	}
	return nil, fmt.Errorf("split row %d outside the segmented range", row)
}

// SplitLong splits every flagged segment into children of roughly the median
// data segment length, mirroring the automatic bar splitting of over-wide
// bars. Flagged indices must come from Segmentize on the same signal.
func SplitLong(segs []Segment, d []float64, flagged []int, opts Options) []Segment {
	if len(flagged) == 0 {
		return segs
	}
	value := opts.Value
	if value == nil {
		value = ModeValue
	}
	med := int(math.Round(medianDataLen(segs)))
	if med <= 0 {
		return segs
	}
	isFlagged := make(map[int]bool, len(flagged))
	for _, i := range flagged {
		isFlagged[i] = true
	}
	var out []Segment
	for i, s := range segs {
		if !isFlagged[i] {
			out = append(out, s)
			continue
		}
		n := int(math.Ceil(float64(s.Len()) / float64(med)))
		for j := 0; j < n; j++ {
			start := s.Start + j*med
			end := start + med
			if j == n-1 || end > s.End {
				end = s.End
			}
			if end > start {
				out = append(out, makeSegment(d, start, end, value))
			}
		}
	}
	return out
}
