package reader

import (
	"fmt"

	"pollen-digitizer/internal/bars"
	"pollen-digitizer/internal/column"
	"pollen-digitizer/internal/mask"
)

// Digitize produces one series per owned column, a pure function of the
// mask's current contents. An all-empty column yields an all-zero series; a
// reader without columns is an error. The result is also cached on the
// reader for the sample finder.
func (f *Forest) Digitize(readerID int) (map[int]Series, error) {
	r, err := f.Reader(readerID)
	if err != nil {
		return nil, err
	}
	if len(r.columns) == 0 {
		return nil, fmt.Errorf("digitize reader %d: %w", readerID, ErrEmptySelection)
	}

	src := f.m
	if r.IsExaggeration() {
		src = r.exag
	}

	out := make(map[int]Series, len(r.columns))
	segs := make(map[int][]bars.Segment)
	for _, ci := range r.columns {
		col := f.model.Column(ci)
		if col.Width() == 0 {
			return nil, fmt.Errorf("column %d has no width: %w", ci, ErrEmptySelection)
		}
		switch r.kind {
		case Area, Line:
			out[ci] = distanceSeries(src, col)
		case Bar, RoundedBar:
			opts := f.barOpts
			if r.kind == RoundedBar && opts.Rounded == 0 {
				opts.Rounded = bars.DefaultRounded
			}
			d := distanceSeries(src, col)
			s, _, err := bars.Segmentize(d, opts)
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", ci, err)
			}
			segs[ci] = s
			out[ci] = segmentSeries(s, len(d))
		case StackedArea:
			out[ci] = sumSeries(src, col)
		default:
			return nil, fmt.Errorf("unknown reader kind %d", r.kind)
		}
	}
	r.series = out
	r.segments = segs
	return out, nil
}

// DigitizeStacked produces one series per externally supplied sub-series
// mask for each column of a stacked-area reader. The value at a row is the
// count of that sub-series' pixels in the row.
func (f *Forest) DigitizeStacked(readerID int) (map[int][]Series, error) {
	r, err := f.Reader(readerID)
	if err != nil {
		return nil, err
	}
	if r.kind != StackedArea {
		return nil, fmt.Errorf("reader %d is %s, not stacked area", readerID, r.kind)
	}
	out := make(map[int][]Series, len(r.columns))
	for _, ci := range r.columns {
		subs := r.subMasks[ci]
		if len(subs) == 0 {
			return nil, fmt.Errorf("column %d has no sub-series masks: %w", ci, ErrEmptySelection)
		}
		col := f.model.Column(ci)
		stacked := make([]Series, len(subs))
		for i, sub := range subs {
			stacked[i] = sumSeries(sub, col)
		}
		out[ci] = stacked
	}
	return out, nil
}

// MergeExaggerations folds an exaggeration reader's series into its parent's
// series: wherever the parent value is below the cutoff (the larger of
// fraction of the column width and the absolute pixel count) and the
// exaggerated rendering carries data, the exaggerated value divided by the
// factor replaces it. Rows where the exaggeration is empty keep the primary
// value. Both readers must have been digitized.
func (f *Forest) MergeExaggerations(exagID int, fraction, absolute float64) (map[int]Series, error) {
	ex, err := f.Reader(exagID)
	if err != nil {
		return nil, err
	}
	if !ex.IsExaggeration() {
		return nil, fmt.Errorf("reader %d is not an exaggerations reader", exagID)
	}
	parent, err := f.Reader(ex.parent)
	if err != nil {
		return nil, err
	}
	out := make(map[int]Series, len(ex.columns))
	for _, ci := range ex.columns {
		pv, ev := parent.series[ci], ex.series[ci]
		if pv == nil || ev == nil {
			return nil, fmt.Errorf("column %d not digitized in both readers", ci)
		}
		cutoff := fraction * float64(f.model.Column(ci).Width())
		if absolute > cutoff {
			cutoff = absolute
		}
		merged := make(Series, len(pv))
		copy(merged, pv)
		for i := range merged {
			if merged[i] < cutoff && i < len(ev) && ev[i] > 0 {
				merged[i] = ev[i] / ex.factor
			}
		}
		parent.series[ci] = merged
		out[ci] = merged
	}
	return out, nil
}

// distanceSeries digitizes the rightmost data pixel distance per row. A row
// without data pixels yields 0; a fully covered row of a column of width W
// yields W.
func distanceSeries(m *mask.Mask, col column.Column) Series {
	s := make(Series, col.EndRow-col.StartRow)
	for i := range s {
		right := m.RightmostInRow(col.StartRow+i, col.Start, col.End)
		if right >= 0 {
			s[i] = float64(right - col.Start + 1)
		}
	}
	return s
}

// sumSeries digitizes the per-row count of data pixels.
func sumSeries(m *mask.Mask, col column.Column) Series {
	s := make(Series, col.EndRow-col.StartRow)
	for i := range s {
		s[i] = float64(m.RowCount(col.StartRow+i, col.Start, col.End))
	}
	return s
}

// segmentSeries expands bar segments into a full-length series.
func segmentSeries(segs []bars.Segment, n int) Series {
	s := make(Series, n)
	for _, seg := range segs {
		for i := seg.Start; i < seg.End && i < n; i++ {
			s[i] = seg.Value
		}
	}
	return s
}
