// Package series provides small helpers for 1-D numeric arrays used by the
// digitizing packages: first differences, run grouping and robust statistics.
package series

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Run is a half-open index range [Start, End) of consecutive entries.
type Run struct {
	Start int
	End   int
}

// Len returns the number of entries covered by the run.
func (r Run) Len() int { return r.End - r.Start }

// Contains reports whether i falls inside the run.
func (r Run) Contains(i int) bool { return i >= r.Start && i < r.End }

// Overlaps reports whether two runs share at least one index.
func (r Run) Overlaps(o Run) bool { return r.Start < o.End && o.Start < r.End }

// Diff returns the first difference d[i] = xs[i+1] - xs[i].
// The result has length len(xs)-1; for shorter inputs it is empty.
func Diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

// Sign returns -1, 0 or +1 for x. NaN maps to 0.
func Sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// IsZero reports whether v is NaN or exactly zero. The digitizers use NaN and
// zero interchangeably for "no data at this row".
func IsZero(v float64) bool {
	return math.IsNaN(v) || v == 0
}

// Runs groups consecutive equal boolean entries, in order of appearance.
// The returned runs tile [0, len(bs)).
func Runs(bs []bool) []Run {
	var runs []Run
	start := 0
	for i := 1; i <= len(bs); i++ {
		if i == len(bs) || bs[i] != bs[start] {
			runs = append(runs, Run{Start: start, End: i})
			start = i
		}
	}
	return runs
}

// TrueRuns returns only the runs of true entries.
func TrueRuns(bs []bool) []Run {
	var runs []Run
	for _, r := range Runs(bs) {
		if bs[r.Start] {
			runs = append(runs, r)
		}
	}
	return runs
}

// Median returns the empirical median of xs, ignoring NaN entries.
// Returns NaN for an empty (or all-NaN) input.
func Median(xs []float64) float64 {
	vals := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	return stat.Quantile(0.5, stat.Empirical, vals, nil)
}

// Max returns the maximum of xs ignoring NaN, and the index where it occurs.
// Returns (NaN, -1) if no finite value exists.
func Max(xs []float64) (float64, int) {
	best := math.NaN()
	idx := -1
	for i, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		if idx == -1 || v > best {
			best = v
			idx = i
		}
	}
	return best, idx
}

// Mode returns the most frequent value in xs[start:end], ignoring NaN.
// Ties are broken in favor of the value closest to ref; a remaining tie keeps
// the smaller value. Returns NaN when the range holds no finite value.
func Mode(xs []float64, start, end int, ref float64) float64 {
	counts := make(map[float64]int)
	for _, v := range xs[start:end] {
		if !math.IsNaN(v) {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return math.NaN()
	}
	best := math.NaN()
	bestN := -1
	for v, n := range counts {
		if n > bestN {
			best, bestN = v, n
			continue
		}
		if n == bestN {
			dv, db := math.Abs(v-ref), math.Abs(best-ref)
			if dv < db || (dv == db && v < best) {
				best = v
			}
		}
	}
	return best
}
