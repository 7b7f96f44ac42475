package samples

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"pollen-digitizer/internal/bars"
)

func TestRoughFromSeries(t *testing.T) {
	tests := []struct {
		name string
		s    []float64
		want []Interval
	}{
		{
			name: "single maximum",
			s:    []float64{1, 2, 3, 4, 5, 4, 3, 2, 1},
			want: []Interval{{Col: 0, Start: 4, End: 5}},
		},
		{
			name: "plateau absorbed into the extremum",
			s:    []float64{0, 1, 2, 2, 2, 1, 0},
			want: []Interval{{Col: 0, Start: 2, End: 5}},
		},
		{
			name: "minimum counts as a vertex",
			s:    []float64{3, 2, 1, 2, 3},
			want: []Interval{{Col: 0, Start: 2, End: 3}},
		},
		{
			name: "monotone series has no vertices",
			s:    []float64{0, 1, 2, 3, 4},
			want: nil,
		},
		{
			name: "alternating extrema",
			s:    []float64{1, 2, 3, 4, 5, 6, 5, 4, 3, 2, 1, 2, 3, 4, 5, 6, 5, 4, 3, 2},
			want: []Interval{
				{Col: 0, Start: 5, End: 6},
				{Col: 0, Start: 10, End: 11},
				{Col: 0, Start: 15, End: 16},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoughFromSeries(tt.s, 0)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoughFromSegments(t *testing.T) {
	segs := []bars.Segment{
		{Start: 0, End: 3, Value: 0},
		{Start: 3, End: 8, Value: 5},
		{Start: 8, End: 10, Value: 0},
		{Start: 10, End: 14, Value: 2},
	}
	got := RoughFromSegments(segs, 3)
	want := []Interval{
		{Col: 3, Start: 3, End: 8},
		{Col: 3, Start: 10, End: 14},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Columns with identical rough intervals must align to exactly those rows.
func TestFindIdenticalColumns(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5, 6, 5, 4, 3, 2, 1, 2, 3, 4, 5, 6, 5, 4, 3, 2}
	byCol := map[int][]float64{0: s, 1: s}

	var intervals []Interval
	for col := 0; col < 2; col++ {
		intervals = append(intervals, RoughFromSeries(s, col)...)
	}
	rows, err := Find(intervals, byCol, Options{PixelTol: 2})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if want := []int{5, 10, 15}; !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestFindOverlapGroups(t *testing.T) {
	// Overlapping intervals from different columns collapse into one group
	// and yield a single row.
	intervals := []Interval{
		{Col: 0, Start: 4, End: 7},
		{Col: 1, Start: 6, End: 9},
	}
	s := []float64{0, 1, 2, 3, 4, 5, 4, 3, 2, 1}
	byCol := map[int][]float64{0: s, 1: s}
	rows, err := Find(intervals, byCol, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %v, want a single row", rows)
	}
}

func TestFindMergesCloseRows(t *testing.T) {
	intervals := []Interval{
		{Col: 0, Start: 10, End: 11},
		{Col: 1, Start: 12, End: 13},
		{Col: 0, Start: 40, End: 41},
	}
	// Without series the representative falls back to the median boundary.
	rows, err := Find(intervals, nil, Options{PixelTol: 3})
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{11, 40}; !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestFindNegativeTolerance(t *testing.T) {
	if _, err := Find(nil, nil, Options{PixelTol: -1}); err == nil {
		t.Error("negative tolerance accepted")
	}
}

func TestValueAt(t *testing.T) {
	s := []float64{10, 20, 30}
	if got := ValueAt(s, 5, 6); got != 20 {
		t.Errorf("ValueAt inside = %v, want 20", got)
	}
	if got := ValueAt(s, 5, 0); got != 10 {
		t.Errorf("ValueAt before extent = %v, want 10", got)
	}
	if got := ValueAt(s, 5, 100); got != 30 {
		t.Errorf("ValueAt after extent = %v, want 30", got)
	}
	if got := ValueAt(nil, 0, 0); !math.IsNaN(got) {
		t.Errorf("ValueAt on empty series = %v, want NaN", got)
	}
}

func TestSetEdits(t *testing.T) {
	if _, err := NewSet([]int{3, 3, 5}); !errors.Is(err, ErrOutOfOrderSample) {
		t.Fatalf("NewSet with duplicate rows: %v", err)
	}
	set, err := NewSet([]int{5, 10, 15})
	if err != nil {
		t.Fatal(err)
	}

	if err := set.Add(12); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if want := []int{5, 10, 12, 15}; !reflect.DeepEqual(set.Rows(), want) {
		t.Errorf("after Add: %v, want %v", set.Rows(), want)
	}
	if err := set.Add(10); !errors.Is(err, ErrOutOfOrderSample) {
		t.Errorf("Add existing row: %v", err)
	}

	if err := set.Delete(10); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := set.Delete(10); err == nil {
		t.Error("Delete of a missing row succeeded")
	}

	if err := set.Move(12, 15); !errors.Is(err, ErrOutOfOrderSample) {
		t.Errorf("Move onto occupied row: %v", err)
	}
	if want := []int{5, 12, 15}; !reflect.DeepEqual(set.Rows(), want) {
		t.Errorf("failed Move changed the set: %v, want %v", set.Rows(), want)
	}
	if err := set.Move(12, 20); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if want := []int{5, 15, 20}; !reflect.DeepEqual(set.Rows(), want) {
		t.Errorf("after Move: %v, want %v", set.Rows(), want)
	}
	if set.Len() != 3 {
		t.Errorf("Len = %d, want 3", set.Len())
	}
}
