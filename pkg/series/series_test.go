package series

import (
	"math"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", nil, nil},
		{"single", []float64{3}, nil},
		{"steps", []float64{1, 3, 2, 2}, []float64{2, -1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Diff(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Diff(%v)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRunsTileInput(t *testing.T) {
	bs := []bool{true, true, false, true, false, false}
	runs := Runs(bs)
	if len(runs) != 4 {
		t.Fatalf("got %d runs, want 4", len(runs))
	}
	pos := 0
	for _, r := range runs {
		if r.Start != pos {
			t.Errorf("run starts at %d, want %d", r.Start, pos)
		}
		pos = r.End
	}
	if pos != len(bs) {
		t.Errorf("runs end at %d, want %d", pos, len(bs))
	}
	if n := len(TrueRuns(bs)); n != 2 {
		t.Errorf("got %d true runs, want 2", n)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"odd", []float64{5, 1, 3}, 3},
		{"ignores nan", []float64{math.NaN(), 2, 8, 4}, 4},
		{"empty", nil, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Median(tt.in)
			if math.IsNaN(tt.want) {
				if !math.IsNaN(got) {
					t.Errorf("Median(%v) = %v, want NaN", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMode(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		ref  float64
		want float64
	}{
		{"clear majority", []float64{2, 2, 2, 5}, 2, 2},
		{"tie closest to ref", []float64{4, 4, 8, 8}, 9, 8},
		{"tie equidistant keeps smaller", []float64{4, 4, 8, 8}, 6, 4},
		{"nan ignored", []float64{math.NaN(), 3, 3, 7}, 7, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mode(tt.in, 0, len(tt.in), tt.ref); got != tt.want {
				t.Errorf("Mode(%v, ref=%v) = %v, want %v", tt.in, tt.ref, got, tt.want)
			}
		})
	}
}
