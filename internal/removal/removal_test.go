package removal

import (
	"context"
	"testing"

	"pollen-digitizer/internal/column"
	"pollen-digitizer/internal/mask"
)

func fill(m *mask.Mask, r0, r1, c0, c1 int) {
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			m.Set(r, c, true)
		}
	}
}

func model(t *testing.T, width, height int, starts []int) *column.Model {
	t.Helper()
	cols, err := column.New(width, height, starts)
	if err != nil {
		t.Fatal(err)
	}
	return cols
}

func TestDetectLinesHorizontal(t *testing.T) {
	// A 2px horizontal axis across the full width plus ordinary data.
	m := mask.New(20, 12)
	fill(m, 4, 6, 0, 20)
	fill(m, 8, 10, 3, 7)

	px, err := DetectLines(m, Horizontal, LineParams{MinFraction: 0.9, MinWidth: 1, MaxWidth: 3})
	if err != nil {
		t.Fatalf("DetectLines: %v", err)
	}
	if len(px) != 40 {
		t.Fatalf("flagged %d pixels, want 40", len(px))
	}
	for _, p := range px {
		if p.Row != 4 && p.Row != 5 {
			t.Fatalf("flagged pixel in row %d, want rows 4-5 only", p.Row)
		}
	}

	Apply(m, px)
	if m.CountRegion(4, 6, 0, 20) != 0 {
		t.Error("line pixels survive Apply")
	}
	if m.CountRegion(8, 10, 3, 7) != 8 {
		t.Error("data pixels were removed with the line")
	}
}

func TestDetectLinesWidthBounds(t *testing.T) {
	// A 5px thick band must not match with MaxWidth 3.
	m := mask.New(20, 12)
	fill(m, 2, 7, 0, 20)

	px, err := DetectLines(m, Horizontal, LineParams{MinFraction: 0.9, MinWidth: 1, MaxWidth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(px) != 0 {
		t.Errorf("thick band flagged as line (%d pixels)", len(px))
	}

	if _, err := DetectLines(m, Horizontal, LineParams{MinFraction: 0.5, MinWidth: 0}); err == nil {
		t.Error("zero min width accepted")
	}
	if _, err := DetectLines(m, Horizontal, LineParams{MinFraction: 1.5, MinWidth: 1}); err == nil {
		t.Error("fraction above 1 accepted")
	}
}

func TestDetectLinesVertical(t *testing.T) {
	m := mask.New(20, 12)
	fill(m, 0, 12, 9, 10) // a y-axis
	fill(m, 3, 6, 2, 4)

	px, err := DetectLines(m, Vertical, LineParams{MinFraction: 0.9, MinWidth: 1, MaxWidth: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(px) != 12 {
		t.Fatalf("flagged %d pixels, want 12", len(px))
	}
	for _, p := range px {
		if p.Col != 9 {
			t.Fatalf("flagged pixel in column %d, want 9", p.Col)
		}
	}
}

func TestDetectDisconnected(t *testing.T) {
	// Column 0: data at rows 0-4 and an artifact at rows 20-22.
	// Column 1: continuous data at rows 0-22.
	m := mask.New(20, 30)
	fill(m, 0, 5, 2, 8)
	fill(m, 20, 23, 2, 8)
	fill(m, 0, 23, 12, 18)
	cols := model(t, 20, 30, []int{0, 10})

	tests := []struct {
		name  string
		p     DisconnectedParams
		want  int
		inCol int
	}{
		{"from previous", DisconnectedParams{FromPreviousDist: 10, Mode: FromPrevious}, 18, 0},
		{"from start", DisconnectedParams{FromStartDist: 10, Mode: FromStart}, 18, 0},
		{"both", DisconnectedParams{FromStartDist: 10, FromPreviousDist: 10, Mode: BothDistances}, 18, 0},
		{"tolerant", DisconnectedParams{FromPreviousDist: 20, Mode: FromPrevious}, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, err := DetectDisconnected(context.Background(), m, cols, tt.p)
			if err != nil {
				t.Fatalf("DetectDisconnected: %v", err)
			}
			if len(px) != tt.want {
				t.Fatalf("flagged %d pixels, want %d", len(px), tt.want)
			}
			for _, p := range px {
				if p.Col >= 10 {
					t.Fatal("flagged pixels in the continuous column")
				}
			}
		})
	}

	bad := DisconnectedParams{FromStartDist: -1}
	if _, err := DetectDisconnected(context.Background(), m, cols, bad); err == nil {
		t.Error("negative distance accepted")
	}
}

func TestDetectCrossColumn(t *testing.T) {
	// A blob straddling the boundary with >=4 pixels on both sides, plus a
	// well-contained feature.
	m := mask.New(20, 10)
	fill(m, 4, 6, 8, 12)
	fill(m, 1, 3, 2, 6)
	cols := model(t, 20, 10, []int{0, 10})

	px, err := DetectCrossColumn(context.Background(), m, cols, 4, mask.Conn8)
	if err != nil {
		t.Fatalf("DetectCrossColumn: %v", err)
	}
	if len(px) != 8 {
		t.Fatalf("flagged %d pixels, want 8", len(px))
	}

	// Raising the per-column minimum above the smaller share spares it.
	px, err = DetectCrossColumn(context.Background(), m, cols, 5, mask.Conn8)
	if err != nil {
		t.Fatal(err)
	}
	if len(px) != 0 {
		t.Errorf("flagged %d pixels with min 5, want 0", len(px))
	}
}

func TestDetectCrossColumnCancellation(t *testing.T) {
	m := mask.New(20, 10)
	fill(m, 0, 10, 0, 20)
	cols := model(t, 20, 10, []int{0, 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DetectCrossColumn(ctx, m, cols, 1, mask.Conn8); err == nil {
		t.Error("cancelled detection returned no error")
	}
	// All-or-nothing: the mask is untouched.
	if m.Count() != 200 {
		t.Error("cancelled detection modified the mask")
	}
}

func TestDetectSmall(t *testing.T) {
	m := mask.New(20, 10)
	fill(m, 1, 5, 1, 5) // 16 px
	m.Set(8, 2, true)   // speck
	m.Set(8, 14, true)  // speck in the second column
	cols := model(t, 20, 10, []int{0, 10})

	px, err := DetectSmall(context.Background(), m, cols, 3, mask.Conn8)
	if err != nil {
		t.Fatalf("DetectSmall: %v", err)
	}
	if len(px) != 2 {
		t.Fatalf("flagged %d pixels, want 2", len(px))
	}
}

func TestDetectColumnEnds(t *testing.T) {
	m := mask.New(20, 10)
	fill(m, 2, 4, 8, 10) // touches the end of column 0
	fill(m, 6, 8, 2, 5)  // well inside
	cols := model(t, 20, 10, []int{0, 10})

	px, err := DetectColumnEnds(context.Background(), m, cols, 2, mask.Conn8)
	if err != nil {
		t.Fatalf("DetectColumnEnds: %v", err)
	}
	if len(px) != 4 {
		t.Fatalf("flagged %d pixels, want 4", len(px))
	}
	for _, p := range px {
		if p.Col < 8 {
			t.Fatalf("flagged interior pixel at column %d", p.Col)
		}
	}
}
