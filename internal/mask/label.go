package mask

import "context"

// Connectivity selects how pixels join into components.
type Connectivity int

const (
	// Conn4 joins pixels sharing an edge.
	Conn4 Connectivity = iota
	// Conn8 additionally joins pixels sharing a corner.
	Conn8
)

var offsets4 = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

var offsets8 = [][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Component is one connected group of true pixels.
type Component struct {
	Pixels []Pixel
	MinRow int
	MaxRow int // inclusive
	MinCol int
	MaxCol int // inclusive
}

// Size returns the number of pixels in the component.
func (c Component) Size() int { return len(c.Pixels) }

// Label finds the connected components of the whole mask.
// Cancellation is checked between row scans; a cancelled call returns the
// context error and no components.
func Label(ctx context.Context, m *Mask, conn Connectivity) ([]Component, error) {
	return LabelRegion(ctx, m, 0, m.height, 0, m.width, conn)
}

// LabelRegion finds the connected components of the sub-grid with rows
// [r0, r1) and columns [c0, c1). Connectivity does not cross the region
// boundary, so labeling a single column range yields that column's own
// components.
func LabelRegion(ctx context.Context, m *Mask, r0, r1, c0, c1 int, conn Connectivity) ([]Component, error) {
	r0, r1, c0, c1 = m.clip(r0, r1, c0, c1)

	offsets := offsets4
	if conn == Conn8 {
		offsets = offsets8
	}

	visited := make(map[Pixel]bool)
	var comps []Component

	for r := r0; r < r1; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c := c0; c < c1; c++ {
			start := Pixel{Row: r, Col: c}
			if visited[start] || !m.At(r, c) {
				continue
			}

			// BFS flood fill from the seed pixel.
			comp := Component{MinRow: r, MaxRow: r, MinCol: c, MaxCol: c}
			queue := []Pixel{start}
			visited[start] = true
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				comp.Pixels = append(comp.Pixels, cur)
				if cur.Row < comp.MinRow {
					comp.MinRow = cur.Row
				}
				if cur.Row > comp.MaxRow {
					comp.MaxRow = cur.Row
				}
				if cur.Col < comp.MinCol {
					comp.MinCol = cur.Col
				}
				if cur.Col > comp.MaxCol {
					comp.MaxCol = cur.Col
				}
				for _, off := range offsets {
					next := Pixel{Row: cur.Row + off[0], Col: cur.Col + off[1]}
					if next.Row < r0 || next.Row >= r1 || next.Col < c0 || next.Col >= c1 {
						continue
					}
					if visited[next] || !m.At(next.Row, next.Col) {
						continue
					}
					visited[next] = true
					queue = append(queue, next)
				}
			}
			comps = append(comps, comp)
		}
	}
	return comps, nil
}
