// Package mask provides the shared binary image that all digitizing
// operations read from and that feature removal mutates. The mask is a single
// row-major arena; columns and readers address it by index ranges only.
package mask

// Pixel identifies one mask cell. Row 0 is the top of the image, Col 0 the
// left edge.
type Pixel struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Mask is a 2-D boolean grid where true marks a data pixel.
type Mask struct {
	width  int
	height int
	bits   []bool
}

// New creates an all-false mask of the given size.
func New(width, height int) *Mask {
	return &Mask{width: width, height: height, bits: make([]bool, width*height)}
}

// Width returns the number of pixel columns.
func (m *Mask) Width() int { return m.width }

// Height returns the number of pixel rows.
func (m *Mask) Height() int { return m.height }

// At reports the value at (row, col). Out-of-range coordinates are false.
func (m *Mask) At(row, col int) bool {
	if row < 0 || row >= m.height || col < 0 || col >= m.width {
		return false
	}
	return m.bits[row*m.width+col]
}

// Set assigns the value at (row, col). Out-of-range coordinates are ignored.
func (m *Mask) Set(row, col int, v bool) {
	if row < 0 || row >= m.height || col < 0 || col >= m.width {
		return
	}
	m.bits[row*m.width+col] = v
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := New(m.width, m.height)
	copy(c.bits, m.bits)
	return c
}

// Count returns the number of true pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// CountRegion returns the number of true pixels inside rows [r0, r1) and
// columns [c0, c1), clipped to the mask bounds.
func (m *Mask) CountRegion(r0, r1, c0, c1 int) int {
	r0, r1, c0, c1 = m.clip(r0, r1, c0, c1)
	n := 0
	for r := r0; r < r1; r++ {
		base := r * m.width
		for c := c0; c < c1; c++ {
			if m.bits[base+c] {
				n++
			}
		}
	}
	return n
}

// RowCount returns the number of true pixels in one row between columns
// [c0, c1).
func (m *Mask) RowCount(row, c0, c1 int) int {
	return m.CountRegion(row, row+1, c0, c1)
}

// ColCount returns the number of true pixels in one pixel column between rows
// [r0, r1).
func (m *Mask) ColCount(col, r0, r1 int) int {
	return m.CountRegion(r0, r1, col, col+1)
}

// RightmostInRow returns the largest column index with a true pixel in row
// within [c0, c1), or -1 if the row is empty there.
func (m *Mask) RightmostInRow(row, c0, c1 int) int {
	r0, r1, c0, c1 := m.clip(row, row+1, c0, c1)
	if r0 >= r1 {
		return -1
	}
	base := row * m.width
	for c := c1 - 1; c >= c0; c-- {
		if m.bits[base+c] {
			return c
		}
	}
	return -1
}

// Apply clears every pixel in the set. Applying the same set twice leaves the
// mask identical to applying it once. This is the only mutation the feature
// removal operators perform, so detection results can be reviewed and edited
// before anything is erased.
func (m *Mask) Apply(pixels []Pixel) {
	for _, p := range pixels {
		m.Set(p.Row, p.Col, false)
	}
}

// ShiftColumns moves the contents of pixel columns [c0, c1) down by the given
// number of rows (negative shifts move up). Rows shifted past the edge are
// dropped; vacated rows become false. Used when a sub-diagram is drawn offset
// against the shared vertical axis.
func (m *Mask) ShiftColumns(c0, c1, rows int) {
	if rows == 0 {
		return
	}
	_, _, c0, c1 = m.clip(0, m.height, c0, c1)
	for c := c0; c < c1; c++ {
		col := make([]bool, m.height)
		for r := 0; r < m.height; r++ {
			src := r - rows
			if src >= 0 && src < m.height {
				col[r] = m.bits[src*m.width+c]
			}
		}
		for r := 0; r < m.height; r++ {
			m.bits[r*m.width+c] = col[r]
		}
	}
}

// Equal reports whether two masks have identical size and contents.
func (m *Mask) Equal(o *Mask) bool {
	if m.width != o.width || m.height != o.height {
		return false
	}
	for i, b := range m.bits {
		if b != o.bits[i] {
			return false
		}
	}
	return true
}

func (m *Mask) clip(r0, r1, c0, c1 int) (int, int, int, int) {
	if r0 < 0 {
		r0 = 0
	}
	if r1 > m.height {
		r1 = m.height
	}
	if c0 < 0 {
		c0 = 0
	}
	if c1 > m.width {
		c1 = m.width
	}
	return r0, r1, c0, c1
}
