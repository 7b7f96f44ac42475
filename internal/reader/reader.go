// Package reader binds digitizing strategies to column ranges. A reader owns
// a disjoint set of columns of the shared mask; readers form a forest where
// children (including exaggeration readers) are carved out of their parent's
// column set. A column belongs to exactly one reader at a time.
package reader

import (
	"errors"
	"fmt"
	"sort"

	"pollen-digitizer/internal/bars"
	"pollen-digitizer/internal/column"
	"pollen-digitizer/internal/mask"
)

// ErrEmptySelection is returned when an operation targets no columns or
// pixels.
var ErrEmptySelection = errors.New("empty selection")

// Kind is the digitizing strategy of a reader. The set is closed: each kind
// has exactly one digitize rule.
type Kind int

const (
	// Area digitizes the rightmost data pixel per row.
	Area Kind = iota
	// Line digitizes like Area; the two differ only in rendering.
	Line
	// Bar digitizes piecewise-constant bar segments.
	Bar
	// RoundedBar digitizes bars with a rounding margin at their ends. A zero
	// margin in the bar options falls back to bars.DefaultRounded.
	RoundedBar
	// StackedArea digitizes per-row pixel counts, optionally split into
	// externally supplied sub-series masks.
	StackedArea
)

func (k Kind) String() string {
	switch k {
	case Area:
		return "area"
	case Line:
		return "line"
	case Bar:
		return "bar"
	case RoundedBar:
		return "rounded bar"
	case StackedArea:
		return "stacked area"
	default:
		return "unknown"
	}
}

// Series is one column's digitized values, indexed by pixel row relative to
// the column's start row.
type Series []float64

// Reader digitizes a disjoint set of columns with one strategy.
type Reader struct {
	id       int
	kind     Kind
	parent   int // -1 for the root
	children []int
	columns  []int

	// Exaggeration state: factor > 0 marks an exaggerations reader whose
	// pixels live in exag rather than in the shared mask.
	factor float64
	exag   *mask.Mask

	// Per-column sub-series masks for stacked-area readers.
	subMasks map[int][]*mask.Mask

	// Occurrence rows per column: the taxon is present there but too small
	// to measure.
	occurrences map[int][]int

	// Derived state, recomputed by Digitize.
	series   map[int]Series
	segments map[int][]bars.Segment
}

// ID returns the reader's handle in its forest.
func (r *Reader) ID() int { return r.id }

// Kind returns the digitizing strategy.
func (r *Reader) Kind() Kind { return r.kind }

// Columns returns the owned column indices in ascending order.
func (r *Reader) Columns() []int {
	out := make([]int, len(r.columns))
	copy(out, r.columns)
	return out
}

// Parent returns the parent reader id, or -1 for the root.
func (r *Reader) Parent() int { return r.parent }

// Children returns the ids of carved-out child readers.
func (r *Reader) Children() []int {
	out := make([]int, len(r.children))
	copy(out, r.children)
	return out
}

// IsExaggeration reports whether this reader digitizes a magnified rendering.
func (r *Reader) IsExaggeration() bool { return r.factor > 0 }

// Factor returns the exaggeration factor, or 0 for ordinary readers.
func (r *Reader) Factor() float64 { return r.factor }

// Series returns the digitized series of a column, or nil before Digitize.
func (r *Reader) Series(col int) Series { return r.series[col] }

// Segments returns the bar segments of a column, or nil for non-bar readers.
func (r *Reader) Segments(col int) []bars.Segment { return r.segments[col] }

// SetSubMasks supplies the per-sub-series masks of a stacked-area column.
// Which pixels belong to which sub-series is decided outside the engine.
func (r *Reader) SetSubMasks(col int, subs []*mask.Mask) error {
	if r.kind != StackedArea {
		return fmt.Errorf("sub-masks only apply to stacked area readers, not %s", r.kind)
	}
	if len(subs) == 0 {
		return fmt.Errorf("column %d: %w", col, ErrEmptySelection)
	}
	if r.subMasks == nil {
		r.subMasks = make(map[int][]*mask.Mask)
	}
	r.subMasks[col] = subs
	return nil
}

// SetOccurrences records occurrence rows for a column.
func (r *Reader) SetOccurrences(col int, rows []int) {
	if r.occurrences == nil {
		r.occurrences = make(map[int][]int)
	}
	sorted := make([]int, len(rows))
	copy(sorted, rows)
	sort.Ints(sorted)
	r.occurrences[col] = sorted
}

// Occurrences returns the occurrence rows of a column in ascending order.
func (r *Reader) Occurrences(col int) []int { return r.occurrences[col] }

func (r *Reader) ownsColumn(col int) bool {
	for _, c := range r.columns {
		if c == col {
			return true
		}
	}
	return false
}

func (r *Reader) removeColumns(cols []int) {
	keep := r.columns[:0]
	for _, c := range r.columns {
		owned := false
		for _, rm := range cols {
			if c == rm {
				owned = true
				break
			}
		}
		if !owned {
			keep = append(keep, c)
		}
	}
	r.columns = keep
}

// Forest holds all readers over one mask and column model, addressed by
// integer handles. Parents reference children by id and children hold only
// the parent's id, never an owning reference.
type Forest struct {
	m       *mask.Mask
	model   *column.Model
	readers []*Reader
	barOpts bars.Options
}

// NewForest creates a forest whose root reader owns every column of the
// model.
func NewForest(m *mask.Mask, model *column.Model, kind Kind, barOpts bars.Options) *Forest {
	root := &Reader{id: 0, kind: kind, parent: -1}
	for i := 0; i < model.Len(); i++ {
		root.columns = append(root.columns, i)
	}
	return &Forest{m: m, model: model, readers: []*Reader{root}, barOpts: barOpts}
}

// Mask returns the shared mask the forest digitizes from.
func (f *Forest) Mask() *mask.Mask { return f.m }

// Model returns the column model.
func (f *Forest) Model() *column.Model { return f.model }

// Root returns the root reader.
func (f *Forest) Root() *Reader { return f.readers[0] }

// Reader returns the reader with the given handle.
func (f *Forest) Reader(id int) (*Reader, error) {
	if id < 0 || id >= len(f.readers) {
		return nil, fmt.Errorf("no reader %d", id)
	}
	return f.readers[id], nil
}

// Readers returns all readers in creation order.
func (f *Forest) Readers() []*Reader {
	out := make([]*Reader, len(f.readers))
	copy(out, f.readers)
	return out
}

// CarveChild transfers ownership of cols from the parent to a new child
// reader with its own strategy. Fails if the parent does not own every
// requested column.
func (f *Forest) CarveChild(parentID int, cols []int, kind Kind) (*Reader, error) {
	parent, err := f.Reader(parentID)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("carve from reader %d: %w", parentID, ErrEmptySelection)
	}
	for _, c := range cols {
		if !parent.ownsColumn(c) {
			return nil, fmt.Errorf("reader %d does not own column %d", parentID, c)
		}
	}
	child := &Reader{
		id:     len(f.readers),
		kind:   kind,
		parent: parentID,
	}
	child.columns = append(child.columns, cols...)
	sort.Ints(child.columns)
	parent.removeColumns(cols)
	parent.children = append(parent.children, child.id)
	f.readers = append(f.readers, child)
	return child, nil
}

// CreateExaggerations creates a child reader for a magnified rendering of the
// given columns. The caller then moves the exaggeration pixels into the child
// with MarkExaggerations. The child does not take the columns away from the
// parent: both digitize the same ranges, the parent from the shared mask and
// the child from its own exaggeration mask.
func (f *Forest) CreateExaggerations(parentID int, cols []int, factor float64, kind Kind) (*Reader, error) {
	parent, err := f.Reader(parentID)
	if err != nil {
		return nil, err
	}
	if factor <= 1 {
		return nil, fmt.Errorf("exaggeration factor %v must be > 1", factor)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("exaggerations for reader %d: %w", parentID, ErrEmptySelection)
	}
	for _, c := range cols {
		if !parent.ownsColumn(c) {
			return nil, fmt.Errorf("reader %d does not own column %d", parentID, c)
		}
	}
	child := &Reader{
		id:     len(f.readers),
		kind:   kind,
		parent: parentID,
		factor: factor,
		exag:   mask.New(f.m.Width(), f.m.Height()),
	}
	child.columns = append(child.columns, cols...)
	sort.Ints(child.columns)
	parent.children = append(parent.children, child.id)
	f.readers = append(f.readers, child)
	return child, nil
}

// MarkExaggerations moves pixels from the shared mask into the exaggeration
// reader's own mask. Only pixels that are currently data pixels move.
func (f *Forest) MarkExaggerations(readerID int, pixels []mask.Pixel) error {
	r, err := f.Reader(readerID)
	if err != nil {
		return err
	}
	if !r.IsExaggeration() {
		return fmt.Errorf("reader %d is not an exaggerations reader", readerID)
	}
	for _, p := range pixels {
		if f.m.At(p.Row, p.Col) {
			f.m.Set(p.Row, p.Col, false)
			r.exag.Set(p.Row, p.Col, true)
		}
	}
	return nil
}

// ShiftVertical shifts the mask contents of a reader's columns down by the
// given per-column pixel offsets (negative is up). Derived series become
// stale and must be re-digitized.
func (f *Forest) ShiftVertical(readerID int, offsets map[int]int) error {
	r, err := f.Reader(readerID)
	if err != nil {
		return err
	}
	for col, off := range offsets {
		if !r.ownsColumn(col) {
			return fmt.Errorf("reader %d does not own column %d", readerID, col)
		}
		c := f.model.Column(col)
		f.m.ShiftColumns(c.Start, c.End, off)
	}
	r.series = nil
	r.segments = nil
	return nil
}
