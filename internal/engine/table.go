package engine

import (
	"pollen-digitizer/internal/calib"
	"pollen-digitizer/internal/column"
	"pollen-digitizer/internal/reader"
	"pollen-digitizer/internal/samples"
)

// Table is the final output: one row per sample with the calibrated depth
// and one calibrated value per column. Encoding to CSV or a spreadsheet is
// left to the consumer.
type Table struct {
	Columns []int // column indices, ascending
	Rows    []TableRow
}

// TableRow is one sample in physical units.
type TableRow struct {
	PixelRow int
	Depth    float64
	Values   []float64 // aligned with Table.Columns
}

// buildTable reads every column's series at the sample rows and applies the
// vertical and per-column calibrations. Occurrence rows override the read
// value with the configured occurrence marker.
func (e *Engine) buildTable(model *column.Model, r *reader.Reader, rows []int) (Table, error) {
	vert, err := e.verticalAxis()
	if err != nil {
		return Table{}, err
	}

	cols := r.Columns()
	axes := make([]calibAxis, len(cols))
	for i, col := range cols {
		ax, err := e.columnAxis(col)
		if err != nil {
			return Table{}, err
		}
		axes[i] = calibAxis{col: col, ax: ax}
	}

	t := Table{Columns: cols}
	for _, row := range rows {
		tr := TableRow{
			PixelRow: row,
			Depth:    vert.Transform(float64(row)),
			Values:   make([]float64, len(cols)),
		}
		for i, a := range axes {
			col := model.Column(a.col)
			if e.isOccurrence(r, a.col, row) {
				tr.Values[i] = e.cfg.OccurrenceValue
				continue
			}
			v := samples.ValueAt(r.Series(a.col), col.StartRow, row)
			tr.Values[i] = a.ax.Transform(v)
		}
		t.Rows = append(t.Rows, tr)
	}
	return t, nil
}

// isOccurrence reports whether a sample row falls on (or within the
// alignment tolerance of) an occurrence marker of the column.
func (e *Engine) isOccurrence(r *reader.Reader, col, row int) bool {
	for _, occ := range r.Occurrences(col) {
		d := row - occ
		if d < 0 {
			d = -d
		}
		if d <= e.cfg.Align.PixelTol {
			return true
		}
	}
	return false
}

type calibAxis struct {
	col int
	ax  calib.Axis
}
