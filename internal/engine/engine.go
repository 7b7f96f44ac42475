package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pollen-digitizer/internal/calib"
	"pollen-digitizer/internal/column"
	"pollen-digitizer/internal/mask"
	"pollen-digitizer/internal/reader"
	"pollen-digitizer/internal/removal"
	"pollen-digitizer/internal/samples"
)

// Warning records a non-fatal per-column problem from a batch pass.
type Warning struct {
	Op  string
	Col int // -1 when not column specific
	Err error
}

func (w Warning) String() string {
	if w.Col < 0 {
		return fmt.Sprintf("%s: %v", w.Op, w.Err)
	}
	return fmt.Sprintf("%s (column %d): %v", w.Op, w.Col, w.Err)
}

// Result is the outcome of a full digitization run.
type Result struct {
	Columns    []column.Column
	SampleRows []int
	FullSeries map[int][]float64

	// Table has one row per sample and one value per column, already in
	// physical units where calibrations were supplied.
	Table Table

	Warnings []Warning
}

// Engine drives the digitization pipeline with one validated configuration.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// New validates the configuration and creates an engine.
func New(cfg Config, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Run digitizes a mask end to end: column detection, feature removal,
// digitization, sample finding and calibration. The mask is mutated by the
// enabled removal passes; everything after that is derived state.
func (e *Engine) Run(ctx context.Context, m *mask.Mask) (*Result, error) {
	model, err := column.Detect(m, e.cfg.ColumnThreshold)
	if err != nil {
		return nil, fmt.Errorf("column detection: %w", err)
	}
	e.log.Info().Int("columns", model.Len()).Msg("columns detected")

	res := &Result{Columns: model.Columns()}
	if err := e.removeFeatures(ctx, m, model, res); err != nil {
		return nil, err
	}

	forest := reader.NewForest(m, model, e.cfg.ReaderKind, e.cfg.Bars)
	root := forest.Root()
	seriesByCol, err := forest.Digitize(root.ID())
	if err != nil {
		return nil, fmt.Errorf("digitize: %w", err)
	}
	res.FullSeries = make(map[int][]float64, len(seriesByCol))
	for col, s := range seriesByCol {
		res.FullSeries[col] = s
	}

	rows, err := e.findSamples(root, seriesByCol)
	if err != nil {
		return nil, err
	}
	res.SampleRows = rows
	e.log.Info().Int("samples", len(rows)).Msg("samples aligned")

	table, err := e.buildTable(model, root, rows)
	if err != nil {
		return nil, err
	}
	res.Table = table
	return res, nil
}

// MergeExaggerations folds an exaggeration reader's digitized series into
// its parent's using the configured cutoffs. The forest comes from the
// caller because exaggeration pixels are marked interactively after the
// automatic run.
func (e *Engine) MergeExaggerations(f *reader.Forest, exagID int) (map[int]reader.Series, error) {
	return f.MergeExaggerations(exagID, e.cfg.ExagFraction, e.cfg.ExagAbsolute)
}

// removeFeatures runs the enabled detection passes. Each pass that fails is
// collected as a warning and the run continues; detected pixel sets are
// applied immediately.
func (e *Engine) removeFeatures(ctx context.Context, m *mask.Mask, model *column.Model, res *Result) error {
	warn := func(op string, err error) {
		res.Warnings = append(res.Warnings, Warning{Op: op, Col: -1, Err: err})
		e.log.Warn().Str("op", op).Err(err).Msg("feature removal pass skipped")
	}
	apply := func(op string, px []mask.Pixel, err error) error {
		if err != nil {
			if ctx.Err() != nil {
				return err // cancellation aborts the whole run
			}
			warn(op, err)
			return nil
		}
		if len(px) > 0 {
			removal.Apply(m, px)
			e.log.Debug().Str("op", op).Int("pixels", len(px)).Msg("features removed")
		}
		return nil
	}

	if lp := e.cfg.Lines; lp != nil {
		px, err := removal.DetectLines(m, removal.Horizontal, *lp)
		if err := apply("horizontal lines", px, err); err != nil {
			return err
		}
	}
	if lp := e.cfg.VerticalLines; lp != nil {
		px, err := removal.DetectLines(m, removal.Vertical, *lp)
		if err := apply("vertical lines", px, err); err != nil {
			return err
		}
	}
	if dp := e.cfg.Disconnected; dp != nil {
		p := *dp
		p.Connectivity = e.cfg.Connectivity
		px, err := removal.DetectDisconnected(ctx, m, model, p)
		if err := apply("disconnected parts", px, err); err != nil {
			return err
		}
	}
	if n := e.cfg.CrossColumnMin; n > 0 {
		px, err := removal.DetectCrossColumn(ctx, m, model, n, e.cfg.Connectivity)
		if err := apply("cross-column features", px, err); err != nil {
			return err
		}
	}
	if n := e.cfg.SmallMin; n > 0 {
		px, err := removal.DetectSmall(ctx, m, model, n, e.cfg.Connectivity)
		if err := apply("small parts", px, err); err != nil {
			return err
		}
	}
	if n := e.cfg.ColumnEndWidth; n > 0 {
		px, err := removal.DetectColumnEnds(ctx, m, model, n, e.cfg.Connectivity)
		if err := apply("column-end parts", px, err); err != nil {
			return err
		}
	}
	return nil
}

// findSamples runs both sample-finding phases over the root reader.
func (e *Engine) findSamples(root *reader.Reader, seriesByCol map[int]reader.Series) ([]int, error) {
	var intervals []samples.Interval
	plain := make(map[int][]float64, len(seriesByCol))
	for _, col := range root.Columns() {
		s := seriesByCol[col]
		plain[col] = s
		if segs := root.Segments(col); segs != nil {
			intervals = append(intervals, samples.RoughFromSegments(segs, col)...)
		} else {
			intervals = append(intervals, samples.RoughFromSeries(s, col)...)
		}
	}
	rows, err := samples.Find(intervals, plain, e.cfg.Align)
	if err != nil {
		return nil, fmt.Errorf("sample alignment: %w", err)
	}
	return rows, nil
}

// verticalAxis returns the configured vertical calibration, or the identity
// map when none was supplied.
func (e *Engine) verticalAxis() (calib.Axis, error) {
	if len(e.cfg.Vertical) == 0 {
		return calib.Axis{A: 1}, nil
	}
	ax, err := calib.Fit(e.cfg.Vertical)
	if err != nil {
		return calib.Axis{}, fmt.Errorf("vertical calibration: %w", err)
	}
	return ax, nil
}

// columnAxis returns column col's calibration, or the identity map.
func (e *Engine) columnAxis(col int) (calib.Axis, error) {
	pts := e.cfg.PerColumn[col]
	if len(pts) == 0 {
		return calib.Axis{A: 1}, nil
	}
	ax, err := calib.Fit(pts)
	if err != nil {
		return calib.Axis{}, fmt.Errorf("column %d calibration: %w", col, err)
	}
	return ax, nil
}
