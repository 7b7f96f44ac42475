// Package engine validates configuration at the boundary, runs the
// digitization pipeline over a mask and assembles the final sample table.
// Automatic passes over many columns collect per-column warnings and keep
// going; nothing is silently swallowed.
package engine

import (
	"errors"
	"fmt"

	"pollen-digitizer/internal/bars"
	"pollen-digitizer/internal/calib"
	"pollen-digitizer/internal/mask"
	"pollen-digitizer/internal/reader"
	"pollen-digitizer/internal/removal"
	"pollen-digitizer/internal/samples"
)

// ErrConfiguration is returned when a supplied parameter is outside its
// valid range.
var ErrConfiguration = errors.New("invalid configuration")

// Config holds every externally supplied parameter of a digitization run.
type Config struct {
	// ReaderKind selects the digitizing strategy for the root reader.
	ReaderKind reader.Kind `json:"reader_kind"`

	// ColumnThreshold is the coverage fraction a pixel column needs to count
	// as part of a column during detection.
	ColumnThreshold float64 `json:"column_threshold"`

	// Feature removal. A nil section skips that pass.
	Lines          *removal.LineParams         `json:"lines,omitempty"`
	VerticalLines  *removal.LineParams         `json:"vertical_lines,omitempty"`
	Disconnected   *removal.DisconnectedParams `json:"disconnected,omitempty"`
	CrossColumnMin int                         `json:"cross_column_min,omitempty"`
	SmallMin       int                         `json:"small_min,omitempty"`
	ColumnEndWidth int                         `json:"column_end_width,omitempty"`

	// Connectivity used by the component-based detectors.
	Connectivity mask.Connectivity `json:"connectivity"`

	// Bar segmentation.
	Bars bars.Options `json:"bars"`

	// Sample alignment.
	Align samples.Options `json:"align"`

	// Calibration. Vertical maps sample rows to depth/age; PerColumn maps
	// each column's pixel distances to its variable's unit. Columns without
	// points keep raw pixel values.
	Vertical  []calib.Point         `json:"vertical,omitempty"`
	PerColumn map[int][]calib.Point `json:"per_column,omitempty"`

	// OccurrenceValue is reported for samples at occurrence rows, where a
	// taxon is present but too small to measure.
	OccurrenceValue float64 `json:"occurrence_value"`

	// Exaggeration merge rule: exaggerated values replace primaries below
	// the larger of ExagFraction of the column width and ExagAbsolute
	// pixels, where the exaggerated rendering carries data.
	ExagFraction float64 `json:"exag_fraction"`
	ExagAbsolute float64 `json:"exag_absolute"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ReaderKind:      reader.Area,
		ColumnThreshold: 0.1,
		Connectivity:    mask.Conn8,
		Bars:            bars.DefaultOptions(),
		Align:           samples.DefaultOptions(),
		ExagFraction:    0.05,
		ExagAbsolute:    8,
	}
}

// Validate checks every parameter range before any mutation happens.
func (c Config) Validate() error {
	if c.ColumnThreshold < 0 || c.ColumnThreshold > 1 {
		return fmt.Errorf("column threshold %v outside [0, 1]: %w", c.ColumnThreshold, ErrConfiguration)
	}
	for name, lp := range map[string]*removal.LineParams{"lines": c.Lines, "vertical lines": c.VerticalLines} {
		if lp == nil {
			continue
		}
		if lp.MinFraction < 0 || lp.MinFraction > 1 {
			return fmt.Errorf("%s min fraction %v outside [0, 1]: %w", name, lp.MinFraction, ErrConfiguration)
		}
		if lp.MinWidth < 1 || lp.MaxWidth < 0 {
			return fmt.Errorf("%s widths (%d, %d) out of range: %w", name, lp.MinWidth, lp.MaxWidth, ErrConfiguration)
		}
	}
	if d := c.Disconnected; d != nil && (d.FromStartDist < 0 || d.FromPreviousDist < 0) {
		return fmt.Errorf("disconnected distances must be >= 0: %w", ErrConfiguration)
	}
	if c.CrossColumnMin < 0 || c.SmallMin < 0 || c.ColumnEndWidth < 0 {
		return fmt.Errorf("feature sizes must be >= 0: %w", ErrConfiguration)
	}
	if c.Bars.Tolerance < 0 {
		return fmt.Errorf("bar tolerance %v must be >= 0: %w", c.Bars.Tolerance, ErrConfiguration)
	}
	if c.Bars.LongFraction < 0 || c.Bars.ShortFraction < 0 {
		return fmt.Errorf("bar length fractions must be >= 0: %w", ErrConfiguration)
	}
	if c.Align.PixelTol < 0 {
		return fmt.Errorf("sample pixel tolerance %d must be >= 0: %w", c.Align.PixelTol, ErrConfiguration)
	}
	if c.ExagFraction < 0 || c.ExagAbsolute < 0 {
		return fmt.Errorf("exaggeration cutoffs must be >= 0: %w", ErrConfiguration)
	}
	return nil
}
