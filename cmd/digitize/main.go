// Command digitize runs the full digitization pipeline on a diagram scan and
// prints the resulting sample table.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"pollen-digitizer/internal/binarize"
	"pollen-digitizer/internal/column"
	"pollen-digitizer/internal/engine"
	"pollen-digitizer/internal/mask"
	"pollen-digitizer/internal/reader"
	"pollen-digitizer/internal/samples"
	"pollen-digitizer/internal/version"
	"pollen-digitizer/pkg/colorutil"
)

func main() {
	imagePath := flag.String("i", "", "Path to the diagram scan")
	settingsPath := flag.String("s", "", "Path to a .digproj settings file")
	threshold := flag.Int("t", 0, "Binarization grey threshold (0 = Otsu estimate)")
	kind := flag.String("kind", "area", "Reader kind: area, line, bar, rounded, stacked")
	colThreshold := flag.Float64("col", 0.1, "Column detection coverage threshold")
	denoise := flag.Int("denoise", 0, "Morphological denoise iterations before digitizing")
	colors := flag.String("colors", "", "Comma-separated hex reference colors for stacked sub-series")
	colorDist := flag.Float64("colordist", 0.3, "Max CIE-Lab distance for sub-series color assignment")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("digitize %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}
	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: digitize -i <image> [-s <settings>] [-t <threshold>] [-kind <kind>]")
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.InfoLevel)
	}

	cfg := engine.DefaultConfig()
	level := uint8(*threshold)
	if *settingsPath != "" {
		s, err := engine.LoadSettings(*settingsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load settings")
		}
		cfg = s.Config
		if level == 0 {
			level = s.Threshold
		}
	} else {
		cfg.ColumnThreshold = *colThreshold
		k, err := parseKind(*kind)
		if err != nil {
			log.Fatal().Err(err).Msg("reader kind")
		}
		cfg.ReaderKind = k
	}

	img, err := binarize.Load(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Msg("load image")
	}
	if level == 0 {
		level, err = binarize.OtsuThreshold(img)
		if err != nil {
			log.Fatal().Err(err).Msg("estimate threshold")
		}
		log.Info().Uint8("threshold", level).Msg("Otsu threshold estimated")
	}

	m := binarize.FromImage(img, level)
	if *denoise > 0 {
		m = binarize.Denoise(m, *denoise)
	}
	log.Info().Int("width", m.Width()).Int("height", m.Height()).
		Int("pixels", m.Count()).Msg("mask built")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := engine.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}
	res, err := eng.Run(ctx, m)
	if err != nil {
		log.Fatal().Err(err).Msg("digitization failed")
	}
	for _, w := range res.Warnings {
		log.Warn().Msg(w.String())
	}

	printTable(res.Table)

	if cfg.ReaderKind == reader.StackedArea && *colors != "" {
		if err := printSubSeries(img, m, res, cfg, *colors, *colorDist); err != nil {
			log.Fatal().Err(err).Msg("sub-series split")
		}
	}
}

// printSubSeries splits the digitized pixels of a stacked diagram by the
// reference colors and prints one pixel-count table per sub-series at the
// aligned sample rows.
func printSubSeries(img image.Image, m *mask.Mask, res *engine.Result, cfg engine.Config, colorSpec string, maxDist float64) error {
	refs, err := colorutil.ParseList(colorSpec)
	if err != nil {
		return err
	}
	subs, err := binarize.SubMasksByColor(img, m, refs, maxDist)
	if err != nil {
		return err
	}

	starts := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		starts[i] = c.Start
	}
	model, err := column.New(m.Width(), m.Height(), starts)
	if err != nil {
		return err
	}
	forest := reader.NewForest(m, model, reader.StackedArea, cfg.Bars)
	root := forest.Root()
	for _, col := range root.Columns() {
		if err := root.SetSubMasks(col, subs); err != nil {
			return err
		}
	}
	stacked, err := forest.DigitizeStacked(root.ID())
	if err != nil {
		return err
	}

	for si := range refs {
		fmt.Printf("# sub-series %d\n", si)
		fmt.Print("row")
		for _, col := range root.Columns() {
			fmt.Printf("\tcol%d", col)
		}
		fmt.Println()
		for _, row := range res.SampleRows {
			fmt.Printf("%d", row)
			for _, col := range root.Columns() {
				c := model.Column(col)
				fmt.Printf("\t%.4g", samples.ValueAt(stacked[col][si], c.StartRow, row))
			}
			fmt.Println()
		}
	}
	return nil
}

func printTable(t engine.Table) {
	fmt.Print("depth")
	for _, col := range t.Columns {
		fmt.Printf("\tcol%d", col)
	}
	fmt.Println()
	for _, row := range t.Rows {
		fmt.Printf("%.4g", row.Depth)
		for _, v := range row.Values {
			fmt.Printf("\t%.4g", v)
		}
		fmt.Println()
	}
}

func parseKind(s string) (reader.Kind, error) {
	switch s {
	case "area":
		return reader.Area, nil
	case "line":
		return reader.Line, nil
	case "bar":
		return reader.Bar, nil
	case "rounded":
		return reader.RoundedBar, nil
	case "stacked":
		return reader.StackedArea, nil
	default:
		return 0, fmt.Errorf("unknown reader kind %q", s)
	}
}
