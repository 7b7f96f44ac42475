// Command colscan inspects column detection on a diagram scan: it binarizes
// the image and prints the detected column boundaries at several thresholds.
package main

import (
	"flag"
	"fmt"
	"os"

	"pollen-digitizer/internal/binarize"
	"pollen-digitizer/internal/column"
)

func main() {
	imagePath := flag.String("i", "", "Path to the diagram scan")
	threshold := flag.Int("t", 0, "Binarization grey threshold (0 = Otsu estimate)")
	colThreshold := flag.Float64("col", 0.1, "Column detection coverage threshold")
	estimate := flag.Bool("estimate", false, "Also print the doubling-heuristic start estimate")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: colscan -i <image> [-t <threshold>] [-col <fraction>]")
		os.Exit(1)
	}

	img, err := binarize.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load image: %v\n", err)
		os.Exit(1)
	}
	level := uint8(*threshold)
	if level == 0 {
		level, err = binarize.OtsuThreshold(img)
		if err != nil {
			fmt.Fprintf(os.Stderr, "estimate threshold: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Otsu threshold: %d\n", level)
	}
	m := binarize.FromImage(img, level)

	model, err := column.Detect(m, *colThreshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "column detection: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d columns over width %d:\n", model.Len(), m.Width())
	for _, c := range model.Columns() {
		fmt.Printf("  column %d: [%d, %d) width %d\n", c.Index, c.Start, c.End, c.Width())
	}

	if *estimate {
		fmt.Printf("doubling-heuristic starts: %v\n", column.EstimateStarts(m, *colThreshold))
	}
}
