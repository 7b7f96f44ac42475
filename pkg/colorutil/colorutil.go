// Package colorutil provides shared color helpers for the digitizing tools.
package colorutil

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseHex parses a hex color, with or without a leading '#'.
func ParseHex(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return c, nil
}

// ParseList parses a comma-separated list of hex colors, as taken on the
// command line for stacked sub-series references.
func ParseList(s string) ([]colorful.Color, error) {
	var out []colorful.Color
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		c, err := ParseHex(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no colors in %q", s)
	}
	return out, nil
}
