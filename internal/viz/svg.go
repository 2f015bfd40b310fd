package viz

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/humperdink/internal/sim"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// WriteSVG draws every lit sub-pixel of the canvas as a dot, scale units
// apart, in the theme's primary color.
func (c *Canvas) WriteSVG(w io.Writer, scale float64, t Theme) error {
	pw, ph := c.PixelSize()
	width, height := int(float64(pw)*scale), int(float64(ph)*scale)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, svgHeader, width, height, width, height)
	fmt.Fprintf(bw, "<g fill=\"%s\">\n", t.Primary)

	r := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
		}
	}

	fmt.Fprint(bw, "</g>\n</svg>\n")
	return bw.Flush()
}

// TrajectorySVG draws the root path of a run as one polyline fitted to a
// width by height image with a tenth of padding on every side. Samples
// that are not finite are skipped.
func TrajectorySVG(w io.Writer, samples []sim.Sample, width, height int, t Theme) error {
	pts := make([]sim.Sample, 0, len(samples))
	for _, s := range samples {
		if sim.Finite(s.Root) {
			pts = append(pts, s)
		}
	}
	if len(pts) < 2 {
		return fmt.Errorf("need at least 2 finite samples, got %d", len(pts))
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range pts {
		minX, maxX = math.Min(minX, s.Root.X), math.Max(maxX, s.Root.X)
		minY, maxY = math.Min(minY, s.Root.Y), math.Max(maxY, s.Root.Y)
	}
	rangeX, rangeY := max(maxX-minX, 1), max(maxY-minY, 1)
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, svgHeader, width, height, width, height)
	fmt.Fprintf(bw, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", t.Secondary)
	for i, s := range pts {
		x := (s.Root.X - minX) / rangeX * float64(width)
		y := float64(height) - (s.Root.Y-minY)/rangeY*float64(height)
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(bw, "%s%.1f,%.1f ", cmd, x, y)
	}
	fmt.Fprint(bw, "\"/>\n</svg>\n")
	return bw.Flush()
}
