package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/humperdink/internal/sim"
)

// Plot draws one series with asciigraph, downsampling to width points.
func Plot(series []float64, caption string, width, height int) string {
	if len(series) == 0 {
		return ""
	}
	return asciigraph.Plot(downsample(series, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// PlotRoot draws the root x and y trajectories of a run.
func PlotRoot(samples []sim.Sample, width, height int) string {
	if len(samples) == 0 {
		return ""
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i], ys[i] = s.Root.X, s.Root.Y
	}
	return Plot(xs, "root x", width, height) + "\n\n" + Plot(ys, "root y", width, height)
}

func downsample(series []float64, n int) []float64 {
	if n < 2 || len(series) <= n {
		return series
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = series[i*(len(series)-1)/(n-1)]
	}
	return out
}
