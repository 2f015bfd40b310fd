package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/humperdink/internal/sim"
)

type Point struct {
	X, Y float64
}

// Trajectory projects samples onto a plane, e.g. root x against root y, or
// root height against vertical speed for a phase portrait.
func Trajectory(samples []sim.Sample, project func(sim.Sample) Point) []Point {
	points := make([]Point, 0, len(samples))
	for _, s := range samples {
		points = append(points, project(s))
	}
	return points
}

func RootPath(s sim.Sample) Point { return Point{s.Root.X, s.Root.Y} }

func HeightPhase(s sim.Sample) Point { return Point{s.Root.Y, s.RootVelocity.Y} }

// TrajectoryToASCII plots points on a width x height character grid with
// axes drawn where they cross the visible area.
func TrajectoryToASCII(points []Point, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	// Find bounds
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y

	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Stride is one upward crossing of the root height through its mean,
// interpolated between the two samples around it.
type Stride struct {
	Time float64
	X    float64
}

// Strides records every upward crossing of the root height through its
// mean over the run.
func Strides(samples []sim.Sample) []Stride {
	if len(samples) < 2 {
		return nil
	}

	threshold := 0.0
	for _, s := range samples {
		threshold += s.Root.Y
	}
	threshold /= float64(len(samples))

	var strides []Stride
	prev := samples[0]
	for _, curr := range samples[1:] {
		if prev.Root.Y < threshold && curr.Root.Y >= threshold {
			frac := (threshold - prev.Root.Y) / (curr.Root.Y - prev.Root.Y)
			if math.IsNaN(frac) || math.IsInf(frac, 0) {
				frac = 0.5
			}
			strides = append(strides, Stride{
				Time: prev.Time + frac*(curr.Time-prev.Time),
				X:    prev.Root.X + frac*(curr.Root.X-prev.Root.X),
			})
		}
		prev = curr
	}
	return strides
}

// Gait summarises the periodic part of a run.
type Gait struct {
	Frequency    float64
	Power        float64
	Strides      int
	StridePeriod float64
	StrideLength float64
}

// AnalyzeGait estimates the gait from root height samples taken at a fixed
// interval.
func AnalyzeGait(samples []sim.Sample) Gait {
	var g Gait
	if len(samples) < 2 {
		return g
	}

	heights := make([]float64, len(samples))
	for i, s := range samples {
		heights[i] = s.Root.Y
	}
	dt := samples[1].Time - samples[0].Time
	g.Frequency, g.Power = DominantFrequency(heights, dt)

	strides := Strides(samples)
	g.Strides = len(strides)
	if len(strides) >= 2 {
		first, last := strides[0], strides[len(strides)-1]
		n := float64(len(strides) - 1)
		g.StridePeriod = (last.Time - first.Time) / n
		g.StrideLength = (last.X - first.X) / n
	}
	return g
}
