package viz

import (
	"math"
	"strings"

	"github.com/jakecoffman/cp"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
	return c
}

// PixelSize is the canvas size in sub-pixels.
func (c *Canvas) PixelSize() (int, int) { return c.Width * 2, c.Height * 4 }

// Set lights the sub-pixel at (x, y); y grows downwards.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// View maps world coordinates (y up) onto a canvas (y down). Center is the
// world point drawn in the middle of the canvas; Scale is sub-pixels per
// world unit.
type View struct {
	Center cp.Vector
	Scale  float64
}

func (v View) Project(c *Canvas, p cp.Vector) (int, int) {
	x, y := v.project(c, p)
	return int(math.Round(x)), int(math.Round(y))
}

func (v View) project(c *Canvas, p cp.Vector) (float64, float64) {
	w, h := c.PixelSize()
	x := float64(w)/2 + (p.X-v.Center.X)*v.Scale
	y := float64(h)/2 - (p.Y-v.Center.Y)*v.Scale
	return x, y
}

// Segment draws a world-space segment. Segments with an end that is not
// finite or lies far off the canvas are skipped.
func (v View) Segment(c *Canvas, a, b cp.Vector) {
	w, h := c.PixelSize()
	limit := float64(4 * (w + h))

	ax, ay := v.project(c, a)
	bx, by := v.project(c, b)
	for _, f := range []float64{ax, ay, bx, by} {
		if math.IsNaN(f) || math.Abs(f) > limit {
			return
		}
	}
	c.DrawLine(int(math.Round(ax)), int(math.Round(ay)), int(math.Round(bx)), int(math.Round(by)))
}

// HLine fills the canvas row at world height y.
func (v View) HLine(c *Canvas, y float64) {
	w, _ := c.PixelSize()
	_, py := v.Project(c, cp.Vector{X: v.Center.X, Y: y})
	for x := 0; x < w; x++ {
		c.Set(x, py)
	}
}
