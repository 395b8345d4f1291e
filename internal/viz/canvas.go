package viz

import (
	"math"
	"strings"
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

// Set sets a pixel at (x, y) in sub-pixel coordinates.
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

// Polyline scales xs, ys to fill the canvas and joins consecutive points.
// Non-finite points break the line and do not count toward the scale.
func (c *Canvas) Polyline(xs, ys []float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	okX := make([]float64, 0, n)
	okY := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if finite(xs[i]) && finite(ys[i]) {
			okX = append(okX, xs[i])
			okY = append(okY, ys[i])
		}
	}
	if len(okX) == 0 {
		return
	}

	minX, maxX := bounds(okX)
	minY, maxY := bounds(okY)
	pw, ph := c.PixelSize()

	toPixel := func(x, y float64) (int, int) {
		px := int(math.Round((x - minX) / (maxX - minX) * float64(pw-1)))
		py := int(math.Round((maxY - y) / (maxY - minY) * float64(ph-1)))
		return px, py
	}

	prevOK := false
	var px0, py0 int
	for i := 0; i < n; i++ {
		if !finite(xs[i]) || !finite(ys[i]) {
			prevOK = false
			continue
		}
		px, py := toPixel(xs[i], ys[i])
		if prevOK {
			c.DrawLine(px0, py0, px, py)
		} else {
			c.Set(px, py)
		}
		px0, py0, prevOK = px, py, true
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// bounds returns the finite range of vs, widened to a unit span when flat.
func bounds(vs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if !finite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if hi == lo {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
