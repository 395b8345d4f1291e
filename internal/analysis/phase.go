package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/odelab/internal/dynamo"
)

// PhasePortrait2D is the projection of a run onto two state components.
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []dynamo.Point
}

// GeneratePhasePortrait projects every recorded state of res onto the
// (xIdx, yIdx) plane.
func GeneratePhasePortrait(res *dynamo.Result, xIdx, yIdx int) (*PhasePortrait2D, error) {
	if res == nil || len(res.States) == 0 {
		return nil, fmt.Errorf("phase portrait: %w", dynamo.ErrInvalidStepCount)
	}
	dim := len(res.States[0])
	if xIdx < 0 || yIdx < 0 || xIdx >= dim || yIdx >= dim {
		return nil, fmt.Errorf("%w: components (%d, %d) of %d", dynamo.ErrDimensionMismatch, xIdx, yIdx, dim)
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: dynamo.FromSlices(res.Component(xIdx), res.Component(yIdx)),
	}
	return portrait, nil
}

// Bounds returns the extent of the portrait.
func (p *PhasePortrait2D) Bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, pt := range p.Points {
		minX = math.Min(minX, pt.X)
		maxX = math.Max(maxX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}
	return
}

// PhasePortraitToASCII rasterises the portrait into width x height cells.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	minX, maxX, minY, maxY := portrait.Bounds()
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	// axes first so the trajectory draws over them
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			canvas[row][col] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			canvas[row][col] = '─'
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
