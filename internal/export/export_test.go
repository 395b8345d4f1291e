package export

import (
	"bytes"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/viz"
)

func smallFigure() Figure {
	fig := DefaultFigure("decay", "x", "y")
	fig.WidthIn, fig.HeightIn = 2, 1.5
	return fig
}

func decay() (dynamo.Trajectory, *analysis.Comparison) {
	traj := make(dynamo.Trajectory, 11)
	ref := make([]float64, 11)
	for i := range traj {
		x := float64(i) / 10
		traj[i] = dynamo.Point{X: x, Y: math.Pow(0.9, float64(i))}
		ref[i] = math.Exp(-x)
	}
	cmp, _ := analysis.Compare(traj, traj.Xs(), ref)
	return traj, cmp
}

func TestTrajectorySVG(t *testing.T) {
	traj, _ := decay()
	svg := TrajectorySVG(traj, 200, 100, "#00ffff")

	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `stroke="#00ffff"`)
	assert.Equal(t, 1, strings.Count(svg, "M"))
	assert.Equal(t, 10, strings.Count(svg, " L"))

	broken := append(dynamo.Trajectory{}, traj...)
	broken[5].Y = math.NaN()
	assert.Equal(t, 2, strings.Count(TrajectorySVG(broken, 200, 100, "red"), "M"))

	assert.Empty(t, TrajectorySVG(traj[:1], 200, 100, "red"))
}

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 2)
	assert.Equal(t, 2, strings.Count(svg, "<circle"))
	assert.Contains(t, svg, `width="8" height="8"`)
	assert.Empty(t, CanvasToSVG(nil, 1))
}

func TestLinePNG(t *testing.T) {
	traj, cmp := decay()

	var buf bytes.Buffer
	require.NoError(t, LinePNG(&buf, smallFigure(), TrajectorySeries("euler", traj)))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 450, img.Bounds().Dy())

	buf.Reset()
	require.NoError(t, ComparisonPNG(&buf, smallFigure(), cmp))
	assert.NotZero(t, buf.Len())

	buf.Reset()
	require.NoError(t, ErrorPNG(&buf, smallFigure(), cmp), "the zero error at the seed is skipped on a log axis")
}

func TestLinePNGNoData(t *testing.T) {
	err := LinePNG(io.Discard, smallFigure(), Series{Xs: []float64{0}, Ys: []float64{math.NaN()}})
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, ComparisonPNG(io.Discard, smallFigure(), nil), ErrNoData)
}

func TestSavePNG(t *testing.T) {
	traj, _ := decay()
	path := filepath.Join(t.TempDir(), "plots", "decay.png")

	require.NoError(t, SavePNG(path, func(w io.Writer) error {
		return LinePNG(w, smallFigure(), TrajectorySeries("rk4", traj))
	}))
	assert.FileExists(t, path)
}
