package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/dynamo"
)

const DPI = 300

var ErrNoData = errors.New("export: nothing to plot")

// Series is one labelled line.
type Series struct {
	Label  string
	Xs, Ys []float64
}

func TrajectorySeries(label string, traj dynamo.Trajectory) Series {
	return Series{Label: label, Xs: traj.Xs(), Ys: traj.Ys()}
}

// Figure is the page a plot is drawn on, in inches.
type Figure struct {
	Title, XLabel, YLabel string
	WidthIn, HeightIn     float64
	LogY                  bool
}

func DefaultFigure(title, xlabel, ylabel string) Figure {
	return Figure{Title: title, XLabel: xlabel, YLabel: ylabel, WidthIn: 8, HeightIn: 6}
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Padding = vg.Points(8)
	p.Y.Padding = vg.Points(8)
	p.Legend.Top = true
}

// points drops non-finite samples, and non-positive ones on a log axis.
func points(s Series, logY bool) plotter.XYs {
	n := len(s.Xs)
	if len(s.Ys) < n {
		n = len(s.Ys)
	}
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		x, y := s.Xs[i], s.Ys[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		if logY && y <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

// LinePNG draws every series on one set of axes and writes a PNG.
func LinePNG(w io.Writer, fig Figure, series ...Series) error {
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	stylePlot(p)
	if fig.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	drawn := 0
	for i, s := range series {
		pts := points(s, fig.LogY)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		if i > 0 {
			line.LineStyle.Dashes = plotutil.Dashes(i)
		}
		p.Add(line)
		if s.Label != "" {
			p.Legend.Add(s.Label, line)
		}
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}

	return writePNG(w, p, fig)
}

// ComparisonPNG overlays the approximation on its reference.
func ComparisonPNG(w io.Writer, fig Figure, cmp *analysis.Comparison) error {
	if cmp == nil {
		return ErrNoData
	}
	return LinePNG(w, fig,
		Series{Label: "rk4", Xs: cmp.Xs, Ys: cmp.Approx},
		Series{Label: "reference", Xs: cmp.Xs, Ys: cmp.Reference},
	)
}

// ErrorPNG plots |approx - reference| on a log axis.
func ErrorPNG(w io.Writer, fig Figure, cmp *analysis.Comparison) error {
	if cmp == nil {
		return ErrNoData
	}
	fig.LogY = true
	return LinePNG(w, fig, Series{Label: "abs error", Xs: cmp.Xs, Ys: cmp.AbsDiff})
}

func writePNG(w io.Writer, p *plot.Plot, fig Figure) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(fig.WidthIn)*vg.Inch, vg.Length(fig.HeightIn)*vg.Inch),
		vgimg.UseDPI(DPI),
	)
	p.Draw(draw.New(c))

	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG creates path and its directory, then hands the file to render.
func SavePNG(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
