package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

const (
	PlotWidth  = 80
	PlotHeight = 12
)

// LinePlot charts one series. Non-finite values are dropped.
func LinePlot(data []float64, caption string) string {
	data = finiteOnly(data)
	if len(data) == 0 {
		return Subtle.Render("(no data)")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(PlotHeight),
		asciigraph.Width(PlotWidth),
		asciigraph.Caption(caption),
	)
}

// MultiPlot charts several series on shared axes.
func MultiPlot(caption string, series ...[]float64) string {
	clean := make([][]float64, 0, len(series))
	for _, s := range series {
		if s = finiteOnly(s); len(s) > 0 {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return Subtle.Render("(no data)")
	}
	return asciigraph.PlotMany(clean,
		asciigraph.Height(PlotHeight),
		asciigraph.Width(PlotWidth),
		asciigraph.Caption(caption),
	)
}

// LogPlot charts log10 of positive values; zeros and negatives are dropped.
func LogPlot(data []float64, caption string) string {
	logs := make([]float64, 0, len(data))
	for _, v := range data {
		if v > 0 {
			logs = append(logs, math.Log10(v))
		}
	}
	return LinePlot(logs, caption+" (log10)")
}

// PortraitPlot draws y against x on a braille canvas.
func PortraitPlot(xs, ys []float64, width, height int) string {
	c := NewCanvas(width, height)
	c.Polyline(xs, ys)
	return c.String()
}

func finiteOnly(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if finite(v) {
			out = append(out, v)
		}
	}
	return out
}
