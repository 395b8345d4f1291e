package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/odelab/internal/dynamo"
)

// BifurcationPoint holds the local maxima of one component for one
// parameter value.
type BifurcationPoint struct {
	Param  float64
	Maxima []float64
}

// Sweep describes a parameter scan.
type Sweep struct {
	Param      string
	Min, Max   float64
	Count      int
	Component  int
	Transient  int
	Record     int
	Dt         float64
	MaxPerParam int
}

// BifurcationDiagram sweeps a parameter of dyn and records the local maxima
// of one component after the transient has died out (the Lorenz map when
// applied to z). The parameter is restored when the sweep ends.
func BifurcationDiagram(ctx context.Context, dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, sw Sweep) ([]BifurcationPoint, error) {
	tunable, ok := dyn.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("bifurcation: %T has no tunable parameters", dyn)
	}
	original, ok := tunable.GetParams()[sw.Param]
	if !ok {
		return nil, fmt.Errorf("bifurcation: unknown parameter %q", sw.Param)
	}
	defer tunable.SetParam(sw.Param, original)

	if sw.Count < 2 {
		sw.Count = 2
	}
	if sw.Component < 0 || sw.Component >= len(x0) {
		return nil, fmt.Errorf("%w: component %d", dynamo.ErrDimensionMismatch, sw.Component)
	}
	if sw.MaxPerParam <= 0 {
		sw.MaxPerParam = 64
	}
	step := (sw.Max - sw.Min) / float64(sw.Count-1)

	results := make([]BifurcationPoint, 0, sw.Count)
	for i := 0; i < sw.Count; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		param := sw.Min + float64(i)*step
		if err := tunable.SetParam(sw.Param, param); err != nil {
			return results, err
		}

		x := x0.Clone()
		t := 0.0
		for k := 0; k < sw.Transient; k++ {
			x = integ.Step(dyn, x, t, sw.Dt)
			t += sw.Dt
		}

		pt := BifurcationPoint{Param: param}
		prev2, prev1 := math.NaN(), x[sw.Component]
		for k := 0; k < sw.Record && len(pt.Maxima) < sw.MaxPerParam; k++ {
			x = integ.Step(dyn, x, t, sw.Dt)
			t += sw.Dt
			if !x.IsValid() {
				break
			}
			cur := x[sw.Component]
			if prev1 > prev2 && prev1 >= cur {
				pt.Maxima = append(pt.Maxima, prev1)
			}
			prev2, prev1 = prev1, cur
		}
		results = append(results, pt)
	}

	return results, nil
}

// BifurcationToASCII renders the diagram with the parameter on the
// horizontal axis.
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 1 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, p := range data {
		for _, v := range p.Maxima {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if math.IsInf(minVal, 1) {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range data {
		col := i * width / len(data)
		for _, v := range p.Maxima {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
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
