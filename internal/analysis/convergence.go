package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/integrators"
	"github.com/san-kum/odelab/internal/reference"
)

// Level is one refinement of a convergence study.
type Level struct {
	H        float64 `json:"h"`
	N        int     `json:"n"`
	MaxError float64 `json:"max_error"`
	// Ratio is the previous level's error over this one; zero on the first level.
	Ratio float64 `json:"ratio"`
}

type ConvergenceReport struct {
	Levels        []Level `json:"levels"`
	ObservedOrder float64 `json:"observed_order"`
}

// Convergence integrates f at successively halved step sizes over a fixed span
// and compares each run against oracle. Each level uses n' = 2(n-1)+1 points so
// that the end point stays put. For RK4 the ratios approach 16.
func Convergence(f dynamo.Derivative, x0, y0, h float64, n int, oracle reference.Oracle, levels int) (*ConvergenceReport, error) {
	if levels < 2 {
		return nil, fmt.Errorf("convergence needs at least two levels: %w", dynamo.ErrInvalidStepCount)
	}
	if n < 2 {
		return nil, fmt.Errorf("convergence needs n >= 2: %w", dynamo.ErrInvalidStepCount)
	}

	report := &ConvergenceReport{Levels: make([]Level, 0, levels)}
	var orders []float64

	for l := 0; l < levels; l++ {
		traj, err := integrators.Integrate(f, x0, y0, h, n)
		if err != nil {
			return report, fmt.Errorf("level %d (h=%g): %w", l, h, err)
		}
		xs, ys, err := reference.Solve(oracle, f, traj)
		if err != nil {
			return report, fmt.Errorf("level %d reference: %w", l, err)
		}
		cmp, err := Compare(traj, xs, ys)
		if err != nil {
			return report, fmt.Errorf("level %d: %w", l, err)
		}

		lvl := Level{H: h, N: n, MaxError: cmp.MaxAbs}
		if l > 0 {
			prev := report.Levels[l-1].MaxError
			if lvl.MaxError > 0 {
				lvl.Ratio = prev / lvl.MaxError
				orders = append(orders, math.Log2(lvl.Ratio))
			}
		}
		report.Levels = append(report.Levels, lvl)

		h /= 2
		n = 2*(n-1) + 1
	}

	if len(orders) > 0 {
		report.ObservedOrder = stat.Mean(orders, nil)
	}
	return report, nil
}
