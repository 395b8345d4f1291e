package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odelab/internal/dynamo"
)

// spacingTol is the largest abscissa disagreement, relative to the step, that
// Compare accepts between a trajectory and its reference grid.
const spacingTol = 1e-9

// Comparison is the elementwise difference between a trajectory and a
// reference solution on the same grid.
type Comparison struct {
	Xs        []float64 `json:"xs"`
	Approx    []float64 `json:"approx"`
	Reference []float64 `json:"reference"`
	AbsDiff   []float64 `json:"abs_diff"`
	MaxAbs    float64   `json:"max_abs"`
	MaxAt     int       `json:"max_at"`
}

// Compare checks that refXs lines up with traj and returns |approx - ref| at
// every point. A length or spacing disagreement is reported as
// dynamo.ErrDomainMismatch before anything is subtracted.
func Compare(traj dynamo.Trajectory, refXs, refYs []float64) (*Comparison, error) {
	n := len(traj)
	if n == 0 {
		return nil, fmt.Errorf("compare: %w", dynamo.ErrInvalidStepCount)
	}
	if len(refXs) != n || len(refYs) != n {
		return nil, fmt.Errorf("%w: trajectory has %d points, reference has %d x and %d y",
			dynamo.ErrDomainMismatch, n, len(refXs), len(refYs))
	}

	h := 1.0
	if n > 1 {
		h = traj[1].X - traj[0].X
	}
	limit := spacingTol * math.Abs(h)

	xs := traj.Xs()
	for i, x := range xs {
		if math.Abs(x-refXs[i]) > limit {
			return nil, fmt.Errorf("%w: x[%d]=%v, reference x=%v", dynamo.ErrDomainMismatch, i, x, refXs[i])
		}
	}

	c := &Comparison{
		Xs:        xs,
		Approx:    traj.Ys(),
		Reference: append([]float64(nil), refYs...),
		AbsDiff:   make([]float64, n),
	}
	floats.SubTo(c.AbsDiff, c.Approx, c.Reference)
	for i, d := range c.AbsDiff {
		c.AbsDiff[i] = math.Abs(d)
	}
	c.MaxAt = floats.MaxIdx(c.AbsDiff)
	c.MaxAbs = c.AbsDiff[c.MaxAt]

	return c, nil
}
