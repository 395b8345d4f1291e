// Package reference provides the solutions a fixed-step trajectory is judged
// against: an adaptive Dormand-Prince solver evaluated on a grid, or a closed
// form when one is known.
package reference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/integrators"
)

// DefaultTolerance is the relative tolerance of Adaptive when none is set.
const DefaultTolerance = 1e-10

// Oracle produces reference values of dy/dx = f(y, x) at every abscissa of xs.
// xs[0] is the initial abscissa and the first value returned is y0.
type Oracle interface {
	Solve(f dynamo.Derivative, y0 float64, xs []float64) ([]float64, error)
}

// Adaptive solves with error-controlled Dormand-Prince steps that land on
// every requested abscissa.
type Adaptive struct {
	Tolerance float64
	MaxSteps  int
}

func (a Adaptive) Solve(f dynamo.Derivative, y0 float64, xs []float64) ([]float64, error) {
	if f == nil {
		return nil, dynamo.ErrNilDerivative
	}

	tol := integrators.DefaultTolerances()
	if a.Tolerance > 0 {
		tol.Rel = a.Tolerance
	}
	if a.MaxSteps > 0 {
		tol.MaxSteps = a.MaxSteps
	}

	states, err := integrators.Solve(dynamo.Scalar{F: f}, dynamo.State{y0}, xs, tol)
	ys := make([]float64, len(states))
	for i, s := range states {
		ys[i] = s[0]
	}
	if err != nil {
		return ys, fmt.Errorf("adaptive reference: %w", err)
	}
	return ys, nil
}

// Exact is a closed-form solution. It ignores f and y0; the caller binds the
// integration constant when building it.
type Exact func(x float64) float64

func (e Exact) Solve(_ dynamo.Derivative, _ float64, xs []float64) ([]float64, error) {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = e(x)
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return ys[:i], fmt.Errorf("exact solution at x=%v: %w", x, dynamo.ErrNonFiniteDerivative)
		}
	}
	return ys, nil
}

// Grid returns n evenly spaced abscissae x0, x0+h, ..., x0+(n-1)h.
func Grid(x0, h float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{x0}
	}
	return floats.Span(make([]float64, n), x0, x0+float64(n-1)*h)
}

// GridFor spans the same interval as traj with the same number of points.
func GridFor(traj dynamo.Trajectory) []float64 {
	if len(traj) == 0 {
		return nil
	}
	if len(traj) == 1 {
		return []float64{traj[0].X}
	}
	last, _ := traj.Last()
	return floats.Span(make([]float64, len(traj)), traj[0].X, last.X)
}

// Solve runs oracle over a grid matching traj.
func Solve(oracle Oracle, f dynamo.Derivative, traj dynamo.Trajectory) ([]float64, []float64, error) {
	if len(traj) == 0 {
		return nil, nil, dynamo.ErrInvalidStepCount
	}
	xs := GridFor(traj)
	ys, err := oracle.Solve(f, traj[0].Y, xs)
	return xs, ys, err
}
