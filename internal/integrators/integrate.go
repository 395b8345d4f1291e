package integrators

import (
	"fmt"
	"math"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/san-kum/odelab/internal/dynamo"
)

// StepInfo describes one completed RK4 step.
type StepInfo struct {
	Step   int
	X      float64
	Y      float64
	Slopes dynamo.Slopes
	NextY  float64
}

type options struct {
	seed     dynamo.SeedConvention
	observer func(StepInfo)
	logger   log.Logger
}

// Option tunes Integrate.
type Option func(*options)

// WithSeedConvention selects whether the seed counts toward n.
func WithSeedConvention(c dynamo.SeedConvention) Option {
	return func(o *options) { o.seed = c }
}

// WithObserver registers a callback invoked after every accepted step.
func WithObserver(fn func(StepInfo)) Option {
	return func(o *options) { o.observer = fn }
}

// WithLogger emits k1..k4 for every step at debug level.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// StepRK4 advances y by one classical Runge-Kutta step of size h and returns
// the new value together with the four slopes.
func StepRK4(f dynamo.Derivative, x, y, h float64) (float64, dynamo.Slopes) {
	var k dynamo.Slopes
	k.K1 = f(y, x)
	k.K2 = f(y+h/2*k.K1, x+h/2)
	k.K3 = f(y+h/2*k.K2, x+h/2)
	k.K4 = f(y+h*k.K3, x+h)
	return y + (h/6)*(k.K1+2*k.K2+2*k.K3+k.K4), k
}

// Integrate solves dy/dx = f(y, x) from (x0, y0) with fixed step h and returns
// exactly n points. With the default IncludeSeed convention the seed is the
// first point and n-1 steps are taken; ExcludeSeed takes n steps. Abscissae
// are computed as x0 + i*h so that long runs do not drift off the grid.
//
// On a non-finite slope or value the points computed so far are returned with
// a *dynamo.StepError wrapping dynamo.ErrNonFiniteDerivative.
func Integrate(f dynamo.Derivative, x0, y0, h float64, n int, opts ...Option) (dynamo.Trajectory, error) {
	if f == nil {
		return nil, dynamo.ErrNilDerivative
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: n=%d", dynamo.ErrInvalidStepCount, n)
	}
	if h == 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return nil, fmt.Errorf("%w: h=%v", dynamo.ErrInvalidStepSize, h)
	}
	if math.IsNaN(x0) || math.IsInf(x0, 0) || math.IsNaN(y0) || math.IsInf(y0, 0) {
		return nil, fmt.Errorf("%w: (%v, %v)", dynamo.ErrInvalidInitialValue, x0, y0)
	}

	o := options{seed: dynamo.IncludeSeed, logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	traj := make(dynamo.Trajectory, 0, n)
	steps := n
	if o.seed == dynamo.IncludeSeed {
		traj = append(traj, dynamo.Point{X: x0, Y: y0})
		steps = n - 1
	}

	x, y := x0, y0
	for i := 1; i <= steps; i++ {
		next, k := StepRK4(f, x, y, h)
		if stage := badStage(k, next); stage != "" {
			return traj, &dynamo.StepError{Step: i, X: x, Y: y, Stage: stage, Wrapped: dynamo.ErrNonFiniteDerivative}
		}

		level.Debug(o.logger).Log("step", i, "x", x, "y", y, "k1", k.K1, "k2", k.K2, "k3", k.K3, "k4", k.K4)
		if o.observer != nil {
			o.observer(StepInfo{Step: i, X: x, Y: y, Slopes: k, NextY: next})
		}

		x, y = x0+float64(i)*h, next
		traj = append(traj, dynamo.Point{X: x, Y: y})
	}

	return traj, nil
}

func badStage(k dynamo.Slopes, next float64) string {
	for _, s := range []struct {
		name string
		v    float64
	}{{"k1", k.K1}, {"k2", k.K2}, {"k3", k.K3}, {"k4", k.K4}, {"y", next}} {
		if math.IsNaN(s.v) || math.IsInf(s.v, 0) {
			return s.name
		}
	}
	return ""
}
