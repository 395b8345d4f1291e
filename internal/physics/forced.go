package physics

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Forced is the driven oscillator y'' + omega^2 y = g(x) written as the
// system [y, y'].
type Forced struct {
	Name    string
	Omega2  float64
	Forcing func(x float64) float64
	// Green is the zero-initial-data solution built from the Green's function.
	Green func(x float64) float64
}

func (f *Forced) StateDim() int { return 2 }

func (f *Forced) Derive(s dynamo.State, x float64) dynamo.State {
	return dynamo.State{s[1], f.Forcing(x) - f.Omega2*s[0]}
}

// Homogeneous returns c1 cos(wx) + c2 sin(wx).
func (f *Forced) Homogeneous(c1, c2 float64) func(x float64) float64 {
	w := math.Sqrt(f.Omega2)
	return func(x float64) float64 {
		return c1*math.Cos(w*x) + c2*math.Sin(w*x)
	}
}

// RampForced is y'' + 4y = x with y(0) = y'(0) = 0.
func RampForced() *Forced {
	return &Forced{
		Name:    "y''+4y=x",
		Omega2:  4,
		Forcing: func(x float64) float64 { return x },
		Green:   func(x float64) float64 { return x/4 - math.Sin(2*x)/8 },
	}
}

// StepForced is y'' + y = 4 with y(0) = y'(0) = 0.
func StepForced() *Forced {
	return &Forced{
		Name:    "y''+y=4",
		Omega2:  1,
		Forcing: func(float64) float64 { return 4 },
		Green:   func(x float64) float64 { return 4 * (1 - math.Cos(x)) },
	}
}

// VariableCoefficient is y'' = (x - (x^2+4) y) / (x^2+4), usually started
// from y(0) = 0, y'(0) = 1.
type VariableCoefficient struct{}

func (VariableCoefficient) StateDim() int { return 2 }

func (VariableCoefficient) Derive(s dynamo.State, x float64) dynamo.State {
	d := x*x + 4
	return dynamo.State{s[1], (x - d*s[0]) / d}
}

func (VariableCoefficient) DefaultState() dynamo.State { return dynamo.State{0, 1} }
