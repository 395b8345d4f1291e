package physics

import (
	"math"
	"sort"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Problem is a scalar initial value problem with default run parameters.
type Problem struct {
	Name        string
	Description string
	F           dynamo.Derivative
	// Exact builds the closed-form solution through (x0, y0); nil when none
	// is known.
	Exact func(x0, y0 float64) func(x float64) float64

	X0, Y0, H float64
	N         int
}

// RationalExp is dy/dx = y/(e^x - 1), singular at x = 0, with solution
// y = C(1 - e^-x).
func RationalExp() Problem {
	return Problem{
		Name:        "rational_exp",
		Description: "dy/dx = y/(e^x - 1)",
		F:           func(y, x float64) float64 { return y / (math.Exp(x) - 1) },
		Exact: func(x0, y0 float64) func(float64) float64 {
			c := y0 / (1 - math.Exp(-x0))
			return func(x float64) float64 { return c * (1 - math.Exp(-x)) }
		},
		X0: 1, Y0: 5, H: 0.02, N: 500,
	}
}

// Linear is dy/dx = x + y with solution y = Ce^x - x - 1.
func Linear() Problem {
	return Problem{
		Name:        "linear",
		Description: "dy/dx = x + y",
		F:           func(y, x float64) float64 { return x + y },
		Exact: func(x0, y0 float64) func(float64) float64 {
			c := (y0 + x0 + 1) * math.Exp(-x0)
			return func(x float64) float64 { return c*math.Exp(x) - x - 1 }
		},
		X0: 0, Y0: 1, H: 0.1, N: 5,
	}
}

// Decay is dy/dx = -y.
func Decay() Problem {
	return Problem{
		Name:        "decay",
		Description: "dy/dx = -y",
		F:           func(y, _ float64) float64 { return -y },
		Exact: func(x0, y0 float64) func(float64) float64 {
			return func(x float64) float64 { return y0 * math.Exp(-(x - x0)) }
		},
		X0: 0, Y0: 1, H: 0.1, N: 11,
	}
}

// Problem exposes the thermal model as a scalar problem over ten seconds.
func (th *Thermal) Problem() Problem {
	return Problem{
		Name:        "cpu_thermal",
		Description: "dT/dt = k W^2 - c F (T - A)",
		F:           th.Rate,
		Exact:       th.Exact,
		X0:          0, Y0: th.T0, H: 0.1, N: 101,
	}
}

// Problems lists the built-in scalar problems by name.
func Problems() []Problem {
	ps := []Problem{RationalExp(), Linear(), Decay(), NewThermal().Problem()}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps
}
