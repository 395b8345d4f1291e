package physics

import (
	"fmt"
	"math"
)

// Thermal models CPU temperature under load:
//
//	dT/dt = k W^2 - c F (T - A)
//
// with heat generated by workload W and removed by cooling of efficiency F
// toward ambient temperature A.
type Thermal struct {
	W  float64 `yaml:"workload"`
	K  float64 `yaml:"heat_constant"`
	C  float64 `yaml:"cooling"`
	A  float64 `yaml:"ambient"`
	F  float64 `yaml:"fan"`
	T0 float64 `yaml:"t0"`
}

func NewThermal() *Thermal {
	return &Thermal{W: 0.7, K: 0.5, C: 0.1, A: 25, F: 1.0, T0: 30}
}

// Rate is the right-hand side in the (y, x) argument order of dynamo.Derivative.
func (th *Thermal) Rate(temp, _ float64) float64 {
	return th.K*th.W*th.W - th.C*th.F*(temp-th.A)
}

// Equilibrium is the temperature at which heating and cooling balance.
func (th *Thermal) Equilibrium() float64 {
	return th.A + th.K*th.W*th.W/(th.C*th.F)
}

// Exact is the closed-form temperature starting from temp0 at t0.
func (th *Thermal) Exact(t0, temp0 float64) func(t float64) float64 {
	teq := th.Equilibrium()
	rate := th.C * th.F
	return func(t float64) float64 {
		return teq + (temp0-teq)*math.Exp(-rate*(t-t0))
	}
}

func (th *Thermal) Validate() error {
	if th.C*th.F <= 0 {
		return fmt.Errorf("thermal: cooling c*F must be positive, got %v", th.C*th.F)
	}
	if th.W < 0 || th.W > 1 {
		return fmt.Errorf("thermal: workload must be in [0, 1], got %v", th.W)
	}
	return nil
}

func (th *Thermal) GetParams() map[string]float64 {
	return map[string]float64{"W": th.W, "k": th.K, "c": th.C, "A": th.A, "F": th.F, "T0": th.T0}
}

func (th *Thermal) SetParam(n string, v float64) error {
	switch n {
	case "W":
		th.W = v
	case "k":
		th.K = v
	case "c":
		th.C = v
	case "A":
		th.A = v
	case "F":
		th.F = v
	case "T0":
		th.T0 = v
	default:
		return fmt.Errorf("thermal: unknown parameter %q", n)
	}
	return nil
}
