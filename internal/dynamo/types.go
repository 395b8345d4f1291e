package dynamo

import (
	"fmt"
	"math"
	"strings"
)

// Derivative is the right-hand side of the scalar ODE dy/dx = f(y, x).
type Derivative func(y, x float64) float64

// SeedConvention decides whether the seed point counts toward a requested length.
type SeedConvention int

const (
	// IncludeSeed makes the seed the first of the n returned points.
	IncludeSeed SeedConvention = iota
	// ExcludeSeed takes n steps and omits the seed from the result.
	ExcludeSeed
)

func (c SeedConvention) String() string {
	if c == ExcludeSeed {
		return "exclude"
	}
	return "include"
}

// ParseSeedConvention accepts "include" or "exclude"; empty means include.
func ParseSeedConvention(s string) (SeedConvention, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "include":
		return IncludeSeed, true
	case "exclude":
		return ExcludeSeed, true
	}
	return IncludeSeed, false
}

// Slopes are the four intermediate RK4 evaluations of one step.
type Slopes struct {
	K1, K2, K3, K4 float64
}

// IsValid reports whether every slope is finite.
func (s Slopes) IsValid() bool {
	return isFinite(s.K1) && isFinite(s.K2) && isFinite(s.K3) && isFinite(s.K4)
}

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a vector ODE dX/dt = Derive(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// PairedIntegrator steps states laid out as [positions..., velocities...],
// reading accelerations from the second half of the derivative.
type PairedIntegrator interface {
	Integrator
	PairedLayout()
}

// CheckLayout reports whether integ can step a state of dim components.
func CheckLayout(integ Integrator, dim int) error {
	if _, ok := integ.(PairedIntegrator); ok && (dim == 0 || dim%2 != 0) {
		return fmt.Errorf("%w: got %d components", ErrStateLayout, dim)
	}
	return nil
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Config controls a Simulator run. Steps wins over Duration when both are set.
// Start is the time of the initial state.
type Config struct {
	Start         float64
	Dt            float64
	Duration      float64
	Steps         int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      100.0,
		ValidateState: true,
	}
}

// StepCount resolves the number of steps a run will take.
func (c Config) StepCount() int {
	if c.Steps > 0 {
		return c.Steps
	}
	return int(math.Round(c.Duration / c.Dt))
}

type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
}

// Component extracts one state component across the whole run.
func (r *Result) Component(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, s := range r.States {
		if i < len(s) {
			out[k] = s[i]
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
