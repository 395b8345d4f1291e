package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/odelab/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int { return 2 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x0 := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	x := x0
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestRK4MatchesScalarIntegrate(t *testing.T) {
	traj, err := Integrate(linear, 0, 1, 0.1, 5)
	if err != nil {
		t.Fatal(err)
	}

	integ := NewRK4()
	sys := dynamo.Scalar{F: linear}
	x := dynamo.State{1}
	for i := 1; i < len(traj); i++ {
		x = integ.Step(sys, x, float64(i-1)*0.1, 0.1)
		if math.Abs(x[0]-traj[i].Y) > 1e-14 {
			t.Errorf("step %d: vector %v vs scalar %v", i, x[0], traj[i].Y)
		}
	}
}

func TestEulerStep(t *testing.T) {
	x := NewEuler().Step(&simpleDynamics{}, dynamo.State{1, 0}, 0, 0.1)
	if x[0] != 1 || math.Abs(x[1]+0.1) > 1e-15 {
		t.Errorf("unexpected Euler step %v", x)
	}
}

func TestVerletOscillator(t *testing.T) {
	for name, integ := range map[string]dynamo.Integrator{
		"verlet":   NewVerlet(),
		"leapfrog": NewLeapfrog(),
	} {
		t.Run(name, func(t *testing.T) {
			dyn := &simpleDynamics{}
			x := dynamo.State{1.0, 0.0}
			dt := 0.01
			for i := 0; i < 1000; i++ {
				x = integ.Step(dyn, x, float64(i)*dt, dt)
			}

			energy := 0.5 * (x[0]*x[0] + x[1]*x[1])
			if math.Abs(energy-0.5) > 1e-4 {
				t.Errorf("energy drifted to %v", energy)
			}
			if math.Abs(x[0]-math.Cos(10)) > 1e-3 {
				t.Errorf("position %v, expected %v", x[0], math.Cos(10))
			}
		})
	}
}
