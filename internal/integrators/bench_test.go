package integrators

import (
	"testing"

	"github.com/san-kum/odelab/internal/dynamo"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int { return 2 }
func (b *benchDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK45(b *testing.B) {
	integrator := NewRK45()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkVerlet(b *testing.B) {
	integrator := NewVerlet()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkLeapfrog(b *testing.B) {
	integrator := NewLeapfrog()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

type benchNBody struct{}

func (b *benchNBody) StateDim() int { return 20 }
func (b *benchNBody) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, 20)
	for i := 0; i < 5; i++ {
		dx[i*4] = x[i*4+2]
		dx[i*4+1] = x[i*4+3]
		dx[i*4+2] = -x[i*4] * 0.1
		dx[i*4+3] = -x[i*4+1] * 0.1
	}
	return dx
}

func BenchmarkRK4_NBody5(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchNBody{}
	x := make(dynamo.State, 20)
	for i := range x {
		x[i] = float64(i) * 0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.001)
	}
}

func BenchmarkLeapfrog_NBody5(b *testing.B) {
	integrator := NewLeapfrog()
	dyn := &benchNBody{}
	x := make(dynamo.State, 20)
	for i := range x {
		x[i] = float64(i) * 0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.001)
	}
}

func BenchmarkIntegrate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Integrate(rationalExp, 1, 5, 0.02, 500); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSolve(b *testing.B) {
	grid := make([]float64, 101)
	for i := range grid {
		grid[i] = float64(i) * 0.1
	}
	sys := dynamo.Scalar{F: linear}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Solve(sys, dynamo.State{1}, grid, DefaultTolerances()); err != nil {
			b.Fatal(err)
		}
	}
}
