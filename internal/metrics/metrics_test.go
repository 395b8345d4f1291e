package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/integrators"
	"github.com/san-kum/odelab/internal/physics"
)

func TestStability(t *testing.T) {
	m := NewStability(1.0)
	if m.Value() != 1.0 {
		t.Errorf("expected 1.0 with no samples, got %v", m.Value())
	}

	m.Observe(dynamo.State{0.5, 0.5}, 0)
	m.Observe(dynamo.State{0.5, 2.0}, 0)
	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %v", m.Value())
	}

	m.Reset()
	if m.Value() != 1.0 {
		t.Error("expected 1.0 after reset")
	}
}

func TestExtent(t *testing.T) {
	m := NewExtent()
	m.Observe(dynamo.State{0, 1}, 0)
	m.Observe(dynamo.State{-2, 3}, 0.1)
	m.Observe(dynamo.State{1, 2}, 0.2)

	lo, hi := m.Bounds()
	if lo[0] != -2 || hi[0] != 1 || lo[1] != 1 || hi[1] != 3 {
		t.Errorf("unexpected bounds %v %v", lo, hi)
	}
	if m.Value() != 3 {
		t.Errorf("expected widest range 3, got %v", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestLorenzAttractorExtent(t *testing.T) {
	l := physics.NewLorenz()
	sim := dynamo.New(l, integrators.NewEuler())
	ext := NewExtent()
	sim.AddMetric(ext)

	res, err := sim.Run(context.Background(), l.DefaultState(), dynamo.Config{Dt: 0.01, Steps: 10000})
	if err != nil {
		t.Fatal(err)
	}
	// z sweeps roughly 1 to 54 on the chaotic attractor
	if v := res.Metrics["extent"]; v < 40 || v > 70 {
		t.Errorf("unexpected attractor extent %v", v)
	}
}

func TestDeviation(t *testing.T) {
	f := physics.StepForced()
	sim := dynamo.New(f, integrators.NewRK4())
	dev := NewDeviation("green", 0, f.Green)
	sim.AddMetric(dev)

	res, err := sim.Run(context.Background(), dynamo.State{0, 0}, dynamo.Config{Dt: 0.01, Steps: 500})
	if err != nil {
		t.Fatal(err)
	}
	if v := res.Metrics["green"]; v > 1e-6 {
		t.Errorf("RK4 deviates from Green's solution by %v", v)
	}
	if dev.Samples() != 501 {
		t.Errorf("expected 501 samples, got %d", dev.Samples())
	}

	dev.Reset()
	dev.Observe(dynamo.State{math.NaN()}, 0)
	if !math.IsNaN(dev.Value()) {
		t.Error("NaN deviation should be reported")
	}
}
