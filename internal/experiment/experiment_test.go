package experiment

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/config"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	problems := r.ListProblems()
	want := []string{"cpu_thermal", "decay", "linear", "rational_exp"}
	if len(problems) != len(want) {
		t.Fatalf("expected %v, got %v", want, problems)
	}
	for i := range want {
		if problems[i] != want[i] {
			t.Errorf("problem %d: expected %s, got %s", i, want[i], problems[i])
		}
	}

	for _, name := range r.ListIntegrators() {
		if _, err := r.GetIntegrator(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	if _, err := r.GetProblem("pendulum", nil); err == nil {
		t.Error("expected error for unknown problem")
	}
	if _, err := r.GetIntegrator("midpoint"); err == nil {
		t.Error("expected error for unknown integrator")
	}

	p, _ := r.GetProblem("linear", nil)
	if _, err := r.GetOracle("odeint", p, config.DefaultConfig()); err == nil {
		t.Error("expected error for unknown reference")
	}
	oracle, err := r.GetOracle("", p, config.DefaultConfig())
	if err != nil || oracle != nil {
		t.Errorf("empty reference should mean none, got %v, %v", oracle, err)
	}
}

func TestRunLinearScenario(t *testing.T) {
	for _, ref := range []string{"exact", "adaptive"} {
		t.Run(ref, func(t *testing.T) {
			cfg := config.GetPreset("linear", "scenario")
			cfg.Reference = ref

			out, err := New(NewRegistry(), nil).Run(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if len(out.Trajectory) != 5 {
				t.Fatalf("expected 5 points, got %d", len(out.Trajectory))
			}
			if out.Comparison == nil {
				t.Fatal("expected a comparison")
			}
			if out.Comparison.MaxAbs > 1e-6 || out.Comparison.MaxAbs < 1e-7 {
				t.Errorf("max error %e outside [1e-7, 1e-6]", out.Comparison.MaxAbs)
			}
			if out.Comparison.MaxAt != 4 {
				t.Errorf("expected largest error at the last point, got %d", out.Comparison.MaxAt)
			}
		})
	}
}

func TestRunExcludeSeed(t *testing.T) {
	cfg := config.GetPreset("decay", "unit")
	cfg.SeedConvention = "exclude"
	cfg.N = 3
	cfg.Reference = "exact"

	out, err := New(NewRegistry(), nil).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Trajectory) != 3 {
		t.Fatalf("expected 3 points, got %d", len(out.Trajectory))
	}
	if math.Abs(out.Trajectory[0].X-0.1) > 1e-12 {
		t.Errorf("first abscissa should be x0+h, got %v", out.Trajectory[0].X)
	}
	if out.Comparison.MaxAbs > 1e-6 {
		t.Errorf("max error %e", out.Comparison.MaxAbs)
	}
}

func TestRunEuler(t *testing.T) {
	cfg := config.GetPreset("decay", "unit")
	cfg.Integrator = "euler"
	cfg.Reference = "exact"

	out, err := New(NewRegistry(), nil).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	last, _ := out.Trajectory.Last()
	if math.Abs(last.Y-math.Pow(0.9, 10)) > 1e-12 {
		t.Errorf("expected 0.9^10, got %v", last.Y)
	}
	if math.Abs(last.X-1.0) > 1e-12 {
		t.Errorf("expected final x=1, got %v", last.X)
	}
	if out.Comparison.MaxAbs < 0.019 || out.Comparison.MaxAbs > 0.0195 {
		t.Errorf("euler error %v outside [0.019, 0.0195]", out.Comparison.MaxAbs)
	}
}

func TestRunRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown problem", func(c *config.Config) { c.Problem = "pendulum" }},
		{"verlet on scalar", func(c *config.Config) { c.Integrator = "verlet" }},
		{"invalid n", func(c *config.Config) { c.N = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GetPreset("linear", "scenario")
			tt.mutate(cfg)
			if _, err := New(NewRegistry(), nil).Run(context.Background(), cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunThermalSection(t *testing.T) {
	cfg := config.GetPreset("cpu_thermal", "coarse")
	cfg.Thermal.W = 0
	cfg.Reference = "exact"

	out, err := New(NewRegistry(), nil).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	last, _ := out.Trajectory.Last()
	want := 25 + 5*math.Exp(-1)
	if math.Abs(last.Y-want) > 1e-6 {
		t.Errorf("idle cpu at t=10: expected %v, got %v", want, last.Y)
	}
}

func TestConverge(t *testing.T) {
	cfg := config.GetPreset("linear", "scenario")
	cfg.Reference = "exact"

	report, err := New(NewRegistry(), nil).Converge(cfg, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Levels) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(report.Levels))
	}
	if report.Levels[3].N != 33 {
		t.Errorf("expected n=33 at level 3, got %d", report.Levels[3].N)
	}
	if report.ObservedOrder < 3.5 || report.ObservedOrder > 4.5 {
		t.Errorf("observed order %v", report.ObservedOrder)
	}
}

func TestIntegratorFor(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"verlet", "leapfrog"} {
		if _, err := r.IntegratorFor(name, 3); !errors.Is(err, dynamo.ErrStateLayout) {
			t.Errorf("%s on a 3-component state: expected ErrStateLayout, got %v", name, err)
		}
		if _, err := r.IntegratorFor(name, 1); !errors.Is(err, dynamo.ErrStateLayout) {
			t.Errorf("%s on a scalar: expected ErrStateLayout, got %v", name, err)
		}
		if _, err := r.IntegratorFor(name, 2); err != nil {
			t.Errorf("%s on [y, y']: %v", name, err)
		}
	}
	for _, name := range []string{"euler", "rk4", "rk45"} {
		if _, err := r.IntegratorFor(name, 3); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := r.IntegratorFor("midpoint", 3); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

func TestRunEulerBackward(t *testing.T) {
	cfg := config.GetPreset("decay", "unit")
	cfg.Integrator = "euler"
	cfg.Reference = "exact"
	cfg.H = -0.1

	out, err := New(NewRegistry(), nil).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	last, _ := out.Trajectory.Last()
	if math.Abs(last.X+1) > 1e-12 {
		t.Errorf("expected final x=-1, got %v", last.X)
	}
	if math.Abs(last.Y-math.Pow(1.1, 10)) > 1e-12 {
		t.Errorf("expected 1.1^10, got %v", last.Y)
	}
	if math.Abs(out.Reference[len(out.Reference)-1]-math.E) > 1e-12 {
		t.Errorf("expected reference e at x=-1, got %v", out.Reference[len(out.Reference)-1])
	}
}

func TestRunLogsSimulatorSteps(t *testing.T) {
	var buf bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowDebug())

	cfg := config.GetPreset("decay", "unit")
	cfg.Integrator = "euler"
	if _, err := New(NewRegistry(), logger).Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "level=debug"); got != 10 {
		t.Errorf("expected 10 step lines, got %d:\n%s", got, buf.String())
	}
	if !strings.Contains(buf.String(), "integrator=euler") {
		t.Errorf("step lines should carry the run context:\n%s", buf.String())
	}
}
