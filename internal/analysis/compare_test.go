package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/physics"
	"github.com/san-kum/odelab/internal/reference"
)

func TestCompare(t *testing.T) {
	traj := dynamo.FromSlices([]float64{0, 0.1, 0.2}, []float64{1, 2, 3})
	cmp, err := Compare(traj, []float64{0, 0.1, 0.2}, []float64{1, 2.5, 2.9})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	want := []float64{0, 0.5, 0.1}
	for i := range want {
		if math.Abs(cmp.AbsDiff[i]-want[i]) > 1e-12 {
			t.Errorf("diff %d: expected %v, got %v", i, want[i], cmp.AbsDiff[i])
		}
	}
	if cmp.MaxAt != 1 || math.Abs(cmp.MaxAbs-0.5) > 1e-12 {
		t.Errorf("expected max 0.5 at 1, got %v at %d", cmp.MaxAbs, cmp.MaxAt)
	}
}

func TestCompareDomainMismatch(t *testing.T) {
	traj := dynamo.FromSlices([]float64{0, 0.1, 0.2}, []float64{1, 2, 3})

	tests := []struct {
		name string
		xs   []float64
		ys   []float64
	}{
		{"short x", []float64{0, 0.1}, []float64{1, 2, 3}},
		{"short y", []float64{0, 0.1, 0.2}, []float64{1, 2}},
		{"shifted", []float64{0, 0.1, 0.21}, []float64{1, 2, 3}},
		{"wrong spacing", []float64{0, 0.05, 0.1}, []float64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(traj, tt.xs, tt.ys)
			if !errors.Is(err, dynamo.ErrDomainMismatch) {
				t.Errorf("expected ErrDomainMismatch, got %v", err)
			}
		})
	}

	if _, err := Compare(nil, nil, nil); !errors.Is(err, dynamo.ErrInvalidStepCount) {
		t.Errorf("empty trajectory: got %v", err)
	}
}

func TestConvergenceFourthOrder(t *testing.T) {
	tests := []struct {
		name    string
		problem physics.Problem
	}{
		{"linear", physics.Linear()},
		{"decay", physics.Decay()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.problem
			oracle := reference.Exact(p.Exact(0, 1))
			report, err := Convergence(p.F, 0, 1, 0.1, 11, oracle, 3)
			if err != nil {
				t.Fatalf("Convergence failed: %v", err)
			}

			if len(report.Levels) != 3 {
				t.Fatalf("expected 3 levels, got %d", len(report.Levels))
			}
			if report.Levels[2].N != 41 || report.Levels[2].H != 0.025 {
				t.Errorf("unexpected last level %+v", report.Levels[2])
			}
			for _, lvl := range report.Levels[1:] {
				if lvl.Ratio < 12 || lvl.Ratio > 20 {
					t.Errorf("h=%v: ratio %v outside [12, 20]", lvl.H, lvl.Ratio)
				}
			}
			if math.Abs(report.ObservedOrder-4) > 0.3 {
				t.Errorf("observed order %v", report.ObservedOrder)
			}
		})
	}
}

func TestConvergenceAgainstAdaptive(t *testing.T) {
	p := physics.Linear()
	report, err := Convergence(p.F, 0, 1, 0.2, 11, reference.Adaptive{}, 2)
	if err != nil {
		t.Fatalf("Convergence failed: %v", err)
	}
	if r := report.Levels[1].Ratio; r < 12 || r > 20 {
		t.Errorf("ratio %v outside [12, 20]", r)
	}
}

func TestConvergenceInvalid(t *testing.T) {
	p := physics.Linear()
	if _, err := Convergence(p.F, 0, 1, 0.1, 11, reference.Adaptive{}, 1); !errors.Is(err, dynamo.ErrInvalidStepCount) {
		t.Errorf("expected ErrInvalidStepCount, got %v", err)
	}
}
