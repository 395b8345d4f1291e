package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/experiment"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	g, err := NewGridSearch([]string{"a", "b"}, [][]float64{{-1, 0, 1, 2}, {-3, -2, -1}})
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	best, val, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		calls++
		da, db := p["a"]-1, p["b"]+2
		return da*da + db*db, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 12 {
		t.Errorf("expected 12 evaluations, got %d", calls)
	}
	if best["a"] != 1 || best["b"] != -2 || val != 0 {
		t.Errorf("got %v = %v", best, val)
	}
}

func TestGridSearchSkipsRejected(t *testing.T) {
	g, _ := NewGridSearch([]string{"x"}, [][]float64{{1, 2, 3}})
	best, val, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		if p["x"] == 1 {
			return 0, errors.New("rejected")
		}
		return p["x"], nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if best["x"] != 2 || val != 2 {
		t.Errorf("got %v = %v", best, val)
	}

	_, _, err = g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return 0, errors.New("always")
	})
	if !errors.Is(err, ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}
}

func TestGridSearchCancelled(t *testing.T) {
	g, _ := NewGridSearch([]string{"x"}, [][]float64{{1, 2}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := g.Search(ctx, func(context.Context, map[string]float64) (float64, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewGridSearchValidates(t *testing.T) {
	if _, err := NewGridSearch(nil, nil); err == nil {
		t.Error("expected error for no parameters")
	}
	if _, err := NewGridSearch([]string{"h"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty range")
	}
	if _, err := NewGridSearch([]string{"h", "x0"}, [][]float64{{0.1}}); err == nil {
		t.Error("expected error for mismatched ranges")
	}
}

func TestApply(t *testing.T) {
	cfg := config.GetPreset("linear", "scenario")
	if err := Apply(cfg, map[string]float64{"h": 0.05, "y0": 2, "W": 0.5}); err != nil {
		t.Fatal(err)
	}
	if cfg.H != 0.05 || cfg.N != 9 {
		t.Errorf("h should keep the span: h=%v n=%d", cfg.H, cfg.N)
	}
	if cfg.Y0 != 2 || cfg.Thermal.W != 0.5 {
		t.Errorf("got y0=%v W=%v", cfg.Y0, cfg.Thermal.W)
	}

	if err := Apply(cfg, map[string]float64{"bogus": 1}); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}

func TestErrorBudgetPicksCoarsestPassingStep(t *testing.T) {
	base := config.GetPreset("linear", "scenario")
	exp := experiment.New(experiment.NewRegistry(), nil)

	g, err := NewGridSearch([]string{"h"}, [][]float64{{0.1, 0.05, 0.025, 0.0125}})
	if err != nil {
		t.Fatal(err)
	}
	best, n, err := g.Search(context.Background(), ErrorBudget(exp, base, 1e-7))
	if err != nil {
		t.Fatal(err)
	}
	if best["h"] != 0.05 || n != 9 {
		t.Errorf("expected h=0.05 with 9 points, got h=%v n=%v", best["h"], n)
	}
}
