// Package optim searches run parameters exhaustively over a grid.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/experiment"
)

var (
	ErrNoCandidate  = errors.New("optim: no combination could be evaluated")
	ErrOverBudget   = errors.New("optim: error above budget")
	ErrUnknownParam = errors.New("optim: unknown parameter")
)

// Objective scores one combination of parameters; lower is better. An error
// rejects the combination.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Search evaluates every combination and returns the one with the smallest
// objective. Ties keep the combination visited first.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		val, err := objective(ctx, current)
		if err != nil || math.IsNaN(val) {
			return nil
		}
		if val < *best || *bestParams == nil {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// Apply writes params into cfg. Setting h keeps the span of the grid.
func Apply(cfg *config.Config, params map[string]float64) error {
	for name, v := range params {
		switch name {
		case "h":
			span := float64(cfg.N-1) * cfg.H
			cfg.H = v
			cfg.N = int(math.Round(span/v)) + 1
		case "x0":
			cfg.X0 = v
		case "y0":
			cfg.Y0 = v
		case "tolerance":
			cfg.Tolerance = v
		case "W", "k", "c", "A", "F":
			if err := cfg.Thermal.SetParam(name, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownParam, name)
		}
	}
	return nil
}

// ErrorBudget scores a run by the number of points it needs, rejecting runs
// whose largest difference from the reference exceeds budget. Searching over
// h with it finds the coarsest grid that still meets the budget.
func ErrorBudget(exp *experiment.Experiment, base *config.Config, budget float64) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := base.Clone()
		if err := Apply(cfg, params); err != nil {
			return 0, err
		}
		if cfg.Reference == "" || cfg.Reference == "none" {
			cfg.Reference = "adaptive"
		}

		out, err := exp.Run(ctx, cfg)
		if err != nil {
			return 0, err
		}
		if out.Comparison.MaxAbs > budget {
			return 0, fmt.Errorf("%w: %.3e > %.3e", ErrOverBudget, out.Comparison.MaxAbs, budget)
		}
		return float64(cfg.N), nil
	}
}
