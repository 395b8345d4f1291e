// Package experiment resolves a run file into a problem, an integrator and a
// reference, runs them, and reports the comparison.
package experiment

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/integrators"
	"github.com/san-kum/odelab/internal/physics"
	"github.com/san-kum/odelab/internal/reference"
)

// Outcome is everything one run produced. Reference and Comparison are nil
// when the run used no oracle.
type Outcome struct {
	Problem    string
	Integrator string
	Trajectory dynamo.Trajectory
	RefXs      []float64
	Reference  []float64
	Comparison *analysis.Comparison
}

type Experiment struct {
	registry *Registry
	logger   log.Logger
}

func New(registry *Registry, logger log.Logger) *Experiment {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Experiment{registry: registry, logger: logger}
}

func (e *Experiment) Registry() *Registry { return e.registry }

// Run integrates the configured problem and, when a reference is set, compares
// against it. On an integration failure the partial trajectory is returned
// with the error.
func (e *Experiment) Run(ctx context.Context, cfg *config.Config) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := e.registry.GetProblem(cfg.Problem, cfg)
	if err != nil {
		return nil, err
	}
	conv, err := cfg.Convention()
	if err != nil {
		return nil, err
	}

	out := &Outcome{Problem: p.Name, Integrator: cfg.Integrator}
	logger := log.With(e.logger, "problem", p.Name, "integrator", cfg.Integrator)

	out.Trajectory, err = e.integrate(ctx, p, cfg, conv, logger)
	if err != nil {
		level.Warn(logger).Log("msg", "integration stopped", "points", len(out.Trajectory), "err", err)
		return out, err
	}

	oracle, err := e.registry.GetOracle(cfg.Reference, p, cfg)
	if err != nil {
		return out, err
	}
	if oracle == nil {
		level.Info(logger).Log("msg", "run complete", "points", len(out.Trajectory))
		return out, nil
	}

	offset := 0
	if conv == dynamo.ExcludeSeed {
		offset = 1
	}
	grid := reference.Grid(cfg.X0, cfg.H, len(out.Trajectory)+offset)
	ys, err := oracle.Solve(p.F, cfg.Y0, grid)
	if err != nil {
		return out, fmt.Errorf("reference %s: %w", cfg.Reference, err)
	}
	out.RefXs, out.Reference = grid[offset:], ys[offset:]

	out.Comparison, err = analysis.Compare(out.Trajectory, out.RefXs, out.Reference)
	if err != nil {
		return out, err
	}

	level.Info(logger).Log(
		"msg", "run complete",
		"points", len(out.Trajectory),
		"reference", cfg.Reference,
		"max_abs", out.Comparison.MaxAbs,
		"max_at", out.Comparison.Xs[out.Comparison.MaxAt],
	)
	return out, nil
}

func (e *Experiment) integrate(ctx context.Context, p physics.Problem, cfg *config.Config, conv dynamo.SeedConvention, logger log.Logger) (dynamo.Trajectory, error) {
	if cfg.Integrator == "" || cfg.Integrator == "rk4" {
		return integrators.Integrate(p.F, cfg.X0, cfg.Y0, cfg.H, cfg.N,
			integrators.WithSeedConvention(conv),
			integrators.WithLogger(logger),
		)
	}

	integ, err := e.registry.IntegratorFor(cfg.Integrator, 1)
	if err != nil {
		return nil, err
	}

	steps := cfg.N - 1
	if conv == dynamo.ExcludeSeed {
		steps = cfg.N
	}
	if steps == 0 {
		return dynamo.Trajectory{{X: cfg.X0, Y: cfg.Y0}}, nil
	}

	sim := dynamo.New(dynamo.Scalar{F: p.F}, integ)
	sim.AddObserver(stepLogger{logger})
	res, err := sim.Run(ctx, dynamo.State{cfg.Y0}, dynamo.Config{
		Start:         cfg.X0,
		Dt:            cfg.H,
		Steps:         steps,
		ValidateState: true,
	})
	if res == nil {
		return nil, err
	}

	traj := dynamo.FromSlices(res.Times, res.Component(0))
	if conv == dynamo.ExcludeSeed {
		traj = traj[1:]
	}
	return traj, err
}

// Converge runs the step-halving study for the configured problem and
// reference.
func (e *Experiment) Converge(cfg *config.Config, levels int) (*analysis.ConvergenceReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := e.registry.GetProblem(cfg.Problem, cfg)
	if err != nil {
		return nil, err
	}
	ref := cfg.Reference
	if ref == "" || ref == "none" {
		ref = "adaptive"
	}
	oracle, err := e.registry.GetOracle(ref, p, cfg)
	if err != nil {
		return nil, err
	}

	report, err := analysis.Convergence(p.F, cfg.X0, cfg.Y0, cfg.H, cfg.N, oracle, levels)
	if err != nil {
		return report, err
	}
	level.Info(e.logger).Log("msg", "convergence", "problem", p.Name, "levels", len(report.Levels), "order", report.ObservedOrder)
	return report, nil
}

// stepLogger writes every state the simulator is about to step at debug
// level, the vector-path counterpart of integrators.WithLogger.
type stepLogger struct{ logger log.Logger }

func (s stepLogger) OnStep(x dynamo.State, t float64) {
	level.Debug(s.logger).Log("x", t, "y", x[0])
}
