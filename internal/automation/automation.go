package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/experiment"
	"github.com/san-kum/odelab/internal/metrics"
)

var ErrEmptyScenario = errors.New("automation: scenario has no runs")

// Scenario is a named list of runs executed in order.
type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Runs        []*config.Config `yaml:"-"`
}

// UnmarshalYAML fills every run from the defaults, or from a named preset of
// its problem, before applying the fields given in the file.
func (s *Scenario) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Runs        []yaml.Node `yaml:"runs"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.Name, s.Description = raw.Name, raw.Description
	s.Runs = make([]*config.Config, 0, len(raw.Runs))

	for i := range raw.Runs {
		var head struct {
			Problem string `yaml:"problem"`
			Preset  string `yaml:"preset"`
		}
		if err := raw.Runs[i].Decode(&head); err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}

		cfg := config.DefaultConfig()
		if head.Preset != "" {
			cfg = config.GetPreset(head.Problem, head.Preset)
			if cfg == nil {
				return fmt.Errorf("run %d: unknown preset %s/%s", i+1, head.Problem, head.Preset)
			}
		}
		if err := raw.Runs[i].Decode(cfg); err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		s.Runs = append(s.Runs, cfg)
	}
	return nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyScenario)
	}

	return &scenario, nil
}

// RunScenario executes the runs in order and stops at the first failure,
// returning the outcomes gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, exp *experiment.Experiment, logger log.Logger) ([]*experiment.Outcome, error) {
	outcomes := make([]*experiment.Outcome, 0, len(scenario.Runs))

	for i, cfg := range scenario.Runs {
		level.Info(logger).Log("msg", "scenario run", "scenario", scenario.Name, "run", i+1, "of", len(scenario.Runs), "problem", cfg.Problem)

		out, err := exp.Run(ctx, cfg)
		if err != nil {
			return outcomes, fmt.Errorf("run %d (%s): %w", i+1, cfg.Problem, err)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

// StepResult is one step size of a StepSweep.
type StepResult struct {
	H        float64
	N        int
	MaxError float64
}

// StepSweep reruns base over [x0, x0 + (n-1)h] with each step size in steps,
// choosing n so the span is kept.
func StepSweep(ctx context.Context, base *config.Config, steps []float64, exp *experiment.Experiment) ([]StepResult, error) {
	span := float64(base.N-1) * base.H
	results := make([]StepResult, 0, len(steps))

	for _, h := range steps {
		cfg := base.Clone()
		cfg.H = h
		cfg.N = int(math.Round(span/h)) + 1
		if cfg.Reference == "" || cfg.Reference == "none" {
			cfg.Reference = "adaptive"
		}

		out, err := exp.Run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("h=%g: %w", h, err)
		}
		results = append(results, StepResult{H: h, N: cfg.N, MaxError: out.Comparison.MaxAbs})
	}

	return results, nil
}

// ParameterSweep runs the Lorenz system across a range of one parameter.
type ParameterSweep struct {
	Base       *config.Config
	ParamName  string
	ParamMin   float64
	ParamMax   float64
	NumSteps   int
	Integrator string
}

type SweepResult struct {
	ParamValue float64
	FinalState dynamo.State
	Extent     float64
	Stability  float64
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least two values, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)
	lc := sweep.Base.Lorenz

	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		dyn, x0 := registry.Lorenz(sweep.Base)
		if err := dyn.SetParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}
		integ, err := registry.IntegratorFor(sweep.Integrator, dyn.StateDim())
		if err != nil {
			return nil, err
		}

		extent := metrics.NewExtent()
		stability := metrics.NewStability(1e6)
		sim := dynamo.New(dyn, integ)
		sim.AddMetric(extent)
		sim.AddMetric(stability)

		result, err := sim.Run(ctx, x0, dynamo.Config{Dt: lc.Dt, Steps: lc.Steps, ValidateState: true})
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			FinalState: result.States[len(result.States)-1],
			Extent:     extent.Value(),
			Stability:  stability.Value(),
		})
	}

	return results, nil
}

// MonteCarloConfig perturbs the Lorenz initial state uniformly within
// +-Perturbation in each component.
type MonteCarloConfig struct {
	Base         *config.Config
	Integrator   string
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	// Distance is how far the final state ended from the unperturbed run.
	Distance float64
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	lc := cfg.Base.Lorenz
	simCfg := dynamo.Config{Dt: lc.Dt, Steps: lc.Steps, ValidateState: true}

	run := func(x0 dynamo.State) (dynamo.State, error) {
		dyn, _ := registry.Lorenz(cfg.Base)
		integ, err := registry.IntegratorFor(cfg.Integrator, dyn.StateDim())
		if err != nil {
			return nil, err
		}
		res, err := dynamo.New(dyn, integ).Run(ctx, x0, simCfg)
		if err != nil {
			return nil, err
		}
		return res.States[len(res.States)-1], nil
	}

	_, base := registry.Lorenz(cfg.Base)
	nominal, err := run(base)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	for trial := 0; trial < cfg.NumTrials; trial++ {
		initState := base.Clone()
		for i := range initState {
			initState[i] += (rng.Float64() - 0.5) * 2 * cfg.Perturbation
		}

		final, err := run(initState)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}

		results = append(results, MonteCarloResult{
			TrialID:    trial,
			InitState:  initState,
			FinalState: final,
			Distance:   final.Sub(nominal).Norm(),
		})
	}

	return results, nil
}

// MonteCarloStats counts trials that ended within tol of the unperturbed run.
func MonteCarloStats(results []MonteCarloResult, tol float64) (near int, diverged int) {
	for _, r := range results {
		if r.Distance <= tol {
			near++
		} else {
			diverged++
		}
	}
	return
}

// Summarize reduces a sweep to its levels so it can be printed like a
// convergence report.
func Summarize(results []StepResult) []analysis.Level {
	levels := make([]analysis.Level, len(results))
	for i, r := range results {
		levels[i] = analysis.Level{H: r.H, N: r.N, MaxError: r.MaxError}
		if i > 0 && r.MaxError > 0 {
			levels[i].Ratio = results[i-1].MaxError / r.MaxError
		}
	}
	return levels
}
