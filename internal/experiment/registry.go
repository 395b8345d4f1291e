package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/integrators"
	"github.com/san-kum/odelab/internal/metrics"
	"github.com/san-kum/odelab/internal/physics"
	"github.com/san-kum/odelab/internal/reference"
)

// ErrNoExact is returned when the exact oracle is requested for a problem
// without a closed form.
var ErrNoExact = errors.New("experiment: problem has no closed-form solution")

type Registry struct {
	problems    map[string]func(cfg *config.Config) physics.Problem
	integrators map[string]func() dynamo.Integrator
	oracles     map[string]func(p physics.Problem, cfg *config.Config) (reference.Oracle, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		problems:    make(map[string]func(*config.Config) physics.Problem),
		integrators: make(map[string]func() dynamo.Integrator),
		oracles:     make(map[string]func(physics.Problem, *config.Config) (reference.Oracle, error)),
	}

	for _, p := range physics.Problems() {
		p := p
		r.problems[p.Name] = func(*config.Config) physics.Problem { return p }
	}
	r.problems["cpu_thermal"] = func(cfg *config.Config) physics.Problem {
		if cfg == nil {
			return physics.NewThermal().Problem()
		}
		th := cfg.Thermal
		return th.Problem()
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }
	r.integrators["leapfrog"] = func() dynamo.Integrator { return integrators.NewLeapfrog() }

	r.oracles["none"] = func(physics.Problem, *config.Config) (reference.Oracle, error) { return nil, nil }
	r.oracles["adaptive"] = func(_ physics.Problem, cfg *config.Config) (reference.Oracle, error) {
		return reference.Adaptive{Tolerance: cfg.Tolerance}, nil
	}
	r.oracles["exact"] = func(p physics.Problem, cfg *config.Config) (reference.Oracle, error) {
		if p.Exact == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoExact, p.Name)
		}
		return reference.Exact(p.Exact(cfg.X0, cfg.Y0)), nil
	}

	return r
}

func (r *Registry) GetProblem(name string, cfg *config.Config) (physics.Problem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return physics.Problem{}, fmt.Errorf("unknown problem: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// IntegratorFor resolves name and checks that it can step a state of dim
// components. Verlet and leapfrog need an even [positions, velocities] state.
func (r *Registry) IntegratorFor(name string, dim int) (dynamo.Integrator, error) {
	integ, err := r.GetIntegrator(name)
	if err != nil {
		return nil, err
	}
	if err := dynamo.CheckLayout(integ, dim); err != nil {
		return nil, fmt.Errorf("integrator %s: %w", name, err)
	}
	return integ, nil
}

// GetOracle resolves a reference name; "none" and "" yield a nil oracle.
func (r *Registry) GetOracle(name string, p physics.Problem, cfg *config.Config) (reference.Oracle, error) {
	if name == "" {
		name = "none"
	}
	fn, ok := r.oracles[name]
	if !ok {
		return nil, fmt.Errorf("unknown reference: %s", name)
	}
	return fn(p, cfg)
}

func (r *Registry) ListProblems() []string   { return sortedKeys(r.problems) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListOracles() []string     { return sortedKeys(r.oracles) }

// Lorenz builds the system described by the lorenz section of cfg.
func (r *Registry) Lorenz(cfg *config.Config) (*physics.Lorenz, dynamo.State) {
	lc := cfg.Lorenz
	return physics.NewLorenzParams(lc.Sigma, lc.Rho, lc.Beta), dynamo.State(append([]float64(nil), lc.Init...))
}

// DefaultMetrics are attached to every system run.
func (r *Registry) DefaultMetrics() []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewStability(100.0),
		metrics.NewExtent(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
