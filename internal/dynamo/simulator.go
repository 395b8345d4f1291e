package dynamo

import (
	"context"
	"fmt"
	"sync"
)

type Simulator struct {
	dyn        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(dyn System, integrator Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run advances x0 for cfg.StepCount() steps. The returned result always holds
// the states computed so far, including when an error stops the run early.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := cfg.StepCount()
	result := &Result{
		States:  make([]State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := cfg.Start

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		for _, m := range s.metrics {
			m.Observe(x, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, t)
		}

		newX := s.integrator.Step(s.dyn, x, t, cfg.Dt)
		if cfg.ValidateState && !newX.IsValid() {
			runErr = &StepError{Step: i, X: t, Stage: "state", Wrapped: ErrInvalidState}
			break
		}

		x = newX
		t = cfg.Start + float64(i+1)*cfg.Dt
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}

	if runErr == nil {
		for _, m := range s.metrics {
			m.Observe(x, t)
		}
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, runErr
}

func (s *Simulator) validate(x0 State, cfg Config) error {
	if cfg.Dt == 0 || !isFinite(cfg.Dt) {
		return fmt.Errorf("%w: got dt=%v", ErrInvalidStepSize, cfg.Dt)
	}
	if cfg.Steps <= 0 && cfg.StepCount() <= 0 {
		return fmt.Errorf("%w: duration %v does not run in the direction of dt %v", ErrInvalidStepCount, cfg.Duration, cfg.Dt)
	}
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("%w: state has %d components, system expects %d", ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}
	if !x0.IsValid() {
		return ErrInvalidState
	}
	return CheckLayout(s.integrator, s.dyn.StateDim())
}

// Job is one independent simulation for RunAll. Integrators that keep scratch
// buffers must not be shared between jobs.
type Job struct {
	Name       string
	System     System
	Integrator Integrator
	Metrics    []Metric
	X0         State
	Config     Config
}

// RunAll executes jobs concurrently. Results keep the order of jobs; the
// first error (in job order) is returned alongside every result.
func RunAll(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			job := jobs[idx]
			sim := New(job.System, job.Integrator)
			for _, m := range job.Metrics {
				sim.AddMetric(m)
			}

			results[idx], errs[idx] = sim.Run(ctx, job.X0, job.Config)
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("%s: %w", jobs[i].Name, err)
		}
	}

	return results, nil
}
