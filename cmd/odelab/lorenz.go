package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/automation"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/experiment"
	"github.com/san-kum/odelab/internal/export"
	"github.com/san-kum/odelab/internal/physics"
	"github.com/san-kum/odelab/internal/storage"
	"github.com/san-kum/odelab/internal/viz"
)

const (
	lyapunovPerturbation = 1e-8
	lyapunovTol          = 0.05
)

var lorenzFlags config.LorenzConfig

func addLorenzFlags(cmd *cobra.Command) {
	d := config.DefaultLorenz()
	f := cmd.Flags()
	f.Float64Var(&lorenzFlags.Sigma, "sigma", d.Sigma, "sigma")
	f.Float64Var(&lorenzFlags.Rho, "rho", d.Rho, "rho")
	f.Float64Var(&lorenzFlags.Beta, "beta", d.Beta, "beta")
	f.Float64Var(&lorenzFlags.Dt, "dt", d.Dt, "timestep")
	f.IntVar(&lorenzFlags.Steps, "steps", d.Steps, "number of steps")
	f.Float64SliceVar(&lorenzFlags.Init, "init", d.Init, "initial state x,y,z")
	f.StringVar(&lorenzFlags.Integrator, "integrator", d.Integrator, "integrator (euler, rk4, rk45)")
}

// resolveLorenz applies the run file and then the flags the user set.
func resolveLorenz(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	lc := &cfg.Lorenz
	if f.Changed("sigma") {
		lc.Sigma = lorenzFlags.Sigma
	}
	if f.Changed("rho") {
		lc.Rho = lorenzFlags.Rho
	}
	if f.Changed("beta") {
		lc.Beta = lorenzFlags.Beta
	}
	if f.Changed("dt") {
		lc.Dt = lorenzFlags.Dt
	}
	if f.Changed("steps") {
		lc.Steps = lorenzFlags.Steps
	}
	if f.Changed("init") {
		lc.Init = append([]float64(nil), lorenzFlags.Init...)
	}
	if f.Changed("integrator") {
		lc.Integrator = lorenzFlags.Integrator
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := experiment.NewRegistry().IntegratorFor(lc.Integrator, len(lc.Init)); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lorenzRun struct {
	name   string
	rho    float64
	result *dynamo.Result
}

func lorenzCommand() *cobra.Command {
	var (
		save      bool
		phase     bool
		render    bool
		bifurcate bool
		pngPath   string
	)

	cmd := &cobra.Command{
		Use:   "lorenz",
		Short: "run the chaotic, semi-chaotic and non-chaotic Lorenz regimes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveLorenz(cmd)
			if err != nil {
				return err
			}
			lc := cfg.Lorenz
			registry := experiment.NewRegistry()

			regimes := physics.LorenzRegimes()
			if cmd.Flags().Changed("rho") {
				regimes = []physics.LorenzRegime{{Name: fmt.Sprintf("rho=%g", lc.Rho), Rho: lc.Rho}}
			}

			jobs := make([]dynamo.Job, 0, len(regimes))
			for _, r := range regimes {
				integ, err := registry.GetIntegrator(lc.Integrator)
				if err != nil {
					return err
				}
				dyn, x0 := registry.Lorenz(cfg)
				if err := dyn.SetParam("rho", r.Rho); err != nil {
					return err
				}
				jobs = append(jobs, dynamo.Job{
					Name:       r.Name,
					System:     dyn,
					Integrator: integ,
					Metrics:    registry.DefaultMetrics(),
					X0:         x0,
					Config:     dynamo.Config{Dt: lc.Dt, Steps: lc.Steps, ValidateState: true},
				})
			}

			start := time.Now()
			results, err := dynamo.RunAll(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			level.Info(logger).Log("msg", "lorenz regimes", "count", len(jobs), "steps", lc.Steps, "elapsed", time.Since(start))

			runs := make([]lorenzRun, len(jobs))
			for i, r := range regimes {
				runs[i] = lorenzRun{name: r.Name, rho: r.Rho, result: results[i]}
			}

			fmt.Println(viz.Header(fmt.Sprintf("lorenz  sigma=%g beta=%g dt=%g steps=%d [%s]", lc.Sigma, lc.Beta, lc.Dt, lc.Steps, lc.Integrator)))
			rows := make([][]string, 0, len(runs))
			zs := make([][]float64, 0, len(runs))
			newInteg := func() dynamo.Integrator {
				integ, _ := registry.GetIntegrator(lc.Integrator)
				return integ
			}
			for i, run := range runs {
				lambda := analysis.LyapunovExponent(jobs[i].System, newInteg, jobs[i].X0, lc.Dt, lc.Steps, lyapunovPerturbation)
				final := run.result.States[len(run.result.States)-1]
				rows = append(rows, []string{
					run.name,
					fmt.Sprintf("%g", run.rho),
					fmt.Sprintf("(%.3f, %.3f, %.3f)", final[0], final[1], final[2]),
					fmt.Sprintf("%.4f", lambda),
					string(analysis.Classify(lambda, lyapunovTol)),
					formatMetrics(run.result.Metrics),
				})
				zs = append(zs, run.result.Component(2))
			}
			fmt.Println(viz.Table([]string{"regime", "rho", "final (x, y, z)", "lyapunov", "class", "metrics"}, rows))
			fmt.Println()
			fmt.Println(viz.MultiPlot("z(t) per regime", zs...))

			if phase {
				for _, run := range runs {
					portrait, err := analysis.GeneratePhasePortrait(run.result, 0, 2)
					if err != nil {
						return err
					}
					fmt.Printf("\n%s: x-z phase portrait\n", run.name)
					fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 22))
				}
			}

			if render {
				cam := viz.NewCamera()
				fmt.Printf("\n%s\n", runs[0].name)
				fmt.Println(viz.RenderAttractor(runs[0].result.States, 70, 24, cam))
			}

			if bifurcate {
				integ, err := registry.GetIntegrator(lc.Integrator)
				if err != nil {
					return err
				}
				dyn, x0 := registry.Lorenz(cfg)
				data, err := analysis.BifurcationDiagram(cmd.Context(), dyn, integ, x0, analysis.Sweep{
					Param:       "rho",
					Min:         0,
					Max:         lc.Rho,
					Count:       70,
					Component:   2,
					Transient:   lc.Steps / 2,
					Record:      lc.Steps / 2,
					Dt:          lc.Dt,
					MaxPerParam: 40,
				})
				if err != nil {
					return err
				}
				fmt.Printf("\nbifurcation diagram: local maxima of z, rho in [0, %g]\n", lc.Rho)
				fmt.Println(analysis.BifurcationToASCII(data, 70, 20))
			}

			if pngPath != "" {
				series := make([]export.Series, len(runs))
				for i, run := range runs {
					series[i] = export.Series{Label: run.name, Xs: run.result.Times, Ys: run.result.Component(2)}
				}
				fig := export.DefaultFigure("Lorenz z(t)", "t", "z")
				if err := export.SavePNG(pngPath, func(w io.Writer) error {
					return export.LinePNG(w, fig, series...)
				}); err != nil {
					return err
				}
				fmt.Printf("chart: %s\n", pngPath)
			}

			if save {
				st, err := openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				for _, run := range runs {
					id, err := st.SaveResult(storage.RunMetadata{
						Problem:    "lorenz",
						Timestamp:  time.Now(),
						Integrator: lc.Integrator,
						H:          lc.Dt,
						N:          lc.Steps,
						Params:     map[string]float64{"sigma": lc.Sigma, "rho": run.rho, "beta": lc.Beta},
						Metrics:    run.result.Metrics,
					}, run.result)
					if err != nil {
						return err
					}
					fmt.Printf("saved %s: %s\n", run.name, id)
				}
			}
			return nil
		},
	}
	addLorenzFlags(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "store each regime")
	cmd.Flags().BoolVar(&phase, "phase", false, "print x-z phase portraits")
	cmd.Flags().BoolVar(&render, "render", false, "draw the first regime in 3D")
	cmd.Flags().BoolVar(&bifurcate, "bifurcation", false, "sweep rho and print the bifurcation diagram")
	cmd.Flags().StringVar(&pngPath, "png", "", "write z(t) of every regime to this PNG")
	return cmd
}

func formatMetrics(m map[string]float64) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.4g", name, m[name])
	}
	return out
}

func liveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "pick a Lorenz regime and watch it evolve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveLorenz(cmd)
			if err != nil {
				return err
			}
			lc := cfg.Lorenz

			rho := lc.Rho
			name := fmt.Sprintf("lorenz rho=%g", rho)
			if !cmd.Flags().Changed("rho") {
				regimes := physics.LorenzRegimes()
				choices := make([]viz.Choice, len(regimes))
				for i, r := range regimes {
					choices[i] = viz.Choice{Name: r.Name, Value: r.Rho}
				}
				choice, ok, err := viz.RunPicker(viz.NewPicker("Lorenz regime (rho)", choices))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				rho = choice.Value
				name = "lorenz " + choice.Name
			}

			registry := experiment.NewRegistry()
			integ, err := registry.GetIntegrator(lc.Integrator)
			if err != nil {
				return err
			}
			dyn, x0 := registry.Lorenz(cfg)
			if err := dyn.SetParam("rho", rho); err != nil {
				return err
			}
			return viz.RunLive(viz.NewModel(name, dyn, integ, x0, lc.Dt))
		},
	}
	addLorenzFlags(cmd)
	return cmd
}

func sweepCommand() *cobra.Command {
	var (
		param  string
		lo, hi float64
		count  int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one Lorenz parameter and report extent and stability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveLorenz(cmd)
			if err != nil {
				return err
			}
			results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
				Base:       cfg,
				ParamName:  param,
				ParamMin:   lo,
				ParamMax:   hi,
				NumSteps:   count,
				Integrator: cfg.Lorenz.Integrator,
			}, experiment.NewRegistry())
			if err != nil {
				return err
			}

			fmt.Println(viz.Header(fmt.Sprintf("sweep %s in [%g, %g]", param, lo, hi)))
			rows := make([][]string, len(results))
			extents := make([]float64, len(results))
			for i, r := range results {
				rows[i] = []string{
					fmt.Sprintf("%.4g", r.ParamValue),
					fmt.Sprintf("(%.3f, %.3f, %.3f)", r.FinalState[0], r.FinalState[1], r.FinalState[2]),
					fmt.Sprintf("%.4f", r.Extent),
					viz.ProgressBar(r.Stability, 20),
				}
				extents[i] = r.Extent
			}
			fmt.Println(viz.Table([]string{param, "final (x, y, z)", "extent", "stability"}, rows))
			fmt.Println(viz.SparklineChart(extents, 60))
			return nil
		},
	}
	addLorenzFlags(cmd)
	cmd.Flags().StringVar(&param, "param", "rho", "parameter to sweep")
	cmd.Flags().Float64Var(&lo, "min", 0, "first value")
	cmd.Flags().Float64Var(&hi, "max", 30, "last value")
	cmd.Flags().IntVar(&count, "count", 16, "number of values")
	return cmd
}

func monteCarloCommand() *cobra.Command {
	var (
		trials int
		pert   float64
		seed   int64
		tol    float64
	)

	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "perturb the Lorenz initial state and count diverging trials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveLorenz(cmd)
			if err != nil {
				return err
			}
			results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
				Base:         cfg,
				Integrator:   cfg.Lorenz.Integrator,
				Perturbation: pert,
				NumTrials:    trials,
				Seed:         seed,
			}, experiment.NewRegistry())
			if err != nil {
				return err
			}

			dists := make([]float64, len(results))
			for i, r := range results {
				dists[i] = r.Distance
			}
			near, diverged := automation.MonteCarloStats(results, tol)

			fmt.Println(viz.Header(fmt.Sprintf("monte carlo  rho=%g  trials=%d  perturbation=%g", cfg.Lorenz.Rho, trials, pert)))
			fmt.Println(viz.Metric("within tolerance", near))
			fmt.Println(viz.Metric("diverged", diverged))
			fmt.Println(viz.LinePlot(dists, "final distance from the unperturbed run"))
			return nil
		},
	}
	addLorenzFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	cmd.Flags().Float64Var(&pert, "perturbation", 1e-3, "uniform perturbation bound")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&tol, "tol", 1, "distance counted as diverged")
	return cmd
}
