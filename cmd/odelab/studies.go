package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/experiment"
	"github.com/san-kum/odelab/internal/export"
	"github.com/san-kum/odelab/internal/fragsim"
	"github.com/san-kum/odelab/internal/integrators"
	"github.com/san-kum/odelab/internal/metrics"
	"github.com/san-kum/odelab/internal/physics"
	"github.com/san-kum/odelab/internal/quadrature"
	"github.com/san-kum/odelab/internal/queueing"
	"github.com/san-kum/odelab/internal/reference"
	"github.com/san-kum/odelab/internal/series"
	"github.com/san-kum/odelab/internal/viz"
)

// writePNG saves one chart and reports where it went.
func writePNG(path string, fig export.Figure, s ...export.Series) error {
	if path == "" {
		return nil
	}
	if err := export.SavePNG(path, func(w io.Writer) error {
		return export.LinePNG(w, fig, s...)
	}); err != nil {
		return err
	}
	fmt.Printf("chart: %s\n", path)
	return nil
}

func thermalCommand() *cobra.Command {
	var (
		th      physics.Thermal
		pngPath string
	)

	cmd := &cobra.Command{
		Use:   "thermal",
		Short: "CPU temperature on a coarse and a fine grid, with interpolation error",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := th.Validate(); err != nil {
				return err
			}
			exp := newExperiment()

			run := func(preset string) (dynamo.Trajectory, float64, error) {
				cfg := config.GetPreset("cpu_thermal", preset)
				cfg.Thermal = th
				cfg.Y0 = th.T0
				out, err := exp.Run(cmd.Context(), cfg)
				if err != nil {
					return nil, 0, fmt.Errorf("%s grid: %w", preset, err)
				}
				return out.Trajectory, out.Comparison.MaxAbs, nil
			}

			coarse, coarseErr, err := run("coarse")
			if err != nil {
				return err
			}
			fine, fineErr, err := run("fine")
			if err != nil {
				return err
			}
			interp, err := quadrature.InterpolationError(coarse.Xs(), coarse.Ys(), fine.Xs(), fine.Ys())
			if err != nil {
				return err
			}

			fmt.Println(viz.Header("cpu thermal model  dT/dt = k W^2 - c F (T - A)"))
			fmt.Println(viz.Metric("workload (W)", th.W))
			fmt.Println(viz.Metric("heat generation constant (k)", th.K))
			fmt.Println(viz.Metric("cooling efficiency (c)", th.C))
			fmt.Println(viz.Metric("ambient temperature (A)", th.A))
			fmt.Println(viz.Metric("cooling system efficiency (F)", th.F))
			fmt.Println(viz.Metric("equilibrium", th.Equilibrium()))
			fmt.Println()

			lastC, _ := coarse.Last()
			lastF, _ := fine.Last()
			maxInterp := 0.0
			for _, e := range interp {
				maxInterp = math.Max(maxInterp, e)
			}
			fmt.Println(viz.Table(
				[]string{"grid", "points", "T(end)", "max |rk4 - reference|"},
				[][]string{
					{"coarse", strconv.Itoa(len(coarse)), fmt.Sprintf("%.6f", lastC.Y), fmt.Sprintf("%.3e", coarseErr)},
					{"fine", strconv.Itoa(len(fine)), fmt.Sprintf("%.6f", lastF.Y), fmt.Sprintf("%.3e", fineErr)},
				},
			))
			fmt.Println(viz.Metric("max interpolation error", fmt.Sprintf("%.3e", maxInterp)))
			fmt.Println()
			fmt.Println(viz.LinePlot(fine.Ys(), "temperature (fine grid)"))
			fmt.Println()
			fmt.Println(viz.LogPlot(interp, "|fine - cubic(coarse)|"))

			return writePNG(pngPath, export.DefaultFigure("CPU temperature over time", "time (s)", "temperature (C)"),
				export.TrajectorySeries("coarse grid", coarse),
				export.TrajectorySeries("fine grid", fine),
			)
		},
	}
	addThermalFlags(cmd, &th)
	cmd.Flags().Float64Var(&th.T0, "t0", physics.NewThermal().T0, "initial temperature")
	cmd.Flags().StringVar(&pngPath, "png", "", "write both grids to this PNG")
	return cmd
}

func greensCommand() *cobra.Command {
	var (
		span    float64
		steps   int
		c1, c2  float64
		integ   string
		pngPath string
	)

	cmd := &cobra.Command{
		Use:   "greens",
		Short: "direct integration against Green's-function solutions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 || span <= 0 {
				return fmt.Errorf("span and steps must be positive")
			}
			cfg := dynamo.Config{Dt: span / float64(steps), Steps: steps, ValidateState: true}
			registry := experiment.NewRegistry()

			fmt.Println(viz.Header("Green's function comparison"))
			rows := make([][]string, 0, 2)
			var curves []export.Series
			for _, f := range []*physics.Forced{physics.RampForced(), physics.StepForced()} {
				dev := metrics.NewDeviation("green", 0, f.Green)
				stepper, err := registry.IntegratorFor(integ, f.StateDim())
				if err != nil {
					return err
				}
				sim := dynamo.New(f, stepper)
				sim.AddMetric(dev)
				res, err := sim.Run(cmd.Context(), dynamo.State{0, 0}, cfg)
				if err != nil {
					return fmt.Errorf("%s: %w", f.Name, err)
				}

				ys := res.Component(0)
				last := len(ys) - 1
				rows = append(rows, []string{
					f.Name,
					fmt.Sprintf("%.6f", ys[last]),
					fmt.Sprintf("%.6f", f.Green(res.Times[last])),
					fmt.Sprintf("%.3e", dev.Value()),
				})
				fmt.Printf("%s\n%s\n\n", f.Name, viz.MultiPlot(integ+" and Green's solution",
					ys, series.Sample(f.Green, res.Times)))

				hom := f.Homogeneous(c1, c2)
				curves = append(curves,
					export.Series{Label: f.Name + " (" + integ + ")", Xs: res.Times, Ys: ys},
					export.Series{Label: f.Name + " (Green)", Xs: res.Times, Ys: series.Sample(f.Green, res.Times)},
					export.Series{Label: fmt.Sprintf("%s homogeneous c1=%g c2=%g", f.Name, c1, c2), Xs: res.Times, Ys: series.Sample(hom, res.Times)},
				)
			}
			fmt.Println(viz.Table([]string{"equation", "y(end) " + integ, "y(end) Green", "max deviation"}, rows))

			return writePNG(pngPath, export.DefaultFigure("Direct integration and Green's method", "x", "y"), curves...)
		},
	}
	cmd.Flags().Float64Var(&span, "span", 10, "integrate over [0, span]")
	cmd.Flags().IntVar(&steps, "steps", 1000, "number of steps")
	cmd.Flags().Float64Var(&c1, "c1", 1, "homogeneous cos coefficient")
	cmd.Flags().Float64Var(&c2, "c2", 1, "homogeneous sin coefficient")
	cmd.Flags().StringVar(&integ, "integrator", "rk4", "integrator (euler, rk4, rk45, verlet, leapfrog)")
	cmd.Flags().StringVar(&pngPath, "png", "", "write every curve to this PNG")
	return cmd
}

func taylorCommand() *cobra.Command {
	var (
		at1, at2 float64
		pngPath  string
	)

	cmd := &cobra.Command{
		Use:   "taylor",
		Short: "evaluate the coursework Taylor polynomials",
		RunE: func(cmd *cobra.Command, args []string) error {
			quartic := series.QuarticAtZero()
			quadratic := series.QuadraticAtThree()

			fmt.Println(viz.Header("Taylor polynomials"))
			fmt.Printf("f(x) = 1 - x - x^3/3 - x^4/12         f(%g) = %.3f\n", at1, quartic.Eval(at1))
			fmt.Printf("y(x) = 6 + (x - 3) - 11/2 (x - 3)^2   y(%g) = %.3f\n\n", at2, quadratic.Eval(at2))

			xs1 := reference.Grid(-2, 7.0/399, 400)
			xs2 := reference.Grid(2, 2.0/399, 400)
			fmt.Println(viz.LinePlot(quartic.EvalAll(xs1), "degree 4 about x=0 on [-2, 5]"))
			fmt.Println()
			fmt.Println(viz.LinePlot(quadratic.EvalAll(xs2), "degree 2 about x=3 on [2, 4]"))

			return writePNG(pngPath, export.DefaultFigure("Taylor polynomials", "x", "f(x)"),
				export.Series{Label: "degree 4 about 0", Xs: xs1, Ys: quartic.EvalAll(xs1)},
				export.Series{Label: "degree 2 about 3", Xs: xs2, Ys: quadratic.EvalAll(xs2)},
			)
		},
	}
	cmd.Flags().Float64Var(&at1, "at", 3.5, "evaluation point of the quartic")
	cmd.Flags().Float64Var(&at2, "at2", 3.5, "evaluation point of the quadratic")
	cmd.Flags().StringVar(&pngPath, "png", "", "write both polynomials to this PNG")
	return cmd
}

func seriesCommand() *cobra.Command {
	var (
		a0, a1, at float64
		terms      int
		pngPath    string
	)

	cmd := &cobra.Command{
		Use:   "series",
		Short: "power series coefficients and the variable-coefficient equation",
		RunE: func(cmd *cobra.Command, args []string) error {
			coeffs, err := series.PowerSeries(a0, a1, terms)
			if err != nil {
				return err
			}
			poly := series.Taylor{Coeffs: coeffs}

			fmt.Println(viz.Header("power series  a_i = -a_{i-2} / (4 i (i-1))"))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "I\tA_I")
			for i, a := range coeffs {
				fmt.Fprintf(w, "%d\t%.8g\n", i, a)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Println(viz.Metric(fmt.Sprintf("y(%g)", at), poly.Eval(at)))
			fmt.Println()

			vc := physics.VariableCoefficient{}
			res, err := dynamo.New(vc, integrators.NewRK4()).Run(cmd.Context(), vc.DefaultState(),
				dynamo.Config{Dt: 10.0 / 99, Steps: 99, ValidateState: true})
			if err != nil {
				return err
			}
			ys := res.Component(0)
			fmt.Println(viz.Metric("y(10) of y'' = (x - (x^2+4) y)/(x^2+4)", ys[len(ys)-1]))
			fmt.Println(viz.LinePlot(ys, "y(x), y(0)=0, y'(0)=1"))

			return writePNG(pngPath, export.DefaultFigure("y'' = (x - (x^2+4) y)/(x^2+4)", "x", "y"),
				export.Series{Label: "rk4", Xs: res.Times, Ys: ys},
				export.Series{Label: "power series", Xs: res.Times, Ys: poly.EvalAll(res.Times)},
			)
		},
	}
	cmd.Flags().Float64Var(&a0, "a0", 1, "a_0 = y(0)")
	cmd.Flags().Float64Var(&a1, "a1", 0, "a_1 = y'(0)")
	cmd.Flags().IntVar(&terms, "terms", 8, "highest power")
	cmd.Flags().Float64Var(&at, "x", 0, "evaluation point")
	cmd.Flags().StringVar(&pngPath, "png", "", "write the solution to this PNG")
	return cmd
}

func riemannCommand() *cobra.Command {
	var (
		a, b float64
		n    int
		rule string
	)

	cmd := &cobra.Command{
		Use:   "riemann",
		Short: "left, right and midpoint sums of sin(x) + 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := func(x float64) float64 { return math.Sin(x) + 1 }
			exact := quadrature.Integral(f, a, b)

			fmt.Println(viz.Header(fmt.Sprintf("Riemann sums of sin(x) + 1 on [%.4f, %.4f], n=%d", a, b, n)))
			rows := make([][]string, 0, 3)
			for _, r := range []quadrature.Rule{quadrature.Left, quadrature.Right, quadrature.Midpoint} {
				sum, err := quadrature.Riemann(f, a, b, n, r)
				if err != nil {
					return err
				}
				rows = append(rows, []string{r.String(), fmt.Sprintf("%.6f", sum), fmt.Sprintf("%.3e", math.Abs(sum-exact))})
			}
			fmt.Println(viz.Table([]string{"rule", "sum", "|sum - integral|"}, rows))
			fmt.Println(viz.Metric("integral", exact))

			if rule == "" {
				return nil
			}
			r, err := quadrature.ParseRule(rule)
			if err != nil {
				return err
			}
			bars, err := quadrature.Partition(f, a, b, n, r)
			if err != nil {
				return err
			}
			fmt.Printf("\n%s bars\n", r)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FROM\tTO\tSAMPLE\tHEIGHT\tAREA")
			for _, bar := range bars {
				fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n", bar.X0, bar.X1, bar.Sample, bar.Height, bar.Area())
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&a, "a", -math.Pi, "lower limit")
	cmd.Flags().Float64Var(&b, "b", math.Pi, "upper limit")
	cmd.Flags().IntVar(&n, "n", 4, "subintervals")
	cmd.Flags().StringVar(&rule, "bars", "", "print the bars of one rule (left, right, midpoint)")
	return cmd
}

func downloadCommand() *cobra.Command {
	var pngPath string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "total a download from per-minute rate samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			rates := quadrature.DownloadRates
			minutes := reference.Grid(0, 1, len(rates))
			rep, err := quadrature.DownloadTotal(minutes, rates)
			if err != nil {
				return err
			}
			spline, err := quadrature.NewSpline(minutes, rates)
			if err != nil {
				return err
			}
			fine := reference.Grid(0, rep.Minutes/299, 300)
			curve, err := spline.Resample(fine)
			if err != nil {
				return err
			}

			fmt.Println(viz.Header(fmt.Sprintf("download over %g minutes", rep.Minutes)))
			fmt.Printf("Total data downloaded over %g minutes: %.2f MB\n", rep.Minutes, rep.TotalMB)
			fmt.Println(viz.Metric("trapezoid cross-check (MB)", fmt.Sprintf("%.2f", rep.TrapezoidMB)))
			fmt.Println(viz.Metric("difference (MB)", fmt.Sprintf("%.2e", rep.DifferenceMB)))
			fmt.Println(viz.Metric("peak rate (MB/s)", rep.PeakRate))
			fmt.Println()
			fmt.Println(viz.LinePlot(curve, "interpolated download rate (MB/s)"))

			return writePNG(pngPath, export.DefaultFigure("Download rate over time", "time (minutes)", "rate (MB/s)"),
				export.Series{Label: "interpolated", Xs: fine, Ys: curve},
				export.Series{Label: "recorded", Xs: minutes, Ys: rates},
			)
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "write the rate curve to this PNG")
	return cmd
}

func queueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "single-server queue over the sample observation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := queueing.Simulate(queueing.SampleArrivals, queueing.SampleServices)
			if err != nil {
				return err
			}
			sum, err := queueing.Summarize(cs)
			if err != nil {
				return err
			}

			fmt.Println(viz.Header("single-server FIFO queue"))
			rows := make([][]string, len(cs))
			inQueue := make([]float64, len(cs))
			for i, c := range cs {
				rows[i] = []string{
					strconv.Itoa(i + 1),
					fmt.Sprintf("%g", c.Arrival),
					fmt.Sprintf("%.2f", c.Service),
					fmt.Sprintf("%.2f", c.Start),
					fmt.Sprintf("%.2f", c.Exit),
					fmt.Sprintf("%.2f", c.Wait),
					strconv.Itoa(c.InQueue),
					strconv.Itoa(c.InSystem),
				}
				inQueue[i] = float64(c.InQueue)
			}
			fmt.Println(viz.Table([]string{"#", "arrival", "service", "start", "exit", "wait", "in queue", "in system"}, rows))
			fmt.Println(viz.Metric("L_q_A", queueing.Round4(sum.LqArrival)))
			fmt.Println(viz.Metric("L_q", queueing.Round4(sum.Lq)))
			fmt.Println(viz.Metric("mean wait", queueing.Round4(sum.MeanWait)))
			fmt.Println(viz.Metric("utilization", viz.ProgressBar(sum.Utilization, 30)))
			fmt.Println()
			fmt.Println(viz.LinePlot(inQueue, "number in queue at each arrival"))
			return nil
		},
	}
}

func mm1Command() *cobra.Command {
	var (
		lambda, mu float64
		maxK       int
	)

	cmd := &cobra.Command{
		Use:   "mm1",
		Short: "M/M/1 metrics as both rates scale by k",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks := make([]int, maxK)
			for i := range ks {
				ks[i] = i + 1
			}
			rows, err := queueing.MM1Scaling(lambda, mu, ks)
			if err != nil {
				return err
			}

			fmt.Println(viz.Header(fmt.Sprintf("M/M/1  lambda=%g  mu=%g", lambda, mu)))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "K\tRHO\tTHROUGHPUT\tE[N]\tE[T]")
			times := make([]float64, len(rows))
			for i, r := range rows {
				fmt.Fprintf(w, "%d\t%.4f\t%g\t%.4f\t%.4f\n", r.K, r.Utilization, r.Throughput, r.MeanInSystem, r.MeanTimeSystem)
				times[i] = r.MeanTimeSystem
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Println(viz.SparklineChart(times, 40))
			return nil
		},
	}
	cmd.Flags().Float64Var(&lambda, "lambda", 10, "arrival rate")
	cmd.Flags().Float64Var(&mu, "mu", 20, "service rate")
	cmd.Flags().IntVar(&maxK, "k", 10, "largest scale factor")
	return cmd
}

func degradationCommand() *cobra.Command {
	var (
		initial float64
		tMax    float64
		points  int
		pngPath string
	)

	cmd := &cobra.Command{
		Use:   "degradation",
		Short: "data + I/O held by two coupled processors over time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if points < 2 || tMax <= 0 {
				return fmt.Errorf("need at least two points over a positive span")
			}
			ts := reference.Grid(0, tMax/float64(points-1), points)
			xs := series.Sample(series.Degradation(initial), ts)

			fmt.Println(viz.Header(fmt.Sprintf("degradation from %g MB", initial)))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "T\tMB")
			for _, i := range printRowIndices(len(ts), 5) {
				fmt.Fprintf(w, "%.3f\t%.4f\n", ts[i], xs[i])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Println(viz.LinePlot(xs, "data + I/O in processors A and B (MB)"))

			return writePNG(pngPath, export.DefaultFigure("Data + I/O degradation", "time t", "MB"),
				export.Series{Label: "x(t)", Xs: ts, Ys: xs})
		},
	}
	cmd.Flags().Float64Var(&initial, "x0", 100, "MB held by each processor at t=1")
	cmd.Flags().Float64Var(&tMax, "t-max", 30, "end time")
	cmd.Flags().IntVar(&points, "points", 100, "number of samples")
	cmd.Flags().StringVar(&pngPath, "png", "", "write the curve to this PNG")
	return cmd
}

func fragmentCommand() *cobra.Command {
	var (
		cfg     = fragsim.DefaultConfig()
		model   string
		pngPath string
	)

	cmd := &cobra.Command{
		Use:   "fragment",
		Short: "simulate file-system fragmentation and defragmentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Model = fragsim.Model(model)
			res, err := fragsim.Run(cfg)
			if err != nil {
				return err
			}

			fmt.Println(viz.Header(fmt.Sprintf("fragmentation  model=%s steps=%d seed=%d", cfg.Model, cfg.Steps, cfg.Seed)))
			fmt.Println(viz.Table(
				[]string{"created", "deleted", "rejected", "critical steps", "defrags", "reassembly"},
				[][]string{{
					strconv.Itoa(res.Created), strconv.Itoa(res.Deleted), strconv.Itoa(res.Rejected),
					strconv.Itoa(res.CriticalSteps), strconv.Itoa(res.Defrags), fmt.Sprintf("%g", res.Reassembly),
				}},
			))
			fmt.Println(viz.MultiPlot("load, access and save time per step", res.Load, res.Access, res.Save))

			steps := reference.Grid(0, 1, len(res.Load))
			critical := make([]float64, len(steps))
			for i := range critical {
				critical[i] = cfg.Critical
			}
			return writePNG(pngPath, export.DefaultFigure("File system performance metrics", "step", "time"),
				export.Series{Label: "load", Xs: steps, Ys: res.Load},
				export.Series{Label: "access", Xs: steps, Ys: res.Access},
				export.Series{Label: "save", Xs: steps, Ys: res.Save},
				export.Series{Label: "critical", Xs: steps, Ys: critical},
			)
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Steps, "steps", cfg.Steps, "simulation steps")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.Float64Var(&cfg.Critical, "critical", cfg.Critical, "critical time threshold")
	f.IntVar(&cfg.DefragAfter, "defrag-after", cfg.DefragAfter, "critical steps before defragmenting")
	f.StringVar(&model, "model", string(cfg.Model), "fragmentation model (uniform, holes)")
	f.StringVar(&pngPath, "png", "", "write the time series to this PNG")
	return cmd
}
