package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/automation"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/experiment"
	"github.com/san-kum/odelab/internal/export"
	"github.com/san-kum/odelab/internal/optim"
	"github.com/san-kum/odelab/internal/storage"
	"github.com/san-kum/odelab/internal/viz"
)

func runCommand() *cobra.Command {
	var (
		save    bool
		pngPath string
		errPath string
	)

	cmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "integrate a problem and compare with a reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}

			out, runErr := newExperiment().Run(cmd.Context(), cfg)
			if out != nil {
				printOutcome(out, cfg.Print)
			}
			if runErr != nil {
				return runErr
			}

			if save {
				id, err := saveOutcome(cfg, out)
				if err != nil {
					return err
				}
				fmt.Printf("\nsaved: %s\n", id)
			}

			if pngPath != "" {
				fig := export.DefaultFigure(out.Problem, "x", "y")
				err := export.SavePNG(pngPath, func(w io.Writer) error {
					if out.Comparison == nil {
						return export.LinePNG(w, fig, export.TrajectorySeries(out.Integrator, out.Trajectory))
					}
					return export.ComparisonPNG(w, fig, out.Comparison)
				})
				if err != nil {
					return err
				}
				fmt.Printf("chart: %s\n", pngPath)
			}

			if errPath != "" {
				fig := export.DefaultFigure(out.Problem+" error", "x", "|y - reference|")
				if err := export.SavePNG(errPath, func(w io.Writer) error {
					return export.ErrorPNG(w, fig, out.Comparison)
				}); err != nil {
					return err
				}
				fmt.Printf("error chart: %s\n", errPath)
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "store the run in the data directory")
	cmd.Flags().StringVar(&pngPath, "png", "", "write the solution chart to this PNG")
	cmd.Flags().StringVar(&errPath, "error-png", "", "write the error chart to this PNG")
	return cmd
}

// printRowIndices picks the first k rows and the last one.
func printRowIndices(n, k int) []int {
	if k <= 0 || k > n {
		k = n
	}
	idx := make([]int, 0, k+1)
	for i := 0; i < k; i++ {
		idx = append(idx, i)
	}
	if k < n {
		idx = append(idx, n-1)
	}
	return idx
}

func printOutcome(out *experiment.Outcome, rows int) {
	traj := out.Trajectory
	cmp := out.Comparison

	fmt.Println(viz.Header(fmt.Sprintf("%s  [%s]", out.Problem, out.Integrator)))
	fmt.Println(viz.Metric("points", len(traj)))
	if len(traj) == 0 {
		return
	}

	headers := []string{"i", "x", "y"}
	if cmp != nil {
		headers = append(headers, "reference", "|diff|")
	}
	table := make([][]string, 0, rows+1)
	for _, i := range printRowIndices(len(traj), rows) {
		row := []string{strconv.Itoa(i), fmt.Sprintf("%.4f", traj[i].X), fmt.Sprintf("%.8f", traj[i].Y)}
		if cmp != nil {
			row = append(row, fmt.Sprintf("%.8f", cmp.Reference[i]), fmt.Sprintf("%.3e", cmp.AbsDiff[i]))
		}
		table = append(table, row)
	}
	fmt.Println(viz.Table(headers, table))

	if cmp != nil {
		fmt.Println(viz.Metric("max |diff|", fmt.Sprintf("%.3e at x=%.4f", cmp.MaxAbs, cmp.Xs[cmp.MaxAt])))
	}
	fmt.Println()
	if cmp != nil {
		fmt.Println(viz.MultiPlot("y (approx, reference)", cmp.Approx, cmp.Reference))
		fmt.Println()
		fmt.Println(viz.LogPlot(cmp.AbsDiff, "|y - reference|"))
	} else {
		fmt.Println(viz.LinePlot(traj.Ys(), "y(x)"))
	}
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func saveOutcome(cfg *config.Config, out *experiment.Outcome) (string, error) {
	st, err := openStore()
	if err != nil {
		return "", err
	}
	defer st.Close()

	meta := storage.RunMetadata{
		Problem:        out.Problem,
		Timestamp:      time.Now(),
		Integrator:     out.Integrator,
		SeedConvention: cfg.SeedConvention,
		Reference:      cfg.Reference,
		X0:             cfg.X0,
		Y0:             cfg.Y0,
		H:              cfg.H,
		N:              cfg.N,
	}
	return st.Save(meta, out.Trajectory, out.Comparison)
}

func convergeCommand() *cobra.Command {
	var (
		levels  int
		steps   []float64
		pngPath string
	)

	cmd := &cobra.Command{
		Use:   "converge [problem]",
		Short: "halve the step size and report the error ratios",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			exp := newExperiment()

			var report *analysis.ConvergenceReport
			if len(steps) > 0 {
				results, err := automation.StepSweep(cmd.Context(), cfg, steps, exp)
				if err != nil {
					return err
				}
				report = &analysis.ConvergenceReport{Levels: automation.Summarize(results)}
			} else {
				report, err = exp.Converge(cfg, levels)
				if err != nil {
					return err
				}
			}

			fmt.Println(viz.Header("convergence: " + cfg.Problem))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "H\tN\tMAX ERROR\tRATIO")
			errs := make([]float64, 0, len(report.Levels))
			hs := make([]float64, 0, len(report.Levels))
			for _, l := range report.Levels {
				ratio := "-"
				if l.Ratio > 0 {
					ratio = fmt.Sprintf("%.2f", l.Ratio)
				}
				fmt.Fprintf(w, "%.6g\t%d\t%.3e\t%s\n", l.H, l.N, l.MaxError, ratio)
				errs = append(errs, l.MaxError)
				hs = append(hs, l.H)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if report.ObservedOrder != 0 {
				fmt.Println(viz.Metric("observed order", report.ObservedOrder))
			}

			if pngPath != "" {
				fig := export.DefaultFigure("convergence: "+cfg.Problem, "h", "max error")
				fig.LogY = true
				if err := export.SavePNG(pngPath, func(w io.Writer) error {
					return export.LinePNG(w, fig, export.Series{Label: cfg.Integrator, Xs: hs, Ys: errs})
				}); err != nil {
					return err
				}
				fmt.Printf("chart: %s\n", pngPath)
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&levels, "levels", 4, "number of halvings")
	cmd.Flags().Float64SliceVar(&steps, "steps", nil, "explicit step sizes instead of halving")
	cmd.Flags().StringVar(&pngPath, "png", "", "write the error against h to this PNG")
	return cmd
}

func tuneCommand() *cobra.Command {
	var (
		steps  []float64
		budget float64
	)

	cmd := &cobra.Command{
		Use:   "tune [problem]",
		Short: "find the coarsest step whose error stays within a budget",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			if len(steps) == 0 {
				steps = []float64{cfg.H, cfg.H / 2, cfg.H / 4, cfg.H / 8, cfg.H / 16}
			}

			search, err := optim.NewGridSearch([]string{"h"}, [][]float64{steps})
			if err != nil {
				return err
			}
			best, n, err := search.Search(cmd.Context(), optim.ErrorBudget(newExperiment(), cfg, budget))
			if err != nil {
				return fmt.Errorf("no step in %v meets %.3e: %w", steps, budget, err)
			}

			fmt.Println(viz.Header("tune: " + cfg.Problem))
			fmt.Println(viz.Metric("budget", fmt.Sprintf("%.3e", budget)))
			fmt.Println(viz.Metric("h", best["h"]))
			fmt.Println(viz.Metric("points", int(n)))
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Float64SliceVar(&steps, "steps", nil, "candidate step sizes (default: h halved four times)")
	cmd.Flags().Float64Var(&budget, "budget", 1e-6, "largest acceptable difference from the reference")
	return cmd
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			problems := experiment.NewRegistry().ListProblems()
			if len(args) == 1 {
				problems = args
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROBLEM\tPRESET\tX0\tY0\tH\tN")
			for _, problem := range problems {
				for _, name := range config.ListPresets(problem) {
					p := config.GetPreset(problem, name)
					fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%.6g\t%d\n", problem, name, p.X0, p.Y0, p.H, p.N)
				}
			}
			w.Flush()
		},
	}
}

func scenarioCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every entry of a scenario file in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}

			fmt.Println(viz.Header("scenario: " + sc.Name))
			if sc.Description != "" {
				fmt.Println(viz.Subtle.Render(sc.Description))
			}

			outcomes, runErr := automation.RunScenario(cmd.Context(), sc, newExperiment(), logger)

			rows := make([][]string, 0, len(outcomes))
			for i, out := range outcomes {
				maxAbs := "-"
				if out.Comparison != nil {
					maxAbs = fmt.Sprintf("%.3e", out.Comparison.MaxAbs)
				}
				last, _ := out.Trajectory.Last()
				rows = append(rows, []string{
					strconv.Itoa(i + 1), out.Problem, out.Integrator,
					strconv.Itoa(len(out.Trajectory)), fmt.Sprintf("%.8f", last.Y), maxAbs,
				})

				if save {
					id, err := saveOutcome(sc.Runs[i], out)
					if err != nil {
						return err
					}
					rows[i] = append(rows[i], id)
				}
			}

			headers := []string{"#", "problem", "integrator", "points", "y(end)", "max |diff|"}
			if save {
				headers = append(headers, "run id")
			}
			fmt.Println(viz.Table(headers, rows))
			return runErr
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store every run")
	return cmd
}
