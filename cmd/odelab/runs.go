package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/export"
	"github.com/san-kum/odelab/internal/storage"
	"github.com/san-kum/odelab/internal/viz"
)

// storedRun is a run read back from the data directory. Exactly one of
// traj and states is set, depending on the run kind.
type storedRun struct {
	meta   *storage.RunMetadata
	traj   dynamo.Trajectory
	cmp    *analysis.Comparison
	states []dynamo.State
	times  []float64
}

func loadRun(runID string) (*storedRun, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return nil, err
	}
	run := &storedRun{meta: meta}

	if meta.Kind == storage.KindSystem {
		run.states, run.times, err = st.LoadStates(runID)
		if err != nil {
			return nil, err
		}
		if len(run.states) == 0 {
			return nil, fmt.Errorf("%s: no states stored", runID)
		}
		return run, nil
	}

	traj, ref, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, err
	}
	if len(traj) == 0 {
		return nil, fmt.Errorf("%s: no points stored", runID)
	}
	run.traj = traj
	if ref != nil {
		run.cmp, err = analysis.Compare(traj, traj.Xs(), ref)
		if err != nil {
			return nil, err
		}
	}
	return run, nil
}

func (r *storedRun) component(i int) []float64 {
	res := dynamo.Result{States: r.states, Times: r.times}
	return res.Component(i)
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tPROBLEM\tTIME\tINTEG\tH\tPOINTS\tMAX ABS")
			for _, run := range runs {
				maxAbs := "-"
				if run.Reference != "" && run.Reference != "none" {
					maxAbs = fmt.Sprintf("%.3e", run.MaxAbs)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.6g\t%d\t%s\n",
					run.ID,
					run.Kind,
					run.Problem,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Integrator,
					run.H,
					run.Points,
					maxAbs,
				)
			}
			return w.Flush()
		},
	}
}

func plotCommand() *cobra.Command {
	var pngPath string

	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			meta := run.meta
			fmt.Println(viz.Header(fmt.Sprintf("%s  %s [%s]", meta.ID, meta.Problem, meta.Integrator)))

			if meta.Kind == storage.KindSystem {
				comps := make([][]float64, 0, 3)
				for i := 0; i < len(run.states[0]) && i < 3; i++ {
					comps = append(comps, run.component(i))
				}
				fmt.Println(viz.MultiPlot("state components", comps...))
				if pngPath == "" {
					return nil
				}
				series := make([]export.Series, len(comps))
				for i, c := range comps {
					series[i] = export.Series{Label: fmt.Sprintf("x%d", i), Xs: run.times, Ys: c}
				}
				return writePNG(pngPath, export.DefaultFigure(meta.ID, "t", "state"), series...)
			}

			if run.cmp != nil {
				fmt.Println(viz.MultiPlot("y (approx, reference)", run.cmp.Approx, run.cmp.Reference))
				fmt.Println()
				fmt.Println(viz.LogPlot(run.cmp.AbsDiff, "|y - reference|"))
			} else {
				fmt.Println(viz.LinePlot(run.traj.Ys(), "y(x)"))
			}
			if pngPath == "" {
				return nil
			}
			fig := export.DefaultFigure(meta.ID, "x", "y")
			if run.cmp == nil {
				return writePNG(pngPath, fig, export.TrajectorySeries(meta.Integrator, run.traj))
			}
			if err := export.SavePNG(pngPath, func(w io.Writer) error {
				return export.ComparisonPNG(w, fig, run.cmp)
			}); err != nil {
				return err
			}
			fmt.Printf("chart: %s\n", pngPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "also write a PNG")
	return cmd
}

func renderCommand() *cobra.Command {
	var (
		width, height int
		rotX, rotY    float64
		svgPath       string
	)

	cmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "draw a stored run on a braille canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}

			canvas := viz.NewCanvas(width, height)
			var svg string
			if run.meta.Kind == storage.KindSystem {
				if len(run.states[0]) < 3 {
					return fmt.Errorf("render needs a 3D system, %s has %d components", run.meta.ID, len(run.states[0]))
				}
				cam := viz.NewCamera()
				cam.RotateX(rotX)
				cam.RotateY(rotY)
				viz.Render3D(canvas, viz.TrailWireframe(run.states, viz.LorenzPoint), cam)
				svg = export.CanvasToSVG(canvas, 4)
			} else {
				canvas.Polyline(run.traj.Xs(), run.traj.Ys())
				pw, ph := canvas.PixelSize()
				svg = export.TrajectorySVG(run.traj, pw*4, ph*4, "#00ff88")
			}
			fmt.Println(canvas.String())

			if svgPath == "" {
				return nil
			}
			if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("svg: %s\n", svgPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 70, "canvas width in cells")
	cmd.Flags().IntVar(&height, "height", 24, "canvas height in cells")
	cmd.Flags().Float64Var(&rotX, "rot-x", 0, "camera rotation about x (radians)")
	cmd.Flags().Float64Var(&rotY, "rot-y", 0, "camera rotation about y (radians)")
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write an SVG")
	return cmd
}

// output opens path, or stdout when path is empty or "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSVCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a stored run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			w, err := output(outPath)
			if err != nil {
				return err
			}

			if run.meta.Kind == storage.KindSystem {
				err = storage.WriteStatesCSV(w, &dynamo.Result{States: run.states, Times: run.times})
			} else {
				err = storage.WriteCSV(w, run.traj, run.cmp)
			}
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func exportJSONCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a stored scalar run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if run.meta.Kind != storage.KindScalar {
				return fmt.Errorf("%w: %s is %s, use export-csv", storage.ErrWrongKind, run.meta.ID, run.meta.Kind)
			}
			w, err := output(outPath)
			if err != nil {
				return err
			}

			err = storage.ExportJSON(w, *run.meta, run.traj, run.cmp)
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}
