package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/experiment"
	"github.com/san-kum/odelab/internal/physics"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	presetName string

	logger = log.NewNopLogger()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "odelab",
		Short:         "numerical ODE coursework lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			dataDir = viper.GetString("data")
			configFile = viper.GetString("config")
			logger = newLogger(viper.GetBool("verbose"))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dataDir, "data", ".odelab", "data directory")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&configFile, "config", "", "run file (yaml)")
	for _, name := range []string{"data", "verbose", "config"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.SetEnvPrefix("odelab")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		runCommand(),
		convergeCommand(),
		tuneCommand(),
		presetsCommand(),
		scenarioCommand(),
		lorenzCommand(),
		liveCommand(),
		sweepCommand(),
		monteCarloCommand(),
		thermalCommand(),
		greensCommand(),
		taylorCommand(),
		seriesCommand(),
		riemannCommand(),
		downloadCommand(),
		queueCommand(),
		mm1Command(),
		degradationCommand(),
		fragmentCommand(),
		listCommand(),
		plotCommand(),
		renderCommand(),
		exportCSVCommand(),
		exportJSONCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	allow := level.AllowInfo()
	if debug {
		allow = level.AllowDebug()
	}
	return level.NewFilter(l, allow)
}

func newExperiment() *experiment.Experiment {
	return experiment.New(experiment.NewRegistry(), logger)
}

// resolveConfig layers defaults, the problem's own grid, a preset, the run
// file and finally any flag the user set.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	registry := experiment.NewRegistry()
	cfg := config.DefaultConfig()

	if len(args) > 0 {
		p, err := registry.GetProblem(args[0], cfg)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, registry.ListProblems())
		}
		cfg = config.ForProblem(p)
	}

	if presetName != "" {
		pc := config.GetPreset(cfg.Problem, presetName)
		if pc == nil {
			return nil, fmt.Errorf("unknown preset %q for %s (available: %v)",
				presetName, cfg.Problem, config.ListPresets(cfg.Problem))
		}
		cfg = pc
	}

	if configFile != "" {
		fc, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fc
		if len(args) > 0 {
			cfg.Problem = args[0]
		}
	}

	applyRunFlags(cmd, cfg)
	return cfg, nil
}

// Flag values shared by the scalar run commands.
var (
	x0, y0, stepH, tolerance float64
	numPoints, printRows     int
	integratorName           string
	referenceName            string
	seedConvention           string
)

func addRunFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.Float64Var(&x0, "x0", d.X0, "initial abscissa")
	f.Float64Var(&y0, "y0", d.Y0, "initial value")
	f.Float64Var(&stepH, "h", d.H, "step size")
	f.IntVar(&numPoints, "n", d.N, "number of points")
	f.StringVar(&integratorName, "integrator", d.Integrator, "integrator (rk4, euler, rk45)")
	f.StringVar(&referenceName, "reference", d.Reference, "reference solution (adaptive, exact, none)")
	f.StringVar(&seedConvention, "seed", d.SeedConvention, "seed convention (include, exclude)")
	f.Float64Var(&tolerance, "tol", d.Tolerance, "adaptive reference tolerance")
	f.IntVar(&printRows, "print", d.Print, "rows to print")
	f.StringVar(&presetName, "preset", "", "use preset configuration")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("x0") {
		cfg.X0 = x0
	}
	if f.Changed("y0") {
		cfg.Y0 = y0
	}
	if f.Changed("h") {
		cfg.H = stepH
	}
	if f.Changed("n") {
		cfg.N = numPoints
	}
	if f.Changed("integrator") {
		cfg.Integrator = integratorName
	}
	if f.Changed("reference") {
		cfg.Reference = referenceName
	}
	if f.Changed("seed") {
		cfg.SeedConvention = seedConvention
	}
	if f.Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if f.Changed("print") {
		cfg.Print = printRows
	}
}

// addThermalFlags binds the cpu_thermal coefficients to th.
func addThermalFlags(cmd *cobra.Command, th *physics.Thermal) {
	d := physics.NewThermal()
	f := cmd.Flags()
	f.Float64Var(&th.W, "workload", d.W, "workload W")
	f.Float64Var(&th.K, "heat", d.K, "heat constant k")
	f.Float64Var(&th.C, "cooling", d.C, "cooling constant c")
	f.Float64Var(&th.A, "ambient", d.A, "ambient temperature A")
	f.Float64Var(&th.F, "fan", d.F, "fan efficiency F")
}
