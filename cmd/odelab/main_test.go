package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/san-kum/odelab/internal/dynamo"
)

func TestPrintRowIndices(t *testing.T) {
	tests := []struct {
		n, k int
		want []int
	}{
		{10, 3, []int{0, 1, 2, 9}},
		{3, 5, []int{0, 1, 2}},
		{4, 0, []int{0, 1, 2, 3}},
		{5, 5, []int{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		if got := printRowIndices(tt.n, tt.k); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("printRowIndices(%d, %d) = %v, want %v", tt.n, tt.k, got, tt.want)
		}
	}
}

func TestResolveConfigPresetAndFlags(t *testing.T) {
	t.Cleanup(func() { presetName = "" })

	cmd := runCommand()
	if err := cmd.Flags().Set("preset", "scenario"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("n", "7"); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(cmd, []string{"linear"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Problem != "linear" || cfg.H != 0.1 || cfg.N != 7 {
		t.Errorf("got problem=%s h=%v n=%d", cfg.Problem, cfg.H, cfg.N)
	}
}

func TestResolveConfigProblemDefaults(t *testing.T) {
	cfg, err := resolveConfig(runCommand(), []string{"linear"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.X0 != 0 || cfg.Y0 != 1 || cfg.H != 0.1 || cfg.N != 5 {
		t.Errorf("linear defaults not applied: %+v", cfg)
	}
}

func TestResolveConfigFileOverPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("h: 0.05\nreference: exact\n"), 0644); err != nil {
		t.Fatal(err)
	}
	configFile = path
	t.Cleanup(func() { configFile, presetName = "", "" })

	cmd := runCommand()
	if err := cmd.Flags().Set("preset", "scenario"); err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveConfig(cmd, []string{"linear"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.H != 0.05 || cfg.N != 5 || cfg.Reference != "exact" {
		t.Errorf("got h=%v n=%d reference=%s", cfg.H, cfg.N, cfg.Reference)
	}
}

func TestResolveConfigErrors(t *testing.T) {
	if _, err := resolveConfig(runCommand(), []string{"nope"}); err == nil {
		t.Error("expected error for unknown problem")
	}

	t.Cleanup(func() { presetName = "" })
	cmd := runCommand()
	if err := cmd.Flags().Set("preset", "missing"); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(cmd, []string{"linear"}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestFormatMetrics(t *testing.T) {
	got := formatMetrics(map[string]float64{"stability": 1, "extent": 42.5})
	if got != "extent=42.5 stability=1" {
		t.Errorf("got %q", got)
	}
	if formatMetrics(nil) != "" {
		t.Error("empty metrics should format as an empty string")
	}
}

func TestResolveLorenzRejectsPairedIntegrators(t *testing.T) {
	cmd := lorenzCommand()
	if err := cmd.Flags().Set("integrator", "verlet"); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveLorenz(cmd); !errors.Is(err, dynamo.ErrStateLayout) {
		t.Errorf("--integrator verlet: expected ErrStateLayout, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "lorenz.yaml")
	if err := os.WriteFile(path, []byte("lorenz:\n  integrator: leapfrog\n"), 0644); err != nil {
		t.Fatal(err)
	}
	configFile = path
	t.Cleanup(func() { configFile = "" })

	if _, err := resolveLorenz(lorenzCommand()); !errors.Is(err, dynamo.ErrStateLayout) {
		t.Errorf("lorenz.integrator: leapfrog: expected ErrStateLayout, got %v", err)
	}

	cmd = lorenzCommand()
	if err := cmd.Flags().Set("integrator", "rk4"); err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveLorenz(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Lorenz.Integrator != "rk4" {
		t.Errorf("got integrator %s", cfg.Lorenz.Integrator)
	}
}
