package config

import "sort"

var Presets = map[string]map[string]*Config{
	"rational_exp": {
		"coursework": preset("rational_exp", 1, 5, 0.02, 500),
		"short":      preset("rational_exp", 1, 5, 0.02, 50),
		"coarse":     preset("rational_exp", 1, 5, 0.1, 100),
	},
	"linear": {
		"scenario": preset("linear", 0, 1, 0.1, 5),
		"unit":     preset("linear", 0, 1, 0.1, 11),
		"fine":     preset("linear", 0, 1, 0.025, 41),
	},
	"decay": {
		"unit": preset("decay", 0, 1, 0.1, 11),
		"long": preset("decay", 0, 1, 0.5, 41),
	},
	"cpu_thermal": {
		"coarse": preset("cpu_thermal", 0, 30, 10.0/99, 100),
		"fine":   preset("cpu_thermal", 0, 30, 10.0/999, 1000),
	},
}

func preset(problem string, x0, y0, h float64, n int) *Config {
	cfg := DefaultConfig()
	cfg.Problem = problem
	cfg.X0, cfg.Y0, cfg.H, cfg.N = x0, y0, h, n
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(problem, name string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
