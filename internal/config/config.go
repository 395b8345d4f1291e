package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/physics"
)

const (
	DefaultProblem   = "rational_exp"
	DefaultX0        = 1.0
	DefaultY0        = 5.0
	DefaultH         = 0.02
	DefaultN         = 500
	DefaultTolerance = 1e-10
	DefaultPrint     = 5

	DefaultLorenzDt    = 0.01
	DefaultLorenzSteps = 10000
)

var ErrInvalid = errors.New("config: invalid")

// Config is one run file.
type Config struct {
	Problem        string  `yaml:"problem"`
	Integrator     string  `yaml:"integrator"`
	X0             float64 `yaml:"x0"`
	Y0             float64 `yaml:"y0"`
	H              float64 `yaml:"h"`
	N              int     `yaml:"n"`
	SeedConvention string  `yaml:"seed_convention"`
	Reference      string  `yaml:"reference"`
	Tolerance      float64 `yaml:"tolerance"`
	Print          int     `yaml:"print"`

	Lorenz  LorenzConfig    `yaml:"lorenz"`
	Thermal physics.Thermal `yaml:"thermal"`
}

type LorenzConfig struct {
	Sigma      float64   `yaml:"sigma"`
	Rho        float64   `yaml:"rho"`
	Beta       float64   `yaml:"beta"`
	Dt         float64   `yaml:"dt"`
	Steps      int       `yaml:"steps"`
	Init       []float64 `yaml:"init"`
	Integrator string    `yaml:"integrator"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem:        DefaultProblem,
		Integrator:     "rk4",
		X0:             DefaultX0,
		Y0:             DefaultY0,
		H:              DefaultH,
		N:              DefaultN,
		SeedConvention: dynamo.IncludeSeed.String(),
		Reference:      "adaptive",
		Tolerance:      DefaultTolerance,
		Print:          DefaultPrint,
		Lorenz:         DefaultLorenz(),
		Thermal:        *physics.NewThermal(),
	}
}

func DefaultLorenz() LorenzConfig {
	return LorenzConfig{
		Sigma:      physics.LorenzSigma,
		Rho:        physics.LorenzRho,
		Beta:       physics.LorenzBeta,
		Dt:         DefaultLorenzDt,
		Steps:      DefaultLorenzSteps,
		Init:       []float64{0, 1, 1.05},
		Integrator: "euler",
	}
}

// ForProblem starts from the defaults with the seed and grid of p.
func ForProblem(p physics.Problem) *Config {
	cfg := DefaultConfig()
	cfg.Problem = p.Name
	cfg.X0, cfg.Y0, cfg.H, cfg.N = p.X0, p.Y0, p.H, p.N
	return cfg
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base, so fields the file omits keep
// the values of base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Convention parses SeedConvention.
func (c *Config) Convention() (dynamo.SeedConvention, error) {
	conv, ok := dynamo.ParseSeedConvention(c.SeedConvention)
	if !ok {
		return conv, fmt.Errorf("%w: seed_convention %q", ErrInvalid, c.SeedConvention)
	}
	return conv, nil
}

// Validate checks field ranges. Names are resolved by the experiment registry.
func (c *Config) Validate() error {
	if c.Problem == "" {
		return fmt.Errorf("%w: problem is required", ErrInvalid)
	}
	if c.H == 0 || math.IsNaN(c.H) || math.IsInf(c.H, 0) {
		return fmt.Errorf("%w: h must be nonzero and finite, got %v", ErrInvalid, c.H)
	}
	if c.N <= 0 {
		return fmt.Errorf("%w: n must be positive, got %d", ErrInvalid, c.N)
	}
	if _, err := c.Convention(); err != nil {
		return err
	}
	switch c.Reference {
	case "", "adaptive", "exact", "none":
	default:
		return fmt.Errorf("%w: reference %q", ErrInvalid, c.Reference)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative", ErrInvalid)
	}
	if c.Lorenz.Dt <= 0 || c.Lorenz.Steps <= 0 {
		return fmt.Errorf("%w: lorenz dt and steps must be positive", ErrInvalid)
	}
	if len(c.Lorenz.Init) != 3 {
		return fmt.Errorf("%w: lorenz init needs 3 components, got %d", ErrInvalid, len(c.Lorenz.Init))
	}
	if err := c.Thermal.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Lorenz.Init = append([]float64(nil), c.Lorenz.Init...)
	return &cp
}
