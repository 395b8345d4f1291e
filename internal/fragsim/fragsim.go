// Package fragsim runs a seeded toy model of file-system fragmentation and
// the load, access and save latencies it causes.
package fragsim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Model selects how the fragmentation level of a step is produced.
type Model string

const (
	// Uniform draws each level independently from [0, 1).
	Uniform Model = "uniform"
	// Holes scales the uniform draw by the deletion holes accumulated since
	// the last defragmentation.
	Holes Model = "holes"
)

var ErrInvalidConfig = errors.New("fragsim: invalid config")

type Config struct {
	Capacity    float64 `yaml:"capacity"`
	SizeMean    float64 `yaml:"size_mean"`
	SizeStd     float64 `yaml:"size_std"`
	Critical    float64 `yaml:"critical"`
	CreateProb  float64 `yaml:"create_prob"`
	DeleteProb  float64 `yaml:"delete_prob"`
	Steps       int     `yaml:"steps"`
	Seed        int64   `yaml:"seed"`
	DefragAfter int     `yaml:"defrag_after"`
	DefragCost  float64 `yaml:"defrag_cost"`
	HoleWeight  float64 `yaml:"hole_weight"`
	Model       Model   `yaml:"model"`

	LoadScale   float64 `yaml:"load_scale"`
	AccessScale float64 `yaml:"access_scale"`
	SaveScale   float64 `yaml:"save_scale"`
}

func DefaultConfig() Config {
	return Config{
		Capacity:    10000,
		SizeMean:    50,
		SizeStd:     10,
		Critical:    2000,
		CreateProb:  0.5,
		DeleteProb:  0.5,
		Steps:       200,
		Seed:        1,
		DefragAfter: 10,
		DefragCost:  5,
		HoleWeight:  0.1,
		Model:       Holes,
		LoadScale:   1000,
		AccessScale: 1200,
		SaveScale:   800,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidConfig)
	case c.SizeMean <= 0 || c.SizeStd < 0:
		return fmt.Errorf("%w: file size distribution", ErrInvalidConfig)
	case c.Steps <= 0:
		return fmt.Errorf("%w: steps must be positive", ErrInvalidConfig)
	case c.CreateProb < 0 || c.CreateProb > 1 || c.DeleteProb < 0 || c.DeleteProb > 1:
		return fmt.Errorf("%w: probabilities must be in [0, 1]", ErrInvalidConfig)
	case c.DefragAfter <= 0:
		return fmt.Errorf("%w: defrag_after must be positive", ErrInvalidConfig)
	case c.Model != Uniform && c.Model != Holes:
		return fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, c.Model)
	}
	return nil
}

// Result holds per-step series and counters.
type Result struct {
	Level  []float64 `json:"level"`
	Load   []float64 `json:"load"`
	Access []float64 `json:"access"`
	Save   []float64 `json:"save"`
	Files  []int     `json:"files"`
	Used   []float64 `json:"used"`

	CriticalSteps int     `json:"critical_steps"`
	Defrags       int     `json:"defrags"`
	Reassembly    float64 `json:"reassembly"`
	Created       int     `json:"created"`
	Deleted       int     `json:"deleted"`
	Rejected      int     `json:"rejected"`
}

// Run simulates cfg.Steps steps. The same config always yields the same
// result.
func Run(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	drawSize := func() float64 {
		return math.Max(1, math.Trunc(rng.NormFloat64()*cfg.SizeStd+cfg.SizeMean))
	}

	// initial fill at one file per mean+std of capacity
	files := make([]float64, 0, int(cfg.Capacity/(cfg.SizeMean+cfg.SizeStd)))
	used := 0.0
	for i := 0; i < cap(files); i++ {
		s := drawSize()
		files = append(files, s)
		used += s
	}

	res := &Result{}
	holes := 0
	sinceDefrag := 0

	for step := 0; step < cfg.Steps; step++ {
		if rng.Float64() < cfg.CreateProb {
			s := drawSize()
			if used+s <= cfg.Capacity {
				files = append(files, s)
				used += s
				res.Created++
				if holes > 0 {
					holes--
				}
			} else {
				res.Rejected++
			}
		}

		if rng.Float64() < cfg.DeleteProb && len(files) > 0 {
			k := rng.Intn(len(files))
			used -= files[k]
			files = append(files[:k], files[k+1:]...)
			res.Deleted++
			holes++
		}

		level := rng.Float64()
		if cfg.Model == Holes {
			level *= 1 + cfg.HoleWeight*float64(holes)
		}

		load, access, save := level*cfg.LoadScale, level*cfg.AccessScale, level*cfg.SaveScale
		res.Level = append(res.Level, level)
		res.Load = append(res.Load, load)
		res.Access = append(res.Access, access)
		res.Save = append(res.Save, save)
		res.Files = append(res.Files, len(files))
		res.Used = append(res.Used, used)

		if load > cfg.Critical || access > cfg.Critical || save > cfg.Critical {
			res.CriticalSteps++
			sinceDefrag++
			if sinceDefrag >= cfg.DefragAfter {
				res.Defrags++
				res.Reassembly += cfg.DefragCost
				sinceDefrag = 0
				holes = 0
			}
		}
	}

	return res, nil
}
