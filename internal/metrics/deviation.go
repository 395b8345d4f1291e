package metrics

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Deviation is the largest |x[component] - exact(t)| seen over a run.
type Deviation struct {
	name      string
	component int
	exact     func(t float64) float64
	maxDev    float64
	samples   int
}

func NewDeviation(name string, component int, exact func(t float64) float64) *Deviation {
	return &Deviation{name: name, component: component, exact: exact}
}

func (d *Deviation) Name() string { return d.name }

func (d *Deviation) Observe(x dynamo.State, t float64) {
	if d.component >= len(x) {
		return
	}
	d.samples++
	dev := math.Abs(x[d.component] - d.exact(t))
	if dev > d.maxDev || math.IsNaN(dev) {
		d.maxDev = dev
	}
}

func (d *Deviation) Value() float64 { return d.maxDev }

func (d *Deviation) Samples() int { return d.samples }

func (d *Deviation) Reset() {
	d.maxDev = 0
	d.samples = 0
}
