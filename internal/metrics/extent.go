package metrics

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Extent tracks the per-component bounding box of a run. Its value is the
// widest component range, the attractor size for the Lorenz runs.
type Extent struct {
	min, max dynamo.State
}

func NewExtent() *Extent { return &Extent{} }

func (e *Extent) Name() string { return "extent" }

func (e *Extent) Observe(x dynamo.State, t float64) {
	if e.min == nil {
		e.min = x.Clone()
		e.max = x.Clone()
		return
	}
	for i, v := range x {
		if i >= len(e.min) {
			break
		}
		e.min[i] = math.Min(e.min[i], v)
		e.max[i] = math.Max(e.max[i], v)
	}
}

func (e *Extent) Value() float64 {
	widest := 0.0
	for i := range e.min {
		widest = math.Max(widest, e.max[i]-e.min[i])
	}
	return widest
}

// Bounds returns copies of the componentwise minimum and maximum.
func (e *Extent) Bounds() (dynamo.State, dynamo.State) {
	return e.min.Clone(), e.max.Clone()
}

func (e *Extent) Reset() {
	e.min, e.max = nil, nil
}
