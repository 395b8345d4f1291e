package analysis

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Regime labels the long-run behaviour implied by a Lyapunov exponent.
type Regime string

const (
	Chaotic  Regime = "chaotic"
	Marginal Regime = "marginal"
	Regular  Regime = "regular"
)

// LyapunovExponent estimates the largest Lyapunov exponent by following a
// companion trajectory displaced by perturbation and renormalising the
// separation back to perturbation after every step. A positive value
// indicates chaos.
//
// The two trajectories are stepped by separate integrators from newInteg so
// that scratch buffers are never shared.
func LyapunovExponent(
	dyn dynamo.System,
	newInteg func() dynamo.Integrator,
	x0 dynamo.State,
	dt float64,
	steps int,
	perturbation float64,
) float64 {
	if len(x0) == 0 || steps <= 0 || perturbation <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation

	a, b := newInteg(), newInteg()
	sumLog := 0.0
	t := 0.0

	for i := 0; i < steps; i++ {
		x = a.Step(dyn, x, t, dt)
		xp = b.Step(dyn, xp, t, dt)
		t = float64(i+1) * dt

		sep := xp.Sub(x).Norm()
		if sep == 0 || math.IsNaN(sep) || math.IsInf(sep, 0) {
			break
		}
		sumLog += math.Log(sep / perturbation)

		xp = x.Add(xp.Sub(x).Scale(perturbation / sep))
	}

	if t == 0 {
		return 0
	}
	return sumLog / t
}

// Classify maps an exponent to a regime; |lambda| <= tol is marginal.
func Classify(lambda, tol float64) Regime {
	switch {
	case lambda > tol:
		return Chaotic
	case lambda < -tol:
		return Regular
	}
	return Marginal
}
