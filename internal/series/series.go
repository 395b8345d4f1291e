// Package series evaluates truncated Taylor and power series and the closed
// form curves that accompany them.
package series

import (
	"errors"
	"math"
)

// ErrTooShort is returned when a series is asked for fewer terms than its
// seed coefficients.
var ErrTooShort = errors.New("series: need at least two terms")

// Taylor is the polynomial sum Coeffs[i] (x - Center)^i.
type Taylor struct {
	Center float64
	Coeffs []float64
}

// FromDerivatives builds the Taylor polynomial whose k-th coefficient is
// derivs[k]/k!.
func FromDerivatives(center float64, derivs ...float64) Taylor {
	coeffs := make([]float64, len(derivs))
	fact := 1.0
	for k, d := range derivs {
		if k > 0 {
			fact *= float64(k)
		}
		coeffs[k] = d / fact
	}
	return Taylor{Center: center, Coeffs: coeffs}
}

// Eval uses Horner's scheme.
func (t Taylor) Eval(x float64) float64 {
	u := x - t.Center
	sum := 0.0
	for i := len(t.Coeffs) - 1; i >= 0; i-- {
		sum = sum*u + t.Coeffs[i]
	}
	return sum
}

func (t Taylor) EvalAll(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = t.Eval(x)
	}
	return ys
}

// Degree ignores trailing zero coefficients.
func (t Taylor) Degree() int {
	for i := len(t.Coeffs) - 1; i >= 0; i-- {
		if t.Coeffs[i] != 0 {
			return i
		}
	}
	return 0
}

// QuarticAtZero is 1 - x - x^3/3 - x^4/12.
func QuarticAtZero() Taylor {
	return Taylor{Center: 0, Coeffs: []float64{1, -1, 0, -1.0 / 3, -1.0 / 12}}
}

// QuadraticAtThree is the second-order polynomial about x = 3 for
// y(3) = 6, y'(3) = 1, y''(3) = -11.
func QuadraticAtThree() Taylor {
	return FromDerivatives(3, 6, 1, -11)
}

// PowerSeries returns coefficients a_0..a_n with a_i = -a_{i-2} / (4 i (i-1)).
func PowerSeries(a0, a1 float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, ErrTooShort
	}
	a := make([]float64, n+1)
	a[0], a[1] = a0, a1
	for i := 2; i <= n; i++ {
		a[i] = -a[i-2] / (4 * float64(i) * float64(i-1))
	}
	return a, nil
}

// Degradation is the data+I/O level of two coupled processors that both hold
// x0 at t = 1.
func Degradation(x0 float64) func(t float64) float64 {
	return func(t float64) float64 {
		return x0 * (-math.Exp(3*(t-1)/100) + 8*math.Exp(-(t-1)/25)) / 7
	}
}

// Sample evaluates f on xs.
func Sample(f func(float64) float64, xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = f(x)
	}
	return ys
}
