package quadrature

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/interp"
)

var (
	ErrTooFewKnots    = errors.New("quadrature: spline needs at least four knots")
	ErrLengthMismatch = errors.New("quadrature: x and y lengths differ")
	ErrUnsortedKnots  = errors.New("quadrature: knots must be strictly increasing")
	ErrOutOfRange     = errors.New("quadrature: point outside spline range")
)

// Spline is a not-a-knot cubic interpolant.
type Spline struct {
	xs []float64
	ys []float64
	fn interp.NotAKnotCubic
}

func NewSpline(xs, ys []float64) (*Spline, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	if len(xs) < 4 {
		return nil, ErrTooFewKnots
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("%w at index %d", ErrUnsortedKnots, i)
		}
	}

	s := &Spline{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}
	if err := s.fn.Fit(s.xs, s.ys); err != nil {
		return nil, fmt.Errorf("quadrature: fit spline: %w", err)
	}
	return s, nil
}

func (s *Spline) Predict(x float64) float64 { return s.fn.Predict(x) }

// Domain returns the first and last knot.
func (s *Spline) Domain() (float64, float64) { return s.xs[0], s.xs[len(s.xs)-1] }

// Resample evaluates the spline at every point of xs, which must lie inside
// the knot range.
func (s *Spline) Resample(xs []float64) ([]float64, error) {
	lo, hi := s.Domain()
	out := make([]float64, len(xs))
	for i, x := range xs {
		if x < lo || x > hi {
			return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, x, lo, hi)
		}
		out[i] = s.fn.Predict(x)
	}
	return out, nil
}

// Integrate returns the integral over [a, b]. Each cubic piece is integrated
// with two-point Gauss-Legendre, which is exact for cubics.
func (s *Spline) Integrate(a, b float64) (float64, error) {
	if a == b {
		return 0, nil
	}
	sign := 1.0
	if a > b {
		a, b, sign = b, a, -1
	}
	lo, hi := s.Domain()
	if a < lo || b > hi {
		return 0, fmt.Errorf("%w: [%v, %v] not in [%v, %v]", ErrOutOfRange, a, b, lo, hi)
	}

	// first knot strictly above a
	i := sort.SearchFloat64s(s.xs, a)
	if i < len(s.xs) && s.xs[i] == a {
		i++
	}

	total := 0.0
	left := a
	for ; i < len(s.xs) && s.xs[i] < b; i++ {
		total += quad.Fixed(s.fn.Predict, left, s.xs[i], 2, nil, 0)
		left = s.xs[i]
	}
	total += quad.Fixed(s.fn.Predict, left, b, 2, nil, 0)

	return sign * total, nil
}

// DownloadReport totals a transfer from rate samples in MB/s taken once a
// minute.
type DownloadReport struct {
	TotalMB       float64
	TrapezoidMB   float64
	DifferenceMB  float64
	PeakRate      float64
	Minutes float64
}

// DownloadTotal integrates the spline of rates over the sampled minutes and
// converts to megabytes; the trapezoid rule on the raw samples is reported
// alongside as a cross-check.
func DownloadTotal(minutes, rates []float64) (*DownloadReport, error) {
	s, err := NewSpline(minutes, rates)
	if err != nil {
		return nil, err
	}
	lo, hi := s.Domain()
	area, err := s.Integrate(lo, hi)
	if err != nil {
		return nil, err
	}

	peak := math.Inf(-1)
	for _, r := range rates {
		peak = math.Max(peak, r)
	}

	rep := &DownloadReport{
		TotalMB:       area * 60,
		TrapezoidMB:   integrate.Trapezoidal(minutes, rates) * 60,
		PeakRate:      peak,
		Minutes: hi - lo,
	}
	rep.DifferenceMB = math.Abs(rep.TotalMB - rep.TrapezoidMB)
	return rep, nil
}

// InterpolationError fits a spline through the coarse samples, evaluates it
// on the fine grid and returns |fine - coarse| pointwise.
func InterpolationError(coarseXs, coarseYs, fineXs, fineYs []float64) ([]float64, error) {
	if len(fineXs) != len(fineYs) {
		return nil, fmt.Errorf("%w: fine grid %d vs %d", ErrLengthMismatch, len(fineXs), len(fineYs))
	}
	s, err := NewSpline(coarseXs, coarseYs)
	if err != nil {
		return nil, err
	}
	resampled, err := s.Resample(fineXs)
	if err != nil {
		return nil, err
	}
	for i := range resampled {
		resampled[i] = math.Abs(fineYs[i] - resampled[i])
	}
	return resampled, nil
}

// DownloadRates are the per-minute rates (MB/s) recorded over half an hour.
var DownloadRates = []float64{
	24.5, 23.0, 25.5, 22.8, 22.7, 25.2, 24.7, 23.9, 25.1, 25.2, 25.4,
	25.3, 24.8, 24.6, 25.7, 25.8, 25.9, 24.9, 25.3, 25.5, 24.8, 23.6,
	24.9, 25.1, 25.0, 25.2, 24.8, 24.2, 24.3, 25.4, 25.6,
}
