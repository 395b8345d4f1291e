package quadrature

import (
	"errors"
	"math"
	"testing"
)

func TestRiemannSums(t *testing.T) {
	sinPlusOne := func(x float64) float64 { return math.Sin(x) + 1 }
	square := func(x float64) float64 { return x * x }

	tests := []struct {
		name string
		f    func(float64) float64
		a, b float64
		n    int
		rule Rule
		want float64
	}{
		{"sin+1 left", sinPlusOne, -math.Pi, math.Pi, 4, Left, 2 * math.Pi},
		{"sin+1 right", sinPlusOne, -math.Pi, math.Pi, 4, Right, 2 * math.Pi},
		{"sin+1 mid", sinPlusOne, -math.Pi, math.Pi, 4, Midpoint, 2 * math.Pi},
		{"x^2 left", square, 0, 1, 4, Left, 0.21875},
		{"x^2 right", square, 0, 1, 4, Right, 0.46875},
		{"x^2 mid", square, 0, 1, 4, Midpoint, 0.328125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Riemann(tt.f, tt.a, tt.b, tt.n, tt.rule)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRiemannConvergesToIntegral(t *testing.T) {
	f := func(x float64) float64 { return math.Exp(x) }
	exact := Integral(f, 0, 1)
	if math.Abs(exact-(math.E-1)) > 1e-12 {
		t.Fatalf("reference integral %v", exact)
	}

	mid, err := MidpointSum(f, 0, 1, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mid-exact) > 1e-6 {
		t.Errorf("midpoint sum %v far from %v", mid, exact)
	}

	left, _ := LeftSum(f, 0, 1, 1000)
	right, _ := RightSum(f, 0, 1, 1000)
	if !(left < exact && exact < right) {
		t.Errorf("increasing f should bracket the integral: %v %v %v", left, exact, right)
	}
}

func TestPartition(t *testing.T) {
	bars, err := Partition(func(x float64) float64 { return x }, 0, 2, 4, Midpoint)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars, got %d", len(bars))
	}
	if bars[1].X0 != 0.5 || bars[1].X1 != 1 || bars[1].Sample != 0.75 {
		t.Errorf("unexpected bar %+v", bars[1])
	}

	if _, err := Partition(math.Sin, 1, 0, 4, Left); !errors.Is(err, ErrInvalidPartition) {
		t.Errorf("expected ErrInvalidPartition, got %v", err)
	}
	if _, err := Partition(math.Sin, 0, 1, 4, Rule(9)); !errors.Is(err, ErrUnknownRule) {
		t.Errorf("expected ErrUnknownRule, got %v", err)
	}
}

func TestParseRule(t *testing.T) {
	for in, want := range map[string]Rule{"left": Left, "RIGHT": Right, "mid": Midpoint} {
		got, err := ParseRule(in)
		if err != nil || got != want {
			t.Errorf("ParseRule(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRule("simpson"); err == nil {
		t.Error("expected error")
	}
}

func TestSplineReproducesCubic(t *testing.T) {
	cubic := func(x float64) float64 { return x*x*x - 2*x + 1 }
	xs := []float64{0, 0.5, 1.25, 2, 3}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = cubic(x)
	}

	s, err := NewSpline(xs, ys)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float64{0.1, 1.7, 2.9} {
		if math.Abs(s.Predict(x)-cubic(x)) > 1e-9 {
			t.Errorf("Predict(%v) = %v, want %v", x, s.Predict(x), cubic(x))
		}
	}

	// integral of x^3 - 2x + 1 over [0.2, 2.6]
	antider := func(x float64) float64 { return x*x*x*x/4 - x*x + x }
	got, err := s.Integrate(0.2, 2.6)
	if err != nil {
		t.Fatal(err)
	}
	if want := antider(2.6) - antider(0.2); math.Abs(got-want) > 1e-9 {
		t.Errorf("Integrate = %v, want %v", got, want)
	}

	back, _ := s.Integrate(2.6, 0.2)
	if math.Abs(back+got) > 1e-12 {
		t.Errorf("reversed bounds should negate: %v vs %v", back, got)
	}

	if _, err := s.Integrate(-1, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSplineValidation(t *testing.T) {
	if _, err := NewSpline([]float64{0, 1, 2}, []float64{0, 1, 2}); !errors.Is(err, ErrTooFewKnots) {
		t.Errorf("expected ErrTooFewKnots, got %v", err)
	}
	if _, err := NewSpline([]float64{0, 1, 2, 3}, []float64{0, 1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := NewSpline([]float64{0, 2, 1, 3}, []float64{0, 1, 2, 3}); !errors.Is(err, ErrUnsortedKnots) {
		t.Errorf("expected ErrUnsortedKnots, got %v", err)
	}
}

func TestDownloadTotal(t *testing.T) {
	minutes := make([]float64, len(DownloadRates))
	for i := range minutes {
		minutes[i] = float64(i)
	}

	rep, err := DownloadTotal(minutes, DownloadRates)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rep.TrapezoidMB-44619) > 1e-6 {
		t.Errorf("trapezoid total %v, want 44619", rep.TrapezoidMB)
	}
	if rep.DifferenceMB/rep.TrapezoidMB > 0.01 {
		t.Errorf("spline total %v disagrees with trapezoid %v", rep.TotalMB, rep.TrapezoidMB)
	}
	if rep.Minutes != 30 || rep.PeakRate != 25.9 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestInterpolationError(t *testing.T) {
	coarse := make([]float64, 11)
	for i := range coarse {
		coarse[i] = float64(i) / 10
	}
	fine := make([]float64, 101)
	for i := range fine {
		fine[i] = float64(i) / 100
	}

	errs, err := InterpolationError(coarse, sample(math.Exp, coarse), fine, sample(math.Exp, fine))
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range errs {
		if e > 5e-5 {
			t.Errorf("x=%v: interpolation error %v", fine[i], e)
		}
	}

	if _, err := InterpolationError(coarse, sample(math.Exp, coarse), []float64{2}, []float64{0}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func sample(f func(float64) float64, xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = f(x)
	}
	return ys
}
