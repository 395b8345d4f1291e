package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the Dormand-Prince 5(4) embedded pair with step-size control.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	// Tol is the relative tolerance Step uses for its internal substeps.
	Tol float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		Tol:      1e-6,
	}
}

// Step covers the whole interval [t, t+dt], subdividing it as the error
// control requires. It returns the last good state if the control gives up.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	budget := 10000
	newX, _, _ := r.advance(dyn, x, t, t+dt, dt, r.Tol, 1e-14, &budget)
	return newX
}

// StepAdaptive attempts one step of size dt. It always returns the attempted
// state and the suggested next step size; when the error estimate exceeds tol
// the step is reported as dynamo.ErrStepRejected and should be retried with the
// suggested size.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64, error) {
	n := len(x)

	k1 := dyn.Derive(x, t)

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := dyn.Derive(x2, t+a2*dt)

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := dyn.Derive(x3, t+a3*dt)

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := dyn.Derive(x4, t+a4*dt)

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := dyn.Derive(x5, t+a5*dt)

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := dyn.Derive(x6, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := dyn.Derive(xNew, t+dt)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	if math.IsNaN(errMax) || math.IsInf(errMax, 0) || !xNew.IsValid() {
		return xNew, dt * r.minScale, dynamo.ErrStepRejected
	}

	errRatio := errMax / tol

	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		return xNew, dt * scale, dynamo.ErrStepRejected
	}

	var dtNew float64
	if errRatio > 0 {
		scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
		dtNew = dt * scale
	} else {
		dtNew = dt * r.maxScale
	}

	return xNew, dtNew, nil
}

// advance integrates from t to tEnd, landing exactly on tEnd. h is the trial
// step and its sign is forced to point toward tEnd. budget counts attempted
// steps across calls.
func (r *RK45) advance(dyn dynamo.System, x dynamo.State, t, tEnd, h, tol, minStep float64, budget *int) (dynamo.State, float64, error) {
	dir := 1.0
	if tEnd < t {
		dir = -1.0
	}
	h = math.Abs(h) * dir
	if h == 0 {
		h = (tEnd - t)
	}

	for (tEnd-t)*dir > 0 {
		if *budget <= 0 {
			return x, h, fmt.Errorf("%w at t=%v", dynamo.ErrMaxSteps, t)
		}
		*budget--

		step, last := h, false
		if (t+h-tEnd)*dir >= 0 {
			step, last = tEnd-t, true
		}

		xNew, hNext, err := r.StepAdaptive(dyn, x, t, step, tol)
		if errors.Is(err, dynamo.ErrStepRejected) {
			if math.Abs(hNext) < minStep {
				return x, h, fmt.Errorf("%w at t=%v (h=%g)", dynamo.ErrStepTooSmall, t, hNext)
			}
			h = hNext
			continue
		}
		if err != nil {
			return x, h, err
		}

		x = xNew
		if last {
			t = tEnd
		} else {
			t += step
			h = hNext
		}
	}

	return x, h, nil
}

// Tolerances configure Solve.
type Tolerances struct {
	Rel         float64
	MinStep     float64
	MaxSteps    int
	InitialStep float64
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		Rel:      1e-10,
		MinStep:  1e-14,
		MaxSteps: 1_000_000,
	}
}

// Solve integrates dyn adaptively and reports the state at every abscissa of
// grid, which must be strictly monotone. The first state is x0 at grid[0].
// On failure the states reached so far are returned with the error.
func Solve(dyn dynamo.System, x0 dynamo.State, grid []float64, tol Tolerances) ([]dynamo.State, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: empty grid", dynamo.ErrInvalidStepCount)
	}
	if len(x0) != dyn.StateDim() {
		return nil, fmt.Errorf("%w: got %d, want %d", dynamo.ErrDimensionMismatch, len(x0), dyn.StateDim())
	}
	if !x0.IsValid() {
		return nil, dynamo.ErrInvalidInitialValue
	}
	if err := checkMonotone(grid); err != nil {
		return nil, err
	}

	def := DefaultTolerances()
	if tol.Rel <= 0 {
		tol.Rel = def.Rel
	}
	if tol.MinStep <= 0 {
		tol.MinStep = def.MinStep
	}
	if tol.MaxSteps <= 0 {
		tol.MaxSteps = def.MaxSteps
	}

	h := tol.InitialStep
	if h == 0 && len(grid) > 1 {
		h = (grid[1] - grid[0]) / 4
	}

	solver := NewRK45()
	budget := tol.MaxSteps
	out := make([]dynamo.State, 1, len(grid))
	out[0] = x0.Clone()

	x := x0.Clone()
	for i := 1; i < len(grid); i++ {
		var err error
		x, h, err = solver.advance(dyn, x, grid[i-1], grid[i], h, tol.Rel, tol.MinStep, &budget)
		if err != nil {
			return out, err
		}
		out = append(out, x.Clone())
	}

	return out, nil
}

func checkMonotone(grid []float64) error {
	if len(grid) < 2 {
		return nil
	}
	dir := grid[1] - grid[0]
	for i := 1; i < len(grid); i++ {
		d := grid[i] - grid[i-1]
		if d == 0 || (d > 0) != (dir > 0) || math.IsNaN(d) {
			return fmt.Errorf("%w: grid not strictly monotone at index %d", dynamo.ErrDomainMismatch, i)
		}
	}
	return nil
}
