package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for solver operations.
var (
	// ErrInvalidStepCount indicates a requested trajectory length below one.
	ErrInvalidStepCount = errors.New("dynamo: step count must be positive")

	// ErrInvalidStepSize indicates a zero or non-finite step size.
	ErrInvalidStepSize = errors.New("dynamo: step size must be nonzero and finite")

	// ErrInvalidInitialValue indicates a non-finite seed point.
	ErrInvalidInitialValue = errors.New("dynamo: initial value must be finite")

	// ErrNilDerivative indicates a missing right-hand side.
	ErrNilDerivative = errors.New("dynamo: derivative function is nil")

	// ErrNonFiniteDerivative indicates the derivative produced NaN or Inf.
	ErrNonFiniteDerivative = errors.New("dynamo: derivative evaluated to a non-finite value")

	// ErrDomainMismatch indicates a reference grid that does not line up with a trajectory.
	ErrDomainMismatch = errors.New("dynamo: reference grid does not match trajectory")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepRejected indicates an adaptive step whose error estimate exceeded tolerance.
	ErrStepRejected = errors.New("dynamo: adaptive step rejected")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrMaxSteps indicates an adaptive solve that exhausted its step budget.
	ErrMaxSteps = errors.New("dynamo: adaptive solver exceeded maximum steps")

	// ErrDimensionMismatch indicates mismatched state dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrStateLayout indicates an integrator that cannot step the system's state layout.
	ErrStateLayout = errors.New("dynamo: integrator needs a [positions, velocities] state")
)

// StepError wraps an error with the step at which it happened.
type StepError struct {
	Step    int
	X       float64
	Y       float64
	Stage   string
	Wrapped error
}

func (e *StepError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("step %d (x=%.4f): %v", e.Step, e.X, e.Wrapped)
	}
	return fmt.Sprintf("step %d (x=%.4f, %s): %v", e.Step, e.X, e.Stage, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
