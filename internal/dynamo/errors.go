package dynamo

import (
	"errors"
	"fmt"
)

// Precondition errors reported by drivers. A caller receiving one of these
// should abort the operation (event) that requested the advance.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNegativeStep indicates a negative requested arc length.
	ErrNegativeStep = errors.New("dynamo: requested step length is negative")

	// ErrZeroMomentum indicates a track whose momentum direction is undefined.
	ErrZeroMomentum = errors.New("dynamo: momentum magnitude is zero")

	// ErrDimensionMismatch indicates a stepper and equation configured with
	// incompatible numbers of variables.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and stepper")
)

// AdvanceError wraps a precondition error with the advance request context.
type AdvanceError struct {
	Step        int
	CurveLength float64
	Requested   float64
	Wrapped     error
}

func (e *AdvanceError) Error() string {
	return fmt.Sprintf("step %d (s=%.6g, requested %.6g): %s", e.Step, e.CurveLength, e.Requested, e.Wrapped)
}

func (e *AdvanceError) Unwrap() error {
	return e.Wrapped
}
