package mcmc

import (
	"errors"
	"fmt"
)

// Error kinds reported by the samplers, the Laplace approximation and
// the chain diagnostics. Use errors.Is to test for them.
var (
	// ErrInvalidInitialState is returned if the starting point lies
	// outside the support of the target or of one of its conditionals.
	ErrInvalidInitialState = errors.New("invalid initial state")
	// ErrDomain is returned if a log-density or a conditional
	// sampler receives an out-of-support input in the middle of a
	// chain, or produces NaN.
	ErrDomain = errors.New("domain error")
	// ErrApproximationFailure is returned if the Laplace mode is not
	// a maximum or the mode search did not converge.
	ErrApproximationFailure = errors.New("approximation failure")
	// ErrInsufficientSamples is returned if burn-in removes the whole
	// chain or too few draws are left for a summary.
	ErrInsufficientSamples = errors.New("insufficient samples")
)

// SampleError describes a failed sampling step.
type SampleError struct {
	// Kind is one of the Err* values above.
	Kind error
	// Iter is the iteration which failed.
	Iter int
	// Coord is the coordinate being updated, -1 for block updates.
	Coord int
	// Err is the underlying cause, may be nil.
	Err error
}

func (e *SampleError) Error() string {
	s := fmt.Sprintf("%v at iteration %d", e.Kind, e.Iter)
	if e.Coord >= 0 {
		s += fmt.Sprintf(", coordinate %d", e.Coord)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap makes both the kind and the cause visible to errors.Is.
func (e *SampleError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// stepError creates a sampling error for iteration iter; failures
// before the first full sweep are blamed on the initial state.
func stepError(iter, coord int, err error) error {
	kind := ErrDomain
	if iter == 0 {
		kind = ErrInvalidInitialState
	}
	return &SampleError{Kind: kind, Iter: iter, Coord: coord, Err: err}
}
