package mcmc

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// LogDensity returns the unnormalized log posterior density of x. It
// returns -Inf outside of the support and must not modify x.
type LogDensity func(x []float64) float64

// ConditionalSampler draws a new value of one coordinate given the
// current values of all the others. x is the full current state; the
// sampler must not modify it and must ignore its own coordinate.
type ConditionalSampler func(rng *rand.Rand, x []float64) (float64, error)

// Target is a posterior distribution known up to a constant.
type Target struct {
	// Names are the parameter names.
	Names []string
	// LogDensity is the joint log density.
	LogDensity LogDensity
	// Conditionals are the full conditional samplers, one per
	// coordinate, only used by Gibbs.
	Conditionals []ConditionalSampler
}

// NewTarget creates a target with the given log density and default
// parameter names.
func NewTarget(dim int, f LogDensity) *Target {
	names := make([]string, dim)
	for i := range names {
		names[i] = "x" + strconv.Itoa(i)
	}
	return &Target{
		Names:      names,
		LogDensity: f,
	}
}

// Dim returns the number of parameters.
func (t *Target) Dim() int {
	return len(t.Names)
}

// checkState checks dimension and support of a starting point.
func (t *Target) checkState(x []float64) (l float64, err error) {
	if len(x) != t.Dim() {
		return 0, fmt.Errorf("state has %d values, target has %d parameters: %w",
			len(x), t.Dim(), ErrInvalidInitialState)
	}
	if t.LogDensity == nil {
		return math.NaN(), nil
	}
	l = t.LogDensity(x)
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return l, fmt.Errorf("log density at %v is %v: %w", Vector(x), l, ErrInvalidInitialState)
	}
	return l, nil
}

// DomainError is returned by conditional samplers given values out of
// their support.
func DomainError(name string, v float64) error {
	return fmt.Errorf("%s=%v: %w", name, v, ErrDomain)
}
