// Package laplace implements the Laplace approximation of a posterior:
// a normal distribution centered at the posterior mode with the
// covariance given by the inverse curvature of the log density.
package laplace

import (
	"fmt"
	"math"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/bsample/diagnostics"
	"bitbucket.org/Davydov/bsample/dist"
	"bitbucket.org/Davydov/bsample/mcmc"
)

// log is the global logging variable.
var log = logging.MustGetLogger("laplace")

// Method is the mode search method for multivariate targets.
type Method int

const (
	// BFGS is the gonum quasi-Newton method with numerical
	// gradients.
	BFGS Method = iota
	// NelderMead is the gonum downhill simplex, it does not use
	// gradients.
	NelderMead
	// LBFGSB is limited memory BFGS with box constraints; it
	// requires Bounds.
	LBFGSB
)

func (m Method) String() string {
	switch m {
	case BFGS:
		return "bfgs"
	case NelderMead:
		return "simplex"
	case LBFGSB:
		return "lbfgsb"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Settings control the mode search.
type Settings struct {
	// Method is the multivariate optimizer.
	Method Method
	// Bounds is the search region, one [min, max] pair per
	// parameter. Values outside have zero density.
	Bounds [][2]float64
	// MaxIter bounds the number of optimizer or bisection
	// iterations.
	MaxIter int
	// Tol is the relative tolerance for the univariate mode.
	Tol float64
	// Deriv is the closed form first derivative of a univariate
	// log density; finite differences are used if nil.
	Deriv func(float64) float64
	// Deriv2 is the closed form second derivative.
	Deriv2 func(float64) float64
}

// DefaultSettings returns default settings.
func DefaultSettings() *Settings {
	return &Settings{
		Method:  BFGS,
		MaxIter: 1000,
		Tol:     1e-10,
	}
}

// Approximation is a normal approximation of a posterior.
type Approximation struct {
	// Names are the parameter names.
	Names []string
	// Mode is the posterior mode.
	Mode []float64
	// LogDensity is the log density at the mode.
	LogDensity float64
	// Cov is the covariance matrix.
	Cov *mat.SymDense
	// SD are the approximate posterior standard deviations.
	SD []float64
}

// Interval returns the normal approximation credible interval for
// parameter i: mode ± z*sd.
func (a *Approximation) Interval(i int, level float64) (diagnostics.Interval, error) {
	if !(level > 0 && level < 1) {
		return diagnostics.Interval{}, fmt.Errorf("coverage should be in (0, 1), got %v", level)
	}
	if i < 0 || i >= len(a.Mode) {
		return diagnostics.Interval{}, fmt.Errorf("no parameter %d", i)
	}
	z := dist.QuantileNormal(1 - (1-level)/2)
	return diagnostics.Interval{
		Lower: a.Mode[i] - z*a.SD[i],
		Upper: a.Mode[i] + z*a.SD[i],
	}, nil
}

// Quantiler is a distribution with a known quantile function, e.g.
// distuv.Beta or distuv.Gamma.
type Quantiler interface {
	Quantile(p float64) float64
}

// Comparison holds approximate and exact intervals of one parameter.
type Comparison struct {
	Name        string               `json:"name"`
	Level       float64              `json:"level"`
	Approximate diagnostics.Interval `json:"approximate"`
	Exact       diagnostics.Interval `json:"exact"`
}

// Compare computes the approximate interval of parameter i together
// with the exact equal-tailed interval of the known posterior.
func Compare(a *Approximation, i int, exact Quantiler, level float64) (*Comparison, error) {
	approx, err := a.Interval(i, level)
	if err != nil {
		return nil, err
	}
	c := &Comparison{
		Level:       level,
		Approximate: approx,
		Exact: diagnostics.Interval{
			Lower: exact.Quantile((1 - level) / 2),
			Upper: exact.Quantile(1 - (1-level)/2),
		},
	}
	if i < len(a.Names) {
		c.Name = a.Names[i]
	}
	return c, nil
}

// failure creates an approximation failure error.
func failure(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), mcmc.ErrApproximationFailure)
}

// finite returns true if x is neither NaN nor infinite.
func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
