package laplace

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"bitbucket.org/Davydov/bsample/mcmc"
)

// inBounds returns false if x is outside of bounds.
func inBounds(x []float64, bounds [][2]float64) bool {
	for i, b := range bounds {
		if x[i] < b[0] || x[i] > b[1] {
			return false
		}
	}
	return true
}

// negative returns the function minimized by the optimizers: minus
// log density, +Inf outside of bounds or support.
func negative(t *mcmc.Target, bounds [][2]float64) func([]float64) float64 {
	return func(x []float64) float64 {
		if bounds != nil && !inBounds(x, bounds) {
			return math.Inf(+1)
		}
		l := t.LogDensity(x)
		if math.IsNaN(l) {
			return math.Inf(+1)
		}
		return -l
	}
}

// Approximate computes the Laplace approximation of the target
// starting the mode search at x0.
func Approximate(t *mcmc.Target, x0 []float64, s *Settings) (*Approximation, error) {
	if s == nil {
		s = DefaultSettings()
	}
	if t.LogDensity == nil {
		return nil, errors.New("target has no log density")
	}
	if len(x0) != t.Dim() {
		return nil, failure("starting point has %d values, target has %d parameters", len(x0), t.Dim())
	}
	if s.Bounds != nil && len(s.Bounds) != t.Dim() {
		return nil, failure("%d bounds for %d parameters", len(s.Bounds), t.Dim())
	}
	if l := t.LogDensity(x0); !finite(l) {
		return nil, failure("log density at the starting point is %v", l)
	}

	var mode []float64
	var err error
	switch s.Method {
	case BFGS, NelderMead:
		mode, err = minimize(t, x0, s)
	case LBFGSB:
		mode, err = newLBFGSB(t, s).minimize(x0)
	default:
		return nil, failure("unknown method %v", s.Method)
	}
	if err != nil {
		return nil, err
	}
	return curvature(t, mode)
}

// minimize finds the mode using gonum optimizers.
func minimize(t *mcmc.Target, x0 []float64, s *Settings) ([]float64, error) {
	neg := negative(t, s.Bounds)
	p := optimize.Problem{Func: neg}
	var method optimize.Method
	switch s.Method {
	case BFGS:
		p.Grad = func(grad, x []float64) {
			fd.Gradient(grad, neg, x, &fd.Settings{Formula: fd.Central})
		}
		method = &optimize.BFGS{}
	case NelderMead:
		method = &optimize.NelderMead{}
	}
	settings := &optimize.Settings{
		MajorIterations:   s.MaxIter,
		GradientThreshold: 1e-8,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 20,
		},
	}
	res, err := optimize.Minimize(p, x0, settings, method)
	if err != nil {
		return nil, failure("%v: %v", s.Method, err)
	}
	if res.Status == optimize.IterationLimit || !finite(res.F) {
		return nil, failure("%v: status %v, value %v", s.Method, res.Status, res.F)
	}
	log.Infof("Mode search (%v): %v, %d function evaluations", s.Method, res.Status, res.Stats.FuncEvaluations)
	return res.X, nil
}

// curvature computes the covariance at the mode from the Hessian of
// the negative log density.
func curvature(t *mcmc.Target, mode []float64) (*Approximation, error) {
	n := len(mode)
	neg := negative(t, nil)
	h := mat.NewSymDense(n, nil)
	fd.Hessian(h, neg, mode, &fd.Settings{Formula: fd.Central})
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if !finite(h.At(i, j)) {
				return nil, failure("Hessian is not finite at %v", mcmc.Vector(mode))
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(h); !ok {
		return nil, failure("%v is not a maximum, curvature is not negative definite", mcmc.Vector(mode))
	}
	cov := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, failure("cannot invert curvature: %v", err)
	}
	sd := make([]float64, n)
	for i := range sd {
		sd[i] = math.Sqrt(cov.At(i, i))
	}

	names := t.Names
	if len(names) != n {
		names = mcmc.NewTarget(n, nil).Names
	}
	return &Approximation{
		Names:      names,
		Mode:       mode,
		LogDensity: t.LogDensity(mode),
		Cov:        cov,
		SD:         sd,
	}, nil
}
