package laplace

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Univariate approximates a one-dimensional posterior with log
// density f. The mode is found by bisection on the derivative inside
// [lo, hi]; f must be finite on the closed interval.
func Univariate(f func(float64) float64, lo, hi float64, s *Settings) (*Approximation, error) {
	if s == nil {
		s = DefaultSettings()
	}
	if !(lo < hi) {
		return nil, failure("empty search region [%v, %v]", lo, hi)
	}

	d1 := s.Deriv
	if d1 == nil {
		d1 = func(x float64) float64 {
			return fd.Derivative(f, x, &fd.Settings{Formula: fd.Central})
		}
	}
	// one-sided derivatives at the boundaries do not leave the
	// region
	dlo, dhi := s.Deriv, s.Deriv
	if dlo == nil {
		dlo = func(x float64) float64 {
			return fd.Derivative(f, x, &fd.Settings{Formula: fd.Forward})
		}
		dhi = func(x float64) float64 {
			return fd.Derivative(f, x, &fd.Settings{Formula: fd.Backward})
		}
	}

	a, b := lo, hi
	da, db := dlo(a), dhi(b)
	if !finite(da) || !finite(db) {
		return nil, failure("derivative at the boundaries is not finite (%v, %v)", da, db)
	}
	if math.Signbit(da) == math.Signbit(db) {
		return nil, failure("no stationary point in [%v, %v]", lo, hi)
	}

	var mode float64
	converged := false
	for i := 0; i < s.MaxIter; i++ {
		mode = a + (b-a)/2
		if b-a <= s.Tol*(1+math.Abs(mode)) {
			converged = true
			break
		}
		dm := d1(mode)
		if !finite(dm) {
			return nil, failure("derivative at %v is %v", mode, dm)
		}
		if dm == 0 {
			converged = true
			break
		}
		if math.Signbit(dm) == math.Signbit(da) {
			a, da = mode, dm
		} else {
			b = mode
		}
	}
	if !converged {
		return nil, failure("mode search did not converge in %d iterations", s.MaxIter)
	}

	var d2 float64
	if s.Deriv2 != nil {
		d2 = s.Deriv2(mode)
	} else {
		d2 = fd.Derivative(f, mode, &fd.Settings{Formula: fd.Central2nd})
	}
	if !finite(d2) || d2 >= 0 {
		return nil, failure("stationary point %v is not a maximum (second derivative %v)", mode, d2)
	}

	sd := 1 / math.Sqrt(-d2)
	log.Debugf("Laplace: mode=%v, sd=%v", mode, sd)
	return &Approximation{
		Names:      []string{"x0"},
		Mode:       []float64{mode},
		LogDensity: f(mode),
		Cov:        mat.NewSymDense(1, []float64{sd * sd}),
		SD:         []float64{sd},
	}, nil
}
