package models

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"bitbucket.org/Davydov/bsample/dist"
	"bitbucket.org/Davydov/bsample/laplace"
	"bitbucket.org/Davydov/bsample/mcmc"
)

// GammaPoisson is the rate lambda of Poisson counts with a
// Gamma(A, B) prior (B is the rate). The posterior is
// Gamma(A+sum(Counts), B+len(Counts)).
type GammaPoisson struct {
	Counts []int   `yaml:"counts"`
	A      float64 `yaml:"a"`
	B      float64 `yaml:"b"`
}

// DefaultGammaPoisson returns a small count sample with a Gamma(2, 1)
// prior.
func DefaultGammaPoisson() *GammaPoisson {
	return &GammaPoisson{
		Counts: []int{2, 4, 3, 6, 1, 3, 5, 2},
		A:      2,
		B:      1,
	}
}

func (m *GammaPoisson) Check() error {
	if len(m.Counts) == 0 {
		return errors.New("no counts")
	}
	for _, k := range m.Counts {
		if k < 0 {
			return errors.New("negative count")
		}
	}
	if m.A <= 0 || m.B <= 0 {
		return errors.New("prior parameters should be positive")
	}
	return nil
}

// shape and rate of the posterior.
func (m *GammaPoisson) shape() float64 {
	s := 0
	for _, k := range m.Counts {
		s += k
	}
	return m.A + float64(s)
}

func (m *GammaPoisson) rate() float64 {
	return m.B + float64(len(m.Counts))
}

// Log is the unnormalized log posterior of lambda.
func (m *GammaPoisson) Log(lambda float64) float64 {
	if lambda <= 0 {
		return negInf
	}
	l := dist.LogGamma(lambda, m.A, m.B)
	for _, k := range m.Counts {
		l += dist.LogPoisson(k, lambda)
	}
	return l
}

// Deriv is the first derivative of Log.
func (m *GammaPoisson) Deriv(lambda float64) float64 {
	return (m.shape()-1)/lambda - m.rate()
}

// Deriv2 is the second derivative of Log.
func (m *GammaPoisson) Deriv2(lambda float64) float64 {
	return -(m.shape() - 1) / lambda / lambda
}

// Region returns a search region around the posterior mode for the
// univariate Laplace approximation.
func (m *GammaPoisson) Region() (lo, hi float64) {
	mean := m.shape() / m.rate()
	sd := math.Sqrt(m.shape()) / m.rate()
	lo = math.Max(mean-10*sd, mean*1e-3)
	return lo, mean + 10*sd
}

func (m *GammaPoisson) LogDensity(x []float64) float64 {
	return m.Log(x[0])
}

func (m *GammaPoisson) conditional(rng *rand.Rand, x []float64) (float64, error) {
	return dist.RandGamma(rng, m.shape(), m.rate()), nil
}

func (m *GammaPoisson) Target() *mcmc.Target {
	return &mcmc.Target{
		Names:        []string{"lambda"},
		LogDensity:   m.LogDensity,
		Conditionals: []mcmc.ConditionalSampler{m.conditional},
	}
}

func (m *GammaPoisson) Initial() []float64 {
	return []float64{m.shape() / m.rate()}
}

// Posterior returns Gamma(A+sum(Counts), B+len(Counts)).
func (m *GammaPoisson) Posterior(i int) laplace.Quantiler {
	if i != 0 {
		return nil
	}
	return distuv.Gamma{Alpha: m.shape(), Beta: m.rate()}
}
