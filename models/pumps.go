package models

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/bsample/dist"
	"bitbucket.org/Davydov/bsample/mcmc"
)

// Pumps is the hierarchical model of pump failures: X[i] failures in
// T[i] thousand hours, X[i] ~ Poisson(theta[i]*T[i]),
// theta[i] ~ Gamma(Alpha, beta), beta ~ Gamma(C, D). Parameters are
// theta1..thetaN followed by beta.
type Pumps struct {
	X     []int     `yaml:"x"`
	T     []float64 `yaml:"t"`
	Alpha float64   `yaml:"alpha"`
	C     float64   `yaml:"c"`
	D     float64   `yaml:"d"`
}

// DefaultPumps returns the failures of ten power plant pumps.
func DefaultPumps() *Pumps {
	return &Pumps{
		X:     []int{5, 1, 5, 14, 3, 19, 1, 1, 4, 22},
		T:     []float64{94.32, 15.72, 62.88, 125.76, 5.24, 31.44, 1.048, 1.048, 2.096, 10.48},
		Alpha: 1.802,
		C:     0.1,
		D:     1,
	}
}

func (m *Pumps) Check() error {
	if len(m.X) == 0 || len(m.X) != len(m.T) {
		return fmt.Errorf("%d counts and %d times", len(m.X), len(m.T))
	}
	for i := range m.X {
		if m.X[i] < 0 || m.T[i] <= 0 {
			return fmt.Errorf("pump %d: negative count or nonpositive time", i+1)
		}
	}
	if m.Alpha <= 0 || m.C <= 0 || m.D <= 0 {
		return errors.New("prior parameters should be positive")
	}
	return nil
}

// LogDensity is the unnormalized joint log posterior.
func (m *Pumps) LogDensity(x []float64) float64 {
	n := len(m.X)
	beta := x[n]
	if beta <= 0 {
		return negInf
	}
	l := dist.LogGamma(beta, m.C, m.D)
	for i, k := range m.X {
		theta := x[i]
		if theta <= 0 {
			return negInf
		}
		l += dist.LogPoisson(k, theta*m.T[i]) + dist.LogGamma(theta, m.Alpha, beta)
	}
	return l
}

// rate draws theta[i] given beta.
func (m *Pumps) rate(i int) mcmc.ConditionalSampler {
	return func(rng *rand.Rand, x []float64) (float64, error) {
		beta := x[len(m.X)]
		if !(beta > 0) || math.IsInf(beta, 0) {
			return 0, mcmc.DomainError("beta", beta)
		}
		return dist.RandGamma(rng, m.Alpha+float64(m.X[i]), m.T[i]+beta), nil
	}
}

// scale draws beta given the thetas.
func (m *Pumps) scale(rng *rand.Rand, x []float64) (float64, error) {
	n := len(m.X)
	s := floats.Sum(x[:n])
	if !(s > 0) || math.IsInf(s, 0) {
		return 0, mcmc.DomainError("sum(theta)", s)
	}
	return dist.RandGamma(rng, m.C+float64(n)*m.Alpha, m.D+s), nil
}

func (m *Pumps) Target() *mcmc.Target {
	n := len(m.X)
	t := &mcmc.Target{
		Names:        make([]string, n+1),
		LogDensity:   m.LogDensity,
		Conditionals: make([]mcmc.ConditionalSampler, n+1),
	}
	for i := 0; i < n; i++ {
		t.Names[i] = "theta" + strconv.Itoa(i+1)
		t.Conditionals[i] = m.rate(i)
	}
	t.Names[n] = "beta"
	t.Conditionals[n] = m.scale
	return t
}

// Initial starts at the observed failure rates and beta = 1.
func (m *Pumps) Initial() []float64 {
	x := make([]float64, len(m.X)+1)
	for i, k := range m.X {
		x[i] = (float64(k) + 0.5) / m.T[i]
	}
	x[len(m.X)] = 1
	return x
}
