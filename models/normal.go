package models

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/bsample/dist"
	"bitbucket.org/Davydov/bsample/mcmc"
)

var negInf = math.Inf(-1)

// Normal is a normal sample with unknown mean mu and precision tau.
// Priors are mu ~ N(Mu0, 1/Tau0) and tau ~ Gamma(A, B) with rate B.
type Normal struct {
	Data []float64 `yaml:"data"`
	Mu0  float64   `yaml:"mu0"`
	Tau0 float64   `yaml:"tau0"`
	A    float64   `yaml:"a"`
	B    float64   `yaml:"b"`
}

// DefaultNormal returns a small sample with vague priors.
func DefaultNormal() *Normal {
	return &Normal{
		Data: []float64{10.1, 8.3, 11.6, 9.2, 12.1, 9.8, 10.4, 8.7, 11.0, 10.3},
		Mu0:  0,
		Tau0: 0.01,
		A:    0.1,
		B:    0.1,
	}
}

func (m *Normal) Check() error {
	if len(m.Data) == 0 {
		return errors.New("no data")
	}
	if m.Tau0 <= 0 || m.A <= 0 || m.B <= 0 {
		return errors.New("prior parameters should be positive")
	}
	return nil
}

// LogDensity is the unnormalized joint log posterior of (mu, tau).
func (m *Normal) LogDensity(x []float64) float64 {
	mu, tau := x[0], x[1]
	if tau <= 0 {
		return negInf
	}
	sd := 1 / math.Sqrt(tau)
	l := dist.LogNormal(mu, m.Mu0, 1/math.Sqrt(m.Tau0)) + dist.LogGamma(tau, m.A, m.B)
	for _, v := range m.Data {
		l += dist.LogNormal(v, mu, sd)
	}
	return l
}

// mean draws mu given tau.
func (m *Normal) mean(rng *rand.Rand, x []float64) (float64, error) {
	tau := x[1]
	if !(tau > 0) || math.IsInf(tau, 0) {
		return 0, mcmc.DomainError("tau", tau)
	}
	n := float64(len(m.Data))
	prec := m.Tau0 + n*tau
	mean := (m.Tau0*m.Mu0 + tau*floats.Sum(m.Data)) / prec
	return dist.RandNormal(rng, mean, 1/math.Sqrt(prec)), nil
}

// precision draws tau given mu.
func (m *Normal) precision(rng *rand.Rand, x []float64) (float64, error) {
	mu := x[0]
	if math.IsNaN(mu) || math.IsInf(mu, 0) {
		return 0, mcmc.DomainError("mu", mu)
	}
	ss := 0.0
	for _, v := range m.Data {
		ss += (v - mu) * (v - mu)
	}
	return dist.RandGamma(rng, m.A+float64(len(m.Data))/2, m.B+ss/2), nil
}

func (m *Normal) Target() *mcmc.Target {
	return &mcmc.Target{
		Names:        []string{"mu", "tau"},
		LogDensity:   m.LogDensity,
		Conditionals: []mcmc.ConditionalSampler{m.mean, m.precision},
	}
}

// Initial starts at the sample mean and unit precision.
func (m *Normal) Initial() []float64 {
	return []float64{floats.Sum(m.Data) / float64(len(m.Data)), 1}
}
