package models

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"bitbucket.org/Davydov/bsample/dist"
	"bitbucket.org/Davydov/bsample/laplace"
	"bitbucket.org/Davydov/bsample/mcmc"
)

// BetaBinomial is the success probability p after K successes in N
// trials with a Beta(A, B) prior.
type BetaBinomial struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	K int     `yaml:"k"`
	N int     `yaml:"n"`
}

// DefaultBetaBinomial returns 7 successes out of 10 with a uniform
// prior, i.e. a Beta(8, 4) posterior.
func DefaultBetaBinomial() *BetaBinomial {
	return &BetaBinomial{A: 1, B: 1, K: 7, N: 10}
}

func (m *BetaBinomial) Check() error {
	if m.A <= 0 || m.B <= 0 {
		return errors.New("beta prior parameters should be positive")
	}
	if m.K < 0 || m.N < m.K {
		return errors.New("should have 0 <= k <= n")
	}
	return nil
}

// LogDensity is the unnormalized log posterior of p.
func (m *BetaBinomial) LogDensity(x []float64) float64 {
	p := x[0]
	if p <= 0 || p >= 1 {
		return negInf
	}
	return dist.LogBeta(p, m.A, m.B) + dist.LogBinomial(m.K, m.N, p)
}

func (m *BetaBinomial) conditional(rng *rand.Rand, x []float64) (float64, error) {
	return dist.RandBeta(rng, m.A+float64(m.K), m.B+float64(m.N-m.K)), nil
}

func (m *BetaBinomial) Target() *mcmc.Target {
	return &mcmc.Target{
		Names:        []string{"p"},
		LogDensity:   m.LogDensity,
		Conditionals: []mcmc.ConditionalSampler{m.conditional},
	}
}

func (m *BetaBinomial) Initial() []float64 {
	return []float64{0.5}
}

// Posterior returns Beta(A+K, B+N-K).
func (m *BetaBinomial) Posterior(i int) laplace.Quantiler {
	if i != 0 {
		return nil
	}
	return distuv.Beta{Alpha: m.A + float64(m.K), Beta: m.B + float64(m.N-m.K)}
}
