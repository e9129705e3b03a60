package mcmc

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Gibbs is a systematic scan Gibbs sampler.
type Gibbs struct {
	BaseSampler
}

// NewGibbs creates a new Gibbs sampler. The target must provide one
// conditional sampler per coordinate.
func NewGibbs(t *Target, rng *rand.Rand) *Gibbs {
	return &Gibbs{
		BaseSampler: newBaseSampler(t, rng),
	}
}

// Run samples iterations sweeps starting at x0. Coordinates are
// updated in order, every conditional sees the values already updated
// in the current sweep.
func (g *Gibbs) Run(x0 []float64, iterations int) (*Chain, error) {
	if len(g.Conditionals) != g.Dim() {
		return nil, fmt.Errorf("target has %d parameters and %d conditional samplers",
			g.Dim(), len(g.Conditionals))
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("number of iterations should be > 0, got %d", iterations)
	}
	l, err := g.checkState(x0)
	if err != nil {
		return nil, err
	}
	g.l = l

	chain := NewChain(g.Names, iterations)
	x := Vector(x0).Copy()
	g.PrintHeader()
	for g.i = 0; g.i < iterations; g.i++ {
		if err := g.sweep(x); err != nil {
			return nil, err
		}
		chain.Draws = append(chain.Draws, x.Copy())
		chain.Accepted += len(x)
		chain.Proposed += len(x)

		g.l = g.logDensity(x)
		if math.IsNaN(g.l) && g.LogDensity != nil {
			return nil, &SampleError{Kind: ErrDomain, Iter: g.i, Coord: -1,
				Err: fmt.Errorf("log density is NaN at %v", x)}
		}
		g.PrintLine(x, false)
		if g.RepPeriod > 0 && g.i%g.RepPeriod == 0 {
			log.Debugf("%d: L=%f", g.i, g.l)
		}
		g.saveCheckpoint(x, chain.Accepted, nil, false)
	}
	g.i--
	g.PrintLine(x, true)
	g.saveCheckpoint(x, chain.Accepted, nil, true)
	log.Info("Finished Gibbs sampling")
	return chain, nil
}

// sweep updates every coordinate of x in place.
func (g *Gibbs) sweep(x Vector) error {
	for p, cond := range g.Conditionals {
		v, err := cond(g.rng, x)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = DomainError(g.Names[p], v)
		}
		if err != nil {
			return stepError(g.i, p, err)
		}
		x[p] = v
	}
	return nil
}
