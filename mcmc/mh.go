package mcmc

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// MH is a random-walk Metropolis-Hastings sampler. It either updates
// the whole vector at once using a block proposal or every coordinate
// in turn using per-coordinate kernels.
type MH struct {
	BaseSampler
	proposal Proposal
	kernels  []Kernel
	// Scale multiplies the proposal step.
	Scale float64
	// Adaptive enables step tuning if not nil.
	Adaptive *AdaptiveSettings
	// StartScales, if set, are the tuned scales to start from, one
	// per block. They are used when resuming an adaptive chain.
	StartScales []float64
	adaptive    *Adaptive
}

// NewMH creates a new block Metropolis-Hastings sampler.
func NewMH(t *Target, p Proposal, rng *rand.Rand) *MH {
	if p.Draw == nil {
		panic("proposal without draw function")
	}
	return &MH{
		BaseSampler: newBaseSampler(t, rng),
		proposal:    p,
		Scale:       1,
	}
}

// NewComponentwiseMH creates a Metropolis-Hastings sampler updating
// one coordinate at a time; every coordinate gets its own
// accept/reject step per iteration.
func NewComponentwiseMH(t *Target, kernels []Kernel, rng *rand.Rand) *MH {
	if len(kernels) != t.Dim() {
		panic("number of kernels should match the number of parameters")
	}
	return &MH{
		BaseSampler: newBaseSampler(t, rng),
		kernels:     kernels,
		Scale:       1,
	}
}

// Componentwise is true if coordinates are updated one at a time.
func (m *MH) Componentwise() bool {
	return m.kernels != nil
}

// Scales returns the current proposal scales, one per tuned block.
func (m *MH) Scales() []float64 {
	if m.adaptive != nil {
		return m.adaptive.Scales()
	}
	n := 1
	if m.Componentwise() {
		n = len(m.kernels)
	}
	s := make([]float64, n)
	for i := range s {
		s[i] = m.Scale
	}
	return s
}

// accept implements the acceptance rule for log acceptance ratio
// logA. The exponent is only computed if logA < 0.
func (m *MH) accept(logA float64) bool {
	u := m.rng.Float64()
	switch {
	case logA >= 0:
		return true
	case math.IsInf(logA, -1):
		return false
	}
	return u < math.Exp(logA)
}

// logAcceptance computes the log acceptance ratio. Zero density
// candidates and impossible reverse moves give -Inf, invalid values
// an error.
func logAcceptance(newL, l, logRatio float64) (float64, error) {
	switch {
	case math.IsNaN(newL) || math.IsInf(newL, 1):
		return 0, fmt.Errorf("log density of the candidate is %v", newL)
	case math.IsInf(newL, -1):
		return math.Inf(-1), nil
	case math.IsNaN(logRatio) || math.IsInf(logRatio, 1):
		return 0, fmt.Errorf("log proposal ratio is %v", logRatio)
	case math.IsInf(logRatio, -1):
		return math.Inf(-1), nil
	}
	return newL - l + logRatio, nil
}

// Run samples iterations steps starting at x0.
func (m *MH) Run(x0 []float64, iterations int) (*Chain, error) {
	if m.LogDensity == nil {
		return nil, errors.New("Metropolis-Hastings requires a log density")
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("number of iterations should be > 0, got %d", iterations)
	}
	if m.Scale <= 0 {
		return nil, fmt.Errorf("scale should be > 0, got %v", m.Scale)
	}
	l, err := m.checkState(x0)
	if err != nil {
		return nil, err
	}
	m.l = l

	m.adaptive = nil
	if m.Adaptive != nil {
		if err := m.Adaptive.check(); err != nil {
			return nil, err
		}
		log.Info(m.Adaptive)
		nblocks := 1
		if m.Componentwise() {
			nblocks = len(m.kernels)
		}
		m.adaptive = NewAdaptive(nblocks, m.Scale, m.Adaptive)
		if m.StartScales != nil {
			if err := m.adaptive.SetScales(m.StartScales); err != nil {
				return nil, err
			}
		}
	}

	chain := NewChain(m.Names, iterations)
	x := Vector(x0).Copy()
	y := make(Vector, len(x))
	accepted, proposed := 0, 0

	m.PrintHeader()
	for m.i = 0; m.i < iterations; m.i++ {
		if m.i > 0 && m.AccPeriod > 0 && m.i%m.AccPeriod == 0 {
			m.logAcceptance(accepted, proposed)
			accepted, proposed = 0, 0
		}

		var acc, prop int
		if m.Componentwise() {
			acc, prop, err = m.componentStep(x, y)
		} else {
			acc, prop, err = m.blockStep(x, y)
		}
		if err != nil {
			return nil, err
		}
		accepted += acc
		proposed += prop
		chain.Accepted += acc
		chain.Proposed += prop
		chain.Draws = append(chain.Draws, x.Copy())

		m.PrintLine(x, false)
		if m.RepPeriod > 0 && m.i%m.RepPeriod == 0 {
			log.Debugf("%d: L=%f", m.i, m.l)
		}
		m.saveCheckpoint(x, chain.Accepted, m.Scales(), false)
	}
	m.i--
	m.PrintLine(x, true)
	m.saveCheckpoint(x, chain.Accepted, m.Scales(), true)
	log.Infof("Finished MCMC, acceptance rate %.2f%%", 100*chain.AcceptanceRate())
	return chain, nil
}

// scale returns the step scale of block b.
func (m *MH) scale(b int) float64 {
	if m.adaptive != nil {
		return m.adaptive.Scale(b)
	}
	return m.Scale
}

// blockStep proposes a new vector. On acceptance x is overwritten by
// the candidate; y is scratch space.
func (m *MH) blockStep(x, y Vector) (accepted, proposed int, err error) {
	scale := m.scale(0)
	m.proposal.Draw(m.rng, y, x, scale)
	newL := m.LogDensity(y)
	logA, err := logAcceptance(newL, m.l, m.proposal.logRatio(x, y, scale))
	if err != nil {
		return 0, 0, &SampleError{Kind: ErrDomain, Iter: m.i, Coord: -1, Err: err}
	}
	ok := m.accept(logA)
	if ok {
		copy(x, y)
		m.l = newL
		accepted = 1
	}
	if m.adaptive != nil {
		m.adaptive.Update(m.i, 0, ok)
	}
	return accepted, 1, nil
}

// componentStep performs one accept/reject step per coordinate, the
// other coordinates are held at their current values.
func (m *MH) componentStep(x, y Vector) (accepted, proposed int, err error) {
	copy(y, x)
	for p, k := range m.kernels {
		scale := m.scale(p)
		old := x[p]
		y[p] = k.Draw(m.rng, old, scale)
		newL := m.LogDensity(y)
		logA, err := logAcceptance(newL, m.l, k.logRatio(old, y[p], scale))
		if err != nil {
			return 0, 0, &SampleError{Kind: ErrDomain, Iter: m.i, Coord: p, Err: err}
		}
		ok := m.accept(logA)
		if ok {
			x[p] = y[p]
			m.l = newL
			accepted++
		} else {
			y[p] = old
		}
		proposed++
		if m.adaptive != nil {
			m.adaptive.Update(m.i, p, ok)
		}
	}
	return accepted, proposed, nil
}
