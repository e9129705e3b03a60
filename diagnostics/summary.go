// Package diagnostics summarizes sampled chains: posterior means,
// standard deviations, equal-tailed and highest density credible
// intervals, effective sample sizes and convergence between chains.
package diagnostics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"bitbucket.org/Davydov/bsample/mcmc"
)

// Parameter is the summary of a single parameter.
type Parameter struct {
	Name        string   `json:"name"`
	Mean        float64  `json:"mean"`
	SD          float64  `json:"sd"`
	EqualTailed Interval `json:"equalTailed"`
	HDI         Interval `json:"hdi"`
	ESS         float64  `json:"ess"`
}

// Summary is the summary of a chain.
type Summary struct {
	// Level is the credible interval coverage.
	Level float64 `json:"level"`
	// BurnIn is the number of discarded draws.
	BurnIn int `json:"burnIn"`
	// Retained is the number of draws used.
	Retained int `json:"retained"`
	// AcceptanceRate is the fraction of accepted proposals.
	AcceptanceRate float64 `json:"acceptanceRate"`
	// Parameters are the per-parameter summaries.
	Parameters []Parameter `json:"parameters"`
	// RHat is the Gelman-Rubin statistic, only set for multiple
	// chains.
	RHat []float64 `json:"rhat,omitempty"`
}

// Retain returns the draws left after removing burnIn draws.
func Retain(c *mcmc.Chain, burnIn int) ([]mcmc.Vector, error) {
	if burnIn < 0 {
		return nil, fmt.Errorf("burn-in should be >= 0, got %d", burnIn)
	}
	if burnIn >= c.Len() {
		return nil, fmt.Errorf("burn-in %d, chain length %d: %w", burnIn, c.Len(), mcmc.ErrInsufficientSamples)
	}
	return c.Draws[burnIn:], nil
}

// Summarize computes the summary of the chain after removing the
// first burnIn draws.
func Summarize(c *mcmc.Chain, burnIn int, level float64) (*Summary, error) {
	return SummarizeChains([]*mcmc.Chain{c}, burnIn, level)
}

// SummarizeChains pools the draws of several chains of the same
// target after removing burnIn draws from each of them. R-hat is
// computed if there is more than one chain.
func SummarizeChains(chains []*mcmc.Chain, burnIn int, level float64) (*Summary, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("no chains: %w", mcmc.ErrInsufficientSamples)
	}
	dim := chains[0].Dim()
	s := &Summary{
		Level:      level,
		BurnIn:     burnIn,
		Parameters: make([]Parameter, dim),
	}
	accepted, proposed := 0, 0
	for _, c := range chains {
		if c.Dim() != dim {
			return nil, fmt.Errorf("chains have different dimensions (%d and %d)", dim, c.Dim())
		}
		if _, err := Retain(c, burnIn); err != nil {
			return nil, err
		}
		accepted += c.Accepted
		proposed += c.Proposed
	}
	if proposed > 0 {
		s.AcceptanceRate = float64(accepted) / float64(proposed)
	}

	rhat := len(chains) > 1
	for p := range s.Parameters {
		var pooled []float64
		cols := make([][]float64, len(chains))
		ess := 0.0
		for j, c := range chains {
			cols[j] = c.Column(p, burnIn)
			pooled = append(pooled, cols[j]...)
			ess += ESS(cols[j])
		}
		if len(pooled) < 2 {
			return nil, fmt.Errorf("%d draws retained: %w", len(pooled), mcmc.ErrInsufficientSamples)
		}
		par := &s.Parameters[p]
		if p < len(chains[0].Names) {
			par.Name = chains[0].Names[p]
		}
		par.Mean, par.SD = stat.MeanStdDev(pooled, nil)
		vals := sorted(pooled)
		par.EqualTailed = equalTailed(vals, level)
		par.HDI = hdi(vals, level)
		par.ESS = ess
		s.Retained = len(pooled)

		if rhat {
			r, err := GelmanRubin(cols)
			if err != nil {
				log.Warningf("R-hat for %s: %v", par.Name, err)
				rhat = false
				s.RHat = nil
				continue
			}
			s.RHat = append(s.RHat, r)
		}
	}
	return s, nil
}
