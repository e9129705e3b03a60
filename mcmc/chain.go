package mcmc

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Vector is one point of the parameter space. Samplers never modify a
// vector after it was appended to a chain.
type Vector []float64

// Copy returns a copy of the vector.
func (v Vector) Copy() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// String returns tab separated values.
func (v Vector) String() (s string) {
	for i, x := range v {
		if i != 0 {
			s += "\t"
		}
		s += strconv.FormatFloat(x, 'f', 6, 64)
	}
	return
}

// Chain is the output of a sampler, one vector per iteration.
type Chain struct {
	// Names are the parameter names.
	Names []string
	// Draws are the sampled vectors in iteration order.
	Draws []Vector
	// Accepted is the number of accepted proposals.
	Accepted int
	// Proposed is the number of proposals made.
	Proposed int
}

// NewChain creates an empty chain with room for n draws.
func NewChain(names []string, n int) *Chain {
	return &Chain{
		Names: names,
		Draws: make([]Vector, 0, n),
	}
}

// Len returns the number of draws.
func (c *Chain) Len() int {
	return len(c.Draws)
}

// Dim returns the number of parameters.
func (c *Chain) Dim() int {
	if len(c.Draws) > 0 {
		return len(c.Draws[0])
	}
	return len(c.Names)
}

// Column returns all the values of parameter p starting from
// iteration from.
func (c *Chain) Column(p, from int) []float64 {
	if from > len(c.Draws) {
		from = len(c.Draws)
	}
	col := make([]float64, 0, len(c.Draws)-from)
	for _, v := range c.Draws[from:] {
		col = append(col, v[p])
	}
	return col
}

// AcceptanceRate returns the fraction of accepted proposals.
func (c *Chain) AcceptanceRate() float64 {
	if c.Proposed == 0 {
		return 0
	}
	return float64(c.Accepted) / float64(c.Proposed)
}

// Config describes a sampler run.
type Config struct {
	// Iterations is the chain length.
	Iterations int
	// BurnIn is the number of draws discarded before summaries.
	BurnIn int
	// Initial is the starting point.
	Initial []float64
	// Scale multiplies the proposal step (MH only).
	Scale float64
	// Adaptive enables proposal tuning (MH only).
	Adaptive *AdaptiveSettings
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("number of iterations should be > 0, got %d", c.Iterations)
	}
	if c.BurnIn < 0 || c.BurnIn >= c.Iterations {
		return fmt.Errorf("burn-in should be in [0, %d), got %d: %w", c.Iterations, c.BurnIn, ErrInsufficientSamples)
	}
	if len(c.Initial) == 0 {
		return fmt.Errorf("empty initial state: %w", ErrInvalidInitialState)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale should be > 0, got %v", c.Scale)
	}
	return nil
}

// Sampler produces a chain from a starting point.
type Sampler interface {
	Run(x0 []float64, iterations int) (*Chain, error)
}

// NewRand creates a generator for one chain. Chains sharing a seed
// but using different streams are independent.
func NewRand(seed uint64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}
