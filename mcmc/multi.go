package mcmc

import (
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ChainFunc runs chain number i using its own generator.
type ChainFunc func(rng *rand.Rand, i int) (*Chain, error)

// RunChains runs n independent chains in parallel. Chain i uses the
// generator stream (seed, i), so the result does not depend on
// scheduling. If any chain fails, the first error is returned and no
// chains.
func RunChains(n int, seed uint64, run ChainFunc) ([]*Chain, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of chains should be > 0, got %d", n)
	}
	chains := make([]*Chain, n)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			c, err := run(NewRand(seed, uint64(i)), i)
			if err != nil {
				return fmt.Errorf("chain %d: %w", i, err)
			}
			chains[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chains, nil
}
