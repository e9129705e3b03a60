package mcmc

import (
	"math"
	"math/rand/v2"
)

// Proposal is a block proposal distribution.
type Proposal struct {
	// Draw writes a candidate for x into dst, scale multiplies
	// the step size.
	Draw func(rng *rand.Rand, dst, x []float64, scale float64)
	// LogRatio returns log q(x|y) - log q(y|x) for the move from
	// x to y. Nil means the proposal is symmetric.
	LogRatio func(x, y []float64, scale float64) float64
}

// Symmetric returns true if the proposal ratio is always one.
func (p Proposal) Symmetric() bool {
	return p.LogRatio == nil
}

// logRatio returns the log proposal ratio, zero for symmetric
// proposals.
func (p Proposal) logRatio(x, y []float64, scale float64) float64 {
	if p.LogRatio == nil {
		return 0
	}
	return p.LogRatio(x, y, scale)
}

// Kernel is a univariate proposal used for one coordinate.
type Kernel struct {
	// Draw proposes a new value given x.
	Draw func(rng *rand.Rand, x, scale float64) float64
	// LogRatio returns log q(x|y) - log q(y|x), nil if symmetric.
	LogRatio func(x, y, scale float64) float64
}

func (k Kernel) logRatio(x, y, scale float64) float64 {
	if k.LogRatio == nil {
		return 0
	}
	return k.LogRatio(x, y, scale)
}

// Rand returns a random value in the range [0, 1], including 1.
func Rand(rng *rand.Rand) float64 {
	// 1.0 is not included and we would like to be symmetric
	r := float64(1)
	for r > 0.999 {
		r = rng.Float64()
	}
	return r / 0.999
}

// NormalKernel returns a normal random walk with standard deviation
// sd.
func NormalKernel(sd float64) Kernel {
	if sd <= 0 {
		panic("sd should be > 0")
	}
	return Kernel{
		Draw: func(rng *rand.Rand, x, scale float64) float64 {
			return x + rng.NormFloat64()*sd*scale
		},
	}
}

// UniformKernel returns a uniform random walk on [x-width/2,
// x+width/2].
func UniformKernel(width float64) Kernel {
	if width <= 0 {
		panic("width should be > 0")
	}
	return Kernel{
		Draw: func(rng *rand.Rand, x, scale float64) float64 {
			w := width * scale
			return x + Rand(rng)*w - w/2
		},
	}
}

// LogNormalKernel returns a multiplicative random walk for positive
// parameters: log y = log x + N(0, sd^2). It is not symmetric.
func LogNormalKernel(sd float64) Kernel {
	if sd <= 0 {
		panic("sd should be > 0")
	}
	return Kernel{
		Draw: func(rng *rand.Rand, x, scale float64) float64 {
			return x * math.Exp(rng.NormFloat64()*sd*scale)
		},
		LogRatio: func(x, y, scale float64) float64 {
			if x <= 0 || y <= 0 {
				return math.NaN()
			}
			return math.Log(y) - math.Log(x)
		},
	}
}

// BlockProposal applies one kernel per coordinate simultaneously.
func BlockProposal(kernels ...Kernel) Proposal {
	p := Proposal{
		Draw: func(rng *rand.Rand, dst, x []float64, scale float64) {
			for i, k := range kernels {
				dst[i] = k.Draw(rng, x[i], scale)
			}
		},
	}
	for _, k := range kernels {
		if k.LogRatio != nil {
			p.LogRatio = func(x, y []float64, scale float64) (r float64) {
				for i, k := range kernels {
					r += k.logRatio(x[i], y[i], scale)
				}
				return
			}
			break
		}
	}
	return p
}

// NormalProposal returns a symmetric normal random walk with a
// separate standard deviation for every coordinate.
func NormalProposal(sd ...float64) Proposal {
	kernels := make([]Kernel, len(sd))
	for i, s := range sd {
		kernels[i] = NormalKernel(s)
	}
	return BlockProposal(kernels...)
}

// Kernels returns n copies of kernel k.
func Kernels(k Kernel, n int) []Kernel {
	ks := make([]Kernel, n)
	for i := range ks {
		ks[i] = k
	}
	return ks
}
