package laplace

import (
	lbfgsb "github.com/idavydov/go-lbfgsb"

	"bitbucket.org/Davydov/bsample/mcmc"
)

// boundedSearch finds the mode with L-BFGS-B. It implements the
// objective interface of the lbfgsb package.
type boundedSearch struct {
	neg    func([]float64) float64
	bounds [][2]float64
	dH     float64
	grad   []float64
	x      []float64
	calls  int
}

func newLBFGSB(t *mcmc.Target, s *Settings) *boundedSearch {
	return &boundedSearch{
		neg:    negative(t, s.Bounds),
		bounds: s.Bounds,
		dH:     1e-6,
	}
}

func (b *boundedSearch) logger(info *lbfgsb.OptimizationIterationInformation) {
	log.Debugf("%d\t%f\t%v", info.Iteration, -info.F, mcmc.Vector(info.X))
}

func (b *boundedSearch) EvaluateFunction(x []float64) float64 {
	b.calls++
	return b.neg(x)
}

// EvaluateGradient uses central differences.
func (b *boundedSearch) EvaluateGradient(x []float64) []float64 {
	if b.grad == nil {
		b.grad = make([]float64, len(x))
		b.x = make([]float64, len(x))
	}
	copy(b.x, x)
	for i := range x {
		b.x[i] = x[i] - b.dH
		l1 := b.neg(b.x)
		b.x[i] = x[i] + b.dH
		l2 := b.neg(b.x)
		b.x[i] = x[i]
		b.calls += 2
		b.grad[i] = (l2 - l1) / 2 / b.dH
	}
	return b.grad
}

func (b *boundedSearch) minimize(x0 []float64) ([]float64, error) {
	if b.bounds == nil {
		return nil, failure("lbfgsb requires bounds")
	}
	// the gradient at the boundary needs points inside
	bounds := make([][2]float64, len(b.bounds))
	for i, r := range b.bounds {
		bounds[i][0] = r[0] + 1e-5
		bounds[i][1] = r[1] - 1e-5
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-12)
	opt.SetGTolerance(1e-9)
	opt.SetBounds(bounds)
	opt.SetLogger(b.logger)

	minimum, status := opt.Minimize(b, x0)
	log.Infof("Mode search (lbfgsb): %v, %d function evaluations", status, b.calls)
	if status.Code != lbfgsb.SUCCESS && status.Code != lbfgsb.APPROXIMATE {
		return nil, failure("lbfgsb: %v", status)
	}
	if !finite(minimum.F) {
		return nil, failure("lbfgsb: value at the minimum is %v", minimum.F)
	}
	return minimum.X, nil
}
