package models

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"bitbucket.org/Davydov/bsample/diagnostics"
	"bitbucket.org/Davydov/bsample/laplace"
	"bitbucket.org/Davydov/bsample/mcmc"
)

func gibbs(tst *testing.T, m Model, n int, seed uint64) *mcmc.Chain {
	g := mcmc.NewGibbs(m.Target(), mcmc.NewRand(seed, 0))
	g.Quiet = true
	c, err := g.Run(m.Initial(), n)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	return c
}

func TestBetaBinomial(tst *testing.T) {
	m := DefaultBetaBinomial()
	if err := m.Check(); err != nil {
		tst.Fatal("Error:", err)
	}
	c := gibbs(tst, m, 10000, 1)
	if mean := stat.Mean(c.Column(0, 0), nil); math.Abs(mean-8.0/12) > 0.01 {
		tst.Error("Wrong mean, expected 0.667, got", mean)
	}
	if l := m.LogDensity([]float64{1.2}); !math.IsInf(l, -1) {
		tst.Error("Expected zero density outside (0, 1), got", l)
	}
	exact := m.Posterior(0)
	if q := exact.Quantile(0.5); math.Abs(q-0.676) > 0.005 {
		tst.Error("Wrong posterior median:", q)
	}
	if m.Posterior(1) != nil {
		tst.Error("Expected no posterior for parameter 1")
	}

	bad := &BetaBinomial{A: 1, B: 1, K: 11, N: 10}
	if bad.Check() == nil {
		tst.Error("Expected error for k > n")
	}
}

func TestBetaBinomialLongChains(tst *testing.T) {
	if testing.Short() {
		tst.Skip("long chains")
	}
	m := DefaultBetaBinomial()
	mh := mcmc.NewMH(m.Target(), mcmc.NormalProposal(0.1), mcmc.NewRand(4, 0))
	mh.Quiet = true
	cmh, err := mh.Run(m.Initial(), 100000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	for name, c := range map[string]*mcmc.Chain{
		"gibbs": gibbs(tst, m, 100000, 4),
		"mh":    cmh,
	} {
		if mean := stat.Mean(c.Column(0, 10000), nil); math.Abs(mean-8.0/12) > 0.01 {
			tst.Errorf("%s: wrong mean, expected 0.667, got %v", name, mean)
		}
	}
}

func TestBetaBinomialMH(tst *testing.T) {
	m := DefaultBetaBinomial()
	mh := mcmc.NewMH(m.Target(), mcmc.NormalProposal(0.1), mcmc.NewRand(2, 0))
	mh.Quiet = true
	c, err := mh.Run(m.Initial(), 20000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	s, err := diagnostics.Summarize(c, 2000, 0.95)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	exact := m.Posterior(0)
	p := s.Parameters[0]
	if math.Abs(p.EqualTailed.Lower-exact.Quantile(0.025)) > 0.03 ||
		math.Abs(p.EqualTailed.Upper-exact.Quantile(0.975)) > 0.03 {
		tst.Error("Interval differs from the exact one:", p.EqualTailed)
	}
}

func TestNormal(tst *testing.T) {
	m := DefaultNormal()
	c := gibbs(tst, m, 10000, 3)
	xbar := stat.Mean(m.Data, nil)
	if mu := stat.Mean(c.Column(0, 1000), nil); math.Abs(mu-xbar) > 0.2 {
		tst.Errorf("Wrong mean, expected about %v, got %v", xbar, mu)
	}
	// tau is about 1/var(data)
	v := stat.Variance(m.Data, nil)
	if tau := stat.Mean(c.Column(1, 1000), nil); tau < 0.5/v || tau > 2/v {
		tst.Errorf("Wrong precision, expected about %v, got %v", 1/v, tau)
	}

	g := mcmc.NewGibbs(m.Target(), mcmc.NewRand(1, 0))
	if _, err := g.Run([]float64{10, -1}, 10); !errors.Is(err, mcmc.ErrInvalidInitialState) {
		tst.Error("Expected invalid initial state for negative precision, got", err)
	}
	if _, err := m.mean(mcmc.NewRand(1, 0), []float64{0, 0}); !errors.Is(err, mcmc.ErrDomain) {
		tst.Error("Expected domain error, got", err)
	}
}

func TestPumps(tst *testing.T) {
	m := DefaultPumps()
	if err := m.Check(); err != nil {
		tst.Fatal("Error:", err)
	}
	t := m.Target()
	if t.Dim() != 11 || t.Names[0] != "theta1" || t.Names[10] != "beta" {
		tst.Fatal("Wrong parameters:", t.Names)
	}
	c := gibbs(tst, m, 10000, 4)
	exp := map[int]float64{0: 0.0702, 4: 0.622, 9: 1.843, 10: 2.486}
	for i, e := range exp {
		mean := stat.Mean(c.Column(i, 1000), nil)
		if math.Abs(mean-e)/e > 0.05 {
			tst.Errorf("Wrong %s mean, expected %v, got %v", t.Names[i], e, mean)
		}
	}
}

func TestPumpsComponentwise(tst *testing.T) {
	m := DefaultPumps()
	t := m.Target()
	mh := mcmc.NewComponentwiseMH(t, mcmc.Kernels(mcmc.LogNormalKernel(0.5), t.Dim()), mcmc.NewRand(5, 0))
	mh.Quiet = true
	mh.Adaptive = mcmc.NewAdaptiveSettings()
	c, err := mh.Run(m.Initial(), 20000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	beta := stat.Mean(c.Column(10, 4000), nil)
	if math.Abs(beta-2.486) > 0.25 {
		tst.Error("Wrong beta mean:", beta)
	}
}

func TestPumpsDomain(tst *testing.T) {
	m := DefaultPumps()
	x := m.Initial()
	x[10] = math.NaN()
	if _, err := m.rate(0)(mcmc.NewRand(1, 0), x); !errors.Is(err, mcmc.ErrDomain) {
		tst.Error("Expected domain error, got", err)
	}
	m.T = m.T[:5]
	if m.Check() == nil {
		tst.Error("Expected error for mismatched data")
	}
}

func TestGammaPoissonLaplace(tst *testing.T) {
	m := DefaultGammaPoisson()
	s := laplace.DefaultSettings()
	s.Deriv = m.Deriv
	s.Deriv2 = m.Deriv2
	lo, hi := m.Region()
	a, err := laplace.Univariate(m.Log, lo, hi, s)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	// mode (shape-1)/rate = 27/9
	if math.Abs(a.Mode[0]-3) > 1e-8 {
		tst.Error("Wrong mode:", a.Mode[0])
	}
	if math.Abs(a.SD[0]-math.Sqrt(27)/9) > 1e-8 {
		tst.Error("Wrong sd:", a.SD[0])
	}
	cmp, err := laplace.Compare(a, 0, m.Posterior(0), 0.95)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if math.Abs(cmp.Exact.Lower-cmp.Approximate.Lower) > 0.35 || math.Abs(cmp.Exact.Upper-cmp.Approximate.Upper) > 0.35 {
		tst.Error("Intervals are too different:", cmp.Exact, cmp.Approximate)
	}

	b, err := laplace.Approximate(m.Target(), m.Initial(), nil)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if math.Abs(b.Mode[0]-3) > 1e-3 || math.Abs(b.SD[0]-a.SD[0]) > 1e-3 {
		tst.Error("Multivariate approximation differs:", b.Mode, b.SD)
	}
}

func TestGet(tst *testing.T) {
	ms := &Models{}
	for _, name := range Names() {
		m, err := ms.Get(name)
		if err != nil {
			tst.Fatal("Error:", err)
		}
		t := m.Target()
		if len(m.Initial()) != t.Dim() || len(t.Conditionals) != t.Dim() {
			tst.Error("Inconsistent model", name)
		}
		if l := t.LogDensity(m.Initial()); math.IsInf(l, 0) || math.IsNaN(l) {
			tst.Error("Initial state outside of the support for", name)
		}
	}
	if _, err := ms.Get("unknown"); err == nil {
		tst.Error("Expected error for unknown model")
	}
	ms.Normal = &Normal{}
	if _, err := ms.Get("normal"); err == nil {
		tst.Error("Expected error for a model without data")
	}
}
