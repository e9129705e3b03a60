package mcmc

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestRand(tst *testing.T) {
	rng := NewRand(1, 0)
	for i := 0; i < 10000; i++ {
		r := Rand(rng)
		if r < 0 || r > 1 {
			tst.Fatal("Value out of range:", r)
		}
	}
}

func TestUniformKernel(tst *testing.T) {
	rng := NewRand(2, 0)
	k := UniformKernel(0.5)
	for i := 0; i < 10000; i++ {
		y := k.Draw(rng, 1, 2)
		if y < 0.5 || y > 1.5 {
			tst.Fatal("Proposal out of range:", y)
		}
	}
	if k.logRatio(1, 1.2, 1) != 0 {
		tst.Error("Uniform kernel should be symmetric")
	}
}

func TestLogNormalKernel(tst *testing.T) {
	k := LogNormalKernel(0.3)
	if r := k.logRatio(1, math.E, 1); math.Abs(r-1) > 1e-12 {
		tst.Error("Wrong log ratio, expected 1, got", r)
	}
	if r := k.logRatio(-1, 1, 1); !math.IsNaN(r) {
		tst.Error("Expected NaN for negative value, got", r)
	}
	p := BlockProposal(NormalKernel(1), k)
	if p.Symmetric() {
		tst.Error("Block proposal with a log-normal kernel is not symmetric")
	}
	if r := p.logRatio([]float64{0, 1}, []float64{5, math.E}, 1); math.Abs(r-1) > 1e-12 {
		tst.Error("Wrong block log ratio:", r)
	}
	if !NormalProposal(1, 2).Symmetric() {
		tst.Error("Normal proposal should be symmetric")
	}
}

func TestRunChains(tst *testing.T) {
	run := func(rng *rand.Rand, i int) (*Chain, error) {
		m := NewMH(NewTarget(1, beta84), NormalProposal(0.1), rng)
		return m.Run([]float64{0.5}, 500)
	}
	a, err := RunChains(4, 10, run)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	b, err := RunChains(4, 10, run)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	for i := range a {
		for j := range a[i].Draws {
			if a[i].Draws[j][0] != b[i].Draws[j][0] {
				tst.Fatalf("Chain %d differs at %d", i, j)
			}
		}
	}
	if a[0].Draws[499][0] == a[1].Draws[499][0] && a[0].Accepted == a[1].Accepted {
		tst.Error("Chains are not independent")
	}

	fail := errors.New("fail")
	_, err = RunChains(3, 1, func(rng *rand.Rand, i int) (*Chain, error) {
		if i == 2 {
			return nil, fail
		}
		return NewChain([]string{"x"}, 0), nil
	})
	if !errors.Is(err, fail) {
		tst.Error("Expected chain error, got", err)
	}
	if _, err := RunChains(0, 1, run); err == nil {
		tst.Error("Expected error for zero chains")
	}
}
