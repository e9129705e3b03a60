package mcmc

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/stat"

	"bitbucket.org/Davydov/bsample/checkpoint"
)

// beta84 is the unnormalized log density of Beta(8, 4).
func beta84(x []float64) float64 {
	p := x[0]
	if p <= 0 || p >= 1 {
		return math.Inf(-1)
	}
	return 7*math.Log(p) + 3*math.Log(1-p)
}

// normal2 is two independent normals N(1, 1) and N(-2, 0.5^2).
func normal2(x []float64) float64 {
	d0 := x[0] - 1
	d1 := (x[1] + 2) / 0.5
	return -0.5 * (d0*d0 + d1*d1)
}

func TestMHBeta(tst *testing.T) {
	t := NewTarget(1, beta84)
	m := NewMH(t, NormalProposal(0.1), NewRand(1, 0))
	m.Quiet = true
	c, err := m.Run([]float64{0.5}, 50000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if c.Len() != 50000 {
		tst.Error("Wrong chain length:", c.Len())
	}
	mean := stat.Mean(c.Column(0, 5000), nil)
	if math.Abs(mean-8.0/12) > 0.02 {
		tst.Error("Wrong posterior mean, expected 0.667, got", mean)
	}
	if r := c.AcceptanceRate(); r <= 0 || r >= 1 {
		tst.Error("Wrong acceptance rate:", r)
	}
	for _, x := range c.Draws {
		if x[0] <= 0 || x[0] >= 1 {
			tst.Fatal("Draw outside of the support:", x)
		}
	}
}

func TestMHDeterministic(tst *testing.T) {
	run := func(seed uint64) *Chain {
		m := NewMH(NewTarget(1, beta84), NormalProposal(0.1), NewRand(seed, 0))
		m.Adaptive = NewAdaptiveSettings()
		c, err := m.Run([]float64{0.5}, 3000)
		if err != nil {
			tst.Fatal("Error:", err)
		}
		return c
	}
	c1, c2, c3 := run(42), run(42), run(43)
	same := true
	for i := range c1.Draws {
		if c1.Draws[i][0] != c2.Draws[i][0] {
			tst.Fatal("Chains with the same seed differ at", i)
		}
		if c1.Draws[i][0] != c3.Draws[i][0] {
			same = false
		}
	}
	if c1.Accepted != c2.Accepted {
		tst.Error("Accepted counts differ:", c1.Accepted, c2.Accepted)
	}
	if same {
		tst.Error("Chains with different seeds are identical")
	}
}

func TestMHAlwaysAccept(tst *testing.T) {
	m := NewMH(NewTarget(1, nil), NormalProposal(1), NewRand(1, 0))
	for _, logA := range []float64{0, 1e-300, 1, 1000, math.Inf(1)} {
		for i := 0; i < 100; i++ {
			if !m.accept(logA) {
				tst.Fatal("Rejected with log ratio", logA)
			}
		}
	}
	for i := 0; i < 100; i++ {
		if m.accept(math.Inf(-1)) {
			tst.Fatal("Accepted zero density")
		}
	}

	// flat target: every ratio is one
	flat := NewTarget(2, func([]float64) float64 { return 0 })
	m = NewMH(flat, NormalProposal(1, 1), NewRand(2, 0))
	c, err := m.Run([]float64{0, 0}, 1000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if c.Accepted != 1000 || c.Proposed != 1000 {
		tst.Error("Expected all proposals accepted, got", c.Accepted, "of", c.Proposed)
	}
}

func TestMHRejectKeepsState(tst *testing.T) {
	// proposals always land outside of the support
	t := NewTarget(1, func(x []float64) float64 {
		if x[0] != 0.5 {
			return math.Inf(-1)
		}
		return 0
	})
	m := NewMH(t, NormalProposal(1), NewRand(3, 0))
	c, err := m.Run([]float64{0.5}, 100)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if c.Accepted != 0 {
		tst.Error("Expected no accepted proposals, got", c.Accepted)
	}
	for _, x := range c.Draws {
		if x[0] != 0.5 {
			tst.Fatal("State changed after rejection:", x)
		}
	}
}

func TestMHImpossibleReverseMove(tst *testing.T) {
	// q(x|y) = 0: every candidate is rejected without a fault
	p := NormalProposal(1)
	p.LogRatio = func(x, y []float64, scale float64) float64 {
		return math.Inf(-1)
	}
	m := NewMH(NewTarget(1, func(x []float64) float64 { return -x[0] * x[0] / 2 }), p, NewRand(3, 0))
	c, err := m.Run([]float64{0.2}, 500)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if c.Accepted != 0 || c.Proposed != 500 {
		tst.Error("Expected every proposal rejected, got", c.Accepted, "of", c.Proposed)
	}
	for _, x := range c.Draws {
		if x[0] != 0.2 {
			tst.Fatal("State changed after rejection:", x)
		}
	}

	for _, r := range []float64{math.NaN(), math.Inf(1)} {
		p.LogRatio = func(x, y []float64, scale float64) float64 { return r }
		m = NewMH(NewTarget(1, func(x []float64) float64 { return 0 }), p, NewRand(3, 0))
		if _, err := m.Run([]float64{0}, 10); !errors.Is(err, ErrDomain) {
			tst.Error("Expected domain error for log ratio", r, "got", err)
		}
	}
}

func TestMHLongChainMean(tst *testing.T) {
	if testing.Short() {
		tst.Skip("long chain")
	}
	m := NewMH(NewTarget(1, beta84), NormalProposal(0.1), NewRand(21, 0))
	m.Quiet = true
	c, err := m.Run([]float64{0.5}, 100000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if mean := stat.Mean(c.Column(0, 10000), nil); math.Abs(mean-8.0/12) > 0.01 {
		tst.Error("Wrong posterior mean, expected 0.667, got", mean)
	}
}

func TestMHInvalidInitialState(tst *testing.T) {
	m := NewMH(NewTarget(1, beta84), NormalProposal(0.1), NewRand(1, 0))
	for _, x0 := range [][]float64{{1.5}, {0}, {0.5, 0.5}} {
		if _, err := m.Run(x0, 100); !errors.Is(err, ErrInvalidInitialState) {
			tst.Error("Expected invalid initial state for", x0, "got", err)
		}
	}
}

func TestMHDomainError(tst *testing.T) {
	t := NewTarget(1, func(x []float64) float64 {
		if x[0] > 1 {
			return math.NaN()
		}
		return 0
	})
	m := NewMH(t, NormalProposal(1), NewRand(1, 0))
	_, err := m.Run([]float64{0}, 1000)
	if !errors.Is(err, ErrDomain) {
		tst.Fatal("Expected domain error, got", err)
	}
	var serr *SampleError
	if !errors.As(err, &serr) || serr.Coord != -1 {
		tst.Error("Expected a block sample error, got", err)
	}
}

func TestMHLogNormal(tst *testing.T) {
	// Gamma(3, 2) with a multiplicative proposal
	t := NewTarget(1, func(x []float64) float64 {
		if x[0] <= 0 {
			return math.Inf(-1)
		}
		return 2*math.Log(x[0]) - 2*x[0]
	})
	m := NewMH(t, BlockProposal(LogNormalKernel(0.5)), NewRand(5, 0))
	m.Quiet = true
	c, err := m.Run([]float64{1}, 40000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	mean := stat.Mean(c.Column(0, 4000), nil)
	if math.Abs(mean-1.5) > 0.05 {
		tst.Error("Wrong mean, expected 1.5, got", mean)
	}
}

func TestComponentwise(tst *testing.T) {
	t := NewTarget(2, normal2)
	m := NewComponentwiseMH(t, []Kernel{NormalKernel(1), UniformKernel(1)}, NewRand(7, 0))
	c, err := m.Run([]float64{0, 0}, 20000)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if c.Proposed != 40000 {
		tst.Error("Expected one proposal per coordinate and iteration, got", c.Proposed)
	}
	m0, sd0 := stat.MeanStdDev(c.Column(0, 2000), nil)
	m1, sd1 := stat.MeanStdDev(c.Column(1, 2000), nil)
	if math.Abs(m0-1) > 0.1 || math.Abs(m1+2) > 0.05 {
		tst.Error("Wrong means:", m0, m1)
	}
	if math.Abs(sd0-1) > 0.1 || math.Abs(sd1-0.5) > 0.05 {
		tst.Error("Wrong standard deviations:", sd0, sd1)
	}
	if len(m.Scales()) != 2 {
		tst.Error("Expected a scale per coordinate, got", m.Scales())
	}
}

func TestComponentwiseDomainError(tst *testing.T) {
	t := NewTarget(2, func(x []float64) float64 {
		if x[1] > 1 {
			return math.Inf(1)
		}
		return 0
	})
	m := NewComponentwiseMH(t, Kernels(NormalKernel(1), 2), NewRand(1, 0))
	_, err := m.Run([]float64{0, 0}, 1000)
	var serr *SampleError
	if !errors.As(err, &serr) || serr.Coord != 1 || !errors.Is(err, ErrDomain) {
		tst.Error("Expected domain error in coordinate 1, got", err)
	}
}

func TestAdaptiveMH(tst *testing.T) {
	t := NewTarget(1, func(x []float64) float64 { return -x[0] * x[0] / 2 })
	m := NewMH(t, NormalProposal(1), NewRand(11, 0))
	m.Scale = 0.001
	m.Adaptive = NewAdaptiveSettings()
	m.Adaptive.MaxAdapt = 3000
	m.Adaptive.SetTarget(0.3)
	if _, err := m.Run([]float64{0}, 5000); err != nil {
		tst.Fatal("Error:", err)
	}
	if !m.adaptive.Frozen() {
		tst.Error("Adaptation did not stop")
	}
	s := m.Scales()[0]
	if s < 0.5 || s > 20 {
		tst.Error("Scale was not tuned, got", s)
	}

	// resumed chain keeps the stored scale once adaptation is over
	m.Adaptive.MaxAdapt = 0
	m.StartScales = []float64{0.37}
	if _, err := m.Run([]float64{0}, 100); err != nil {
		tst.Fatal("Error:", err)
	}
	if s := m.Scales()[0]; s != 0.37 {
		tst.Error("Start scale was not used, got", s)
	}
	m.StartScales = []float64{0.37, 1}
	if _, err := m.Run([]float64{0}, 100); err == nil {
		tst.Error("Expected error for wrong number of start scales")
	}
	m.StartScales = nil

	m.Adaptive.Factor = 1
	if _, err := m.Run([]float64{0}, 10); err == nil {
		tst.Error("Expected error for factor 1")
	}
}

type recorder struct {
	saved []*checkpoint.CheckpointData
}

func (r *recorder) Old() bool {
	return true
}

func (r *recorder) Save(data *checkpoint.CheckpointData) error {
	r.saved = append(r.saved, data)
	return nil
}

func TestMHTraceAndCheckpoint(tst *testing.T) {
	t := NewTarget(2, normal2)
	t.Names = []string{"a", "b"}
	m := NewMH(t, NormalProposal(1, 1), NewRand(1, 0))
	buf := &bytes.Buffer{}
	m.SetOutput(buf)
	m.SetReportPeriod(10)
	r := &recorder{}
	m.Checkpoint = r
	c, err := m.Run([]float64{0, 0}, 25)
	if err != nil {
		tst.Fatal("Error:", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		tst.Fatal("Expected header and 4 lines, got", lines)
	}
	if lines[0] != "iteration\tlikelihood\ta\tb" {
		tst.Error("Wrong header:", lines[0])
	}
	if !strings.HasPrefix(lines[4], "24\t") {
		tst.Error("Wrong last line:", lines[4])
	}

	last := r.saved[len(r.saved)-1]
	if !last.Final || last.Iter != 24 || last.Accepted != c.Accepted {
		tst.Error("Wrong final checkpoint:", last)
	}
	if last.Parameters["b"] != c.Draws[24][1] {
		tst.Error("Wrong checkpoint parameters:", last.Parameters)
	}
}
