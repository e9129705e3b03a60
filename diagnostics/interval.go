package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"bitbucket.org/Davydov/bsample/mcmc"
)

// Interval is a credible interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns the interval width.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// Contains returns true if x is inside the interval.
func (i Interval) Contains(x float64) bool {
	return x >= i.Lower && x <= i.Upper
}

func (i Interval) String() string {
	return fmt.Sprintf("[%f, %f]", i.Lower, i.Upper)
}

// checkLevel checks that the coverage is in (0, 1).
func checkLevel(level float64) error {
	if !(level > 0 && level < 1) {
		return fmt.Errorf("coverage should be in (0, 1), got %v", level)
	}
	return nil
}

// sorted returns a sorted copy of x.
func sorted(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}

// Quantile returns the p-quantile of sorted values, linearly
// interpolating between the order statistics at (n-1)p.
func Quantile(s []float64, p float64) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	h := float64(len(s)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= len(s)-1 {
		return s[len(s)-1]
	}
	return s[i] + (h-lo)*(s[i+1]-s[i])
}

// EqualTailed returns the interval between the (1-level)/2 and
// (1+level)/2 empirical quantiles.
func EqualTailed(x []float64, level float64) (Interval, error) {
	if err := checkLevel(level); err != nil {
		return Interval{}, err
	}
	if len(x) == 0 {
		return Interval{}, fmt.Errorf("no values: %w", mcmc.ErrInsufficientSamples)
	}
	s := sorted(x)
	return equalTailed(s, level), nil
}

func equalTailed(s []float64, level float64) Interval {
	alpha := 1 - level
	return Interval{
		Lower: Quantile(s, alpha/2),
		Upper: Quantile(s, 1-alpha/2),
	}
}

// HDI returns the highest density interval: the narrowest interval
// spanning ceil(level*n) sorted values. Ties are resolved in favour of
// the lowest interval.
func HDI(x []float64, level float64) (Interval, error) {
	if err := checkLevel(level); err != nil {
		return Interval{}, err
	}
	if len(x) == 0 {
		return Interval{}, fmt.Errorf("no values: %w", mcmc.ErrInsufficientSamples)
	}
	s := sorted(x)
	return hdi(s, level), nil
}

func hdi(s []float64, level float64) Interval {
	n := len(s)
	// level*n is often a tiny bit above an integer
	m := int(math.Ceil(level*float64(n) - 1e-9))
	if m < 1 {
		m = 1
	}
	best := 0
	width := math.Inf(1)
	for i := 0; i+m-1 < n; i++ {
		if w := s[i+m-1] - s[i]; w < width {
			width = w
			best = i
		}
	}
	return Interval{Lower: s[best], Upper: s[best+m-1]}
}
