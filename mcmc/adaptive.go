package mcmc

import (
	"fmt"
	"math"
)

// AdaptiveSettings are settings for proposal step tuning.
type AdaptiveSettings struct {
	// WSize is the window size used to compute the acceptance
	// rate.
	WSize int
	// MaxAdapt is the number of iterations to adapt. The scale is
	// fixed afterwards.
	MaxAdapt int
	// Low is the lowest acceptable acceptance rate.
	Low float64
	// High is the highest acceptable acceptance rate.
	High float64
	// Factor is the multiplicative scale change.
	Factor float64
}

// NewAdaptiveSettings creates new settings for adaptive MCMC.
func NewAdaptiveSettings() *AdaptiveSettings {
	return &AdaptiveSettings{
		WSize:    50,
		MaxAdapt: 2000,
		Low:      0.2,
		High:     0.5,
		Factor:   1.5,
	}
}

// SetTarget sets the acceptance band around rate, clipped to
// [0, 1].
func (as *AdaptiveSettings) SetTarget(rate float64) {
	as.Low = math.Max(rate-0.1, 0)
	as.High = math.Min(rate+0.1, 1)
}

func (as *AdaptiveSettings) String() string {
	return fmt.Sprintf("Adaptive MCMC (WSize=%v, MaxAdapt=%v, Low=%v, High=%v, Factor=%v)",
		as.WSize, as.MaxAdapt, as.Low, as.High, as.Factor)
}

func (as *AdaptiveSettings) check() error {
	switch {
	case as.WSize < 1:
		return fmt.Errorf("window size should be >= 1, got %d", as.WSize)
	case as.MaxAdapt < 0:
		return fmt.Errorf("number of adaptive iterations should be >= 0, got %d", as.MaxAdapt)
	case !(as.Low >= 0 && as.Low < as.High && as.High <= 1):
		return fmt.Errorf("incorrect acceptance band [%v, %v]", as.Low, as.High)
	case as.Factor <= 1:
		return fmt.Errorf("scale factor should be > 1, got %v", as.Factor)
	}
	return nil
}

// Adaptive is the tuning state of one chain. Every block (the whole
// vector for block updates, or a single coordinate) has its own scale
// and acceptance window.
type Adaptive struct {
	*AdaptiveSettings
	scales   []float64
	vals     []chan bool
	accepted []int
	frozen   bool
	updates  int
}

// NewAdaptive creates a tuning state for nblocks blocks starting at
// scale.
func NewAdaptive(nblocks int, scale float64, as *AdaptiveSettings) (a *Adaptive) {
	a = &Adaptive{
		AdaptiveSettings: as,
		scales:           make([]float64, nblocks),
		vals:             make([]chan bool, nblocks),
		accepted:         make([]int, nblocks),
	}
	for b := range a.scales {
		a.scales[b] = scale
		a.vals[b] = make(chan bool, as.WSize)
	}
	return
}

// Scale returns the current scale of block b.
func (a *Adaptive) Scale(b int) float64 {
	return a.scales[b]
}

// Scales returns a copy of all the scales.
func (a *Adaptive) Scales() []float64 {
	s := make([]float64, len(a.scales))
	copy(s, a.scales)
	return s
}

// SetScales replaces the scales of all the blocks.
func (a *Adaptive) SetScales(s []float64) error {
	if len(s) != len(a.scales) {
		return fmt.Errorf("%d scales for %d blocks", len(s), len(a.scales))
	}
	for b, v := range s {
		if !(v > 0) || math.IsInf(v, 1) {
			return fmt.Errorf("scale of block %d should be > 0, got %v", b, v)
		}
	}
	copy(a.scales, s)
	return nil
}

// Frozen is true once adaptation stopped.
func (a *Adaptive) Frozen() bool {
	return a.frozen
}

// Update records the outcome of a proposal for block b at iteration
// iter and rescales the block if the window acceptance rate left the
// band.
func (a *Adaptive) Update(iter, b int, accepted bool) {
	if a.frozen {
		return
	}
	if iter >= a.MaxAdapt {
		a.freeze()
		return
	}
	if len(a.vals[b]) == a.WSize {
		if <-a.vals[b] {
			a.accepted[b]--
		}
	}
	a.vals[b] <- accepted
	if accepted {
		a.accepted[b]++
	}
	if len(a.vals[b]) < a.WSize {
		return
	}

	rate := float64(a.accepted[b]) / float64(a.WSize)
	switch {
	case rate < a.Low:
		a.scales[b] /= a.Factor
	case rate > a.High:
		a.scales[b] *= a.Factor
	default:
		return
	}
	a.updates++
	log.Debugf("block %d: acceptance %.2f%%, scale=%v", b, 100*rate, a.scales[b])

	// the next decision only uses proposals made with the new scale
	for len(a.vals[b]) > 0 {
		<-a.vals[b]
	}
	a.accepted[b] = 0
}

// freeze stops adaptation.
func (a *Adaptive) freeze() {
	a.frozen = true
	log.Infof("Adaptation finished after %d iterations (%d rescales), scales=%v", a.MaxAdapt, a.updates, a.scales)
}
