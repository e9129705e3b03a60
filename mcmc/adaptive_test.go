package mcmc

import (
	"errors"
	"math"
	"testing"
)

func TestAdaptiveWindow(tst *testing.T) {
	as := NewAdaptiveSettings()
	as.WSize = 10
	a := NewAdaptive(2, 1, as)

	for i := 0; i < 9; i++ {
		a.Update(i, 0, false)
	}
	if a.Scale(0) != 1 {
		tst.Error("Scale changed before the window is full:", a.Scale(0))
	}
	a.Update(9, 0, false)
	if math.Abs(a.Scale(0)-1/1.5) > 1e-12 {
		tst.Error("Expected scale decrease, got", a.Scale(0))
	}
	if a.Scale(1) != 1 {
		tst.Error("Other block changed:", a.Scale(1))
	}

	for i := 0; i < 10; i++ {
		a.Update(10+i, 1, true)
	}
	if math.Abs(a.Scale(1)-1.5) > 1e-12 {
		tst.Error("Expected scale increase, got", a.Scale(1))
	}

	// 3 of 10 accepted is within [0.2, 0.5]
	for i := 0; i < 10; i++ {
		a.Update(20+i, 1, i < 3)
	}
	if math.Abs(a.Scale(1)-1.5) > 1e-12 {
		tst.Error("Scale changed within the band:", a.Scale(1))
	}
}

func TestAdaptiveFreeze(tst *testing.T) {
	as := NewAdaptiveSettings()
	as.WSize = 5
	as.MaxAdapt = 20
	a := NewAdaptive(1, 1, as)
	for i := 0; i < 20; i++ {
		a.Update(i, 0, true)
	}
	s := a.Scale(0)
	if a.Frozen() || s == 1 {
		tst.Error("Expected adaptation, got", s, a.Frozen())
	}
	for i := 20; i < 100; i++ {
		a.Update(i, 0, true)
	}
	if !a.Frozen() || a.Scale(0) != s {
		tst.Error("Scale changed after freezing:", a.Scale(0))
	}
}

func TestAdaptiveSettings(tst *testing.T) {
	as := NewAdaptiveSettings()
	as.SetTarget(0.44)
	if math.Abs(as.Low-0.34) > 1e-12 || math.Abs(as.High-0.54) > 1e-12 {
		tst.Error("Wrong band:", as.Low, as.High)
	}
	if err := as.check(); err != nil {
		tst.Error("Error:", err)
	}
	for _, rate := range []float64{0.05, 0.95, 0, 1} {
		as.SetTarget(rate)
		if err := as.check(); err != nil {
			tst.Errorf("Target %v: %v", rate, err)
		}
	}
	as.SetTarget(0.05)
	if as.Low != 0 || math.Abs(as.High-0.15) > 1e-12 {
		tst.Error("Wrong clipped band:", as.Low, as.High)
	}
	as.SetTarget(0.95)
	if math.Abs(as.Low-0.85) > 1e-12 || as.High != 1 {
		tst.Error("Wrong clipped band:", as.Low, as.High)
	}
}

func TestAdaptiveSetScales(tst *testing.T) {
	a := NewAdaptive(2, 1, NewAdaptiveSettings())
	if err := a.SetScales([]float64{0.3, 2}); err != nil {
		tst.Fatal("Error:", err)
	}
	if a.Scale(0) != 0.3 || a.Scale(1) != 2 {
		tst.Error("Wrong scales:", a.Scales())
	}
	if err := a.SetScales([]float64{1}); err == nil {
		tst.Error("Expected error for wrong number of scales")
	}
	if err := a.SetScales([]float64{1, 0}); err == nil {
		tst.Error("Expected error for zero scale")
	}
}

func TestConfigValidate(tst *testing.T) {
	c := &Config{Iterations: 500, BurnIn: 500, Initial: []float64{0.5}, Scale: 1}
	if err := c.Validate(); !errors.Is(err, ErrInsufficientSamples) {
		tst.Error("Expected insufficient samples, got", err)
	}
	c.BurnIn = 499
	if err := c.Validate(); err != nil {
		tst.Error("Error:", err)
	}
	c.Initial = nil
	if err := c.Validate(); !errors.Is(err, ErrInvalidInitialState) {
		tst.Error("Expected invalid initial state, got", err)
	}
	c.Initial = []float64{0.5}
	c.Scale = 0
	if err := c.Validate(); err == nil {
		tst.Error("Expected error for zero scale")
	}
	c.Scale = 1
	c.Iterations = 0
	if err := c.Validate(); err == nil {
		tst.Error("Expected error for zero iterations")
	}
}
