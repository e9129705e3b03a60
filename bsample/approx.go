package main

import (
	"fmt"

	"bitbucket.org/Davydov/bsample/diagnostics"
	"bitbucket.org/Davydov/bsample/laplace"
	"bitbucket.org/Davydov/bsample/models"
)

// univariate is a model with a scalar log density and closed form
// derivatives.
type univariate interface {
	Log(float64) float64
	Deriv(float64) float64
	Deriv2(float64) float64
	Region() (lo, hi float64)
}

// getMethodFromString returns a mode search method from a string.
func getMethodFromString(method string) (laplace.Method, error) {
	switch method {
	case "bfgs":
		return laplace.BFGS, nil
	case "simplex":
		return laplace.NelderMead, nil
	case "lbfgsb":
		return laplace.LBFGSB, nil
	}
	return 0, fmt.Errorf("unknown mode search method: %s", method)
}

// approximate computes the Laplace approximation of a model.
func approximate(name string, cfg *Config) (*LaplaceSummary, error) {
	lc := &cfg.Laplace
	m, err := cfg.Models.Get(name)
	if err != nil {
		return nil, err
	}
	s := laplace.DefaultSettings()
	s.MaxIter = lc.MaxIter
	s.Bounds = lc.Bounds

	method := lc.Method
	u, isUnivariate := m.(univariate)
	if method == "auto" {
		method = "bfgs"
		if isUnivariate {
			method = "bisection"
		}
	}
	log.Infof("Laplace approximation of %s, method %s", name, method)

	var a *laplace.Approximation
	if method == "bisection" {
		if !isUnivariate {
			return nil, fmt.Errorf("bisection is only available for univariate models")
		}
		s.Deriv = u.Deriv
		s.Deriv2 = u.Deriv2
		lo, hi := u.Region()
		if len(lc.Bounds) == 1 {
			lo, hi = lc.Bounds[0][0], lc.Bounds[0][1]
		}
		a, err = laplace.Univariate(u.Log, lo, hi, s)
		if a != nil {
			a.Names = m.Target().Names
		}
	} else {
		s.Method, err = getMethodFromString(method)
		if err != nil {
			return nil, err
		}
		x0 := cfg.Sampler.Initial
		if len(x0) == 0 {
			x0 = m.Initial()
		}
		a, err = laplace.Approximate(m.Target(), x0, s)
	}
	if err != nil {
		return nil, err
	}

	summary := &LaplaceSummary{
		Model:      name,
		Method:     method,
		Level:      lc.Level,
		LogDensity: a.LogDensity,
		Parameters: make([]ApproxParameter, len(a.Mode)),
		Cov:        make([][]float64, len(a.Mode)),
	}
	cm, _ := m.(models.Conjugate)
	for i := range a.Mode {
		p := &summary.Parameters[i]
		p.Name, p.Mode, p.SD = a.Names[i], a.Mode[i], a.SD[i]
		if cm != nil {
			if exact := cm.Posterior(i); exact != nil {
				c, err := laplace.Compare(a, i, exact, lc.Level)
				if err != nil {
					return nil, err
				}
				p.Interval = c.Approximate
				p.Exact = &diagnostics.Interval{Lower: c.Exact.Lower, Upper: c.Exact.Upper}
				continue
			}
		}
		if p.Interval, err = a.Interval(i, lc.Level); err != nil {
			return nil, err
		}
	}
	for i := range summary.Cov {
		summary.Cov[i] = make([]float64, len(a.Mode))
		for j := range summary.Cov[i] {
			summary.Cov[i][j] = a.Cov.At(i, j)
		}
	}
	return summary, nil
}
