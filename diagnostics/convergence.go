package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"bitbucket.org/Davydov/bsample/mcmc"
)

// Autocorrelation returns the autocorrelation of x for lags
// 0..len(x)-1. It uses FFT with zero padding, so the result is the
// usual biased estimator.
func Autocorrelation(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	mean := stat.Mean(x, nil)
	padded := make([]float64, 2*n)
	for i, v := range x {
		padded[i] = v - mean
	}
	fft := fourier.NewFFT(len(padded))
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		coeff[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	seq := fft.Sequence(nil, coeff)
	rho := make([]float64, n)
	if seq[0] == 0 {
		// constant sequence
		rho[0] = 1
		return rho
	}
	for k := range rho {
		rho[k] = seq[k] / seq[0]
	}
	return rho
}

// ESS returns the effective sample size of x computed with Geyer's
// initial positive sequence estimator.
func ESS(x []float64) float64 {
	n := len(x)
	if n < 4 {
		return float64(n)
	}
	rho := Autocorrelation(x)
	tau := -1.0
	for k := 0; k+1 < n; k += 2 {
		pair := rho[k] + rho[k+1]
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}
	if tau <= 0 {
		return float64(n)
	}
	return float64(n) / tau
}

// GelmanRubin returns the potential scale reduction factor R-hat for a
// set of chains of the same parameter. Values close to 1 indicate
// convergence.
func GelmanRubin(chains [][]float64) (float64, error) {
	m := len(chains)
	if m < 2 {
		return math.NaN(), fmt.Errorf("need at least 2 chains, got %d: %w", m, mcmc.ErrInsufficientSamples)
	}
	n := len(chains[0])
	if n < 2 {
		return math.NaN(), fmt.Errorf("need at least 2 draws per chain: %w", mcmc.ErrInsufficientSamples)
	}
	means := make([]float64, m)
	w := 0.0
	for j, c := range chains {
		if len(c) != n {
			return math.NaN(), fmt.Errorf("chain %d has %d draws, expected %d", j, len(c), n)
		}
		var v float64
		means[j], v = stat.MeanVariance(c, nil)
		w += v
	}
	w /= float64(m)
	b := float64(n) * stat.Variance(means, nil)
	if w == 0 {
		return math.NaN(), fmt.Errorf("zero within-chain variance")
	}
	vhat := (float64(n-1)/float64(n))*w + b/float64(n)
	return math.Sqrt(vhat / w), nil
}
