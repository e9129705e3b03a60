// Package dist implements densities, quantiles and random variates of
// the distributions used by the posterior models.
package dist

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// QuantileNormal returns quantile for the standard normal
// distribution.
func QuantileNormal(prob float64) float64 {
	return mathext.NormalQuantile(prob)
}

// QuantileGamma returns quantile for gamma distribution with given
// shape and rate.
func QuantileGamma(prob, shape, rate float64) float64 {
	return mathext.GammaIncRegInv(shape, prob) / rate
}

// QuantileBeta returns quantile for beta distribution.
func QuantileBeta(prob, a, b float64) float64 {
	return mathext.InvRegIncBeta(a, b, prob)
}

// IncompleteGamma returns the regularized incomplete gamma ratio
// I(x,alpha) where x is the upper limit of the integration and alpha
// is the shape parameter.
func IncompleteGamma(x, alpha float64) float64 {
	return mathext.GammaIncReg(alpha, x)
}

// CDFBeta returns the incomplete beta ratio I_x(p,q).
func CDFBeta(x, p, q float64) float64 {
	return mathext.RegIncBeta(p, q, x)
}

// LnBeta returns log of Beta function.
func LnBeta(p, q float64) float64 {
	lgp, _ := math.Lgamma(p)
	lgq, _ := math.Lgamma(q)
	lgpq, _ := math.Lgamma(p + q)
	return lgp + lgq - lgpq
}

// LnChoose returns log of the binomial coefficient.
func LnChoose(n, k int) float64 {
	return -math.Log(float64(n)+1) - LnBeta(float64(n-k)+1, float64(k)+1)
}

// LogBeta returns the log density of Beta(a, b) at x.
func LogBeta(x, a, b float64) float64 {
	if x < 0 || x > 1 {
		return math.Inf(-1)
	}
	return (a-1)*math.Log(x) + (b-1)*math.Log1p(-x) - LnBeta(a, b)
}

// LogGamma returns the log density of Gamma(shape, rate) at x.
func LogGamma(x, shape, rate float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}
	g, _ := math.Lgamma(shape)
	return shape*math.Log(rate) - g + (shape-1)*math.Log(x) - rate*x
}

// LogNormal returns the log density of N(mean, sd^2) at x.
func LogNormal(x, mean, sd float64) float64 {
	z := (x - mean) / sd
	return -0.5*z*z - math.Log(sd) - 0.5*math.Log(2*math.Pi)
}

// LogPoisson returns the log probability of k events with rate
// lambda.
func LogPoisson(k int, lambda float64) float64 {
	if lambda < 0 || k < 0 {
		return math.Inf(-1)
	}
	if lambda == 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	lf, _ := math.Lgamma(float64(k) + 1)
	return float64(k)*math.Log(lambda) - lambda - lf
}

// LogBinomial returns the log probability of k successes out of n
// with success probability p.
func LogBinomial(k, n int, p float64) float64 {
	if p < 0 || p > 1 || k < 0 || k > n {
		return math.Inf(-1)
	}
	return LnChoose(n, k) + xlogy(float64(k), p) + xlogy(float64(n-k), 1-p)
}

// xlogy returns x*log(y), zero if x is zero.
func xlogy(x, y float64) float64 {
	if x == 0 {
		return 0
	}
	return x * math.Log(y)
}

// RandGamma draws from Gamma(shape, rate) using rng.
func RandGamma(rng *rand.Rand, shape, rate float64) float64 {
	return distuv.Gamma{Alpha: shape, Beta: rate, Src: rng}.Rand()
}

// RandBeta draws from Beta(a, b) using rng.
func RandBeta(rng *rand.Rand, a, b float64) float64 {
	return distuv.Beta{Alpha: a, Beta: b, Src: rng}.Rand()
}

// RandNormal draws from N(mean, sd^2) using rng.
func RandNormal(rng *rand.Rand, mean, sd float64) float64 {
	return mean + rng.NormFloat64()*sd
}
