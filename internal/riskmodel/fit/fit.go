// Package fit converts percentile cost quotes into lognormal distribution
// parameters on the log scale.
package fit

import (
	"fmt"
	"math"
)

// Z10 and Z90 are the standard-normal quantiles at 0.10 and 0.90. These exact
// constants are load-bearing: implementations that recompute them from
// scratch (e.g. via a different inverse-CDF approximation) can disagree in
// the ninth decimal place, which is enough to fail the cross-implementation
// round-trip check in §8.
const (
	Z10 = -1.2815515655
	Z90 = 1.2815515655
)

// Params holds the (mu, sigma) parameters of a lognormal distribution on the
// log scale.
type Params struct {
	Mu    float64
	Sigma float64
}

// Fit recovers lognormal parameters from a P10/P90 percentile quote.
//
// P10 and P90 must both be strictly positive and P10 must not exceed P90.
// When P10 == P90 the distribution collapses to the degenerate case: Sigma
// is zero and every draw equals P10 exactly.
func Fit(p10, p90 float64) (Params, error) {
	if !(p10 > 0) || !(p90 > 0) {
		return Params{}, fmt.Errorf("fit: p10 and p90 must be strictly positive, got p10=%v p90=%v", p10, p90)
	}
	if p10 > p90 {
		return Params{}, fmt.Errorf("fit: p10 (%v) must not exceed p90 (%v)", p10, p90)
	}
	if p10 == p90 {
		return Params{Mu: math.Log(p10), Sigma: 0}, nil
	}

	sigma := (math.Log(p90) - math.Log(p10)) / (Z90 - Z10)
	mu := math.Log(p10) - Z10*sigma
	return Params{Mu: mu, Sigma: sigma}, nil
}

// Median returns the distribution's median, exp(mu) — the "deterministic"
// point estimate used throughout the engine.
func (p Params) Median() float64 {
	return math.Exp(p.Mu)
}

// Sample evaluates the lognormal inverse transform for a single standard
// normal draw z: exp(mu + sigma*z). When Sigma is zero this always returns
// the median, matching the degenerate case in §4.2.
func (p Params) Sample(z float64) float64 {
	return math.Exp(p.Mu + p.Sigma*z)
}
