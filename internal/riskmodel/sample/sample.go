// Package sample draws correlated Monte Carlo iterations for one checkpoint:
// lognormal cost draws for CAPEX items and Bernoulli-gated lognormal impact
// draws for risks.
package sample

import (
	"context"
	"math"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ElementParams is the lognormal (mu, sigma) pair active for one element at
// the checkpoint being sampled.
type ElementParams struct {
	Mu    float64
	Sigma float64
}

// RiskDraw is the Bernoulli probability and conditional impact distribution
// for one risk, active at the checkpoint being sampled. Risks with Active
// false (not yet logged) never fire and never contribute.
type RiskDraw struct {
	P      float64
	Impact ElementParams
	Active bool
}

// ExtraDraw is an independent additive lognormal draw layered on top of the
// correlated items+risks block — used for cost_adjustment actions, whose
// delta uncertainty is not part of the correlation structure built over the
// dataset's items and risks. Each extra draws from its own sub-stream, keyed
// by SeedSalt, so it is independent of every other draw in the iteration and
// of the worker/chunk layout.
type ExtraDraw struct {
	Params   ElementParams
	SeedSalt uint64
}

// Totals draws nIterations correlated samples and returns, for each
// iteration, the total cost: the sum of every CAPEX item's lognormal draw,
// every active risk's Bernoulli-gated impact draw, and every independent
// extra draw.
//
// l is the Cholesky factor of the joint correlation matrix over
// len(items)+len(risks) elements, items first then risks, matching the
// ordering used to build the correlation matrix. Iterations are split across
// workers goroutines; each iteration's draws come from an independent
// counter-based sub-stream of seed, so the result is identical regardless of
// how the goroutines are scheduled.
func Totals(ctx context.Context, nIterations int, l *mat.TriDense, items []ElementParams, risks []RiskDraw, extras []ExtraDraw, seed uint64, workers int) ([]float64, error) {
	dim := len(items) + len(risks)
	totals := make([]float64, nIterations)

	if nIterations == 0 || dim == 0 {
		return totals, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (nIterations + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < nIterations; start += chunkSize {
		start := start
		end := start + chunkSize
		if end > nIterations {
			end = nIterations
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			z := make([]float64, dim)
			y := make([]float64, dim)
			for k := start; k < end; k++ {
				if (k-start)%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				drawIteration(seed, uint64(k), l, items, risks, extras, z, y, totals)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return totals, nil
}

// drawIteration computes totals[k] in place. z and y are caller-owned
// scratch buffers so a chunk's goroutine does not allocate per iteration.
func drawIteration(seed, k uint64, l *mat.TriDense, items []ElementParams, risks []RiskDraw, extras []ExtraDraw, z, y []float64, totals []float64) {
	src := rand.NewSource(mixSeed(seed, k))
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}

	for i := range z {
		z[i] = normal.Rand()
	}
	correlate(l, z, y)

	var total float64
	for i, p := range items {
		total += p.Sample(y[i])
	}
	for j, r := range risks {
		if !r.Active {
			continue
		}
		if uniform.Rand() < r.P {
			total += r.Impact.Sample(y[len(items)+j])
		}
	}
	for _, e := range extras {
		extraSrc := rand.NewSource(mixSeed(seed^e.SeedSalt, k))
		extraNormal := distuv.Normal{Mu: 0, Sigma: 1, Src: extraSrc}
		total += e.Params.Sample(extraNormal.Rand())
	}
	totals[k] = total
}

// Sample evaluates exp(mu + sigma*z), matching fit.Params.Sample without an
// import-cycle back to the fit package.
func (p ElementParams) Sample(z float64) float64 {
	return math.Exp(p.Mu + p.Sigma*z)
}

// correlate computes y = L*z for a lower-triangular L, writing into y.
func correlate(l *mat.TriDense, z, y []float64) {
	n, _ := l.Dims()
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j <= i; j++ {
			sum += l.At(i, j) * z[j]
		}
		y[i] = sum
	}
}

// mixSeed derives a per-iteration sub-stream seed from the master seed and
// the iteration counter using a splitmix64-style mix, so results are
// reproducible independent of goroutine scheduling order.
func mixSeed(seed, counter uint64) int64 {
	z := seed + counter*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z = z ^ (z >> 31)
	return int64(z)
}
