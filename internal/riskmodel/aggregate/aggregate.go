// Package aggregate reduces a checkpoint's per-iteration total cost samples
// to the percentile summary reported in a SimulationResult.
package aggregate

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentiles holds the empirical P20/P50/P80 of a checkpoint's totals.
type Percentiles struct {
	P20 float64
	P50 float64
	P80 float64
}

// Compute sorts a copy of totals and evaluates the empirical percentiles by
// linear interpolation between adjacent ranks (gonum's stat.LinInterp
// cumulant kind), matching §4.6.
func Compute(totals []float64) Percentiles {
	if len(totals) == 0 {
		return Percentiles{}
	}

	sorted := make([]float64, len(totals))
	copy(sorted, totals)
	sort.Float64s(sorted)

	return Percentiles{
		P20: stat.Quantile(0.20, stat.LinInterp, sorted, nil),
		P50: stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P80: stat.Quantile(0.80, stat.LinInterp, sorted, nil),
	}
}
