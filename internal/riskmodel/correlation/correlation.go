// Package correlation builds the joint correlation matrix over cost-bearing
// elements (CAPEX items and risks) from their categorical attributes,
// repairs it to positive semi-definiteness when needed, and factors it for
// sampling.
package correlation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Options holds the per-pair affinity contributions and repair tolerances.
// The coefficients default to the values below; implementations MAY expose
// them as configuration but MUST default to these for deterministic
// cross-implementation tests.
type Options struct {
	SameOwner           float64
	SameDiscipline      float64
	SamePhase           float64
	AdjacentPhase       float64
	SameLocation        float64
	ParentChildLocation float64
	SameRiskCategory    float64
	SameRiskLog         float64
	Cap                 float64

	EigenClipEpsilon float64 // replacement value for clipped negative eigenvalues
	JitterBase       float64 // starting lambda for the diagonal-jitter fallback
	JitterMaxSteps   int     // how many 10x jitter escalations to attempt
}

// DefaultOptions returns the fixed affinity coefficients from §4.3.
func DefaultOptions() Options {
	return Options{
		SameOwner:           0.5,
		SameDiscipline:      0.4,
		SamePhase:           0.3,
		AdjacentPhase:       0.2,
		SameLocation:        0.3,
		ParentChildLocation: 0.2,
		SameRiskCategory:    0.4,
		SameRiskLog:         0.2,
		Cap:                 0.95,

		EigenClipEpsilon: 1e-8,
		JitterBase:       1e-6,
		JitterMaxSteps:   12,
	}
}

// Element is the categorical fingerprint of one cost-bearing element (a
// CapexItem or a Risk), resolved against the lookup tables during
// validation. Zero-valued "Has*" fields mean the attribute is absent and
// must never be treated as matching another absent attribute (§9: "never as
// affinity with other missings").
type Element struct {
	Owner    string
	HasOwner bool

	DisciplineID    int64
	HasDiscipline   bool
	PhaseID         int64
	HasPhase        bool
	PhaseOrder      int
	HasPhaseOrder   bool
	LocationID      int64
	HasLocation     bool
	ParentLocID     int64
	HasParentLoc    bool
	RiskCategoryID  int64
	HasRiskCategory bool
	RiskLogID       int64
	HasRiskLog      bool

	IsRisk bool
}

// Affinity computes the symmetric pairwise score a(i,j) from §4.3, capped at
// Options.Cap. It never returns a negative value.
func Affinity(a, b Element, o Options) float64 {
	var sum float64

	if a.HasOwner && b.HasOwner && a.Owner == b.Owner {
		sum += o.SameOwner
	}
	if a.HasDiscipline && b.HasDiscipline && a.DisciplineID == b.DisciplineID {
		sum += o.SameDiscipline
	}

	switch {
	case a.HasPhase && b.HasPhase && a.PhaseID == b.PhaseID:
		sum += o.SamePhase
	case a.HasPhaseOrder && b.HasPhaseOrder && absInt(a.PhaseOrder-b.PhaseOrder) == 1:
		sum += o.AdjacentPhase
	}

	switch {
	case a.HasLocation && b.HasLocation && a.LocationID == b.LocationID:
		sum += o.SameLocation
	case isParentChild(a, b):
		sum += o.ParentChildLocation
	}

	if a.IsRisk && b.IsRisk {
		if a.HasRiskCategory && b.HasRiskCategory && a.RiskCategoryID == b.RiskCategoryID {
			sum += o.SameRiskCategory
		}
		if a.HasRiskLog && b.HasRiskLog && a.RiskLogID == b.RiskLogID {
			sum += o.SameRiskLog
		}
	}

	if sum > o.Cap {
		sum = o.Cap
	}
	return sum
}

func isParentChild(a, b Element) bool {
	if a.HasParentLoc && b.HasLocation && a.ParentLocID == b.LocationID {
		return true
	}
	if b.HasParentLoc && a.HasLocation && b.ParentLocID == a.LocationID {
		return true
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Matrix is the built, factored correlation matrix.
type Matrix struct {
	N             int
	Corr          *mat.SymDense // symmetric, unit diagonal, PSD (after repair)
	L             *mat.TriDense // lower-triangular Cholesky factor, Corr = L*L^T
	Repaired      bool          // true if eigenvalue clipping and/or jitter was needed
	MinEigenvalue float64       // minimum eigenvalue observed before repair (1.0 if never computed)
}

// Summary is the diagnostic payload reported alongside a SimulationResult.
type Summary struct {
	NonZeroOffDiagonalPairs int
	MeanOffDiagonal         float64
	PSDRepaired             bool
}

// FactorizationError is returned when Build cannot produce a valid Cholesky
// factor even after eigenvalue clipping and jitter escalation.
type FactorizationError struct {
	MinEigenvalue float64
}

func (e *FactorizationError) Error() string {
	return fmt.Sprintf("correlation: factorization failed after repair attempts (min eigenvalue observed: %g)", e.MinEigenvalue)
}

// Identity returns the independent-fallback matrix (L = I) used when
// correlation is disabled in the simulation configuration.
func Identity(n int) *Matrix {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	corr := mat.NewSymDense(n, data)
	l := mat.NewTriDense(n, mat.Lower, nil)
	for i := 0; i < n; i++ {
		l.SetTri(i, i, 1)
	}
	return &Matrix{N: n, Corr: corr, L: l, Repaired: false, MinEigenvalue: 1}
}

// Build constructs the affinity matrix over elements, repairs it to PSD if
// necessary, and factors it with Cholesky decomposition.
func Build(elements []Element, o Options) (*Matrix, Summary, error) {
	n := len(elements)
	if n == 0 {
		return &Matrix{N: 0, Corr: mat.NewSymDense(0, nil), L: mat.NewTriDense(0, mat.Lower, nil)}, Summary{}, nil
	}

	data := make([]float64, n*n)
	sym := mat.NewSymDense(n, data)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, 1)
	}

	nonZero := 0
	var sumOffDiag float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a := Affinity(elements[i], elements[j], o)
			sym.SetSym(i, j, a)
			if a > 0 {
				nonZero++
			}
			sumOffDiag += a
		}
	}

	pairCount := n * (n - 1) / 2
	var meanOffDiag float64
	if pairCount > 0 {
		meanOffDiag = sumOffDiag / float64(pairCount)
	}

	var chol mat.Cholesky
	ok := chol.Factorize(sym)

	repaired := false
	minEig := 1.0

	if !ok {
		repaired = true
		var repairedSym *mat.SymDense
		repairedSym, minEig = clipEigenvalues(sym, o.EigenClipEpsilon)
		sym = repairedSym
		ok = chol.Factorize(sym)
	}

	if !ok {
		lambda := o.JitterBase
		for step := 0; step < o.JitterMaxSteps && !ok; step++ {
			jittered := addJitter(sym, lambda)
			if chol.Factorize(jittered) {
				sym = jittered
				ok = true
				break
			}
			lambda *= 10
		}
	}

	if !ok {
		return nil, Summary{NonZeroOffDiagonalPairs: nonZero, MeanOffDiagonal: meanOffDiag, PSDRepaired: repaired},
			&FactorizationError{MinEigenvalue: minEig}
	}

	var l mat.TriDense
	chol.LTo(&l)

	return &Matrix{
			N:             n,
			Corr:          sym,
			L:             &l,
			Repaired:      repaired,
			MinEigenvalue: minEig,
		}, Summary{
			NonZeroOffDiagonalPairs: nonZero,
			MeanOffDiagonal:         meanOffDiag,
			PSDRepaired:             repaired,
		}, nil
}

// clipEigenvalues replaces negative eigenvalues with epsilon, reconstructs
// the matrix from the repaired spectrum, re-symmetrises it, and rescales it
// back to a unit diagonal (eigen-clipping perturbs the diagonal away from 1).
func clipEigenvalues(sym *mat.SymDense, epsilon float64) (*mat.SymDense, float64) {
	n := sym.SymmetricDim()

	var eig mat.EigenSym
	ok := eig.Factorize(sym, true)
	if !ok {
		// Should not happen for a real symmetric matrix; fall back to the
		// input unchanged so the caller's jitter loop still has a chance.
		return sym, math.NaN()
	}

	values := eig.Values(nil)
	minEig := values[0]

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	clipped := make([]float64, len(values))
	copy(clipped, values)
	for i, v := range clipped {
		if v < epsilon {
			clipped[i] = epsilon
		}
	}

	// Reconstruct M = V * diag(clipped) * V^T
	scaledV := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			scaledV.Set(i, j, vectors.At(i, j)*clipped[j])
		}
	}
	var reconstructed mat.Dense
	reconstructed.Mul(scaledV, vectors.T())

	// Re-symmetrise (roundoff can break exact symmetry) and rescale to a
	// unit diagonal so the result is a valid correlation matrix again.
	repairedData := make([]float64, n*n)
	repaired := mat.NewSymDense(n, repairedData)
	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = 0.5 * (reconstructed.At(i, i) + reconstructed.At(i, i))
		if diag[i] <= 0 {
			diag[i] = epsilon
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (reconstructed.At(i, j) + reconstructed.At(j, i))
			v = v / math.Sqrt(diag[i]*diag[j])
			if i == j {
				v = 1
			}
			repaired.SetSym(i, j, v)
		}
	}

	return repaired, minEig
}

// addJitter returns sym + lambda*I, rescaled back to a unit diagonal so the
// result stays a valid correlation matrix.
func addJitter(sym *mat.SymDense, lambda float64) *mat.SymDense {
	n := sym.SymmetricDim()
	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = sym.At(i, i) + lambda
	}

	data := make([]float64, n*n)
	out := mat.NewSymDense(n, data)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := sym.At(i, j)
			if i == j {
				v = 1
			} else {
				v = v / math.Sqrt(diag[i]*diag[j])
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}
