package linalg

import (
	"gonum.org/v1/gonum/mat"

	"anastat/internal/errors"
)

const (
	// psdTolerance is the most negative eigenvalue still treated as zero.
	psdTolerance = -1e-10
	// clipFloor replaces negative eigenvalues during repair.
	clipFloor = 1e-8
	// highamMaxIters bounds the alternating-projection loop.
	highamMaxIters = 100
	highamTol      = 1e-8
	// largeMatrixDim switches repair to single-pass clipping, which is
	// cheaper than iterating for big correlation matrices.
	largeMatrixDim = 100
)

// IsPSD reports whether the symmetric matrix has no eigenvalue below
// the numerical tolerance.
func IsPSD(m [][]float64) (bool, error) {
	sym, err := toSym(m)
	if err != nil {
		return false, err
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return false, errors.NumericalFailure("eigendecomposition failed")
	}
	for _, v := range eig.Values(nil) {
		if v < psdTolerance {
			return false, nil
		}
	}
	return true, nil
}

// NearestPSD returns a positive semi-definite correlation matrix close
// to the input, with a unit diagonal and entries clamped to [-1, 1].
// The second return reports whether any repair was applied. Small
// matrices go through Higham's alternating projections; large ones get
// a single eigenvalue clipping pass.
func NearestPSD(m [][]float64) ([][]float64, bool, error) {
	ok, err := IsPSD(m)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return clone(m), false, nil
	}

	n := len(m)
	var repaired [][]float64
	if n > largeMatrixDim {
		repaired, err = clipEigenvalues(m, clipFloor)
	} else {
		repaired, err = highamProjection(m)
	}
	if err != nil {
		return nil, false, err
	}
	normalizeCorrelation(repaired)
	return repaired, true, nil
}

// highamProjection alternates eigenvalue clipping with resetting the
// unit diagonal until the iterate stabilizes.
func highamProjection(m [][]float64) ([][]float64, error) {
	current := clone(m)
	for iter := 0; iter < highamMaxIters; iter++ {
		next, err := clipEigenvalues(current, highamTol)
		if err != nil {
			return nil, err
		}
		for i := range next {
			next[i][i] = 1.0
		}
		if maxAbsDiff(current, next) < highamTol {
			return next, nil
		}
		current = next
	}
	return current, nil
}

// clipEigenvalues reconstructs the matrix with eigenvalues floored at
// the given minimum.
func clipEigenvalues(m [][]float64, floor float64) ([][]float64, error) {
	n := len(m)
	sym, err := toSym(m)
	if err != nil {
		return nil, err
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, errors.NumericalFailure("eigendecomposition failed")
	}

	values := eig.Values(nil)
	for i, v := range values {
		if v < floor {
			values[i] = floor
		}
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Reconstruct V * diag(values) * V^T.
	scaled := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			scaled.Set(i, j, vectors.At(i, j)*values[j])
		}
	}
	var rebuilt mat.Dense
	rebuilt.Mul(scaled, vectors.T())

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			// Average the off-diagonal pair to keep exact symmetry.
			out[i][j] = (rebuilt.At(i, j) + rebuilt.At(j, i)) / 2
		}
	}
	return out, nil
}

// normalizeCorrelation resets the unit diagonal and clamps entries into
// the valid correlation range.
func normalizeCorrelation(m [][]float64) {
	for i := range m {
		for j := range m[i] {
			if i == j {
				m[i][j] = 1.0
				continue
			}
			if m[i][j] > 1 {
				m[i][j] = 1
			} else if m[i][j] < -1 {
				m[i][j] = -1
			}
		}
	}
}

func toSym(m [][]float64) (*mat.SymDense, error) {
	n := len(m)
	if n == 0 {
		return nil, errors.InvalidInput("empty matrix")
	}
	for i := range m {
		if len(m[i]) != n {
			return nil, errors.InvalidInput("matrix is not square")
		}
	}
	// SymDense reads the upper triangle; enforce symmetry explicitly.
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (m[i][j]+m[j][i])/2)
		}
	}
	return sym, nil
}

func clone(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = append([]float64(nil), m[i]...)
	}
	return out
}

func maxAbsDiff(a, b [][]float64) float64 {
	maxDiff := 0.0
	for i := range a {
		for j := range a[i] {
			d := a[i][j] - b[i][j]
			if d < 0 {
				d = -d
			}
			if d > maxDiff {
				maxDiff = d
			}
		}
	}
	return maxDiff
}
