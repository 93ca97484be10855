package uncertainty

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"anastat/internal/errors"
)

// fdStep is the symmetric finite-difference step for gradients.
const fdStep = 1e-8

// coverageFactors maps confidence levels to normal-theory expansion
// factors. Levels are matched from the top down.
var coverageFactors = []struct {
	level  float64
	factor float64
}{
	{0.999, 3.291},
	{0.99, 2.576},
	{0.95, 1.96},
	{0.90, 1.645},
	{0.80, 1.282},
	{0.68, 1.0},
}

// CoverageFactor returns the expansion factor for a confidence level.
// Levels not in the table fall back to the two-sided normal quantile.
func CoverageFactor(confidence float64) float64 {
	for _, entry := range coverageFactors {
		if math.Abs(confidence-entry.level) < 1e-9 {
			return entry.factor
		}
	}
	if confidence <= 0 || confidence >= 1 {
		return 1.0
	}
	return distuv.UnitNormal.Quantile((1 + confidence) / 2)
}

// CovarianceMatrix builds the measurement covariance from per-value
// uncertainties and a single correlation applied to every pair.
func CovarianceMatrix(uncertainties []float64, correlation float64) ([][]float64, error) {
	n := len(uncertainties)
	if n == 0 {
		return nil, errors.InvalidInput("no uncertainties given")
	}
	if correlation < -1 || correlation > 1 {
		return nil, errors.InvalidInput("correlation must be in [-1, 1]")
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
		for j := range cov[i] {
			if i == j {
				cov[i][j] = uncertainties[i] * uncertainties[i]
			} else {
				cov[i][j] = correlation * uncertainties[i] * uncertainties[j]
			}
		}
	}
	return cov, nil
}

// Propagate pushes measurement covariance through a scalar function by
// first-order Taylor expansion with symmetric finite-difference
// gradients. Returns the function value and its propagated standard
// deviation.
func Propagate(fn func([]float64) float64, values []float64, cov [][]float64) (float64, float64, error) {
	n := len(values)
	if n == 0 || len(cov) != n {
		return 0, 0, errors.InvalidInput("values and covariance dimensions disagree")
	}

	center := fn(values)
	if math.IsNaN(center) || math.IsInf(center, 0) {
		return 0, 0, errors.NumericalFailure("function not finite at the measurement point")
	}

	grad := make([]float64, n)
	probe := append([]float64(nil), values...)
	for i := range values {
		h := fdStep * math.Max(1, math.Abs(values[i]))
		probe[i] = values[i] + h
		up := fn(probe)
		probe[i] = values[i] - h
		down := fn(probe)
		probe[i] = values[i]
		grad[i] = (up - down) / (2 * h)
	}

	variance := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += grad[i] * grad[j] * cov[i][j]
		}
	}
	if variance < 0 {
		variance = 0
	}
	return center, math.Sqrt(variance), nil
}

// PropagateMean is the closed-form propagation for the arithmetic mean:
// the variance is the grand sum of the covariance over n squared.
func PropagateMean(values []float64, cov [][]float64) (float64, float64, error) {
	n := len(values)
	if n == 0 || len(cov) != n {
		return 0, 0, errors.InvalidInput("values and covariance dimensions disagree")
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for i := range cov {
		for j := range cov[i] {
			variance += cov[i][j]
		}
	}
	variance /= float64(n) * float64(n)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance), nil
}

// WeightedSummary computes the inverse-variance weighted mean and its
// standard error.
func WeightedSummary(values, uncertainties []float64) (mean, stderr float64, err error) {
	if len(values) != len(uncertainties) || len(values) == 0 {
		return 0, 0, errors.InvalidInput("values and uncertainties length mismatch")
	}

	var sumW, sumWX float64
	for i, v := range values {
		u := uncertainties[i]
		if u <= 0 {
			return 0, 0, errors.InvalidInput("uncertainties must be positive")
		}
		w := 1 / (u * u)
		sumW += w
		sumWX += w * v
	}
	return sumWX / sumW, math.Sqrt(1 / sumW), nil
}
