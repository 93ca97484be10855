package timeseries

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"anastat/domain/stats"
	"anastat/internal/errors"
	"anastat/internal/linalg"
)

// Trend fits a least-squares line against the observation index and
// tests the slope against zero.
func Trend(values []float64, alpha float64) (stats.TrendResult, error) {
	n := len(values)
	if n < 3 {
		return stats.TrendResult{}, errors.DegenerateInput("trend detection needs at least 3 observations")
	}

	x := make([][]float64, n)
	for i := range x {
		x[i] = []float64{1, float64(i)}
	}
	beta, stderr, err := linalg.OLS(x, values)
	if err != nil {
		return stats.TrendResult{}, err
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var ssTot, ssRes float64
	for i, v := range values {
		fitted := beta[0] + beta[1]*float64(i)
		ssTot += (v - mean) * (v - mean)
		ssRes += (v - fitted) * (v - fitted)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	pValue := 1.0
	if stderr[1] > 0 {
		tStat := beta[1] / stderr[1]
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
		pValue = 2 * (1 - dist.CDF(math.Abs(tStat)))
	} else if beta[1] != 0 {
		pValue = 0
	}

	result := stats.TrendResult{
		Slope:     beta[1],
		Intercept: beta[0],
		RSquared:  r2,
		PValue:    pValue,
		HasTrend:  pValue < alpha,
		Direction: "none",
	}
	if result.HasTrend {
		if beta[1] > 0 {
			result.Direction = "increasing"
		} else {
			result.Direction = "decreasing"
		}
	}
	return result, nil
}
