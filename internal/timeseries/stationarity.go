package timeseries

import (
	"math"

	"anastat/domain/stats"
	"anastat/internal/errors"
	"anastat/internal/linalg"
)

// MacKinnon response-surface coefficients for the 5% critical value of
// the ADF t-statistic with a constant term.
var adfConstantCV5 = [4]float64{-2.86, -2.52, -3.50, -5.10}

// KPSS critical values for the trend-stationarity case, matching the
// linear detrending applied before the partial sums.
var kpssCritical = []struct {
	value float64
	p     float64
}{
	{0.216, 0.01},
	{0.176, 0.025},
	{0.146, 0.05},
	{0.119, 0.10},
}

// minStationaritySamples is the smallest series either test accepts.
const minStationaritySamples = 10

// ADF runs the augmented Dickey-Fuller unit-root test with a constant
// term. The lag order is chosen by AIC up to n^(1/3), capped at n/4.
// Rejecting the unit root means the series is stationary.
func ADF(values []float64) (stats.StationarityResult, error) {
	n := len(values)
	if n < minStationaritySamples {
		return stats.StationarityResult{}, errors.DegenerateInput("ADF needs at least 10 observations")
	}

	maxLags := int(math.Cbrt(float64(n)))
	if limit := n / 4; maxLags > limit {
		maxLags = limit
	}

	bestLag := 0
	bestAIC := math.Inf(1)
	bestStat := 0.0
	for lag := 0; lag <= maxLags; lag++ {
		stat, aic, err := adfRegression(values, lag)
		if err != nil {
			continue
		}
		if aic < bestAIC {
			bestAIC = aic
			bestLag = lag
			bestStat = stat
		}
	}
	if math.IsInf(bestAIC, 1) {
		return stats.StationarityResult{}, errors.NumericalFailure("ADF regression failed at every lag")
	}

	p := adfBandedP(bestStat, n)
	return stats.StationarityResult{
		Test:         "adf",
		Statistic:    bestStat,
		PValue:       p,
		LagsUsed:     bestLag,
		IsStationary: p < 0.05,
	}, nil
}

// adfRegression fits dy_t = a + g*y_{t-1} + sum d_i*dy_{t-i} and
// returns the t-statistic on g plus the regression AIC.
func adfRegression(values []float64, lags int) (float64, float64, error) {
	n := len(values)
	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = values[i] - values[i-1]
	}

	start := lags
	rows := len(diffs) - start
	p := 2 + lags
	if rows <= p {
		return 0, 0, errors.DegenerateInput("not enough observations for lag order")
	}

	x := make([][]float64, rows)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := start + r
		row := make([]float64, p)
		row[0] = 1
		row[1] = values[t] // y_{t-1} relative to diffs[t]
		for l := 1; l <= lags; l++ {
			row[1+l] = diffs[t-l]
		}
		x[r] = row
		y[r] = diffs[t]
	}

	beta, stderr, err := linalg.OLS(x, y)
	if err != nil {
		return 0, 0, err
	}
	if stderr[1] == 0 {
		return 0, 0, errors.NumericalFailure("degenerate ADF regression")
	}
	tStat := beta[1] / stderr[1]

	rss := 0.0
	for r := 0; r < rows; r++ {
		fitted := 0.0
		for j, b := range beta {
			fitted += b * x[r][j]
		}
		res := y[r] - fitted
		rss += res * res
	}
	if rss <= 0 {
		rss = 1e-300
	}
	aic := float64(rows)*math.Log(rss/float64(rows)) + 2*float64(p)
	return tStat, aic, nil
}

// adfBandedP maps the test statistic to a banded p-value around the 5%
// response-surface critical value.
func adfBandedP(stat float64, n int) float64 {
	fn := float64(n)
	cv5 := adfConstantCV5[0] + adfConstantCV5[1]/fn +
		adfConstantCV5[2]/(fn*fn) + adfConstantCV5[3]/(fn*fn*fn)

	switch {
	case stat < cv5-0.5:
		return 0.01
	case stat < cv5:
		return 0.04
	case stat < cv5+0.5:
		return 0.10
	case stat < cv5+1.0:
		return 0.20
	default:
		return 0.50
	}
}

// KPSS tests the null of level stationarity using a Bartlett-kernel
// long-run variance with the standard automatic bandwidth. Here a high
// p-value supports stationarity, the opposite orientation from ADF.
func KPSS(values []float64) (stats.StationarityResult, error) {
	n := len(values)
	if n < minStationaritySamples {
		return stats.StationarityResult{}, errors.DegenerateInput("KPSS needs at least 10 observations")
	}

	// Detrend on the index so a deterministic trend does not count as
	// nonstationarity.
	x := make([][]float64, n)
	for i := range x {
		x[i] = []float64{1, float64(i)}
	}
	beta, _, err := linalg.OLS(x, values)
	if err != nil {
		return stats.StationarityResult{}, err
	}

	residuals := make([]float64, n)
	for i, v := range values {
		residuals[i] = v - beta[0] - beta[1]*float64(i)
	}

	partials := make([]float64, n)
	cum := 0.0
	for i, r := range residuals {
		cum += r
		partials[i] = cum
	}

	bandwidth := int(4 * math.Pow(float64(n)/100, 2.0/9.0))
	longRunVar := neweyWest(residuals, bandwidth)
	if longRunVar <= 0 {
		return stats.StationarityResult{}, errors.DegenerateInput("zero long-run variance")
	}

	stat := 0.0
	for _, s := range partials {
		stat += s * s
	}
	stat /= float64(n) * float64(n) * longRunVar

	p := 0.10
	for _, cv := range kpssCritical {
		if stat > cv.value {
			p = cv.p
			break
		}
	}

	return stats.StationarityResult{
		Test:         "kpss",
		Statistic:    stat,
		PValue:       p,
		LagsUsed:     bandwidth,
		IsStationary: p >= 0.05,
	}, nil
}

// neweyWest estimates the long-run variance with Bartlett weights.
func neweyWest(residuals []float64, bandwidth int) float64 {
	n := len(residuals)
	variance := 0.0
	for _, r := range residuals {
		variance += r * r
	}
	variance /= float64(n)

	for lag := 1; lag <= bandwidth && lag < n; lag++ {
		gamma := 0.0
		for i := lag; i < n; i++ {
			gamma += residuals[i] * residuals[i-lag]
		}
		gamma /= float64(n)
		weight := 1 - float64(lag)/float64(bandwidth+1)
		variance += 2 * weight * gamma
	}
	return variance
}
