package timeseries

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// ACF computes the sample autocorrelation function up to maxLag. Lag
// zero is always 1 and is not included in the returned slice.
func ACF(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	c0 := 0.0
	for _, v := range values {
		d := v - mean
		c0 += d * d
	}
	if c0 == 0 {
		return make([]float64, maxLag)
	}

	acf := make([]float64, maxLag)
	for lag := 1; lag <= maxLag; lag++ {
		sum := 0.0
		for i := lag; i < n; i++ {
			sum += (values[i] - mean) * (values[i-lag] - mean)
		}
		acf[lag-1] = sum / c0
	}
	return acf
}

// LjungBox is the portmanteau test for joint autocorrelation up to the
// given number of lags.
func LjungBox(values []float64, lags int, alpha float64) (statistic, pValue float64, hasAutocorr bool) {
	n := float64(len(values))
	acf := ACF(values, lags)
	if len(acf) == 0 {
		return 0, 1, false
	}

	q := 0.0
	for k, rho := range acf {
		q += rho * rho / (n - float64(k+1))
	}
	q *= n * (n + 2)

	p := 1 - distuv.ChiSquared{K: float64(len(acf))}.CDF(q)
	return q, p, p < alpha
}
