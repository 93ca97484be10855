package timeseries

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat/distuv"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// minSeasonalitySamples is the shortest series the periodogram accepts.
const minSeasonalitySamples = 12

// Seasonality detects a dominant cycle from the FFT periodogram. The
// series is demeaned first so the DC component carries no power. A
// cycle counts when its share of total spectral power reaches the
// threshold, its period fits at least twice into the series, and a
// between/within variance decomposition at that period confirms the
// phase groups differ.
func Seasonality(values []float64, powerRatioThreshold float64) (stats.SeasonalityResult, error) {
	n := len(values)
	if n < minSeasonalitySamples {
		return stats.SeasonalityResult{}, errors.DegenerateInput("seasonality detection needs at least 12 observations")
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	demeaned := make([]float64, n)
	for i, v := range values {
		demeaned[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, demeaned)

	totalPower := 0.0
	peakPower := 0.0
	peakIdx := 0
	for k := 1; k < len(coeffs); k++ {
		power := cmplx.Abs(coeffs[k])
		power *= power
		totalPower += power
		if power > peakPower {
			peakPower = power
			peakIdx = k
		}
	}
	if totalPower == 0 {
		return stats.SeasonalityResult{}, errors.DegenerateInput("constant series has no spectrum")
	}

	ratio := peakPower / totalPower
	period := 0
	if peakIdx > 0 {
		period = n / peakIdx
	}

	result := stats.SeasonalityResult{PowerRatio: ratio}
	if ratio >= powerRatioThreshold && period >= 2 && period <= n/2 {
		f, p := seasonalVarianceF(demeaned, period)
		result.FStatistic = f
		result.FPValue = p
		if p < seasonalFAlpha {
			result.HasSeasonality = true
			result.Period = period
		}
	}
	return result, nil
}

// seasonalFAlpha is the significance level for the phase-group F test.
const seasonalFAlpha = 0.05

// seasonalVarianceF runs a one-way decomposition of the demeaned
// series into phase groups of the candidate period. A genuine cycle
// concentrates variance between groups, so the F ratio of between to
// within mean squares is large.
func seasonalVarianceF(demeaned []float64, period int) (float64, float64) {
	n := len(demeaned)
	groupSums := make([]float64, period)
	groupCounts := make([]int, period)
	for i, v := range demeaned {
		groupSums[i%period] += v
		groupCounts[i%period]++
	}

	var between, within float64
	for i, v := range demeaned {
		g := i % period
		groupMean := groupSums[g] / float64(groupCounts[g])
		d := v - groupMean
		within += d * d
	}
	grandMean := 0.0
	for _, s := range groupSums {
		grandMean += s
	}
	grandMean /= float64(n)
	for g := 0; g < period; g++ {
		d := groupSums[g]/float64(groupCounts[g]) - grandMean
		between += float64(groupCounts[g]) * d * d
	}

	dfBetween := float64(period - 1)
	dfWithin := float64(n - period)
	if dfBetween <= 0 || dfWithin <= 0 || within <= 0 {
		return math.Inf(1), 0
	}
	f := (between / dfBetween) / (within / dfWithin)
	dist := distuv.F{D1: dfBetween, D2: dfWithin}
	return f, 1 - dist.CDF(f)
}
