package uncertainty

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// Statistic reduces a sample to a single number for resampling.
type Statistic func(values []float64) float64

// BCa computes the bias-corrected and accelerated bootstrap interval
// for the statistic. The bias correction comes from the fraction of
// bootstrap replicates below the point estimate; the acceleration from
// the jackknife skewness of the statistic.
func BCa(values []float64, statistic Statistic, name string, samples int, confidence float64, stream *rand.Rand) (stats.BootstrapCI, error) {
	n := len(values)
	if n < 3 {
		return stats.BootstrapCI{}, errors.DegenerateInput("bootstrap needs at least 3 observations")
	}
	if samples < 10 {
		samples = 10
	}

	estimate := statistic(values)
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return stats.BootstrapCI{}, errors.NumericalFailure("statistic not finite on original sample")
	}

	replicates := make([]float64, 0, samples)
	resample := make([]float64, n)
	for b := 0; b < samples; b++ {
		for i := range resample {
			resample[i] = values[stream.Intn(n)]
		}
		r := statistic(resample)
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			replicates = append(replicates, r)
		}
	}
	if len(replicates) < 10 {
		return stats.BootstrapCI{}, errors.NumericalFailure("too few finite bootstrap replicates")
	}
	sort.Float64s(replicates)

	below := 0
	for _, r := range replicates {
		if r < estimate {
			below++
		}
	}
	frac := float64(below) / float64(len(replicates))
	if frac <= 0 {
		frac = 0.5 / float64(len(replicates))
	}
	if frac >= 1 {
		frac = 1 - 0.5/float64(len(replicates))
	}
	z0 := distuv.UnitNormal.Quantile(frac)

	accel := jackknifeAcceleration(values, statistic)

	alpha := 1 - confidence
	zLo := distuv.UnitNormal.Quantile(alpha / 2)
	zHi := distuv.UnitNormal.Quantile(1 - alpha/2)

	lower := replicates[bcaIndex(z0, zLo, accel, len(replicates))]
	upper := replicates[bcaIndex(z0, zHi, accel, len(replicates))]

	return stats.BootstrapCI{
		Statistic:  name,
		Estimate:   estimate,
		Lower:      lower,
		Upper:      upper,
		Confidence: confidence,
		Samples:    samples,
	}, nil
}

// BCaWithNoise is the measurement-aware bootstrap: each resampled
// point is drawn from a normal centered on the observed value with the
// point's measurement standard deviation, so declared uncertainties
// widen the interval beyond what sampling variation alone gives.
func BCaWithNoise(values, sigmas []float64, statistic Statistic, name string, samples int, confidence float64, stream *rand.Rand) (stats.BootstrapCI, error) {
	n := len(values)
	if n < 3 {
		return stats.BootstrapCI{}, errors.DegenerateInput("bootstrap needs at least 3 observations")
	}
	if len(sigmas) != n {
		return stats.BootstrapCI{}, errors.InvalidInput("sigma length does not match values")
	}
	if samples < 10 {
		samples = 10
	}

	estimate := statistic(values)
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return stats.BootstrapCI{}, errors.NumericalFailure("statistic not finite on original sample")
	}

	replicates := make([]float64, 0, samples)
	resample := make([]float64, n)
	for b := 0; b < samples; b++ {
		for i := range resample {
			j := stream.Intn(n)
			resample[i] = values[j] + sigmas[j]*stream.NormFloat64()
		}
		r := statistic(resample)
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			replicates = append(replicates, r)
		}
	}
	if len(replicates) < 10 {
		return stats.BootstrapCI{}, errors.NumericalFailure("too few finite bootstrap replicates")
	}
	sort.Float64s(replicates)

	below := 0
	for _, r := range replicates {
		if r < estimate {
			below++
		}
	}
	frac := float64(below) / float64(len(replicates))
	if frac <= 0 {
		frac = 0.5 / float64(len(replicates))
	}
	if frac >= 1 {
		frac = 1 - 0.5/float64(len(replicates))
	}
	z0 := distuv.UnitNormal.Quantile(frac)

	accel := jackknifeAcceleration(values, statistic)

	alpha := 1 - confidence
	zLo := distuv.UnitNormal.Quantile(alpha / 2)
	zHi := distuv.UnitNormal.Quantile(1 - alpha/2)

	lower := replicates[bcaIndex(z0, zLo, accel, len(replicates))]
	upper := replicates[bcaIndex(z0, zHi, accel, len(replicates))]

	return stats.BootstrapCI{
		Statistic:  name,
		Estimate:   estimate,
		Lower:      lower,
		Upper:      upper,
		Confidence: confidence,
		Samples:    samples,
	}, nil
}

// jackknifeAcceleration is the third-moment skewness of leave-one-out
// estimates.
func jackknifeAcceleration(values []float64, statistic Statistic) float64 {
	n := len(values)
	loo := make([]float64, n)
	work := make([]float64, 0, n-1)
	for i := range values {
		work = work[:0]
		work = append(work, values[:i]...)
		work = append(work, values[i+1:]...)
		loo[i] = statistic(work)
	}

	mean := 0.0
	for _, v := range loo {
		mean += v
	}
	mean /= float64(n)

	var m2, m3 float64
	for _, v := range loo {
		d := mean - v
		m2 += d * d
		m3 += d * d * d
	}
	if m2 == 0 {
		return 0
	}
	return m3 / (6 * math.Pow(m2, 1.5))
}

// bcaIndex maps an adjusted quantile to a replicate index, clamped to
// the valid range.
func bcaIndex(z0, z, accel float64, count int) int {
	den := 1 - accel*(z0+z)
	if den == 0 {
		den = 1e-10
	}
	adjusted := distuv.UnitNormal.CDF(z0 + (z0+z)/den)
	idx := int(adjusted * float64(count))
	if idx < 0 {
		idx = 0
	}
	if idx >= count {
		idx = count - 1
	}
	return idx
}

// PermutationP is the resampling p-value with the add-one correction,
// so it can never be exactly zero.
func PermutationP(extremeCount, permutations int) float64 {
	return float64(extremeCount+1) / float64(permutations+1)
}
