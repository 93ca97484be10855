package descriptive

import (
	"math"
	"sort"

	mfstats "github.com/montanaflynn/stats"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// defaultTrimFraction trims 10% from each tail.
const defaultTrimFraction = 0.1

// Robust computes resistant location and scale estimates.
func (e *Engine) Robust(sample stats.Sample) (stats.RobustStats, error) {
	values := sample.Values
	if len(values) == 0 {
		return stats.RobustStats{}, errors.DegenerateInput("empty sample")
	}

	median, _ := mfstats.Median(values)

	return stats.RobustStats{
		Median:       median,
		MAD:          MAD(values, median),
		TrimmedMean:  trimmedMean(values, defaultTrimFraction),
		Winsorized:   winsorizedMean(values, defaultTrimFraction),
		TrimFraction: defaultTrimFraction,
	}, nil
}

// MAD is the median absolute deviation about the given center, scaled
// by 1.4826 for consistency with the normal standard deviation.
func MAD(values []float64, center float64) float64 {
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - center)
	}
	m, _ := mfstats.Median(devs)
	return 1.4826 * m
}

func trimmedMean(values []float64, frac float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	k := int(frac * float64(len(sorted)))
	trimmed := sorted[k : len(sorted)-k]
	if len(trimmed) == 0 {
		trimmed = sorted
	}
	sum := 0.0
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

func winsorizedMean(values []float64, frac float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	k := int(frac * float64(n))
	if k > 0 && n > 2*k {
		lo, hi := sorted[k], sorted[n-1-k]
		for i := 0; i < k; i++ {
			sorted[i] = lo
			sorted[n-1-i] = hi
		}
	}
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(n)
}
