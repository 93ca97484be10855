package descriptive

import (
	"math"

	mfstats "github.com/montanaflynn/stats"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// Engine computes moment, order, and dispersion summaries.
type Engine struct{}

// NewEngine creates a descriptive statistics engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute summarizes a single sample. The returned record always has
// finite moments for n >= 1; skewness and kurtosis are zero for n < 3
// and n < 4 respectively.
func (e *Engine) Compute(sample stats.Sample) (stats.DescriptiveStats, error) {
	values := sample.Values
	n := len(values)
	if n == 0 {
		return stats.DescriptiveStats{}, errors.DegenerateInput("empty sample")
	}

	mean, _ := mfstats.Mean(values)
	median, _ := mfstats.Median(values)
	minV, _ := mfstats.Min(values)
	maxV, _ := mfstats.Max(values)

	variance := 0.0
	if n > 1 {
		variance, _ = mfstats.SampleVariance(values)
	}
	sd := math.Sqrt(variance)

	q1, q3 := quartiles(values)

	result := stats.DescriptiveStats{
		Name:     sample.Name,
		N:        n,
		Mean:     mean,
		Median:   median,
		StdDev:   sd,
		Variance: variance,
		Min:      minV,
		Max:      maxV,
		Range:    maxV - minV,
		Q1:       q1,
		Q3:       q3,
		IQR:      q3 - q1,
		Skewness: skewness(values, mean, sd),
		Kurtosis: excessKurtosis(values, mean, sd),
	}
	if n > 0 {
		result.SEM = sd / math.Sqrt(float64(n))
	}
	if mean != 0 {
		result.CV = sd / math.Abs(mean)
	}
	return result, nil
}

func quartiles(values []float64) (float64, float64) {
	q, err := mfstats.Quartile(values)
	if err != nil {
		if len(values) > 0 {
			return values[0], values[0]
		}
		return 0, 0
	}
	return q.Q1, q.Q3
}

// skewness is the adjusted Fisher-Pearson coefficient, zero for n < 3
// or a degenerate scale.
func skewness(values []float64, mean, sd float64) float64 {
	n := float64(len(values))
	if n < 3 || sd == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := (v - mean) / sd
		sum += d * d * d
	}
	return (n / ((n - 1) * (n - 2))) * sum
}

// excessKurtosis uses the sample-adjusted formula, zero for n < 4 or a
// degenerate scale.
func excessKurtosis(values []float64, mean, sd float64) float64 {
	n := float64(len(values))
	if n < 4 || sd == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := (v - mean) / sd
		sum += d * d * d * d
	}
	c1 := (n * (n + 1)) / ((n - 1) * (n - 2) * (n - 3))
	c2 := (3 * (n - 1) * (n - 1)) / ((n - 2) * (n - 3))
	return c1*sum - c2
}
