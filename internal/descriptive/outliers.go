package descriptive

import (
	"math"

	mfstats "github.com/montanaflynn/stats"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// Outliers flags observations by both z-score and IQR-fence criteria.
// The report's rate is the fraction flagged by either criterion.
func (e *Engine) Outliers(sample stats.Sample, zThreshold, iqrMultiplier float64) (stats.OutlierReport, error) {
	values := sample.Values
	n := len(values)
	if n < 3 {
		return stats.OutlierReport{}, errors.DegenerateInput("outlier detection needs at least 3 observations")
	}

	mean, _ := mfstats.Mean(values)
	variance, _ := mfstats.SampleVariance(values)
	sd := math.Sqrt(variance)

	q1, q3 := quartiles(values)
	iqr := q3 - q1
	lower := q1 - iqrMultiplier*iqr
	upper := q3 + iqrMultiplier*iqr

	report := stats.OutlierReport{
		Name:       sample.Name,
		LowerFence: lower,
		UpperFence: upper,
	}

	flagged := make(map[int]bool)
	for i, v := range values {
		if sd > 0 && math.Abs(v-mean)/sd > zThreshold {
			report.ZScoreIndices = append(report.ZScoreIndices, i)
			flagged[i] = true
		}
		if v < lower || v > upper {
			report.IQRIndices = append(report.IQRIndices, i)
			flagged[i] = true
		}
	}
	for i, v := range values {
		if flagged[i] {
			report.Values = append(report.Values, v)
		}
	}
	report.Rate = float64(len(flagged)) / float64(n)
	return report, nil
}
