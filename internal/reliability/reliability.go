package reliability

import (
	"math"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"anastat/domain/stats"
	"anastat/internal/correlation"
	"anastat/internal/errors"
)

// minItems is the fewest items internal consistency is defined over.
const minItems = 3

// itemTotalFloor is the discrimination threshold each item must clear.
const itemTotalFloor = 0.3

// Engine calculates internal-consistency reliability over item sets.
type Engine struct{}

// NewEngine creates a reliability engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Assess treats each sample as one scale item and computes Cronbach's
// alpha, McDonald's omega from the first principal component of the
// item correlation matrix, the standard error of measurement, and
// corrected item-total correlations. Items are truncated to their
// common length.
func (e *Engine) Assess(samples []stats.Sample, opts stats.Options) (stats.ReliabilityReport, error) {
	k := len(samples)
	if k < minItems {
		return stats.ReliabilityReport{}, errors.DegenerateInput("reliability needs at least 3 items")
	}

	n := len(samples[0].Values)
	for _, s := range samples[1:] {
		if len(s.Values) < n {
			n = len(s.Values)
		}
	}
	if n < 3 {
		return stats.ReliabilityReport{}, errors.DegenerateInput("reliability needs at least 3 observations per item")
	}

	items := make([][]float64, k)
	for i, s := range samples {
		items[i] = s.Values[:n]
	}

	totals := make([]float64, n)
	for _, item := range items {
		for j, v := range item {
			totals[j] += v
		}
	}

	alpha, totalSD, err := cronbachAlpha(items, totals)
	if err != nil {
		return stats.ReliabilityReport{}, err
	}

	omega, err := mcdonaldOmega(items)
	if err != nil {
		return stats.ReliabilityReport{}, err
	}

	itemTotals, err := itemTotalCorrelations(items, totals)
	if err != nil {
		return stats.ReliabilityReport{}, err
	}

	semValue := totalSD * math.Sqrt(math.Max(0, 1-alpha))

	minItemTotal := math.Inf(1)
	for _, r := range itemTotals {
		if r < minItemTotal {
			minItemTotal = r
		}
	}

	alphaFloor := opts.ReliabilityAlpha
	if alphaFloor <= 0 {
		alphaFloor = 0.7
	}
	omegaFloor := opts.ReliabilityOmega
	if omegaFloor <= 0 {
		omegaFloor = 0.6
	}

	return stats.ReliabilityReport{
		CronbachAlpha:  alpha,
		McDonaldOmega:  omega,
		SEM:            semValue,
		ItemTotalCorrs: itemTotals,
		NItems:         k,
		Acceptable:     alpha >= alphaFloor && omega >= omegaFloor && minItemTotal > itemTotalFloor,
	}, nil
}

// cronbachAlpha is the variance-ratio formula, clamped to [0, 1].
func cronbachAlpha(items [][]float64, totals []float64) (alpha, totalSD float64, err error) {
	k := float64(len(items))

	sumItemVar := 0.0
	for _, item := range items {
		v, _ := mfstats.SampleVariance(item)
		sumItemVar += v
	}
	totalVar, _ := mfstats.SampleVariance(totals)
	if totalVar == 0 {
		return 0, 0, errors.DegenerateInput("zero total score variance")
	}

	alpha = (k / (k - 1)) * (1 - sumItemVar/totalVar)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return alpha, math.Sqrt(totalVar), nil
}

// mcdonaldOmega extracts the first principal component of the item
// correlation matrix and treats its loadings as a one-factor solution.
func mcdonaldOmega(items [][]float64) (float64, error) {
	k := len(items)
	corr := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		corr.SetSym(i, i, 1)
		for j := i + 1; j < k; j++ {
			r, err := correlation.Pearson(items[i], items[j])
			if err != nil {
				return 0, errors.Wrap(err, "item correlation failed")
			}
			corr.SetSym(i, j, r)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(corr, true) {
		return 0, errors.NumericalFailure("item correlation eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Eigenvalues come ascending; the last is the principal component.
	top := len(values) - 1
	lambda1 := values[top]
	if lambda1 <= 0 {
		return 0, errors.NumericalFailure("no positive principal eigenvalue")
	}

	sumLoad := 0.0
	sumUnique := 0.0
	for i := 0; i < k; i++ {
		loading := math.Abs(vectors.At(i, top)) * math.Sqrt(lambda1)
		if loading > 1 {
			loading = 1
		}
		sumLoad += loading
		sumUnique += 1 - loading*loading
	}

	omega := sumLoad * sumLoad / (sumLoad*sumLoad + sumUnique)
	if omega < 0 {
		omega = 0
	}
	if omega > 1 {
		omega = 1
	}
	return omega, nil
}

// itemTotalCorrelations correlates each item with the total score of
// the remaining items.
func itemTotalCorrelations(items [][]float64, totals []float64) ([]float64, error) {
	out := make([]float64, len(items))
	rest := make([]float64, len(totals))
	for i, item := range items {
		for j := range totals {
			rest[j] = totals[j] - item[j]
		}
		r, err := correlation.Pearson(item, rest)
		if err != nil {
			return nil, errors.Wrap(err, "item-total correlation failed")
		}
		out[i] = r
	}
	return out, nil
}
