package correlation

import (
	"math"
	"sort"

	mfstats "github.com/montanaflynn/stats"

	"anastat/internal/errors"
)

// Method names accepted by the engine.
const (
	MethodPearson  = "pearson"
	MethodSpearman = "spearman"
	MethodKendall  = "kendall"
	MethodBiweight = "biweight"
)

// defaultBiweightTuning is the standard tuning constant for the
// biweight midcorrelation.
const defaultBiweightTuning = 9.0

// Pearson computes the product-moment correlation. Zero variance in
// either input is an error rather than a silent zero.
func Pearson(x, y []float64) (float64, error) {
	n := len(x)
	if n != len(y) || n < 3 {
		return 0, errors.DegenerateInput("correlation needs paired samples of at least 3")
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, errors.DegenerateInput("zero variance input to correlation")
	}
	return sxy / math.Sqrt(sxx*syy), nil
}

// Spearman is Pearson on average-tied ranks.
func Spearman(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) < 3 {
		return 0, errors.DegenerateInput("correlation needs paired samples of at least 3")
	}
	return Pearson(Ranks(x), Ranks(y))
}

// Kendall computes tau-a over all pairs, ignoring ties.
func Kendall(x, y []float64) (float64, error) {
	n := len(x)
	if n != len(y) || n < 3 {
		return 0, errors.DegenerateInput("correlation needs paired samples of at least 3")
	}

	var concordant, discordant int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[j] - x[i]
			dy := y[j] - y[i]
			product := dx * dy
			if product > 0 {
				concordant++
			} else if product < 0 {
				discordant++
			}
		}
	}
	pairs := n * (n - 1) / 2
	if pairs == 0 {
		return 0, errors.DegenerateInput("no pairs")
	}
	return float64(concordant-discordant) / float64(pairs), nil
}

// KendallVariance is the null variance of tau, used for its normal
// approximation.
func KendallVariance(n int) float64 {
	fn := float64(n)
	return 2 * (2*fn + 5) / (9 * fn * (fn - 1))
}

// Biweight computes the biweight midcorrelation, which downweights
// observations far from the median. Points beyond the tuning radius get
// zero weight.
func Biweight(x, y []float64, tuning float64) (float64, error) {
	n := len(x)
	if n != len(y) || n < 3 {
		return 0, errors.DegenerateInput("correlation needs paired samples of at least 3")
	}
	if tuning <= 0 {
		tuning = defaultBiweightTuning
	}

	ax, err := biweightTerms(x, tuning)
	if err != nil {
		return 0, err
	}
	ay, err := biweightTerms(y, tuning)
	if err != nil {
		return 0, err
	}

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		sxy += ax[i] * ay[i]
		sxx += ax[i] * ax[i]
		syy += ay[i] * ay[i]
	}
	if sxx == 0 || syy == 0 {
		return 0, errors.DegenerateInput("all observations downweighted to zero")
	}
	return sxy / math.Sqrt(sxx*syy), nil
}

func biweightTerms(values []float64, tuning float64) ([]float64, error) {
	median, _ := mfstats.Median(values)
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - median)
	}
	mad, _ := mfstats.Median(devs)
	if mad == 0 {
		return nil, errors.DegenerateInput("zero median absolute deviation")
	}

	terms := make([]float64, len(values))
	for i, v := range values {
		u := (v - median) / (tuning * mad)
		if math.Abs(u) < 1 {
			w := (1 - u*u) * (1 - u*u)
			terms[i] = (v - median) * w
		}
	}
	return terms, nil
}

// Ranks assigns 1-based ranks with ties receiving the average of the
// positions they span.
func Ranks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}
