package normality

import (
	"fmt"
	"math"
	"sort"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// minSamples is the fewest observations any test in the battery accepts.
const minSamples = 3

// dagostinoMinSamples is the smallest n for which the K-squared normal
// approximations hold.
const dagostinoMinSamples = 8

// Engine runs the normality test battery on a sample.
type Engine struct{}

// NewEngine creates a normality testing engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Test runs every applicable test and aggregates the verdict. The
// sample is called normal when a majority of the applicable tests fail
// to reject at the given alpha.
func (e *Engine) Test(sample stats.Sample, alpha float64) (stats.NormalityReport, error) {
	data := sample.Values
	if len(data) < minSamples {
		return stats.NormalityReport{}, errors.DegenerateInput("normality testing needs at least 3 observations")
	}
	mean, _ := mfstats.Mean(data)
	variance, _ := mfstats.SampleVariance(data)
	if variance == 0 {
		return stats.NormalityReport{}, errors.DegenerateInput("normality testing needs a non-constant sample")
	}
	sd := math.Sqrt(variance)

	report := stats.NormalityReport{Name: sample.Name}

	jbStat, jbP := jarqueBera(data, mean, sd)
	report.Tests = append(report.Tests, stats.NormalityTest{
		Test:      "jarque_bera",
		Statistic: jbStat,
		PValue:    jbP,
		IsNormal:  jbP >= alpha,
	})

	if len(data) >= dagostinoMinSamples {
		kStat, kP := dagostinoK2(data, mean, sd)
		report.Tests = append(report.Tests, stats.NormalityTest{
			Test:      "dagostino_k2",
			Statistic: kStat,
			PValue:    kP,
			IsNormal:  kP >= alpha,
		})
	}

	ksStat, ksP := ksNormal(data, mean, sd)
	report.Tests = append(report.Tests, stats.NormalityTest{
		Test:      "kolmogorov_smirnov",
		Statistic: ksStat,
		PValue:    ksP,
		IsNormal:  ksP >= alpha,
	})

	passing := 0
	for _, test := range report.Tests {
		if test.IsNormal {
			passing++
		}
	}
	report.IsNormal = passing*2 > len(report.Tests)

	if !report.IsNormal {
		report.Transformations = suggestTransformations(data)
	}
	return report, nil
}

// jarqueBera tests joint skewness and kurtosis against the normal
// benchmark. The statistic is asymptotically chi-squared with 2 df.
func jarqueBera(data []float64, mean, sd float64) (float64, float64) {
	n := float64(len(data))
	var m3, m4 float64
	for _, v := range data {
		d := (v - mean) / sd
		m3 += d * d * d
		m4 += d * d * d * d
	}
	skew := m3 / n
	exKurt := m4/n - 3

	jb := n / 6 * (skew*skew + exKurt*exKurt/4)
	p := chiSquaredSurvival(jb, 2)
	return jb, p
}

// dagostinoK2 combines the transformed skewness and kurtosis z-scores
// into an omnibus chi-squared statistic.
func dagostinoK2(data []float64, mean, sd float64) (float64, float64) {
	z1 := skewnessZ(data, mean, sd)
	z2 := kurtosisZ(data, mean, sd)
	k2 := z1*z1 + z2*z2
	return k2, chiSquaredSurvival(k2, 2)
}

func skewnessZ(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	var m3 float64
	for _, v := range data {
		d := (v - mean) / sd
		m3 += d * d * d
	}
	g1 := m3 / n

	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) /
		((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(math.Log(math.Sqrt(w2)))
	alpha := math.Sqrt(2 / (w2 - 1))
	return delta * math.Asinh(y/alpha)
}

func kurtosisZ(data []float64, mean, sd float64) float64 {
	n := float64(len(data))
	var m4 float64
	for _, v := range data {
		d := (v - mean) / sd
		m4 += d * d * d * d
	}
	b2 := m4 / n

	eb2 := 3 * (n - 1) / (n + 1)
	vb2 := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (b2 - eb2) / math.Sqrt(vb2)

	sqrtB1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) *
		math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtB1*(2/sqrtB1+math.Sqrt(1+4/(sqrtB1*sqrtB1)))

	num := 1 - 2/(9*a)
	den := math.Sqrt(2 / (9 * a))
	inner := (1 - 2/a) / (1 + x*math.Sqrt(2/(a-4)))
	return (num - math.Cbrt(inner)) / den
}

// ksNormal is the Kolmogorov-Smirnov test against the normal with the
// sample's own mean and standard deviation.
func ksNormal(data []float64, mean, sd float64) (float64, float64) {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := float64(len(sorted))
	normal := distuv.Normal{Mu: mean, Sigma: sd}

	d := 0.0
	for i, x := range sorted {
		fx := normal.CDF(x)
		if diff := float64(i+1)/n - fx; diff > d {
			d = diff
		}
		if diff := fx - float64(i)/n; diff > d {
			d = diff
		}
	}

	t := d * (math.Sqrt(n) + 0.12 + 0.11/math.Sqrt(n))
	sum := 0.0
	for k := 1; k <= 100; k++ {
		term := math.Exp(-2 * float64(k*k) * t * t)
		if k%2 == 1 {
			sum += term
		} else {
			sum -= term
		}
		if term < 1e-12 {
			break
		}
	}
	p := 2 * sum
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return d, p
}

func chiSquaredSurvival(x float64, df float64) float64 {
	if x <= 0 {
		return 1
	}
	return 1 - distuv.ChiSquared{K: df}.CDF(x)
}

// suggestTransformations proposes variance-stabilizing transforms based
// on the sample's shape and support.
func suggestTransformations(data []float64) []string {
	positive := true
	for _, v := range data {
		if v <= 0 {
			positive = false
			break
		}
	}
	if !positive {
		return []string{"yeo_johnson"}
	}

	mean, _ := mfstats.Mean(data)
	variance, _ := mfstats.SampleVariance(data)
	sd := math.Sqrt(variance)
	var m3 float64
	for _, v := range data {
		d := (v - mean) / sd
		m3 += d * d * d
	}
	skew := m3 / float64(len(data))

	var suggestions []string
	if skew > 1 {
		suggestions = append(suggestions, "log")
	}
	if skew > 0.5 {
		suggestions = append(suggestions, "sqrt")
	}
	if lambda, err := BoxCoxLambda(data); err == nil {
		suggestions = append(suggestions, fmt.Sprintf("box_cox(lambda=%.2f)", lambda))
	} else {
		suggestions = append(suggestions, "box_cox")
	}
	return suggestions
}
