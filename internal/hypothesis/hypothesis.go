package hypothesis

import (
	"math"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// minGroupSize is the fewest observations any group may contribute.
const minGroupSize = 5

// Engine runs the location-comparison battery over sample groups.
type Engine struct{}

// NewEngine creates a hypothesis testing engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compare tests for location differences. A single group gets a
// one-sample t against zero; two groups get both the pooled and Welch
// t-tests with Cohen's d; three or more get a one-way ANOVA with eta
// squared.
func (e *Engine) Compare(samples []stats.Sample, alpha float64) ([]stats.HypothesisTest, error) {
	if len(samples) == 0 {
		return nil, errors.DegenerateInput("hypothesis testing needs at least 1 group")
	}
	for _, s := range samples {
		if len(s.Values) < minGroupSize {
			return nil, errors.DegenerateInput("every group needs at least 5 observations")
		}
	}

	if len(samples) == 1 {
		test, err := e.OneSample(samples[0], 0, alpha)
		if err != nil {
			return nil, err
		}
		return []stats.HypothesisTest{test}, nil
	}
	if len(samples) == 2 {
		return e.twoSample(samples[0], samples[1], alpha)
	}
	anova, err := e.oneWayANOVA(samples, alpha)
	if err != nil {
		return nil, err
	}
	return []stats.HypothesisTest{anova}, nil
}

// OneSample tests whether a single group's mean differs from mu.
func (e *Engine) OneSample(sample stats.Sample, mu, alpha float64) (stats.HypothesisTest, error) {
	if len(sample.Values) < minGroupSize {
		return stats.HypothesisTest{}, errors.DegenerateInput("one-sample test needs at least 5 observations")
	}
	mean, _ := mfstats.Mean(sample.Values)
	variance, _ := mfstats.SampleVariance(sample.Values)
	if variance == 0 {
		return stats.HypothesisTest{}, errors.DegenerateInput("sample has zero variance")
	}
	n := float64(len(sample.Values))
	sd := math.Sqrt(variance)

	tStat := (mean - mu) / (sd / math.Sqrt(n))
	df := n - 1
	p := twoSidedTP(tStat, df)
	return stats.HypothesisTest{
		Test:        "one_sample_t",
		Statistic:   tStat,
		PValue:      p,
		DF:          df,
		EffectSize:  (mean - mu) / sd,
		Significant: p < alpha,
		Groups:      []string{sample.Name},
	}, nil
}

func (e *Engine) twoSample(a, b stats.Sample, alpha float64) ([]stats.HypothesisTest, error) {
	meanA, _ := mfstats.Mean(a.Values)
	meanB, _ := mfstats.Mean(b.Values)
	varA, _ := mfstats.SampleVariance(a.Values)
	varB, _ := mfstats.SampleVariance(b.Values)
	nA := float64(len(a.Values))
	nB := float64(len(b.Values))

	if varA == 0 && varB == 0 {
		return nil, errors.DegenerateInput("both groups have zero variance")
	}

	groups := []string{a.Name, b.Name}
	diff := meanA - meanB

	// Pooled-variance Student t.
	pooledVar := ((nA-1)*varA + (nB-1)*varB) / (nA + nB - 2)
	pooledSE := math.Sqrt(pooledVar * (1/nA + 1/nB))
	dfPooled := nA + nB - 2

	var tests []stats.HypothesisTest
	if pooledSE > 0 {
		tStat := diff / pooledSE
		p := twoSidedTP(tStat, dfPooled)
		d := diff / math.Sqrt(pooledVar)
		tests = append(tests, stats.HypothesisTest{
			Test:        "student_t",
			Statistic:   tStat,
			PValue:      p,
			DF:          dfPooled,
			EffectSize:  d,
			Significant: p < alpha,
			Groups:      groups,
		})
	}

	// Welch t with Satterthwaite degrees of freedom.
	welchSE := math.Sqrt(varA/nA + varB/nB)
	if welchSE > 0 {
		tStat := diff / welchSE
		num := (varA/nA + varB/nB) * (varA/nA + varB/nB)
		den := (varA/nA)*(varA/nA)/(nA-1) + (varB/nB)*(varB/nB)/(nB-1)
		df := num / den
		p := twoSidedTP(tStat, df)
		d := diff / math.Sqrt((varA+varB)/2)
		tests = append(tests, stats.HypothesisTest{
			Test:        "welch_t",
			Statistic:   tStat,
			PValue:      p,
			DF:          df,
			EffectSize:  d,
			Significant: p < alpha,
			Groups:      groups,
		})
	}
	if len(tests) == 0 {
		return nil, errors.NumericalFailure("no two-sample test could be computed")
	}
	return tests, nil
}

func (e *Engine) oneWayANOVA(samples []stats.Sample, alpha float64) (stats.HypothesisTest, error) {
	k := len(samples)
	totalN := 0
	grandSum := 0.0
	for _, s := range samples {
		totalN += len(s.Values)
		for _, v := range s.Values {
			grandSum += v
		}
	}
	grandMean := grandSum / float64(totalN)

	var ssBetween, ssWithin float64
	groups := make([]string, k)
	for i, s := range samples {
		groups[i] = s.Name
		mean, _ := mfstats.Mean(s.Values)
		n := float64(len(s.Values))
		ssBetween += n * (mean - grandMean) * (mean - grandMean)
		for _, v := range s.Values {
			ssWithin += (v - mean) * (v - mean)
		}
	}
	if ssWithin == 0 {
		return stats.HypothesisTest{}, errors.DegenerateInput("zero within-group variance")
	}

	dfBetween := float64(k - 1)
	dfWithin := float64(totalN - k)
	fStat := (ssBetween / dfBetween) / (ssWithin / dfWithin)

	fDist := distuv.F{D1: dfBetween, D2: dfWithin}
	p := 1 - fDist.CDF(fStat)

	etaSquared := ssBetween / (ssBetween + ssWithin)

	return stats.HypothesisTest{
		Test:        "one_way_anova",
		Statistic:   fStat,
		PValue:      p,
		DF:          dfBetween,
		EffectSize:  etaSquared,
		Significant: p < alpha,
		Groups:      groups,
	}, nil
}

func twoSidedTP(tStat, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(math.Abs(tStat)))
}
