package distfit

import (
	"math"
	"sort"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/errors"
	"anastat/internal/optimize"
)

// minObservations is the smallest sample any family is fit against.
const minObservations = 5

// Engine fits the candidate family catalogue to samples by maximum
// likelihood and ranks the results by AIC.
type Engine struct {
	optimizer *optimize.Global
	logger    *internal.Logger
}

// NewEngine creates a distribution fitting engine.
func NewEngine(optimizer *optimize.Global, logger *internal.Logger) *Engine {
	return &Engine{
		optimizer: optimizer,
		logger:    logger.WithScope("distfit"),
	}
}

// Fit runs every applicable family against the sample and returns the
// ranked report. Families whose optimization fails are skipped, not
// fatal. The best fit is the lowest-AIC converged candidate.
func (e *Engine) Fit(sample stats.Sample, opts stats.Options) (stats.DistributionReport, error) {
	data := sample.Values
	if len(data) < minObservations {
		return stats.DistributionReport{}, errors.DegenerateInput("distribution fitting needs at least 5 observations")
	}
	if constant(data) {
		return stats.DistributionReport{}, errors.DegenerateInput("distribution fitting needs a non-constant sample")
	}

	report := stats.DistributionReport{Name: sample.Name}
	for _, fam := range catalogue() {
		if !fam.applicable(data) {
			continue
		}
		fit, err := e.fitFamily(fam, data, opts)
		if err != nil {
			e.logger.Debug("family %s skipped: %v", fam.name, err)
			continue
		}
		report.Fits = append(report.Fits, fit)
	}
	if len(report.Fits) == 0 {
		return stats.DistributionReport{}, errors.NumericalFailure("no distribution family could be fit")
	}

	sort.SliceStable(report.Fits, func(i, j int) bool {
		return report.Fits[i].AIC < report.Fits[j].AIC
	})
	report.BestFit = report.Fits[0].Family
	return report, nil
}

func (e *Engine) fitFamily(fam family, data []float64, opts stats.Options) (stats.DistributionFit, error) {
	nll := func(params []float64) float64 {
		total := 0.0
		for _, x := range data {
			lp := fam.logPDF(params, x)
			if math.IsInf(lp, -1) || math.IsNaN(lp) {
				return math.Inf(1)
			}
			total -= lp
		}
		return total
	}

	cfg := optimize.DefaultConfig(opts.Seed)
	if opts.OptimizerStarts > 0 {
		cfg.NumStarts = opts.OptimizerStarts
	}
	if opts.MaxOptimizerIters > 0 {
		cfg.MaxLocalIters = opts.MaxOptimizerIters
	}
	cfg.BasinHopping = opts.BasinHopping

	bounds := optimize.Bounds{Lower: fam.lower(data), Upper: fam.upper(data)}
	res, err := e.optimizer.Minimize(nll, fam.initial(data), bounds, cfg)
	if err != nil {
		return stats.DistributionFit{}, err
	}
	if math.IsInf(res.BestCost, 1) || math.IsNaN(res.BestCost) {
		return stats.DistributionFit{}, errors.NumericalFailure("likelihood never finite")
	}

	logLik := -res.BestCost
	k := float64(len(fam.paramNames))
	n := float64(len(data))

	fit := stats.DistributionFit{
		Family:        fam.name,
		LogLikelihood: logLik,
		AIC:           2*k - 2*logLik,
		BIC:           k*math.Log(n) - 2*logLik,
		Converged:     res.Converged,
	}
	for i, name := range fam.paramNames {
		fit.Params = append(fit.Params, stats.ParamValue{Name: name, Value: res.BestParams[i]})
	}

	cdf := func(x float64) float64 { return fam.cdf(res.BestParams, x) }
	fit.KSStatistic, fit.KSPValue = ksTest(data, cdf)
	fit.ADStatistic = adStatistic(data, cdf)
	fit.ADRejected = fit.ADStatistic > adCritical5
	fit.CvMStatistic = cvmStatistic(data, cdf)
	return fit, nil
}

// adCritical5 is the large-sample 5% critical value for the
// Anderson-Darling statistic with a fully specified null.
const adCritical5 = 2.492

func constant(data []float64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

// ksTest computes the one-sample Kolmogorov-Smirnov statistic against
// the fitted CDF and its asymptotic p-value.
func ksTest(data []float64, cdf func(float64) float64) (float64, float64) {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := float64(len(sorted))

	d := 0.0
	for i, x := range sorted {
		fx := cdf(x)
		upper := float64(i+1)/n - fx
		lower := fx - float64(i)/n
		if upper > d {
			d = upper
		}
		if lower > d {
			d = lower
		}
	}

	t := d * (math.Sqrt(n) + 0.12 + 0.11/math.Sqrt(n))
	p := kolmogorovSurvival(t)
	return d, p
}

// kolmogorovSurvival evaluates the Kolmogorov distribution's tail via
// its alternating series.
func kolmogorovSurvival(t float64) float64 {
	if t <= 0 {
		return 1
	}
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
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// adStatistic computes the Anderson-Darling statistic against the
// fitted CDF. CDF values are clamped away from {0, 1} so the logs stay
// finite for extreme observations.
func adStatistic(data []float64, cdf func(float64) float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)

	const eps = 1e-12
	sum := 0.0
	for i := 0; i < n; i++ {
		fi := clampProb(cdf(sorted[i]), eps)
		fr := clampProb(cdf(sorted[n-1-i]), eps)
		sum += float64(2*i+1) * (math.Log(fi) + math.Log(1-fr))
	}
	return -float64(n) - sum/float64(n)
}

// cvmStatistic computes the Cramer-von Mises statistic against the
// fitted CDF.
func cvmStatistic(data []float64, cdf func(float64) float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)

	sum := 1.0 / (12 * float64(n))
	for i, x := range sorted {
		d := cdf(x) - (2*float64(i)+1)/(2*float64(n))
		sum += d * d
	}
	return sum
}

func clampProb(p, eps float64) float64 {
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
