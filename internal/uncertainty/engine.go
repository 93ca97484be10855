package uncertainty

import (
	"math"

	mfstats "github.com/montanaflynn/stats"
	gstat "gonum.org/v1/gonum/stat"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/errors"
	"anastat/ports"
)

// Engine produces uncertainty-aware summaries: propagated means,
// expanded uncertainties, and BCa bootstrap intervals for the standard
// statistics.
type Engine struct {
	rng    ports.RNG
	logger *internal.Logger
}

// NewEngine creates an uncertainty engine.
func NewEngine(rng ports.RNG, logger *internal.Logger) *Engine {
	return &Engine{rng: rng, logger: logger.WithScope("uncertainty")}
}

// Analyze propagates the sample's measurement uncertainties through the
// mean and attaches bootstrap intervals for mean, median, and standard
// deviation. Samples without stated uncertainties get a zero-correlation
// covariance from the sample scatter instead.
func (e *Engine) Analyze(sample stats.Sample, opts stats.Options, streamIndex int) (stats.UncertaintyReport, error) {
	values := sample.Values
	if len(values) < 3 {
		return stats.UncertaintyReport{}, errors.DegenerateInput("uncertainty analysis needs at least 3 observations")
	}

	declared := len(sample.Uncertainties) > 0
	uncertainties := sample.Uncertainties
	if len(uncertainties) == 0 {
		variance, _ := mfstats.SampleVariance(values)
		sd := math.Sqrt(variance)
		if sd == 0 {
			return stats.UncertaintyReport{}, errors.DegenerateInput("constant sample with no stated uncertainties")
		}
		uncertainties = make([]float64, len(values))
		for i := range uncertainties {
			uncertainties[i] = sd
		}
	} else if len(uncertainties) != len(values) {
		return stats.UncertaintyReport{}, errors.InvalidInput("uncertainties length does not match values")
	}

	cov, err := CovarianceMatrix(uncertainties, 0)
	if err != nil {
		return stats.UncertaintyReport{}, err
	}
	mean, propagatedSD, err := PropagateMean(values, cov)
	if err != nil {
		return stats.UncertaintyReport{}, err
	}

	factor := CoverageFactor(opts.ConfidenceLevel)
	report := stats.UncertaintyReport{
		Name:             sample.Name,
		PropagatedMean:   mean,
		PropagatedStdDev: propagatedSD,
		ExpandedUncert:   factor * propagatedSD,
		CoverageFactor:   factor,
	}

	boots := opts.BootstrapSamples
	if boots < 1 {
		boots = 1000
	}
	statistics := []struct {
		name string
		fn   Statistic
	}{
		{"mean", func(v []float64) float64 { m, _ := mfstats.Mean(v); return m }},
		{"median", func(v []float64) float64 { m, _ := mfstats.Median(v); return m }},
		{"std_dev", func(v []float64) float64 {
			variance, _ := mfstats.SampleVariance(v)
			return math.Sqrt(variance)
		}},
		{"skewness", func(v []float64) float64 { return gstat.Skew(v, nil) }},
		{"kurtosis", func(v []float64) float64 { return gstat.ExKurtosis(v, nil) }},
	}
	var sigmas []float64
	if declared {
		sigmas = measurementSigmas(uncertainties, sample.Confidences, opts.ConfidenceLevel)
	}
	for i, s := range statistics {
		stream := e.rng.SubStream(opts.Seed, streamIndex*len(statistics)+i)
		var ci stats.BootstrapCI
		var err error
		if declared {
			ci, err = BCaWithNoise(values, sigmas, s.fn, s.name, boots, opts.ConfidenceLevel, stream)
		} else {
			ci, err = BCa(values, s.fn, s.name, boots, opts.ConfidenceLevel, stream)
		}
		if err != nil {
			e.logger.Debug("bootstrap for %s skipped: %v", s.name, err)
			continue
		}
		report.BootstrapIntervals = append(report.BootstrapIntervals, ci)
	}

	return report, nil
}

// measurementSigmas converts declared expanded uncertainties back to
// standard deviations by dividing out each point's coverage factor.
// Points without a stated confidence use the analysis-wide level.
func measurementSigmas(uncertainties, confidences []float64, defaultLevel float64) []float64 {
	sigmas := make([]float64, len(uncertainties))
	for i, u := range uncertainties {
		level := defaultLevel
		if i < len(confidences) && confidences[i] > 0 && confidences[i] < 1 {
			level = confidences[i]
		}
		factor := CoverageFactor(level)
		if factor <= 0 {
			factor = 1
		}
		sigmas[i] = math.Abs(u) / factor
	}
	return sigmas
}
