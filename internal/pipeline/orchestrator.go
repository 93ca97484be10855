package pipeline

import (
	"context"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/correlation"
	"anastat/internal/descriptive"
	"anastat/internal/distfit"
	"anastat/internal/errors"
	"anastat/internal/hypothesis"
	"anastat/internal/normality"
	"anastat/internal/optimize"
	"anastat/internal/qualitycontrol"
	"anastat/internal/reliability"
	"anastat/internal/timeseries"
	"anastat/internal/uncertainty"
	"anastat/ports"
)

// uncertaintyStreamBase offsets the uncertainty engine's sub-stream
// indices away from the ones the correlation engine derives.
const uncertaintyStreamBase = 10000

// Orchestrator validates, sanitizes, plans, and executes an analysis
// request, then assembles the deterministic result.
type Orchestrator struct {
	sanitizer   *Sanitizer
	detector    *Detector
	descriptive *descriptive.Engine
	normality   *normality.Engine
	distfit     *distfit.Engine
	correlation *correlation.Engine
	timeseries  *timeseries.Engine
	qc          *qualitycontrol.Engine
	reliability *reliability.Engine
	uncertainty *uncertainty.Engine
	hypothesis  *hypothesis.Engine
	rng         ports.RNG
	logger      *internal.Logger
	maxParallel int
}

// NewOrchestrator wires every engine against one RNG provider.
func NewOrchestrator(rng ports.RNG, logger *internal.Logger, maxParallel int) *Orchestrator {
	if maxParallel < 1 {
		maxParallel = 4
	}
	return &Orchestrator{
		sanitizer:   NewSanitizer(rng),
		detector:    NewDetector(logger),
		descriptive: descriptive.NewEngine(),
		normality:   normality.NewEngine(),
		distfit:     distfit.NewEngine(optimize.NewGlobal(rng), logger),
		correlation: correlation.NewEngine(rng, logger),
		timeseries:  timeseries.NewEngine(logger),
		qc:          qualitycontrol.NewEngine(),
		reliability: reliability.NewEngine(),
		uncertainty: uncertainty.NewEngine(rng, logger),
		hypothesis:  hypothesis.NewEngine(),
		rng:         rng,
		logger:      logger.WithScope("pipeline"),
		maxParallel: maxParallel,
	}
}

// Execute runs the full pipeline. The result depends only on the
// samples and options; every resampling stream is derived from the
// request seed before any goroutine starts, so concurrent scheduling
// cannot change the output.
func (o *Orchestrator) Execute(ctx context.Context, samples []stats.Sample, opts stats.Options) (*stats.Result, error) {
	opts = withDefaults(opts)

	if err := Validate(samples, opts); err != nil {
		return nil, err
	}
	if err := o.rng.ValidateSeed(opts.Seed); err != nil {
		return nil, err
	}

	cleaned, sanitization, err := o.sanitizer.Clean(samples, opts)
	if err != nil {
		return nil, errors.Wrap(err, "input sanitization failed")
	}

	required := o.detector.Detect(cleaned, opts)
	o.logger.Info("analysis plan computed for %d samples", len(cleaned))

	result := &stats.Result{
		RunID:        uuid.New().String(),
		Seed:         opts.Seed,
		Analyses:     required,
		Sanitization: sanitization,
	}

	if err := o.runPerSample(ctx, result, cleaned, opts, required); err != nil {
		return nil, err
	}
	if err := o.runCrossSample(ctx, result, cleaned, opts, required); err != nil {
		return nil, err
	}

	result.QualityScore = scoreQuality(result)
	result.Recommendations = recommend(result)
	if required.Visualization {
		result.Plots = suggestPlots(result)
	}

	formatResult(result, opts.DecimalPrecision)
	return result, nil
}

// runPerSample executes the per-sample analyses concurrently. Output
// slices are preallocated and written by index, so the report order
// never depends on goroutine scheduling.
func (o *Orchestrator) runPerSample(ctx context.Context, result *stats.Result, samples []stats.Sample, opts stats.Options, required stats.RequiredAnalyses) error {
	n := len(samples)
	descriptives := make([]*stats.DescriptiveStats, n)
	robusts := make([]*stats.RobustStats, n)
	outliers := make([]*stats.OutlierReport, n)
	normalities := make([]*stats.NormalityReport, n)
	distributions := make([]*stats.DistributionReport, n)
	series := make([]*stats.TimeSeriesReport, n)
	stabilities := make([]*stats.StabilityAssessment, n)
	uncertainties := make([]*stats.UncertaintyReport, n)

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(o.maxParallel)

	for i := range samples {
		group.Go(func() error {
			sample := samples[i]

			if required.DescriptiveStats {
				d, err := o.descriptive.Compute(sample)
				if err != nil {
					return errors.Wrapf(err, "descriptive stats for %q", sample.Name)
				}
				o.attachWeighted(&d, sample, opts)
				descriptives[i] = &d

				if r, err := o.descriptive.Robust(sample); err == nil {
					robusts[i] = &r
				}
			}
			if required.OutlierAnalysis {
				if r, err := o.descriptive.Outliers(sample, opts.OutlierZThreshold, opts.IQRMultiplier); err == nil {
					outliers[i] = &r
				} else {
					o.logger.Debug("outlier analysis skipped for %q: %v", sample.Name, err)
				}
			}
			if required.NormalityTest {
				if r, err := o.normality.Test(sample, opts.SignificanceAlpha); err == nil {
					normalities[i] = &r
				} else {
					o.logger.Debug("normality skipped for %q: %v", sample.Name, err)
				}
			}
			if required.DistributionFit {
				if r, err := o.distfit.Fit(sample, opts); err == nil {
					distributions[i] = &r
				} else {
					o.logger.Debug("distribution fit skipped for %q: %v", sample.Name, err)
				}
			}
			if required.TimeSeries {
				if r, err := o.timeseries.Analyze(sample, opts); err == nil {
					series[i] = &r
				} else {
					o.logger.Debug("time series skipped for %q: %v", sample.Name, err)
				}
			}
			if required.QualityControl {
				if r, err := o.qc.Assess(sample, opts); err == nil {
					stabilities[i] = &r
				} else {
					o.logger.Debug("quality control skipped for %q: %v", sample.Name, err)
				}
			}
			if required.UncertaintyProp {
				if r, err := o.uncertainty.Analyze(sample, opts, uncertaintyStreamBase+i); err == nil {
					uncertainties[i] = &r
				} else {
					o.logger.Debug("uncertainty skipped for %q: %v", sample.Name, err)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if descriptives[i] != nil {
			result.Descriptive = append(result.Descriptive, *descriptives[i])
		}
		if robusts[i] != nil {
			result.Robust = append(result.Robust, *robusts[i])
		}
		if outliers[i] != nil {
			result.Outliers = append(result.Outliers, *outliers[i])
		}
		if normalities[i] != nil {
			result.Normality = append(result.Normality, *normalities[i])
		}
		if distributions[i] != nil {
			result.Distribution = append(result.Distribution, *distributions[i])
		}
		if series[i] != nil {
			result.TimeSeries = append(result.TimeSeries, *series[i])
		}
		if stabilities[i] != nil {
			result.Stability = append(result.Stability, *stabilities[i])
		}
		if uncertainties[i] != nil {
			result.Uncertainty = append(result.Uncertainty, *uncertainties[i])
		}
	}
	return nil
}

// runCrossSample executes the analyses that look across samples.
func (o *Orchestrator) runCrossSample(ctx context.Context, result *stats.Result, samples []stats.Sample, opts stats.Options, required stats.RequiredAnalyses) error {
	if required.CorrelationAnalysis {
		report, err := o.correlation.Analyze(samples, opts)
		if err != nil {
			o.logger.Warn("correlation analysis failed: %v", err)
		} else {
			result.Correlation = report
		}
	}

	if required.Reliability {
		report, err := o.reliability.Assess(samples, opts)
		if err != nil {
			o.logger.Warn("reliability analysis failed: %v", err)
		} else {
			result.Reliability = &report
		}
	}

	if required.HypothesisTesting {
		tests, err := o.hypothesis.Compare(samples, opts.SignificanceAlpha)
		if err != nil {
			o.logger.Warn("hypothesis testing failed: %v", err)
		} else {
			result.Hypothesis = tests
		}
	}

	if required.PowerAnalysis && len(result.Hypothesis) > 0 {
		effect := observedEffect(result.Hypothesis)
		perGroup := len(samples[0].Values)
		for _, s := range samples[1:] {
			if len(s.Values) < perGroup {
				perGroup = len(s.Values)
			}
		}
		power, err := hypothesis.Power(effect, opts.SignificanceAlpha, perGroup)
		if err != nil {
			o.logger.Warn("power analysis failed: %v", err)
		} else {
			result.Power = &power
		}
	}
	return nil
}

// observedEffect extracts a Cohen's d scale effect from the hypothesis
// battery. ANOVA's eta squared is converted through Cohen's f.
func observedEffect(tests []stats.HypothesisTest) float64 {
	for _, test := range tests {
		switch test.Test {
		case "welch_t", "student_t", "one_sample_t":
			return test.EffectSize
		case "one_way_anova":
			eta := test.EffectSize
			if eta >= 1 {
				eta = 0.999
			}
			f := math.Sqrt(eta / (1 - eta))
			return 2 * f
		}
	}
	return 0
}

// attachWeighted adds the uncertainty-weighted companions to a
// descriptive record when the sample carries measurement uncertainties.
func (o *Orchestrator) attachWeighted(d *stats.DescriptiveStats, sample stats.Sample, opts stats.Options) {
	if len(sample.Uncertainties) != len(sample.Values) || len(sample.Values) == 0 {
		return
	}
	for _, u := range sample.Uncertainties {
		if u <= 0 {
			return
		}
	}
	mean, stderr, err := uncertainty.WeightedSummary(sample.Values, sample.Uncertainties)
	if err != nil {
		return
	}
	factor := uncertainty.CoverageFactor(opts.ConfidenceLevel)
	lower := mean - factor*stderr
	upper := mean + factor*stderr
	d.WeightedMean = &mean
	d.WeightedMeanStdErr = &stderr
	d.MeanCILower = &lower
	d.MeanCIUpper = &upper
}

// withDefaults fills zero-valued option fields from the defaults.
func withDefaults(opts stats.Options) stats.Options {
	defaults := stats.DefaultOptions()
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = defaults.ConfidenceLevel
	}
	if opts.BootstrapSamples == 0 {
		opts.BootstrapSamples = defaults.BootstrapSamples
	}
	if opts.PermutationCount == 0 {
		opts.PermutationCount = defaults.PermutationCount
	}
	if opts.CorrelationMethod == "" {
		opts.CorrelationMethod = defaults.CorrelationMethod
	}
	if opts.BiweightTuning == 0 {
		opts.BiweightTuning = defaults.BiweightTuning
	}
	if opts.NaNHandling == "" {
		opts.NaNHandling = defaults.NaNHandling
	}
	if opts.OutlierZThreshold == 0 {
		opts.OutlierZThreshold = defaults.OutlierZThreshold
	}
	if opts.IQRMultiplier == 0 {
		opts.IQRMultiplier = defaults.IQRMultiplier
	}
	if opts.AutocorrLags == 0 {
		opts.AutocorrLags = defaults.AutocorrLags
	}
	if opts.MinSamplesForTimeSeries == 0 {
		opts.MinSamplesForTimeSeries = defaults.MinSamplesForTimeSeries
	}
	if opts.LjungBoxPValue == 0 {
		opts.LjungBoxPValue = defaults.LjungBoxPValue
	}
	if opts.CVThreshold == 0 {
		opts.CVThreshold = defaults.CVThreshold
	}
	if opts.ReliabilityAlpha == 0 {
		opts.ReliabilityAlpha = defaults.ReliabilityAlpha
	}
	if opts.ReliabilityOmega == 0 {
		opts.ReliabilityOmega = defaults.ReliabilityOmega
	}
	if opts.SeasonalityPowerRatio == 0 {
		opts.SeasonalityPowerRatio = defaults.SeasonalityPowerRatio
	}
	if opts.SignificanceAlpha == 0 {
		opts.SignificanceAlpha = defaults.SignificanceAlpha
	}
	if opts.MaxOptimizerIters == 0 {
		opts.MaxOptimizerIters = defaults.MaxOptimizerIters
	}
	if opts.OptimizerStarts == 0 {
		opts.OptimizerStarts = defaults.OptimizerStarts
	}
	if opts.DecimalPrecision == 0 {
		opts.DecimalPrecision = defaults.DecimalPrecision
	}
	return opts
}
