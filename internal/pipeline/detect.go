package pipeline

import (
	"math"

	mfstats "github.com/montanaflynn/stats"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/qualitycontrol"
	"anastat/internal/reliability"
	"anastat/internal/timeseries"
)

// Detection thresholds. Options can override the sample-size floor for
// temporal analysis; the rest are fixed heuristics.
const (
	normalityMinN    = 3
	hypothesisMinN   = 5
	powerMinN        = 10
	processMinN      = 20
	distributionMinN = 20
	processCVMax     = 0.1
	processACFMax    = 0.3
)

// Detector decides which analyses apply to a request. It probes the
// data with cheap versions of the temporal, stability, and reliability
// checks; the orchestrator reruns the chosen ones in full.
type Detector struct {
	qc          *qualitycontrol.Engine
	reliability *reliability.Engine
	logger      *internal.Logger
}

// NewDetector creates an analysis detector.
func NewDetector(logger *internal.Logger) *Detector {
	return &Detector{
		qc:          qualitycontrol.NewEngine(),
		reliability: reliability.NewEngine(),
		logger:      logger.WithScope("detect"),
	}
}

// Detect computes the analysis plan. An explicit EnabledAnalyses list
// overrides every heuristic.
func (d *Detector) Detect(samples []stats.Sample, opts stats.Options) stats.RequiredAnalyses {
	if len(opts.EnabledAnalyses) > 0 {
		return fromExplicitList(opts.EnabledAnalyses)
	}

	required := stats.RequiredAnalyses{
		DescriptiveStats: true,
		Visualization:    true,
	}

	maxN := 0
	anyUncertainty := false
	for _, s := range samples {
		if len(s.Values) > maxN {
			maxN = len(s.Values)
		}
		if len(s.Uncertainties) > 0 {
			anyUncertainty = true
		}
	}

	if maxN >= normalityMinN {
		required.NormalityTest = true
		required.OutlierAnalysis = true
	}
	if maxN >= distributionMinN {
		required.DistributionFit = true
	}
	if len(samples) > 1 {
		required.CorrelationAnalysis = true
	}
	if anyUncertainty {
		required.UncertaintyProp = true
	}

	required.TimeSeries = d.temporalApplies(samples, opts)
	required.QualityControl = d.processApplies(samples, opts)
	required.Reliability = d.reliabilityApplies(samples, opts)

	allHypothesisSized := len(samples) >= 2
	for _, s := range samples {
		if len(s.Values) < hypothesisMinN {
			allHypothesisSized = false
		}
	}
	required.HypothesisTesting = allHypothesisSized
	required.PowerAnalysis = allHypothesisSized && maxN >= powerMinN

	return required
}

// temporalApplies checks each series for autocorrelation, trend, or
// nonstationarity once it is long enough.
func (d *Detector) temporalApplies(samples []stats.Sample, opts stats.Options) bool {
	minN := opts.MinSamplesForTimeSeries
	if minN < 1 {
		minN = processMinN
	}
	lbAlpha := opts.LjungBoxPValue
	if lbAlpha <= 0 {
		lbAlpha = 0.05
	}

	for _, s := range samples {
		if len(s.Values) < minN {
			continue
		}
		if _, _, has := timeseries.LjungBox(s.Values, 10, lbAlpha); has {
			return true
		}
		if trend, err := timeseries.Trend(s.Values, 0.05); err == nil && trend.HasTrend {
			return true
		}
		if adf, err := timeseries.ADF(s.Values); err == nil && !adf.IsStationary {
			return true
		}
		if kpss, err := timeseries.KPSS(s.Values); err == nil && !kpss.IsStationary {
			return true
		}
	}
	return false
}

// processApplies selects quality control for a single long series that
// is either already unstable or looks like well-behaved process data
// (low relative spread, weak lag-1 autocorrelation).
func (d *Detector) processApplies(samples []stats.Sample, opts stats.Options) bool {
	if len(samples) != 1 || len(samples[0].Values) < processMinN {
		return false
	}
	values := samples[0].Values

	if assessment, err := d.qc.Assess(samples[0], opts); err == nil && !assessment.Stable {
		return true
	}

	mean, _ := mfstats.Mean(values)
	variance, _ := mfstats.SampleVariance(values)
	if mean == 0 {
		return false
	}
	cv := math.Sqrt(variance) / math.Abs(mean)

	cvMax := opts.CVThreshold
	if cvMax <= 0 {
		cvMax = processCVMax
	}

	acf := timeseries.ACF(values, 1)
	lag1 := 0.0
	if len(acf) > 0 {
		lag1 = acf[0]
	}
	return cv < cvMax && math.Abs(lag1) < processACFMax
}

// reliabilityApplies probes the item set and keeps the analysis only
// when it already clears the consistency thresholds.
func (d *Detector) reliabilityApplies(samples []stats.Sample, opts stats.Options) bool {
	if len(samples) < 3 {
		return false
	}
	report, err := d.reliability.Assess(samples, opts)
	if err != nil {
		d.logger.Debug("reliability probe failed: %v", err)
		return false
	}
	return report.Acceptable
}

func fromExplicitList(names []string) stats.RequiredAnalyses {
	var required stats.RequiredAnalyses
	for _, name := range names {
		switch name {
		case stats.AnalysisDescriptive:
			required.DescriptiveStats = true
		case stats.AnalysisNormality:
			required.NormalityTest = true
		case stats.AnalysisCorrelation:
			required.CorrelationAnalysis = true
		case stats.AnalysisOutliers:
			required.OutlierAnalysis = true
		case stats.AnalysisDistribution:
			required.DistributionFit = true
		case stats.AnalysisUncertainty:
			required.UncertaintyProp = true
		case stats.AnalysisTimeSeries:
			required.TimeSeries = true
		case stats.AnalysisQualityControl:
			required.QualityControl = true
		case stats.AnalysisReliability:
			required.Reliability = true
		case stats.AnalysisVisualization:
			required.Visualization = true
		case stats.AnalysisHypothesis:
			required.HypothesisTesting = true
		case stats.AnalysisPower:
			required.PowerAnalysis = true
		}
	}
	return required
}
