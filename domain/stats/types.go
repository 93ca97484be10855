package stats

// Sample is an ordered sequence of observations, optionally paired with
// per-observation measurement uncertainties and confidence levels. When
// Uncertainties or Confidences are present they must have the same length
// as Values.
type Sample struct {
	Name          string    `json:"name,omitempty"`
	Values        []float64 `json:"values"`
	Uncertainties []float64 `json:"uncertainties,omitempty"`
	Confidences   []float64 `json:"confidences,omitempty"`
}

// NaNPolicy selects how non-finite observations are handled during
// input sanitization.
type NaNPolicy string

const (
	NaNError    NaNPolicy = "error"
	NaNRemove   NaNPolicy = "remove"
	NaNMean     NaNPolicy = "mean"
	NaNMedian   NaNPolicy = "median"
	NaNZero     NaNPolicy = "zero"
	NaNMultiple NaNPolicy = "multiple"
	NaNIgnore   NaNPolicy = "ignore"
)

// Analysis names accepted in Options.EnabledAnalyses. When the list is
// non-empty it overrides all detection heuristics.
const (
	AnalysisDescriptive    = "descriptive_stats"
	AnalysisNormality      = "normality_test"
	AnalysisCorrelation    = "correlation_analysis"
	AnalysisOutliers       = "outlier_analysis"
	AnalysisDistribution   = "distribution_analysis"
	AnalysisUncertainty    = "uncertainty_propagation"
	AnalysisTimeSeries     = "time_series_analysis"
	AnalysisQualityControl = "quality_control"
	AnalysisReliability    = "reliability_analysis"
	AnalysisVisualization  = "visualization_suggestions"
	AnalysisHypothesis     = "hypothesis_testing"
	AnalysisPower          = "power_analysis"
)

// Options is the immutable per-request configuration record. It is
// created once per analysis request and never mutated during the run.
type Options struct {
	ConfidenceLevel  float64 `json:"confidence_level"`
	BootstrapSamples int     `json:"bootstrap_samples"`
	PermutationCount int     `json:"permutation_count"`
	Seed             int64   `json:"seed"`

	CorrelationMethod string    `json:"correlation_method"`
	BiweightTuning    float64   `json:"biweight_tuning"`
	NaNHandling       NaNPolicy `json:"nan_handling"`
	TreatAsPaired     bool      `json:"treat_as_paired"`

	// EnabledAnalyses, when non-empty, force-selects exactly the listed
	// analyses and bypasses pattern detection.
	EnabledAnalyses []string `json:"enabled_analyses,omitempty"`

	// Process specification limits for capability analysis.
	LSL *float64 `json:"lsl,omitempty"`
	USL *float64 `json:"usl,omitempty"`

	// Named numeric thresholds.
	OutlierZThreshold       float64 `json:"outlier_z_threshold"`
	IQRMultiplier           float64 `json:"iqr_multiplier"`
	AutocorrLags            int     `json:"autocorr_lags"`
	MinSamplesForTimeSeries int     `json:"min_samples_for_time_series"`
	LjungBoxPValue          float64 `json:"ljung_box_p_value"`
	CVThreshold             float64 `json:"cv_threshold"`
	ReliabilityAlpha        float64 `json:"reliability_alpha_threshold"`
	ReliabilityOmega        float64 `json:"reliability_omega_threshold"`
	SeasonalityPowerRatio   float64 `json:"seasonality_power_ratio"`
	SignificanceAlpha       float64 `json:"significance_alpha"`
	MaxOptimizerIters       int     `json:"max_optimizer_iters"`
	OptimizerStarts         int     `json:"optimizer_starts"`
	BasinHopping            bool    `json:"basin_hopping"`
	DecimalPrecision        int     `json:"decimal_precision"`
}

// DefaultOptions returns the option record used when a request leaves a
// field unset. The seed default keeps unconfigured runs reproducible.
func DefaultOptions() Options {
	return Options{
		ConfidenceLevel:         0.95,
		BootstrapSamples:        1000,
		PermutationCount:        1000,
		Seed:                    42,
		CorrelationMethod:       "pearson",
		BiweightTuning:          9.0,
		NaNHandling:             NaNRemove,
		TreatAsPaired:           true,
		OutlierZThreshold:       3.0,
		IQRMultiplier:           1.5,
		AutocorrLags:            10,
		MinSamplesForTimeSeries: 20,
		LjungBoxPValue:          0.05,
		CVThreshold:             0.1,
		ReliabilityAlpha:        0.7,
		ReliabilityOmega:        0.6,
		SeasonalityPowerRatio:   0.3,
		SignificanceAlpha:       0.05,
		MaxOptimizerIters:       200,
		OptimizerStarts:         10,
		BasinHopping:            false,
		DecimalPrecision:        10,
	}
}

// RequiredAnalyses is the per-run record of which analyses apply,
// computed once by the pattern detector and consumed read-only.
type RequiredAnalyses struct {
	DescriptiveStats    bool `json:"descriptive_stats"`
	NormalityTest       bool `json:"normality_test"`
	CorrelationAnalysis bool `json:"correlation_analysis"`
	OutlierAnalysis     bool `json:"outlier_analysis"`
	DistributionFit     bool `json:"distribution_analysis"`
	UncertaintyProp     bool `json:"uncertainty_propagation"`
	TimeSeries          bool `json:"time_series_analysis"`
	QualityControl      bool `json:"quality_control"`
	Reliability         bool `json:"reliability_analysis"`
	Visualization       bool `json:"visualization_suggestions"`
	HypothesisTesting   bool `json:"hypothesis_testing"`
	PowerAnalysis       bool `json:"power_analysis"`
}

// Names lists the enabled analyses in canonical order.
func (r RequiredAnalyses) Names() []string {
	var names []string
	for _, entry := range []struct {
		enabled bool
		name    string
	}{
		{r.DescriptiveStats, AnalysisDescriptive},
		{r.NormalityTest, AnalysisNormality},
		{r.CorrelationAnalysis, AnalysisCorrelation},
		{r.OutlierAnalysis, AnalysisOutliers},
		{r.DistributionFit, AnalysisDistribution},
		{r.UncertaintyProp, AnalysisUncertainty},
		{r.TimeSeries, AnalysisTimeSeries},
		{r.QualityControl, AnalysisQualityControl},
		{r.Reliability, AnalysisReliability},
		{r.Visualization, AnalysisVisualization},
		{r.HypothesisTesting, AnalysisHypothesis},
		{r.PowerAnalysis, AnalysisPower},
	} {
		if entry.enabled {
			names = append(names, entry.name)
		}
	}
	return names
}

// SanitizationReport records what the input sanitizer removed. It is
// produced once and threaded through to the final output unchanged.
type SanitizationReport struct {
	OriginalRowCounts  []int `json:"original_row_counts"`
	RemainingRowCounts []int `json:"remaining_row_counts"`
	RowsRemovedTotal   int   `json:"rows_removed_total"`
}
