package stats

// DescriptiveStats holds the moment, order, and dispersion summary of a
// single sample.
type DescriptiveStats struct {
	Name     string  `json:"name,omitempty"`
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Range    float64 `json:"range"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	IQR      float64 `json:"iqr"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	SEM      float64 `json:"sem"`
	CV       float64 `json:"cv"`

	// Uncertainty-weighted companions, present only when the sample
	// carries per-observation uncertainties.
	WeightedMean       *float64 `json:"weighted_mean,omitempty"`
	WeightedMeanStdErr *float64 `json:"weighted_mean_std_err,omitempty"`
	MeanCILower        *float64 `json:"mean_ci_lower,omitempty"`
	MeanCIUpper        *float64 `json:"mean_ci_upper,omitempty"`
}

// RobustStats holds resistant location and scale estimates.
type RobustStats struct {
	Median        float64 `json:"median"`
	MAD           float64 `json:"mad"`
	TrimmedMean   float64 `json:"trimmed_mean"`
	Winsorized    float64 `json:"winsorized_mean"`
	TrimFraction  float64 `json:"trim_fraction"`
}

// OutlierReport summarizes z-score and IQR outlier detection on one sample.
type OutlierReport struct {
	Name          string    `json:"name,omitempty"`
	ZScoreIndices []int     `json:"z_score_indices"`
	IQRIndices    []int     `json:"iqr_indices"`
	Values        []float64 `json:"values"`
	Rate          float64   `json:"rate"`
	LowerFence    float64   `json:"lower_fence"`
	UpperFence    float64   `json:"upper_fence"`
}

// NormalityTest holds one named test's statistic and decision.
type NormalityTest struct {
	Test      string  `json:"test"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	IsNormal  bool    `json:"is_normal"`
}

// NormalityReport aggregates the battery applied to a single sample.
type NormalityReport struct {
	Name            string          `json:"name,omitempty"`
	Tests           []NormalityTest `json:"tests"`
	IsNormal        bool            `json:"is_normal"`
	Transformations []string        `json:"suggested_transformations,omitempty"`
}

// DistributionFit is the fit of one family to one sample.
type DistributionFit struct {
	Family        string      `json:"family"`
	Params        []ParamValue `json:"params"`
	LogLikelihood float64     `json:"log_likelihood"`
	AIC           float64     `json:"aic"`
	BIC           float64     `json:"bic"`
	KSStatistic   float64     `json:"ks_statistic"`
	KSPValue      float64     `json:"ks_p_value"`
	ADStatistic   float64     `json:"ad_statistic"`
	ADRejected    bool        `json:"ad_rejected"`
	CvMStatistic  float64     `json:"cvm_statistic"`
	Converged     bool        `json:"converged"`
}

// ParamValue is one named distribution parameter. Order matters, so
// fits carry a slice rather than a map.
type ParamValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DistributionReport ranks candidate family fits for one sample.
type DistributionReport struct {
	Name    string            `json:"name,omitempty"`
	Fits    []DistributionFit `json:"fits"`
	BestFit string            `json:"best_fit"`
}

// CorrelationTestResult holds one pairwise association measure together
// with its resampling-based inference.
type CorrelationTestResult struct {
	Method       string  `json:"method"`
	VarX         string  `json:"var_x"`
	VarY         string  `json:"var_y"`
	Coefficient  float64 `json:"coefficient"`
	PValue       float64 `json:"p_value"`
	CILower      float64 `json:"ci_lower"`
	CIUpper      float64 `json:"ci_upper"`
	N            int     `json:"n"`
	Significant  bool    `json:"significant"`
	Permutations int     `json:"permutations"`
}

// CorrelationReport holds the full pairwise analysis: every method's
// tests plus the repaired correlation matrix for the primary method.
type CorrelationReport struct {
	Tests       []CorrelationTestResult `json:"tests"`
	Method      string                  `json:"method"`
	Matrix      [][]float64             `json:"matrix"`
	Names       []string                `json:"names"`
	PSDRepaired bool                    `json:"psd_repaired"`
}

// TrendResult describes the least-squares linear trend of a series.
type TrendResult struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	RSquared   float64 `json:"r_squared"`
	PValue     float64 `json:"p_value"`
	HasTrend   bool    `json:"has_trend"`
	Direction  string  `json:"direction"`
}

// StationarityResult carries one unit-root or stationarity test.
type StationarityResult struct {
	Test         string  `json:"test"`
	Statistic    float64 `json:"statistic"`
	PValue       float64 `json:"p_value"`
	LagsUsed     int     `json:"lags_used"`
	IsStationary bool    `json:"is_stationary"`
}

// SeasonalityResult summarizes spectral seasonality detection.
type SeasonalityResult struct {
	HasSeasonality bool    `json:"has_seasonality"`
	Period         int     `json:"period,omitempty"`
	PowerRatio     float64 `json:"power_ratio"`
	FStatistic     float64 `json:"f_statistic,omitempty"`
	FPValue        float64 `json:"f_p_value,omitempty"`
}

// LjungBoxResult is the portmanteau autocorrelation test.
type LjungBoxResult struct {
	Statistic      float64 `json:"statistic"`
	PValue         float64 `json:"p_value"`
	Lags           int     `json:"lags"`
	HasAutocorr    bool    `json:"has_autocorrelation"`
}

// TimeSeriesReport aggregates the temporal analyses of one series.
type TimeSeriesReport struct {
	Name         string               `json:"name,omitempty"`
	Trend        TrendResult          `json:"trend"`
	ACF          []float64            `json:"acf"`
	LjungBox     LjungBoxResult       `json:"ljung_box"`
	Stationarity []StationarityResult `json:"stationarity"`
	Seasonality  SeasonalityResult    `json:"seasonality"`
}

// RuleViolation records a control-chart rule breach.
type RuleViolation struct {
	Rule    string `json:"rule"`
	Indices []int  `json:"indices"`
}

// StabilityAssessment is the quality-control verdict on one series.
type StabilityAssessment struct {
	Name         string          `json:"name,omitempty"`
	CenterLine   float64         `json:"center_line"`
	UCL          float64         `json:"ucl"`
	LCL          float64         `json:"lcl"`
	WarningUpper float64         `json:"warning_upper"`
	WarningLower float64         `json:"warning_lower"`
	Stable       bool            `json:"stable"`
	Label        string          `json:"label"`
	Violations   []RuleViolation `json:"violations"`
	Capability   *ProcessCapability `json:"capability,omitempty"`
}

// ProcessCapability is the Cp/Cpk block, present only when spec limits
// were supplied.
type ProcessCapability struct {
	Cp         float64 `json:"cp"`
	Cpk        float64 `json:"cpk"`
	PPMDefects float64 `json:"ppm_defects"`
	Rating     string  `json:"rating"`
}

// ReliabilityReport holds internal-consistency measures over item sets.
type ReliabilityReport struct {
	CronbachAlpha  float64   `json:"cronbach_alpha"`
	McDonaldOmega  float64   `json:"mcdonald_omega"`
	SEM            float64   `json:"sem"`
	ItemTotalCorrs []float64 `json:"item_total_correlations"`
	NItems         int       `json:"n_items"`
	Acceptable     bool      `json:"acceptable"`
}

// BootstrapCI is a BCa confidence interval for one statistic.
type BootstrapCI struct {
	Statistic  string  `json:"statistic"`
	Estimate   float64 `json:"estimate"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
}

// UncertaintyReport holds uncertainty-aware summary and propagation results.
type UncertaintyReport struct {
	Name               string        `json:"name,omitempty"`
	PropagatedMean     float64       `json:"propagated_mean"`
	PropagatedStdDev   float64       `json:"propagated_std_dev"`
	ExpandedUncert     float64       `json:"expanded_uncertainty"`
	CoverageFactor     float64       `json:"coverage_factor"`
	BootstrapIntervals []BootstrapCI `json:"bootstrap_intervals,omitempty"`
}

// HypothesisTest is one test from the two-sample or k-sample battery.
type HypothesisTest struct {
	Test       string  `json:"test"`
	Statistic  float64 `json:"statistic"`
	PValue     float64 `json:"p_value"`
	DF         float64 `json:"df"`
	EffectSize float64 `json:"effect_size"`
	Significant bool   `json:"significant"`
	Groups     []string `json:"groups,omitempty"`
}

// PowerAnalysis estimates achieved power and required sample size for a
// detected effect.
type PowerAnalysis struct {
	EffectSize    float64 `json:"effect_size"`
	Alpha         float64 `json:"alpha"`
	Power         float64 `json:"power"`
	RequiredN     int     `json:"required_n"`
	CurrentN      int     `json:"current_n"`
	Underpowered  bool    `json:"underpowered"`
}

// VisualizationSuggestion names a plot type and the reason it applies.
type VisualizationSuggestion struct {
	Plot   string `json:"plot"`
	Reason string `json:"reason"`
}

// Result is the complete deterministic output of one analysis run.
// Optional blocks are nil when the corresponding analysis did not run.
type Result struct {
	RunID        string             `json:"run_id"`
	Seed         int64              `json:"seed"`
	Analyses     RequiredAnalyses   `json:"analyses_performed"`
	Sanitization SanitizationReport `json:"sanitization"`

	Descriptive  []DescriptiveStats  `json:"descriptive,omitempty"`
	Robust       []RobustStats       `json:"robust,omitempty"`
	Outliers     []OutlierReport     `json:"outliers,omitempty"`
	Normality    []NormalityReport   `json:"normality,omitempty"`
	Distribution []DistributionReport `json:"distribution,omitempty"`
	Correlation  *CorrelationReport  `json:"correlation,omitempty"`
	TimeSeries   []TimeSeriesReport  `json:"time_series,omitempty"`
	Stability    []StabilityAssessment `json:"quality_control,omitempty"`
	Reliability  *ReliabilityReport  `json:"reliability,omitempty"`
	Uncertainty  []UncertaintyReport `json:"uncertainty,omitempty"`
	Hypothesis   []HypothesisTest    `json:"hypothesis_tests,omitempty"`
	Power        *PowerAnalysis      `json:"power,omitempty"`
	Plots        []VisualizationSuggestion `json:"visualization_suggestions,omitempty"`

	QualityScore    float64  `json:"quality_score"`
	Recommendations []string `json:"recommendations"`
}
