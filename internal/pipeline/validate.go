package pipeline

import (
	"fmt"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// maxSamples bounds a single request.
const maxSamples = 100

// Validate rejects structurally invalid requests before sanitization.
func Validate(samples []stats.Sample, opts stats.Options) error {
	if len(samples) == 0 {
		return errors.ValidationError("no samples given")
	}
	if len(samples) > maxSamples {
		return errors.ValidationError(fmt.Sprintf("too many samples: %d (limit %d)", len(samples), maxSamples))
	}
	for i, s := range samples {
		if len(s.Values) == 0 {
			return errors.ValidationError(fmt.Sprintf("sample %d (%q) is empty", i, s.Name))
		}
		if len(s.Uncertainties) > 0 && len(s.Uncertainties) != len(s.Values) {
			return errors.ValidationError(fmt.Sprintf("sample %d (%q): uncertainties length %d does not match values length %d",
				i, s.Name, len(s.Uncertainties), len(s.Values)))
		}
		if len(s.Confidences) > 0 && len(s.Confidences) != len(s.Values) {
			return errors.ValidationError(fmt.Sprintf("sample %d (%q): confidences length %d does not match values length %d",
				i, s.Name, len(s.Confidences), len(s.Values)))
		}
		for j, u := range s.Uncertainties {
			if u < 0 {
				return errors.ValidationError(fmt.Sprintf("sample %d (%q): negative uncertainty at %d", i, s.Name, j))
			}
		}
	}

	if opts.ConfidenceLevel <= 0 || opts.ConfidenceLevel >= 1 {
		return errors.ValidationError("confidence level must be in (0, 1)")
	}
	if opts.BootstrapSamples < 0 || opts.PermutationCount < 0 {
		return errors.ValidationError("resampling counts must be non-negative")
	}
	if opts.Seed < 0 {
		return errors.ValidationError("seed must be non-negative")
	}
	if opts.DecimalPrecision < 0 {
		return errors.ValidationError("decimal precision must be non-negative")
	}

	for _, name := range opts.EnabledAnalyses {
		if !knownAnalysis(name) {
			return errors.ValidationError("unknown analysis: " + name)
		}
	}
	return nil
}

func knownAnalysis(name string) bool {
	switch name {
	case stats.AnalysisDescriptive, stats.AnalysisNormality, stats.AnalysisCorrelation,
		stats.AnalysisOutliers, stats.AnalysisDistribution, stats.AnalysisUncertainty,
		stats.AnalysisTimeSeries, stats.AnalysisQualityControl, stats.AnalysisReliability,
		stats.AnalysisVisualization, stats.AnalysisHypothesis, stats.AnalysisPower:
		return true
	}
	return false
}
