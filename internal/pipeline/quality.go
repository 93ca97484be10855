package pipeline

import (
	"fmt"

	"anastat/domain/stats"
)

// Quality score penalties. The score starts at 100 and never drops
// below zero.
const (
	smallSampleRefN      = 30
	smallSamplePerPoint  = 2.0
	smallSampleCap       = 40.0
	underpoweredCap      = 40.0
	nonNormalPenalty     = 15.0
	outlierPenaltyScale  = 2.0
	outlierPenaltyCap    = 30.0
	instabilityPenalty   = 20.0
	strongCorrThreshold  = 0.7
	outlierRateThreshold = 0.05
)

// scoreQuality grades how trustworthy the analyzed data is.
func scoreQuality(result *stats.Result) float64 {
	score := 100.0

	minN := 0
	for _, d := range result.Descriptive {
		if minN == 0 || d.N < minN {
			minN = d.N
		}
	}
	if minN > 0 && minN < smallSampleRefN {
		penalty := float64(smallSampleRefN-minN) * smallSamplePerPoint
		if penalty > smallSampleCap {
			penalty = smallSampleCap
		}
		score -= penalty
	}

	if result.Power != nil && result.Power.Underpowered && result.Power.RequiredN > 0 {
		fraction := float64(result.Power.CurrentN) / float64(result.Power.RequiredN)
		if fraction > 1 {
			fraction = 1
		}
		penalty := underpoweredCap * (1 - fraction)
		if penalty > underpoweredCap {
			penalty = underpoweredCap
		}
		score -= penalty
	}

	for _, n := range result.Normality {
		if !n.IsNormal {
			score -= nonNormalPenalty
			break
		}
	}

	maxOutlierRate := 0.0
	for _, o := range result.Outliers {
		if o.Rate > maxOutlierRate {
			maxOutlierRate = o.Rate
		}
	}
	if maxOutlierRate > 0 {
		penalty := maxOutlierRate * 100 * outlierPenaltyScale
		if penalty > outlierPenaltyCap {
			penalty = outlierPenaltyCap
		}
		score -= penalty
	}

	for _, s := range result.Stability {
		if !s.Stable {
			score -= instabilityPenalty
			break
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// recommend derives actionable guidance from the completed analyses.
func recommend(result *stats.Result) []string {
	var recs []string

	for _, d := range result.Descriptive {
		if d.N < smallSampleRefN {
			recs = append(recs, fmt.Sprintf(
				"Sample %q has only %d observations; collect more data for stable estimates.", d.Name, d.N))
			break
		}
	}

	for _, n := range result.Normality {
		if !n.IsNormal {
			msg := fmt.Sprintf("Sample %q departs from normality; prefer nonparametric or robust methods.", n.Name)
			if len(n.Transformations) > 0 {
				msg += fmt.Sprintf(" Candidate transformations: %v.", n.Transformations)
			}
			recs = append(recs, msg)
			break
		}
	}

	for _, o := range result.Outliers {
		if o.Rate > outlierRateThreshold {
			recs = append(recs, fmt.Sprintf(
				"Sample %q has %.1f%% outliers; investigate before trusting moment-based statistics.",
				o.Name, o.Rate*100))
			break
		}
	}

	if result.Correlation != nil {
		for _, test := range result.Correlation.Tests {
			if test.Method == result.Correlation.Method &&
				test.Significant && abs(test.Coefficient) > strongCorrThreshold {
				recs = append(recs, fmt.Sprintf(
					"Strong correlation between %q and %q (r=%.3f); consider a joint model.",
					test.VarX, test.VarY, test.Coefficient))
				break
			}
		}
	}

	for _, dist := range result.Distribution {
		if dist.BestFit != "" && dist.BestFit != "normal" {
			recs = append(recs, fmt.Sprintf(
				"Sample %q is best described by the %s distribution; normal-theory intervals may mislead.",
				dist.Name, dist.BestFit))
			break
		}
	}

	for _, s := range result.Stability {
		if !s.Stable {
			recs = append(recs, fmt.Sprintf(
				"Process %q is out of control (%s); identify and remove special causes before capability analysis.",
				s.Name, s.Label))
			break
		}
	}

	if len(recs) == 0 {
		recs = append(recs,
			"Data quality checks passed; standard parametric methods are appropriate.",
			"Archive the seed with the results to keep this analysis reproducible.")
	}
	return recs
}

// suggestPlots names visualizations that fit the analyses that ran.
func suggestPlots(result *stats.Result) []stats.VisualizationSuggestion {
	var plots []stats.VisualizationSuggestion

	if len(result.Descriptive) > 0 {
		plots = append(plots, stats.VisualizationSuggestion{
			Plot: "histogram", Reason: "inspect each sample's empirical distribution",
		})
		plots = append(plots, stats.VisualizationSuggestion{
			Plot: "box_plot", Reason: "compare spread and flag outliers at a glance",
		})
	}
	if len(result.Normality) > 0 {
		plots = append(plots, stats.VisualizationSuggestion{
			Plot: "qq_plot", Reason: "assess normality departures visually",
		})
	}
	if result.Correlation != nil {
		plots = append(plots, stats.VisualizationSuggestion{
			Plot: "scatter_matrix", Reason: "examine pairwise relationships behind the correlation matrix",
		})
		if len(result.Correlation.Names) > 2 {
			plots = append(plots, stats.VisualizationSuggestion{
				Plot: "correlation_heatmap", Reason: "summarize the full correlation structure",
			})
		}
	}
	if len(result.TimeSeries) > 0 {
		plots = append(plots, stats.VisualizationSuggestion{
			Plot: "line_plot", Reason: "show trend and seasonality over the observation index",
		})
		plots = append(plots, stats.VisualizationSuggestion{
			Plot: "acf_plot", Reason: "display the autocorrelation structure",
		})
	}
	if len(result.Stability) > 0 {
		plots = append(plots, stats.VisualizationSuggestion{
			Plot: "control_chart", Reason: "track the process against its control limits",
		})
	}
	return plots
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
