package qualitycontrol

import (
	"fmt"
	"math"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// minSamples is the shortest series control charting accepts.
const minSamples = 8

// runLength is rule one's consecutive-same-side threshold.
const runLength = 7

// outsideLimitBudget is the tolerated fraction of points beyond the
// three-sigma limits before rule four fires.
const outsideLimitBudget = 0.05

// Engine assesses process stability with individuals-chart rules and,
// when specification limits are given, process capability.
type Engine struct{}

// NewEngine creates a quality control engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Assess evaluates every run rule over the series. All rules are
// checked even after the first violation; the label names the first
// violated rule.
func (e *Engine) Assess(sample stats.Sample, opts stats.Options) (stats.StabilityAssessment, error) {
	values := sample.Values
	if len(values) < minSamples {
		return stats.StabilityAssessment{}, errors.DegenerateInput("stability assessment needs at least 8 observations")
	}

	mean, _ := mfstats.Mean(values)
	variance, _ := mfstats.SampleVariance(values)
	sd := math.Sqrt(variance)
	if sd == 0 {
		return stats.StabilityAssessment{}, errors.DegenerateInput("constant series cannot be charted")
	}

	assessment := stats.StabilityAssessment{
		Name:         sample.Name,
		CenterLine:   mean,
		UCL:          mean + 3*sd,
		LCL:          mean - 3*sd,
		WarningUpper: mean + 2*sd,
		WarningLower: mean - 2*sd,
	}

	if v := runRule(values, mean); len(v) > 0 {
		assessment.Violations = append(assessment.Violations,
			stats.RuleViolation{Rule: "run_of_7_one_side", Indices: v})
	}
	if v := zoneRule(values, mean, sd, 2, 3, 2); len(v) > 0 {
		assessment.Violations = append(assessment.Violations,
			stats.RuleViolation{Rule: "2_of_3_beyond_2_sigma", Indices: v})
	}
	if v := zoneRule(values, mean, sd, 1, 5, 4); len(v) > 0 {
		assessment.Violations = append(assessment.Violations,
			stats.RuleViolation{Rule: "4_of_5_beyond_1_sigma", Indices: v})
	}
	if v := limitRule(values, assessment.LCL, assessment.UCL); len(v) > 0 {
		assessment.Violations = append(assessment.Violations,
			stats.RuleViolation{Rule: "beyond_3_sigma", Indices: v})
	}

	assessment.Stable = len(assessment.Violations) == 0
	if assessment.Stable {
		assessment.Label = "Stable"
	} else {
		assessment.Label = "Unstable(" + assessment.Violations[0].Rule + ")"
	}

	if opts.LSL != nil && opts.USL != nil {
		capability, err := e.capability(mean, sd, *opts.LSL, *opts.USL)
		if err != nil {
			return stats.StabilityAssessment{}, err
		}
		assessment.Capability = &capability
	}
	return assessment, nil
}

// runRule flags runs of 7 or more consecutive points on one side of the
// center line.
func runRule(values []float64, center float64) []int {
	var violations []int
	runStart := 0
	side := 0
	for i, v := range values {
		s := 0
		if v > center {
			s = 1
		} else if v < center {
			s = -1
		}
		if s != 0 && s == side {
			if i-runStart+1 >= runLength {
				violations = append(violations, i)
			}
			continue
		}
		side = s
		runStart = i
	}
	return violations
}

// zoneRule flags windows where at least need points of the last window
// fall beyond sigmas standard deviations on the same side.
func zoneRule(values []float64, mean, sd float64, sigmas float64, window, need int) []int {
	var violations []int
	for i := window - 1; i < len(values); i++ {
		above, below := 0, 0
		for j := i - window + 1; j <= i; j++ {
			if values[j] > mean+sigmas*sd {
				above++
			} else if values[j] < mean-sigmas*sd {
				below++
			}
		}
		if above >= need || below >= need {
			violations = append(violations, i)
		}
	}
	return violations
}

// limitRule fires when more than the tolerated fraction of points fall
// outside the control limits.
func limitRule(values []float64, lcl, ucl float64) []int {
	var outside []int
	for i, v := range values {
		if v < lcl || v > ucl {
			outside = append(outside, i)
		}
	}
	if float64(len(outside))/float64(len(values)) > outsideLimitBudget {
		return outside
	}
	return nil
}

// capability computes Cp, Cpk, the expected defect rate, and a coarse
// rating with the standard breakpoints.
func (e *Engine) capability(mean, sd, lsl, usl float64) (stats.ProcessCapability, error) {
	if usl <= lsl {
		return stats.ProcessCapability{}, errors.InvalidInput(
			fmt.Sprintf("USL %.4g must exceed LSL %.4g", usl, lsl))
	}

	cp := (usl - lsl) / (6 * sd)
	cpu := (usl - mean) / (3 * sd)
	cpl := (mean - lsl) / (3 * sd)
	cpk := math.Min(cpu, cpl)

	normal := distuv.Normal{Mu: mean, Sigma: sd}
	defectRate := normal.CDF(lsl) + (1 - normal.CDF(usl))
	ppm := defectRate * 1e6

	return stats.ProcessCapability{
		Cp:         cp,
		Cpk:        cpk,
		PPMDefects: ppm,
		Rating:     capabilityRating(cpk),
	}, nil
}

func capabilityRating(cpk float64) string {
	switch {
	case cpk >= 1.67:
		return "excellent"
	case cpk >= 1.33:
		return "adequate"
	case cpk >= 1.0:
		return "marginal"
	case cpk >= 0.67:
		return "poor"
	default:
		return "inadequate"
	}
}
