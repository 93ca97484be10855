package pipeline

import (
	"math"

	mfstats "github.com/montanaflynn/stats"

	"anastat/domain/stats"
	"anastat/internal/errors"
	"anastat/internal/linalg"
	"anastat/ports"
)

// infClampFactor scales the finite extreme that replaces an infinity.
const infClampFactor = 1.5

// imputeJitterScale sets the amplitude of the deterministic
// perturbation added to imputed means, relative to the sample spread.
const imputeJitterScale = 0.001

// multipleImputeDraws is how many noisy draws are averaged per gap
// under the multiple policy.
const multipleImputeDraws = 5

// multipleImputeStreamBase offsets the sanitizer's sub-streams away
// from the index range the analysis engines draw on.
const multipleImputeStreamBase = 30000

// Sanitizer applies the configured missing-value policy before any
// analysis runs.
type Sanitizer struct {
	rng ports.RNG
}

// NewSanitizer creates an input sanitizer. The generator feeds the
// multiple-imputation draws.
func NewSanitizer(rng ports.RNG) *Sanitizer {
	return &Sanitizer{rng: rng}
}

// Clean returns sanitized copies of the samples plus the removal
// report. The inputs are never mutated. Infinities are clamped to a
// multiple of the finite extremes first; the NaN policy then decides
// what happens to missing values.
func (s *Sanitizer) Clean(samples []stats.Sample, opts stats.Options) ([]stats.Sample, stats.SanitizationReport, error) {
	report := stats.SanitizationReport{
		OriginalRowCounts:  make([]int, len(samples)),
		RemainingRowCounts: make([]int, len(samples)),
	}

	cleaned := make([]stats.Sample, len(samples))
	for i, sample := range samples {
		report.OriginalRowCounts[i] = len(sample.Values)
		clamped, err := clampInfinities(sample)
		if err != nil {
			return nil, report, errors.Wrapf(err, "sample %q", sample.Name)
		}
		cleaned[i] = clamped
	}

	policy := opts.NaNHandling
	if policy == "" {
		policy = stats.NaNRemove
	}

	switch policy {
	case stats.NaNError:
		for _, sample := range cleaned {
			for _, v := range sample.Values {
				if math.IsNaN(v) {
					return nil, report, errors.ValidationError("sample " + sample.Name + " contains missing values")
				}
			}
		}
	case stats.NaNIgnore:
		// Leave values as they are.
	case stats.NaNRemove:
		if opts.TreatAsPaired && pairable(cleaned) {
			cleaned = removePaired(cleaned)
		} else {
			for i := range cleaned {
				cleaned[i] = removeMissing(cleaned[i])
			}
		}
	case stats.NaNZero:
		for i := range cleaned {
			cleaned[i] = imputeConstant(cleaned[i], 0)
		}
	case stats.NaNMedian:
		for i := range cleaned {
			sample, err := imputeCenter(cleaned[i], false)
			if err != nil {
				return nil, report, err
			}
			cleaned[i] = sample
		}
	case stats.NaNMean:
		for i := range cleaned {
			sample, err := imputeCenter(cleaned[i], true)
			if err != nil {
				return nil, report, err
			}
			cleaned[i] = sample
		}
	case stats.NaNMultiple:
		for i := range cleaned {
			sample, err := s.imputeMultiple(cleaned[i], opts.Seed, i)
			if err != nil {
				return nil, report, err
			}
			cleaned[i] = sample
		}
	default:
		return nil, report, errors.InvalidInput("unknown NaN policy: " + string(policy))
	}

	for i, sample := range cleaned {
		report.RemainingRowCounts[i] = len(sample.Values)
		report.RowsRemovedTotal += report.OriginalRowCounts[i] - len(sample.Values)
	}
	return cleaned, report, nil
}

// clampInfinities replaces infinities with scaled finite extremes. A
// sample with no finite value at all is unusable.
func clampInfinities(sample stats.Sample) (stats.Sample, error) {
	hasInf := false
	minFinite := math.Inf(1)
	maxFinite := math.Inf(-1)
	for _, v := range sample.Values {
		if math.IsInf(v, 0) {
			hasInf = true
			continue
		}
		if !math.IsNaN(v) {
			if v < minFinite {
				minFinite = v
			}
			if v > maxFinite {
				maxFinite = v
			}
		}
	}
	if !hasInf {
		return copySample(sample), nil
	}
	if math.IsInf(minFinite, 1) {
		return stats.Sample{}, errors.DegenerateInput("sample has no finite values")
	}

	out := copySample(sample)
	for i, v := range out.Values {
		if math.IsInf(v, 1) {
			out.Values[i] = infClampFactor * maxFinite
		} else if math.IsInf(v, -1) {
			out.Values[i] = infClampFactor * minFinite
		}
	}
	return out, nil
}

// pairable reports whether all samples share one length, which is the
// precondition for row-wise removal.
func pairable(samples []stats.Sample) bool {
	if len(samples) < 2 {
		return false
	}
	n := len(samples[0].Values)
	for _, s := range samples[1:] {
		if len(s.Values) != n {
			return false
		}
	}
	return true
}

// removePaired drops row i from every sample when any sample is missing
// at i, preserving pairing.
func removePaired(samples []stats.Sample) []stats.Sample {
	n := len(samples[0].Values)
	keep := make([]bool, n)
	for i := 0; i < n; i++ {
		keep[i] = true
		for _, s := range samples {
			if math.IsNaN(s.Values[i]) {
				keep[i] = false
				break
			}
		}
	}

	out := make([]stats.Sample, len(samples))
	for si, s := range samples {
		filtered := stats.Sample{Name: s.Name}
		for i := 0; i < n; i++ {
			if !keep[i] {
				continue
			}
			filtered.Values = append(filtered.Values, s.Values[i])
			if len(s.Uncertainties) == n {
				filtered.Uncertainties = append(filtered.Uncertainties, s.Uncertainties[i])
			}
			if len(s.Confidences) == n {
				filtered.Confidences = append(filtered.Confidences, s.Confidences[i])
			}
		}
		out[si] = filtered
	}
	return out
}

func removeMissing(sample stats.Sample) stats.Sample {
	n := len(sample.Values)
	out := stats.Sample{Name: sample.Name}
	for i, v := range sample.Values {
		if math.IsNaN(v) {
			continue
		}
		out.Values = append(out.Values, v)
		if len(sample.Uncertainties) == n {
			out.Uncertainties = append(out.Uncertainties, sample.Uncertainties[i])
		}
		if len(sample.Confidences) == n {
			out.Confidences = append(out.Confidences, sample.Confidences[i])
		}
	}
	return out
}

func imputeConstant(sample stats.Sample, value float64) stats.Sample {
	out := copySample(sample)
	for i, v := range out.Values {
		if math.IsNaN(v) {
			out.Values[i] = value
		}
	}
	return out
}

// imputeCenter fills missing values with the mean or median of the
// observed values. Mean imputation adds a tiny deterministic sinusoidal
// perturbation so downstream variance never collapses to zero.
func imputeCenter(sample stats.Sample, useMean bool) (stats.Sample, error) {
	var observed []float64
	for _, v := range sample.Values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return stats.Sample{}, errors.DegenerateInput("sample " + sample.Name + " has no observed values to impute from")
	}

	var center float64
	if useMean {
		center, _ = mfstats.Mean(observed)
	} else {
		center, _ = mfstats.Median(observed)
	}
	variance, _ := mfstats.SampleVariance(observed)
	sd := math.Sqrt(variance)

	out := copySample(sample)
	for i, v := range out.Values {
		if math.IsNaN(v) {
			fill := center
			if useMean {
				fill += sd * imputeJitterScale * math.Sin(float64(i))
			}
			out.Values[i] = fill
		}
	}
	return out, nil
}

// imputeMultiple fills each gap with the average of several noisy
// draws around an index-regression prediction, so imputed values track
// any trend in the observed points instead of collapsing to a single
// center. Falls back to mean-centered draws when too few points remain
// for the regression.
func (s *Sanitizer) imputeMultiple(sample stats.Sample, seed int64, sampleIndex int) (stats.Sample, error) {
	var design [][]float64
	var observed []float64
	for i, v := range sample.Values {
		if !math.IsNaN(v) {
			design = append(design, []float64{1, float64(i)})
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return stats.Sample{}, errors.DegenerateInput("sample " + sample.Name + " has no observed values to impute from")
	}

	mean, _ := mfstats.Mean(observed)
	predict := func(i int) float64 { return mean }
	noiseSD := 0.0

	if beta, _, err := linalg.OLS(design, observed); err == nil {
		predict = func(i int) float64 { return beta[0] + beta[1]*float64(i) }
		rss := 0.0
		for j, row := range design {
			r := observed[j] - (beta[0] + beta[1]*row[1])
			rss += r * r
		}
		noiseSD = math.Sqrt(rss / float64(len(observed)-2))
	} else {
		variance, _ := mfstats.SampleVariance(observed)
		noiseSD = math.Sqrt(variance)
	}

	stream := s.rng.SubStream(seed, multipleImputeStreamBase+sampleIndex)
	out := copySample(sample)
	for i, v := range out.Values {
		if !math.IsNaN(v) {
			continue
		}
		sum := 0.0
		for d := 0; d < multipleImputeDraws; d++ {
			sum += predict(i) + noiseSD*stream.NormFloat64()
		}
		out.Values[i] = sum / multipleImputeDraws
	}
	return out, nil
}

func copySample(sample stats.Sample) stats.Sample {
	return stats.Sample{
		Name:          sample.Name,
		Values:        append([]float64(nil), sample.Values...),
		Uncertainties: append([]float64(nil), sample.Uncertainties...),
		Confidences:   append([]float64(nil), sample.Confidences...),
	}
}
