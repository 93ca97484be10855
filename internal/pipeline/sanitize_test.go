package pipeline

import (
	"math"
	"testing"

	"anastat/domain/stats"
	"anastat/internal/rng"
)

func nan() float64 { return math.NaN() }

func TestCleanRemovePaired(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.NaNHandling = stats.NaNRemove
	opts.TreatAsPaired = true

	samples := []stats.Sample{
		{Name: "a", Values: []float64{1, nan(), 3, 4}},
		{Name: "b", Values: []float64{10, 20, 30, nan()}},
	}

	cleaned, report, err := sanitizer.Clean(samples, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	// Rows 1 and 3 drop from both samples.
	if len(cleaned[0].Values) != 2 || len(cleaned[1].Values) != 2 {
		t.Fatalf("wrong remaining counts: %d, %d", len(cleaned[0].Values), len(cleaned[1].Values))
	}
	if cleaned[0].Values[0] != 1 || cleaned[0].Values[1] != 3 {
		t.Errorf("wrong retained values: %v", cleaned[0].Values)
	}
	if cleaned[1].Values[0] != 10 || cleaned[1].Values[1] != 30 {
		t.Errorf("pairing broken: %v", cleaned[1].Values)
	}
	if report.RowsRemovedTotal != 4 {
		t.Errorf("wrong removal total: %d", report.RowsRemovedTotal)
	}
}

func TestCleanRemoveIndependent(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.TreatAsPaired = false

	samples := []stats.Sample{
		{Name: "a", Values: []float64{1, nan(), 3, 4}},
		{Name: "b", Values: []float64{10, 20, 30, nan()}},
	}
	cleaned, report, err := sanitizer.Clean(samples, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(cleaned[0].Values) != 3 || len(cleaned[1].Values) != 3 {
		t.Errorf("independent removal should keep 3 per sample: %d, %d",
			len(cleaned[0].Values), len(cleaned[1].Values))
	}
	if report.RowsRemovedTotal != 2 {
		t.Errorf("wrong removal total: %d", report.RowsRemovedTotal)
	}
}

func TestCleanErrorPolicy(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.NaNHandling = stats.NaNError

	_, _, err := sanitizer.Clean([]stats.Sample{{Name: "a", Values: []float64{1, nan()}}}, opts)
	if err == nil {
		t.Error("error policy must reject missing values")
	}
}

func TestCleanMeanImputationJitters(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.NaNHandling = stats.NaNMean

	samples := []stats.Sample{{Name: "a", Values: []float64{1, 2, 3, nan(), 5}}}
	cleaned, report, err := sanitizer.Clean(samples, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if report.RowsRemovedTotal != 0 {
		t.Errorf("imputation should remove nothing: %d", report.RowsRemovedTotal)
	}
	imputed := cleaned[0].Values[3]
	mean := 11.0 / 4
	if math.Abs(imputed-mean) > 0.1 {
		t.Errorf("imputed value %f far from observed mean %f", imputed, mean)
	}
	if imputed == mean {
		t.Error("mean imputation should carry a small perturbation")
	}
}

func TestCleanMedianImputation(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.NaNHandling = stats.NaNMedian

	samples := []stats.Sample{{Name: "a", Values: []float64{1, 2, 100, nan()}}}
	cleaned, _, err := sanitizer.Clean(samples, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if cleaned[0].Values[3] != 2 {
		t.Errorf("expected median 2, got %f", cleaned[0].Values[3])
	}
}

func TestCleanMultipleFollowsTrend(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.NaNHandling = stats.NaNMultiple

	// Exact line: the regression residual is zero, so the draws carry
	// no noise and the gap lands on the trend, far from the mean.
	samples := []stats.Sample{{Name: "a", Values: []float64{1, 2, 3, 4, 5, nan(), 7, 8, 9, 10}}}
	cleaned, _, err := sanitizer.Clean(samples, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if math.Abs(cleaned[0].Values[5]-6) > 1e-6 {
		t.Errorf("expected trend value 6, got %f", cleaned[0].Values[5])
	}
}

func TestCleanMultipleDistinctFromMean(t *testing.T) {
	values := []float64{2, 4.1, 5.9, 8.2, nan(), 12.1, 13.8, 16.2}

	run := func(policy stats.NaNPolicy) []float64 {
		sanitizer := NewSanitizer(rng.NewSeeded())
		opts := stats.DefaultOptions()
		opts.NaNHandling = policy
		cleaned, _, err := sanitizer.Clean(
			[]stats.Sample{{Name: "a", Values: append([]float64(nil), values...)}}, opts)
		if err != nil {
			t.Fatalf("Clean failed under %s: %v", policy, err)
		}
		return cleaned[0].Values
	}

	meanFilled := run(stats.NaNMean)
	multiFilled := run(stats.NaNMultiple)
	if meanFilled[4] == multiFilled[4] {
		t.Errorf("multiple policy behaves as mean imputation: %f", multiFilled[4])
	}
	// The trending sample's gap should land near the local trend, not
	// the global center.
	if math.Abs(multiFilled[4]-10) > 1.5 {
		t.Errorf("imputed value off the trend: %f", multiFilled[4])
	}

	again := run(stats.NaNMultiple)
	if multiFilled[4] != again[4] {
		t.Errorf("multiple imputation not deterministic: %f vs %f", multiFilled[4], again[4])
	}
}

func TestCleanZeroPolicy(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.NaNHandling = stats.NaNZero

	cleaned, _, err := sanitizer.Clean([]stats.Sample{{Values: []float64{5, nan()}}}, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if cleaned[0].Values[1] != 0 {
		t.Errorf("expected zero fill, got %f", cleaned[0].Values[1])
	}
}

func TestCleanClampsInfinities(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()

	samples := []stats.Sample{{Values: []float64{-4, 2, 10, math.Inf(1), math.Inf(-1)}}}
	cleaned, _, err := sanitizer.Clean(samples, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if cleaned[0].Values[3] != 15 {
		t.Errorf("positive infinity should clamp to 1.5x max: %f", cleaned[0].Values[3])
	}
	if cleaned[0].Values[4] != -6 {
		t.Errorf("negative infinity should clamp to 1.5x min: %f", cleaned[0].Values[4])
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.NaNHandling = stats.NaNZero

	original := []float64{1, nan(), 3}
	samples := []stats.Sample{{Values: original}}
	if _, _, err := sanitizer.Clean(samples, opts); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if !math.IsNaN(original[1]) {
		t.Error("sanitizer mutated the caller's slice")
	}
}

func TestCleanRemoveKeepsUncertainties(t *testing.T) {
	sanitizer := NewSanitizer(rng.NewSeeded())
	opts := stats.DefaultOptions()
	opts.TreatAsPaired = false

	samples := []stats.Sample{{
		Values:        []float64{1, nan(), 3},
		Uncertainties: []float64{0.1, 0.2, 0.3},
	}}
	cleaned, _, err := sanitizer.Clean(samples, opts)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(cleaned[0].Uncertainties) != 2 {
		t.Fatalf("uncertainties not filtered alongside values: %v", cleaned[0].Uncertainties)
	}
	if cleaned[0].Uncertainties[1] != 0.3 {
		t.Errorf("uncertainty pairing broken: %v", cleaned[0].Uncertainties)
	}
}
