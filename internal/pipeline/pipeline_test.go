package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"anastat/domain/stats"
	"anastat/internal"
	"anastat/internal/rng"
)

func testOrchestrator() *Orchestrator {
	return NewOrchestrator(rng.NewSeeded(), internal.NewLogger(internal.LogLevelError), 4)
}

func lightOptions() stats.Options {
	opts := stats.DefaultOptions()
	opts.BootstrapSamples = 100
	opts.PermutationCount = 100
	opts.OptimizerStarts = 3
	return opts
}

func normalSample(name string, n int, mu, sigma float64, seed int64) stats.Sample {
	r := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = mu + sigma*r.NormFloat64()
	}
	return stats.Sample{Name: name, Values: values}
}

func TestExecuteSingleSample(t *testing.T) {
	o := testOrchestrator()
	result, err := o.Execute(context.Background(), []stats.Sample{
		normalSample("x", 100, 10, 2, 42),
	}, lightOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.RunID == "" {
		t.Error("missing run ID")
	}
	if len(result.Descriptive) != 1 {
		t.Fatalf("expected 1 descriptive record, got %d", len(result.Descriptive))
	}
	if math.Abs(result.Descriptive[0].Mean-10) > 1 {
		t.Errorf("mean estimate off: %f", result.Descriptive[0].Mean)
	}
	if !result.Analyses.DescriptiveStats || !result.Analyses.NormalityTest {
		t.Error("expected descriptive and normality in the plan")
	}
	if result.Analyses.CorrelationAnalysis {
		t.Error("correlation should not run for one sample")
	}
	if result.QualityScore <= 0 || result.QualityScore > 100 {
		t.Errorf("quality score out of range: %f", result.QualityScore)
	}
	if len(result.Recommendations) == 0 {
		t.Error("recommendations must never be empty")
	}
}

func TestExecuteTwoSamplesRunsCorrelation(t *testing.T) {
	o := testOrchestrator()
	result, err := o.Execute(context.Background(), []stats.Sample{
		normalSample("x", 60, 10, 2, 1),
		normalSample("y", 60, 12, 2, 2),
	}, lightOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Correlation == nil {
		t.Fatal("correlation missing for two samples")
	}
	if len(result.Correlation.Matrix) != 2 {
		t.Errorf("wrong matrix size: %d", len(result.Correlation.Matrix))
	}
	if len(result.Hypothesis) == 0 {
		t.Error("hypothesis tests missing for two groups")
	}
	if result.Power == nil {
		t.Error("power analysis missing")
	}
}

func TestExecuteDeterministic(t *testing.T) {
	samples := []stats.Sample{
		normalSample("x", 50, 5, 1, 11),
		normalSample("y", 50, 5, 1, 12),
	}
	opts := lightOptions()

	r1, err := testOrchestrator().Execute(context.Background(), samples, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	r2, err := testOrchestrator().Execute(context.Background(), samples, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Everything but the run ID must be bit-identical.
	r1.RunID = ""
	r2.RunID = ""
	j1, err := json.Marshal(r1)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	j2, err := json.Marshal(r2)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(j1) != string(j2) {
		t.Error("same seed and inputs gave different results")
	}
}

func TestExecuteSeedChangesResamples(t *testing.T) {
	samples := []stats.Sample{
		normalSample("x", 50, 5, 1, 11),
		normalSample("y", 50, 5, 1, 12),
	}
	opts1 := lightOptions()
	opts2 := lightOptions()
	opts2.Seed = 4242

	r1, err := testOrchestrator().Execute(context.Background(), samples, opts1)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	r2, err := testOrchestrator().Execute(context.Background(), samples, opts2)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if r1.Correlation == nil || r2.Correlation == nil {
		t.Fatal("missing correlation reports")
	}
	same := true
	for i := range r1.Correlation.Tests {
		if r1.Correlation.Tests[i].CILower != r2.Correlation.Tests[i].CILower {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical bootstrap intervals")
	}
}

func TestExecuteExplicitAnalysisList(t *testing.T) {
	o := testOrchestrator()
	opts := lightOptions()
	opts.EnabledAnalyses = []string{stats.AnalysisDescriptive}

	result, err := o.Execute(context.Background(), []stats.Sample{
		normalSample("x", 60, 10, 2, 3),
		normalSample("y", 60, 10, 2, 4),
	}, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Correlation != nil {
		t.Error("explicit list should suppress correlation")
	}
	if len(result.Normality) != 0 {
		t.Error("explicit list should suppress normality")
	}
	if len(result.Descriptive) != 2 {
		t.Errorf("descriptive should still run: %d", len(result.Descriptive))
	}
}

func TestExecuteRejectsInvalidRequest(t *testing.T) {
	o := testOrchestrator()
	if _, err := o.Execute(context.Background(), nil, lightOptions()); err == nil {
		t.Error("expected error for empty request")
	}

	opts := lightOptions()
	opts.ConfidenceLevel = 1.5
	if _, err := o.Execute(context.Background(), []stats.Sample{
		normalSample("x", 10, 0, 1, 1),
	}, opts); err == nil {
		t.Error("expected error for invalid confidence level")
	}

	opts = lightOptions()
	opts.EnabledAnalyses = []string{"read_tea_leaves"}
	if _, err := o.Execute(context.Background(), []stats.Sample{
		normalSample("x", 10, 0, 1, 1),
	}, opts); err == nil {
		t.Error("expected error for unknown analysis name")
	}
}

func TestExecuteHandlesMissingValues(t *testing.T) {
	o := testOrchestrator()
	sample := normalSample("x", 50, 10, 2, 9)
	sample.Values[5] = math.NaN()
	sample.Values[17] = math.Inf(1)

	result, err := o.Execute(context.Background(), []stats.Sample{sample}, lightOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Sanitization.RowsRemovedTotal != 1 {
		t.Errorf("expected 1 removed row, got %d", result.Sanitization.RowsRemovedTotal)
	}
	if _, err := json.Marshal(result); err != nil {
		t.Errorf("result does not JSON-encode: %v", err)
	}
}

func TestExecuteOutputRounded(t *testing.T) {
	o := testOrchestrator()
	opts := lightOptions()
	opts.DecimalPrecision = 3

	result, err := o.Execute(context.Background(), []stats.Sample{
		normalSample("x", 40, 1.0/3, 1, 5),
	}, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	mean := result.Descriptive[0].Mean
	rounded := math.Round(mean*1000) / 1000
	if mean != rounded {
		t.Errorf("mean not rounded to 3 decimals: %v", mean)
	}
}

func TestExecuteUncertaintyPlan(t *testing.T) {
	o := testOrchestrator()
	sample := normalSample("m", 40, 10, 1, 8)
	sample.Uncertainties = make([]float64, 40)
	for i := range sample.Uncertainties {
		sample.Uncertainties[i] = 0.5
	}

	result, err := o.Execute(context.Background(), []stats.Sample{sample}, lightOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Analyses.UncertaintyProp {
		t.Error("uncertainty propagation not planned despite stated uncertainties")
	}
	if len(result.Uncertainty) != 1 {
		t.Fatalf("expected 1 uncertainty report, got %d", len(result.Uncertainty))
	}
	if result.Descriptive[0].WeightedMean == nil {
		t.Error("weighted mean missing from descriptive record")
	}
}

func TestDetectorTemporalSeries(t *testing.T) {
	detector := NewDetector(internal.NewLogger(internal.LogLevelError))
	values := make([]float64, 60)
	for i := range values {
		values[i] = float64(i) * 0.5
	}
	required := detector.Detect([]stats.Sample{{Name: "trend", Values: values}}, stats.DefaultOptions())
	if !required.TimeSeries {
		t.Error("strong trend did not trigger temporal analysis")
	}
}

func TestDetectorShortSeriesNoTemporal(t *testing.T) {
	detector := NewDetector(internal.NewLogger(internal.LogLevelError))
	required := detector.Detect([]stats.Sample{normalSample("x", 10, 0, 1, 2)}, stats.DefaultOptions())
	if required.TimeSeries {
		t.Error("temporal analysis selected for a 10-point sample")
	}
	if !required.DescriptiveStats {
		t.Error("descriptive must always run")
	}
}

func TestQualityScorePenalties(t *testing.T) {
	result := &stats.Result{
		Descriptive: []stats.DescriptiveStats{{Name: "x", N: 10}},
		Normality:   []stats.NormalityReport{{Name: "x", IsNormal: false}},
	}
	score := scoreQuality(result)
	// 100 - (30-10)*2 - 15 = 45.
	if score != 45 {
		t.Errorf("expected score 45, got %f", score)
	}
}

func TestQualityScoreFloor(t *testing.T) {
	result := &stats.Result{
		Descriptive: []stats.DescriptiveStats{{N: 3}},
		Normality:   []stats.NormalityReport{{IsNormal: false}},
		Outliers:    []stats.OutlierReport{{Rate: 0.5}},
		Stability:   []stats.StabilityAssessment{{Stable: false}},
		Power:       &stats.PowerAnalysis{Underpowered: true, CurrentN: 3, RequiredN: 300},
	}
	score := scoreQuality(result)
	if score < 0 {
		t.Errorf("score must not go negative: %f", score)
	}
}
