package qualitycontrol

import (
	"math"
	"math/rand"
	"testing"

	"anastat/domain/stats"
)

func stableProcess(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + r.NormFloat64()
	}
	return out
}

func TestStableProcessPasses(t *testing.T) {
	engine := NewEngine()
	assessment, err := engine.Assess(stats.Sample{Values: stableProcess(50, 42)}, stats.DefaultOptions())
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if !assessment.Stable {
		t.Errorf("stable process flagged: %+v", assessment.Violations)
	}
	if assessment.Label != "Stable" {
		t.Errorf("wrong label: %s", assessment.Label)
	}
	if assessment.UCL <= assessment.CenterLine || assessment.LCL >= assessment.CenterLine {
		t.Error("control limits do not bracket the center line")
	}
}

func TestRunRuleDetectsShift(t *testing.T) {
	engine := NewEngine()
	values := stableProcess(30, 7)
	// Shift the last 10 points well above the mean.
	for i := 20; i < 30; i++ {
		values[i] += 1.5
	}
	assessment, err := engine.Assess(stats.Sample{Values: values}, stats.DefaultOptions())
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	found := false
	for _, v := range assessment.Violations {
		if v.Rule == "run_of_7_one_side" {
			found = true
		}
	}
	if !found {
		t.Errorf("sustained shift not caught by run rule: %+v", assessment.Violations)
	}
	if assessment.Stable {
		t.Error("shifted process reported stable")
	}
}

func TestZoneRuleTwoOfThree(t *testing.T) {
	engine := NewEngine()
	values := stableProcess(30, 11)
	// Two consecutive extreme excursions.
	values[15] = 107
	values[16] = 107
	assessment, err := engine.Assess(stats.Sample{Values: values}, stats.DefaultOptions())
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	found := false
	for _, v := range assessment.Violations {
		if v.Rule == "2_of_3_beyond_2_sigma" {
			found = true
		}
	}
	if !found {
		t.Errorf("paired excursion not caught: %+v", assessment.Violations)
	}
}

func TestUnstableLabelNamesFirstRule(t *testing.T) {
	engine := NewEngine()
	values := stableProcess(30, 13)
	for i := 20; i < 30; i++ {
		values[i] += 2
	}
	assessment, err := engine.Assess(stats.Sample{Values: values}, stats.DefaultOptions())
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if assessment.Stable {
		t.Fatal("expected instability")
	}
	expected := "Unstable(" + assessment.Violations[0].Rule + ")"
	if assessment.Label != expected {
		t.Errorf("label %q does not name first violation %q", assessment.Label, expected)
	}
}

func TestCapabilityComputed(t *testing.T) {
	engine := NewEngine()
	opts := stats.DefaultOptions()
	lsl, usl := 94.0, 106.0
	opts.LSL = &lsl
	opts.USL = &usl

	assessment, err := engine.Assess(stats.Sample{Values: stableProcess(100, 17)}, opts)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if assessment.Capability == nil {
		t.Fatal("capability missing despite spec limits")
	}
	// Six-sigma spread with unit sd gives Cp near 2.
	if math.Abs(assessment.Capability.Cp-2.0) > 0.4 {
		t.Errorf("Cp estimate off: %f", assessment.Capability.Cp)
	}
	if assessment.Capability.Cpk > assessment.Capability.Cp+1e-9 {
		t.Error("Cpk cannot exceed Cp")
	}
	if assessment.Capability.Rating != "excellent" {
		t.Errorf("expected excellent rating, got %s", assessment.Capability.Rating)
	}
	if assessment.Capability.PPMDefects > 100 {
		t.Errorf("defect estimate too high for capable process: %f", assessment.Capability.PPMDefects)
	}
}

func TestCapabilityInvertedLimits(t *testing.T) {
	engine := NewEngine()
	opts := stats.DefaultOptions()
	lsl, usl := 106.0, 94.0
	opts.LSL = &lsl
	opts.USL = &usl
	if _, err := engine.Assess(stats.Sample{Values: stableProcess(40, 19)}, opts); err == nil {
		t.Error("expected error for inverted spec limits")
	}
}

func TestConstantSeriesFails(t *testing.T) {
	engine := NewEngine()
	values := make([]float64, 20)
	for i := range values {
		values[i] = 5
	}
	if _, err := engine.Assess(stats.Sample{Values: values}, stats.DefaultOptions()); err == nil {
		t.Error("expected error for constant series")
	}
}

func TestTooShort(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.Assess(stats.Sample{Values: []float64{1, 2, 3}}, stats.DefaultOptions()); err == nil {
		t.Error("expected error for short series")
	}
}
